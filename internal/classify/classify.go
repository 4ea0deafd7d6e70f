// Package classify runs the two inference calls the site makes: triaging a
// consultation query and pre-filling an application from resume text. Both
// degrade to nil so a form never blocks on the model.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/content"
	"github.com/minehubyt/Anand-Pandey/internal/llm"
	"github.com/minehubyt/Anand-Pandey/internal/prompts"
	"github.com/minehubyt/Anand-Pandey/internal/schemas"
	schemafiles "github.com/minehubyt/Anand-Pandey/schemas"
)

// MinQueryLength is the length a booking query must exceed before it is
// analyzed.
const MinQueryLength = 20

// ShouldAnalyze reports whether a booking query is long enough to classify.
func ShouldAnalyze(query string) bool {
	return utf8.RuneCountInString(query) > MinQueryLength
}

// LegalAnalysis is stored verbatim on the inquiry it was produced for.
type LegalAnalysis = content.Analysis

// ResumeFields are the application form fields a resume can pre-fill.
type ResumeFields struct {
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Mobile     string `json:"mobile,omitempty"`
	Education  string `json:"education,omitempty"`
	Experience string `json:"experience,omitempty"`
	Interests  string `json:"interests,omitempty"`
}

// Stage names where a classification failed.
type Stage string

const (
	StageDisabled Stage = "disabled"
	StagePrompt   Stage = "prompt"
	StageGenerate Stage = "generate"
	StageSchema   Stage = "schema"
	StageDecode   Stage = "decode"
)

// ClassificationError describes a failed inference call.
type ClassificationError struct {
	Operation string
	Stage     Stage
	Cause     error
}

func (e *ClassificationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed at %s: %v", e.Operation, e.Stage, e.Cause)
	}
	return fmt.Sprintf("%s failed at %s", e.Operation, e.Stage)
}

func (e *ClassificationError) Unwrap() error {
	return e.Cause
}

// Classifier calls the model. A Classifier with a nil client is disabled
// and always fails.
type Classifier struct {
	client llm.Client
	areas  func() []content.PracticeArea
	log    *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) { c.log = l }
}

// WithPracticeAreas supplies the catalog offered to the model and used to
// canonicalize its answer.
func WithPracticeAreas(areas func() []content.PracticeArea) Option {
	return func(c *Classifier) { c.areas = areas }
}

// New creates a Classifier.
func New(client llm.Client, opts ...Option) *Classifier {
	c := &Classifier{
		client: client,
		areas:  func() []content.PracticeArea { return content.DefaultPracticeAreas },
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a model is configured.
func (c *Classifier) Enabled() bool {
	return c != nil && c.client != nil
}

// AnalyzeLegalQuery returns the triage of text, or nil on any failure.
func (c *Classifier) AnalyzeLegalQuery(ctx context.Context, text string) *LegalAnalysis {
	analysis, err := c.Analyze(ctx, text)
	if err != nil {
		c.log.Warn("legal query analysis failed", zap.Error(err))
		return nil
	}
	return analysis
}

// ParseResume returns the fields found in text, or nil on any failure.
func (c *Classifier) ParseResume(ctx context.Context, text string) *ResumeFields {
	fields, err := c.Resume(ctx, text)
	if err != nil {
		c.log.Warn("resume parsing failed", zap.Error(err))
		return nil
	}
	return fields
}

// Analyze is AnalyzeLegalQuery with the error exposed.
func (c *Classifier) Analyze(ctx context.Context, text string) (*LegalAnalysis, error) {
	const op = "legal query analysis"

	areas := c.areas()
	titles := make([]string, len(areas))
	for i, a := range areas {
		titles[i] = a.Title
	}
	var out LegalAnalysis
	err := c.run(ctx, op, "legal-query", map[string]string{
		"PracticeAreas": strings.Join(titles, ", "),
		"Query":         quote(text),
	}, llm.TierLite, schemafiles.LegalAnalysis, &out)
	if err != nil {
		return nil, err
	}

	for _, title := range titles {
		if strings.EqualFold(strings.TrimSpace(out.SuggestedPracticeArea), title) {
			out.SuggestedPracticeArea = title
			break
		}
	}
	return &out, nil
}

// Resume is ParseResume with the error exposed.
func (c *Classifier) Resume(ctx context.Context, text string) (*ResumeFields, error) {
	var out ResumeFields
	if err := c.run(ctx, "resume parsing", "resume", map[string]string{"Resume": quote(text)}, llm.TierStandard, schemafiles.ResumeFields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Classifier) run(ctx context.Context, op, promptKey string, data map[string]string, tier llm.ModelTier, schema string, out any) error {
	if !c.Enabled() {
		return &ClassificationError{Operation: op, Stage: StageDisabled}
	}

	prompt, err := prompts.Render("classify.yaml", promptKey, data)
	if err != nil {
		return &ClassificationError{Operation: op, Stage: StagePrompt, Cause: err}
	}

	raw, err := c.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		return &ClassificationError{Operation: op, Stage: StageGenerate, Cause: err}
	}
	raw = llm.CleanJSONBlock(raw)

	if err := schemas.ValidateDocument(schema, raw); err != nil {
		return &ClassificationError{Operation: op, Stage: StageSchema, Cause: err}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &ClassificationError{Operation: op, Stage: StageDecode, Cause: err}
	}
	return nil
}

// quote keeps user text from closing the quoted block in the prompt.
func quote(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), `"`, `'`)
}
