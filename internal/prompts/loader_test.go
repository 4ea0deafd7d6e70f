package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ClassifierPrompts(t *testing.T) {
	s, err := Load("classify.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"legal-query", "resume"}, s.Keys())

	again, err := Load("classify.yaml")
	require.NoError(t, err)
	assert.Same(t, s, again)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestRender(t *testing.T) {
	out, err := Render("classify.yaml", "legal-query", map[string]string{
		"PracticeAreas": "Taxation, Shipping",
		"Query":         "A customs notice arrived",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "categorize it into a practice area")
	assert.Contains(t, out, "Known practice areas: Taxation, Shipping")
	assert.Contains(t, out, `Query: "A customs notice arrived"`)
	assert.NotContains(t, out, "{{")
}

func TestRender_DataIsNotParsed(t *testing.T) {
	out, err := Render("classify.yaml", "resume", map[string]string{"Resume": "{{.Secret}}"})
	require.NoError(t, err)
	assert.Contains(t, out, `Resume Text: "{{.Secret}}"`)
}

func TestRender_Errors(t *testing.T) {
	_, err := Render("classify.yaml", "nonexistent-key", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = Render("classify.yaml", "resume", map[string]string{})
	assert.Error(t, err, "missing placeholder")
}
