package server

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/minehubyt/Anand-Pandey/internal/classify"
	"github.com/minehubyt/Anand-Pandey/internal/content"
	"github.com/minehubyt/Anand-Pandey/internal/messaging"
	"github.com/minehubyt/Anand-Pandey/internal/server/middleware"
)

type bookingRequest struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Date   string `json:"date" validate:"required"`
	Time   string `json:"time" validate:"required"`
	Branch string `json:"branch" validate:"required"`
	Query  string `json:"query" validate:"required"`
}

type rfpRequest struct {
	FirstName      string `json:"firstName" validate:"required"`
	LastName       string `json:"lastName"`
	Email          string `json:"email" validate:"required,email"`
	Organization   string `json:"organization" validate:"required"`
	Industry       string `json:"industry"`
	EngagementType string `json:"engagementType" validate:"required"`
	Budget         string `json:"budget"`
	Timeline       string `json:"timeline"`
	Description    string `json:"description" validate:"required"`
}

type contactRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Message string `json:"message" validate:"required"`
}

type textRequest struct {
	Text string `json:"text" validate:"required"`
}

type applicationRequest struct {
	JobID      string `json:"jobId" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Mobile     string `json:"mobile" validate:"required"`
	Education  string `json:"education"`
	Experience string `json:"experience"`
	Interests  string `json:"interests"`
	ResumeURL  string `json:"resumeUrl" validate:"omitempty,url"`
}

// BookingResponse carries the stored inquiry and, when the query was long
// enough and the model answered, its triage.
type BookingResponse struct {
	Inquiry  *content.Inquiry        `json:"inquiry"`
	Analysis *classify.LegalAnalysis `json:"analysis,omitempty"`
}

// userID is the signed-in caller's uid, or empty.
func userID(r *http.Request) string {
	if id := middleware.GetIdentity(r); id != nil {
		return id.UID
	}
	return ""
}

func (s *Server) analyze(r *http.Request, query string) *classify.LegalAnalysis {
	if !s.deps.Classifier.Enabled() || !classify.ShouldAnalyze(query) {
		return nil
	}
	ctx, cancel := detached(r, s.inferenceTimeout)
	defer cancel()
	return s.deps.Classifier.AnalyzeLegalQuery(ctx, query)
}

// handleBooking stores a consultation request and confirms it. A failed
// classification never blocks the booking.
func (s *Server) handleBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	analysis := s.analyze(r, req.Query)

	ctx, cancel := storeContext(r)
	defer cancel()
	inq, err := s.deps.Content.AddInquiry(ctx, content.Inquiry{
		Type:   content.InquiryAppointment,
		Name:   req.Name,
		Email:  req.Email,
		UserID: userID(r),
		Details: content.InquiryDetails{
			PreferredDate: req.Date,
			PreferredTime: req.Time,
			Branch:        req.Branch,
			Query:         req.Query,
			AIAnalysis:    analysis,
		},
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sendCtx, cancelSend := detached(r, s.sendTimeout)
	defer cancelSend()
	outcome, err := s.deps.Notifier.BookingConfirmation(sendCtx, messaging.Booking{
		Name:          req.Name,
		Email:         req.Email,
		Date:          req.Date,
		Time:          req.Time,
		Branch:        req.Branch,
		ReferenceCode: inq.UniqueID,
	})
	if err := s.confirm("booking", outcome, err); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, BookingResponse{Inquiry: inq, Analysis: analysis})
}

func (s *Server) handleRFP(w http.ResponseWriter, r *http.Request) {
	var req rfpRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	proposal := messaging.Proposal{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Organization: req.Organization,
		Category:     req.EngagementType,
	}

	ctx, cancel := storeContext(r)
	defer cancel()
	inq, err := s.deps.Content.AddInquiry(ctx, content.Inquiry{
		Type:   content.InquiryRFP,
		Name:   proposal.FullName(),
		Email:  req.Email,
		UserID: userID(r),
		Details: content.InquiryDetails{
			Organization:   req.Organization,
			Industry:       req.Industry,
			EngagementType: req.EngagementType,
			Budget:         req.Budget,
			Timeline:       req.Timeline,
			Description:    req.Description,
		},
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sendCtx, cancelSend := detached(r, s.sendTimeout)
	defer cancelSend()
	outcome, err := s.deps.Notifier.ProposalAcknowledgement(sendCtx, proposal)
	if err := s.confirm("rfp", outcome, err); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, inq)
}

// handleContact stores a general enquiry. No confirmation is sent.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := storeContext(r)
	defer cancel()
	inq, err := s.deps.Content.AddInquiry(ctx, content.Inquiry{
		Type:    content.InquiryContact,
		Name:    req.Name,
		Email:   req.Email,
		UserID:  userID(r),
		Details: content.InquiryDetails{Phone: req.Phone, Message: req.Message},
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, inq)
}

// handleClassify returns the triage for a query, or null when the query
// is too short or the model fails.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"analysis": s.analyze(r, req.Text)})
}

// handleResumeParse pre-fills the application form from pasted resume
// text. Fields is null when nothing could be extracted.
func (s *Server) handleResumeParse(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	var fields *classify.ResumeFields
	if s.deps.Classifier.Enabled() {
		ctx, cancel := detached(r, s.inferenceTimeout)
		defer cancel()
		fields = s.deps.Classifier.ParseResume(ctx, req.Text)
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"fields": fields})
}

func (s *Server) handleApplication(w http.ResponseWriter, r *http.Request) {
	var req applicationRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := storeContext(r)
	defer cancel()
	job, err := s.deps.Content.GetJob(ctx, req.JobID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if job == nil {
		s.fail(w, r, &ErrNotFound{What: "job", ID: req.JobID})
		return
	}
	if job.Status == content.JobClosed {
		s.fail(w, r, &ErrValidation{Field: "jobId", Message: "this position is no longer accepting applications"})
		return
	}

	app, err := s.deps.Content.SubmitApplication(ctx, content.JobApplication{
		JobID:      job.ID,
		JobTitle:   job.Title,
		UserID:     userID(r),
		Name:       strings.TrimSpace(req.Name),
		Email:      req.Email,
		Mobile:     req.Mobile,
		Education:  req.Education,
		Experience: req.Experience,
		Interests:  req.Interests,
		ResumeURL:  req.ResumeURL,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sendCtx, cancelSend := detached(r, s.sendTimeout)
	defer cancelSend()
	outcome, err := s.deps.Notifier.ApplicationAcknowledgement(sendCtx, messaging.ApplicationNotice{
		Name:     app.Name,
		Email:    app.Email,
		JobTitle: app.JobTitle,
	})
	if err := s.confirm("application", outcome, err); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, app)
}

// confirm applies the delivery policy to a confirmation. A template that
// fails to render is logged and treated like a failed send.
func (s *Server) confirm(op string, outcome messaging.Outcome, renderErr error) error {
	if renderErr != nil {
		s.log.Error("failed to render confirmation", zap.String("operation", op), zap.Error(renderErr))
		outcome.User = messaging.Failed(renderErr)
	}
	return s.policy().ResolveOutcome(op, outcome)
}

func (s *Server) handleMyApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.deps.Content.ListUserApplications(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, nonNilSlice(apps))
}

func (s *Server) handleMyInquiries(w http.ResponseWriter, r *http.Request) {
	inqs, err := s.deps.Content.ListUserInquiries(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, nonNilSlice(inqs))
}

// Activity is the dashboard overview.
type Activity struct {
	Applications []content.JobApplication `json:"applications"`
	Inquiries    []content.Inquiry        `json:"inquiries"`
}

// handleMyActivity loads both dashboard lists concurrently.
func (s *Server) handleMyActivity(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	var act Activity
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		apps, err := s.deps.Content.ListUserApplications(ctx, uid)
		act.Applications = nonNilSlice(apps)
		return err
	})
	g.Go(func() error {
		inqs, err := s.deps.Content.ListUserInquiries(ctx, uid)
		act.Inquiries = nonNilSlice(inqs)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, act)
}
