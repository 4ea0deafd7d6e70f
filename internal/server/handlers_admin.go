package server

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/assets"
	"github.com/minehubyt/Anand-Pandey/internal/content"
	"github.com/minehubyt/Anand-Pandey/internal/identity"
	"github.com/minehubyt/Anand-Pandey/internal/messaging"
	"github.com/minehubyt/Anand-Pandey/internal/richtext"
	"github.com/minehubyt/Anand-Pandey/internal/server/middleware"
)

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type roleRequest struct {
	Role identity.Role `json:"role" validate:"required,oneof=admin applicant general"`
}

type previewRequest struct {
	Markdown string `json:"markdown"`
}

// PreviewResponse is the rendered editor body.
type PreviewResponse struct {
	HTML    string   `json:"html"`
	Excerpt string   `json:"excerpt"`
	Assets  []string `json:"assets"`
}

type insertTagRequest struct {
	Content  string       `json:"content"`
	Start    int          `json:"start" validate:"gte=0"`
	End      int          `json:"end" validate:"gte=0"`
	Tag      richtext.Tag `json:"tag" validate:"required"`
	ImageURL string       `json:"imageUrl"`
}

// excerptRunes is the length of generated insight summaries.
const excerptRunes = 200

func entityKind(r *http.Request) (content.Kind, error) {
	raw := r.PathValue("kind")
	kind, ok := content.ParseKind(raw)
	if !ok {
		return "", &content.ErrUnknownKind{Kind: raw}
	}
	return kind, nil
}

func (s *Server) handleAdminList(w http.ResponseWriter, r *http.Request) {
	kind, err := entityKind(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entities, err := s.deps.Content.ListEntities(r.Context(), kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, nonNilSlice(entities))
}

// handleAdminSave creates or replaces one entity. The body must match the
// kind in the path exactly.
func (s *Server) handleAdminSave(w http.ResponseWriter, r *http.Request) {
	kind, err := entityKind(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		s.fail(w, r, &ErrValidation{Field: "body", Message: "request body too large"})
		return
	}
	entity, err := content.DecodeEntity(kind, raw)
	if err != nil {
		s.fail(w, r, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}
	if err := s.validate.Struct(entity); err != nil {
		s.fail(w, r, validationError(err))
		return
	}

	ctx, cancel := storeContext(r)
	defer cancel()
	id, err := s.deps.Content.SaveEntity(ctx, entity)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info("saved entity", zap.String("kind", string(kind)), zap.String("id", id))

	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	s.jsonResponse(w, status, map[string]string{"id": id})
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	kind, err := entityKind(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id := r.PathValue("id")
	if err := s.deps.Content.DeleteEntity(r.Context(), kind, id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info("deleted entity", zap.String("kind", string(kind)), zap.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminInquiries(w http.ResponseWriter, r *http.Request) {
	inqs, err := s.deps.Content.ListInquiries(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, nonNilSlice(inqs))
}

func (s *Server) handleAdminApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.deps.Content.ListApplications(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, nonNilSlice(apps))
}

// inquirySubject names the matter in a status notice.
func inquirySubject(typ string) string {
	switch typ {
	case content.InquiryAppointment:
		return "Consultation"
	case content.InquiryRFP:
		return "Proposal"
	default:
		return "Enquiry"
	}
}

func (s *Server) handleInquiryStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	id := r.PathValue("id")

	ctx, cancel := storeContext(r)
	defer cancel()
	inq, err := s.deps.Content.GetInquiry(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if inq == nil {
		s.fail(w, r, &ErrNotFound{What: "inquiry", ID: id})
		return
	}
	if !content.InquiryTransitions.Allows(inq.Status, req.Status) {
		s.fail(w, r, transitionError(content.CollectionInquiries, content.InquiryTransitions, inq.Status, req.Status))
		return
	}
	if err := s.deps.Content.UpdateInquiryStatus(ctx, id, req.Status); err != nil {
		s.fail(w, r, err)
		return
	}
	changed := inq.Status != req.Status
	inq.Status = req.Status

	if err := s.notifyStatus(r, changed, messaging.StatusNotice{
		Name:      inq.Name,
		Email:     inq.Email,
		Subject:   inquirySubject(inq.Type),
		Reference: inq.UniqueID,
		Status:    req.Status,
	}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, inq)
}

func (s *Server) handleApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	id := r.PathValue("id")

	ctx, cancel := storeContext(r)
	defer cancel()
	app, err := s.deps.Content.GetApplication(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if app == nil {
		s.fail(w, r, &ErrNotFound{What: "application", ID: id})
		return
	}
	if !content.ApplicationTransitions.Allows(app.Status, req.Status) {
		s.fail(w, r, transitionError(content.CollectionApplications, content.ApplicationTransitions, app.Status, req.Status))
		return
	}
	if err := s.deps.Content.UpdateApplicationStatus(ctx, id, req.Status); err != nil {
		s.fail(w, r, err)
		return
	}
	changed := app.Status != req.Status
	app.Status = req.Status

	if err := s.notifyStatus(r, changed, messaging.StatusNotice{
		Name:      app.Name,
		Email:     app.Email,
		Subject:   app.JobTitle,
		Reference: app.ReferenceCode,
		Status:    req.Status,
	}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, app)
}

func transitionError(collection string, t content.Transitions, from, to string) error {
	if !t.Known(to) {
		return &content.ErrInvalidStatus{Collection: collection, Status: to}
	}
	return &content.ErrInvalidTransition{Collection: collection, From: from, To: to}
}

// notifyStatus sends the status notice when the status actually moved.
func (s *Server) notifyStatus(r *http.Request, changed bool, notice messaging.StatusNotice) error {
	if !changed {
		return nil
	}
	ctx, cancel := detached(r, s.sendTimeout)
	defer cancel()
	outcome, err := s.deps.Notifier.StatusChange(ctx, notice)
	return s.confirm("status change", outcome, err)
}

func (s *Server) handleAdminSearch(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.searcher().Search(r.Context(), searchQuery(r)))
}

func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	user, err := s.deps.Auth.SetRole(r.Context(), r.PathValue("uid"), req.Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info("role changed",
		zap.String("uid", user.UID),
		zap.String("role", string(user.Role)),
		zap.String("by", middleware.GetIdentity(r).UID),
	)
	s.jsonResponse(w, http.StatusOK, user)
}

// maxUpload bounds the multipart body of an asset upload.
const maxUpload = 64 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Uploader == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "asset uploads are not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		s.fail(w, r, &ErrValidation{Field: "file", Message: "invalid multipart upload"})
		return
	}
	kind, err := assets.ParseKind(r.FormValue("kind"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, &ErrValidation{Field: "file", Message: "is required"})
		return
	}
	defer func() { _ = file.Close() }()

	ctx, cancel := storeContext(r)
	defer cancel()
	asset, err := s.deps.Uploader.Upload(ctx, kind, header.Filename, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, asset)
}

// handlePreview renders an editor body the way the insight page will.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	html, err := richtext.Render(req.Markdown)
	if err != nil {
		s.fail(w, r, &ErrValidation{Field: "markdown", Message: err.Error()})
		return
	}
	excerpt, err := richtext.Excerpt(html, excerptRunes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	refs, err := richtext.AssetRefs(html)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, PreviewResponse{HTML: html, Excerpt: excerpt, Assets: nonNilSlice(refs)})
}

func (s *Server) handleInsertTag(w http.ResponseWriter, r *http.Request) {
	var req insertTagRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := richtext.InsertTag(req.Content, req.Start, req.End, req.Tag, req.ImageURL)
	if err != nil {
		s.fail(w, r, &ErrValidation{Field: "tag", Message: err.Error()})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"content": out})
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	obj, ok := s.deps.AssetFiles.Get(r.PathValue("key"))
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "asset not found")
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(obj.Data)
}
