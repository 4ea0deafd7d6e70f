package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/content"
	"github.com/minehubyt/Anand-Pandey/internal/identity"
	"github.com/minehubyt/Anand-Pandey/internal/navigation"
	"github.com/minehubyt/Anand-Pandey/internal/server/middleware"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html.tmpl"))

// FirmName titles every page.
const FirmName = "AK Pandey & Associates"

// PageState is handed to the client bundle to hydrate the site.
type PageState struct {
	View      navigation.View    `json:"view"`
	Path      string             `json:"path"`
	Access    string             `json:"access"`
	LoginGate bool               `json:"loginGate"`
	User      *identity.Identity `json:"user,omitempty"`
	Insight   *content.Insight   `json:"insight,omitempty"`
	ApplyJob  string             `json:"applyJob,omitempty"`
}

type pageData struct {
	Title       string
	Description string
	State       PageState
}

// pageTitles are the fixed titles of views without their own record.
var pageTitles = map[navigation.Kind]string{
	navigation.KindRFP:       "Request for Proposal",
	navigation.KindBooking:   "Book a Consultation",
	navigation.KindThinking:  "Thinking",
	navigation.KindCareers:   "Careers",
	navigation.KindJobs:      "Open Positions",
	navigation.KindDashboard: "Client Portal",
	navigation.KindLogin:     "Sign In",
	navigation.KindAdmin:     "Admin Portal",
}

// handlePage serves the site shell for every non-API location. Unknown
// paths and insight ids are redirected to their canonical location;
// protected views render the login gate for anonymous visitors.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		s.errorResponse(w, http.StatusNotFound, "not found")
		return
	}

	view := navigation.ParsePath(r.URL.Path)
	data := pageData{Title: FirmName}
	status := http.StatusOK

	var title string
	switch view.Kind {
	case navigation.KindInsight:
		in, err := s.deps.Content.FindInsightBySlug(r.Context(), view.ID)
		if err != nil {
			s.log.Error("failed to load insight", zap.String("ref", view.ID), zap.Error(err))
			status = http.StatusServiceUnavailable
			break
		}
		if in == nil {
			status = http.StatusNotFound
			break
		}
		ref, err := s.deps.Content.InsightRef(r.Context(), in)
		if err != nil {
			s.log.Error("failed to resolve insight path", zap.String("id", in.ID), zap.Error(err))
			status = http.StatusServiceUnavailable
			break
		}
		if ref != in.ID {
			title = in.Title
		}
		view = navigation.NewView(navigation.KindInsight, in.ID)
		data.State.Insight = in
		data.Title = in.Title + " | " + FirmName
		data.Description = in.Desc
	case navigation.KindPractice:
		if area := content.FindPracticeArea(s.deps.Content.PracticeAreas(), view.ID); area != nil {
			data.Title = area.Title + " | " + FirmName
		} else {
			status = http.StatusNotFound
		}
	default:
		if t, ok := pageTitles[view.Kind]; ok {
			data.Title = t + " | " + FirmName
		}
	}

	canonical := navigation.PathFor(view, title)
	if status == http.StatusOK && canonical != r.URL.EscapedPath() {
		target := canonical
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		code := http.StatusFound
		if view.Kind == navigation.KindInsight {
			code = http.StatusMovedPermanently
		}
		http.Redirect(w, r, target, code)
		return
	}

	user := middleware.GetIdentity(r)
	access := navigation.Guard(view, user != nil, user.IsAdmin())
	if access == navigation.AccessForbidden {
		status = http.StatusForbidden
	}
	data.State = PageState{
		View:      view,
		Path:      canonical,
		Access:    access.String(),
		LoginGate: access == navigation.AccessLoginRequired,
		User:      user,
		Insight:   data.State.Insight,
		ApplyJob:  r.URL.Query().Get("apply"),
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.log.Error("failed to render page", zap.Error(err))
		http.Error(w, connectionMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
