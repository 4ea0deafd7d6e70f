// Package navigation maps site locations to views and sequences the
// cross-fade transition between them.
package navigation

// Kind identifies one of the page kinds the site can display.
type Kind string

// Page kinds.
const (
	KindHome      Kind = "home"
	KindInsight   Kind = "insight"
	KindPage      Kind = "page"
	KindRFP       Kind = "rfp"
	KindThinking  Kind = "thinking"
	KindPractice  Kind = "practice"
	KindCareers   Kind = "careers"
	KindJobs      Kind = "jobs"
	KindDashboard Kind = "dashboard"
	KindLogin     Kind = "login"
	KindAdmin     Kind = "admin"
	KindBooking   Kind = "booking"
)

// Kinds lists every page kind in declaration order.
var Kinds = []Kind{
	KindHome, KindInsight, KindPage, KindRFP, KindThinking, KindPractice,
	KindCareers, KindJobs, KindDashboard, KindLogin, KindAdmin, KindBooking,
}

// Valid reports whether k is a known page kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// RequiresID reports whether views of this kind address a sub-resource.
func (k Kind) RequiresID() bool {
	switch k {
	case KindInsight, KindPage, KindPractice:
		return true
	default:
		return false
	}
}

// Protected reports whether the kind sits behind the login gate.
func (k Kind) Protected() bool {
	return k == KindDashboard || k == KindAdmin
}

// View is the value the root controller renders. ID is set if and only if
// Kind.RequiresID.
type View struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id,omitempty"`
}

// Home returns the landing view.
func Home() View {
	return View{Kind: KindHome}
}

// NewView builds a view that satisfies the ID invariant. Unknown kinds and
// sub-resource kinds without an ID degrade to the home view; IDs passed for
// kinds that take none are dropped.
func NewView(kind Kind, id string) View {
	if !kind.Valid() {
		return Home()
	}
	if kind.RequiresID() {
		if id == "" {
			return Home()
		}
		return View{Kind: kind, ID: id}
	}
	return View{Kind: kind}
}

// Equal reports whether two views address the same page.
func (v View) Equal(other View) bool {
	return v.Kind == other.Kind && v.ID == other.ID
}

func (v View) String() string {
	if v.ID == "" {
		return string(v.Kind)
	}
	return string(v.Kind) + "/" + v.ID
}
