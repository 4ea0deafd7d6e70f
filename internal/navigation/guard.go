package navigation

// Access is the outcome of the route guard.
type Access int

// Guard outcomes.
const (
	AccessGranted Access = iota
	// AccessLoginRequired renders the login gate in place of the view.
	AccessLoginRequired
	// AccessForbidden means the session lacks the role the view needs.
	AccessForbidden
)

func (a Access) String() string {
	switch a {
	case AccessGranted:
		return "granted"
	case AccessLoginRequired:
		return "login-required"
	case AccessForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Guard decides whether v may render for the given session.
func Guard(v View, authenticated, admin bool) Access {
	if !v.Kind.Protected() {
		return AccessGranted
	}
	if !authenticated {
		return AccessLoginRequired
	}
	if v.Kind == KindAdmin && !admin {
		return AccessForbidden
	}
	return AccessGranted
}
