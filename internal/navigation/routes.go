package navigation

import (
	"net/url"
	"strings"
)

// route is one entry of the ordered location table. A "*" segment captures
// the view ID.
type route struct {
	segments []string
	kind     Kind
}

// routes is matched top to bottom; the first match wins.
var routes = []route{
	{segments: nil, kind: KindHome},
	{segments: []string{"insights", "*"}, kind: KindInsight},
	{segments: []string{"page", "*"}, kind: KindPage},
	{segments: []string{"practice", "*"}, kind: KindPractice},
	{segments: []string{"rfp"}, kind: KindRFP},
	{segments: []string{"booking"}, kind: KindBooking},
	{segments: []string{"thinking"}, kind: KindThinking},
	{segments: []string{"careers"}, kind: KindCareers},
	{segments: []string{"careers", "jobs"}, kind: KindJobs},
	{segments: []string{"login"}, kind: KindLogin},
	{segments: []string{"dashboard"}, kind: KindDashboard},
	{segments: []string{"portal", "admin"}, kind: KindAdmin},
}

// PathFor returns the canonical location for a view. Insights are addressed
// by the slug of title when it has one, otherwise by ID.
func PathFor(v View, title string) string {
	v = NewView(v.Kind, v.ID)
	switch v.Kind {
	case KindHome:
		return "/"
	case KindInsight:
		ref := v.ID
		if slug := Slugify(title); slug != "" {
			ref = slug
		}
		return "/insights/" + url.PathEscape(ref)
	}
	for _, rt := range routes {
		if rt.kind != v.Kind {
			continue
		}
		parts := make([]string, len(rt.segments))
		for i, seg := range rt.segments {
			if seg == "*" {
				seg = url.PathEscape(v.ID)
			}
			parts[i] = seg
		}
		return "/" + strings.Join(parts, "/")
	}
	return "/"
}

// ParsePath maps a location back to a view. Unknown or malformed paths
// degrade to the home view; ParsePath never fails.
func ParsePath(location string) View {
	path := location
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	for _, rt := range routes {
		if len(rt.segments) != len(segments) {
			continue
		}
		id, ok := match(rt.segments, segments)
		if !ok {
			continue
		}
		return NewView(rt.kind, id)
	}
	return Home()
}

func match(pattern, segments []string) (string, bool) {
	var id string
	for i, want := range pattern {
		got := segments[i]
		if want == "*" {
			decoded, err := url.PathUnescape(got)
			if err != nil || decoded == "" {
				return "", false
			}
			id = decoded
			continue
		}
		if !strings.EqualFold(want, got) {
			return "", false
		}
	}
	return id, true
}
