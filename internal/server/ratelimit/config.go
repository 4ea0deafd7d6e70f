package ratelimit

import "time"

// EndpointConfig limits one path (or path prefix, when it ends in "/") and
// method.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int
	Window time.Duration
	// Burst is the bucket capacity; zero means Limit.
	Burst int
}

// key groups prefix-matched paths into one bucket.
func (e EndpointConfig) key(path string) string {
	if e.Path != "" {
		return e.Path
	}
	return path
}

// Config holds the limiter settings.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Allowlist       map[string]bool
	Endpoints       []EndpointConfig
}

// SiteConfig returns the limits for the public site. formsPerMinute caps
// each form endpoint per client.
func SiteConfig(formsPerMinute int) Config {
	if formsPerMinute <= 0 {
		formsPerMinute = 30
	}
	burst := max(formsPerMinute/6, 2)
	form := func(path string) EndpointConfig {
		return EndpointConfig{Path: path, Method: "POST", Limit: formsPerMinute, Window: time.Minute, Burst: burst}
	}
	return Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Endpoints: []EndpointConfig{
			// Inference and outbound mail cost money per call.
			{Path: "/api/classify", Method: "POST", Limit: 10, Window: time.Minute, Burst: 3},
			{Path: "/api/resume/parse", Method: "POST", Limit: 10, Window: time.Minute, Burst: 3},
			{Path: "/api/send", Method: "POST", Limit: 20, Window: time.Minute, Burst: 5},
			form("/api/bookings"),
			form("/api/rfp"),
			form("/api/contact"),
			form("/api/applications"),
			{Path: "/api/auth/", Method: "POST", Limit: 20, Window: time.Minute, Burst: 5},
			{Path: "/api/admin/assets", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		},
	}
}
