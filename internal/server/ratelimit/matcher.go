package ratelimit

import "strings"

// unlimitedPrefixes are never throttled: health checks, long-lived streams
// and static assets.
var unlimitedPrefixes = []string{"/health", "/api/stream/", "/assets/"}

var unlimited = &EndpointConfig{}

// MatchEndpoint returns the config for path and method. Exact paths win over
// prefixes; nil means the default limit applies.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	for _, p := range unlimitedPrefixes {
		if strings.HasPrefix(path, p) {
			return unlimited
		}
	}
	for i := range configs {
		if configs[i].Method == method && configs[i].Path == path {
			return &configs[i]
		}
	}
	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			return c
		}
	}
	return nil
}
