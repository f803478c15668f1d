package http

import "math/rand"

// defaultUserAgents are realistic browser User-Agent strings. One is
// picked at random per request so concurrent requests don't present a
// uniform client identity to the provider.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/120.0",
}

// HeaderConfig configures the headers applied to every outbound request.
// It is passed into the client constructor; there is no process-wide
// mutable header table.
type HeaderConfig struct {
	// UserAgents is the pool of User-Agent strings to rotate through.
	// Empty means use the built-in browser pool.
	UserAgents []string
	// Static headers are sent with every request.
	Static map[string]string
}

// DefaultHeaderConfig returns the browser-like header set the provider
// expects from a regular client.
func DefaultHeaderConfig() HeaderConfig {
	return HeaderConfig{
		UserAgents: defaultUserAgents,
		Static: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.5",
			"Connection":      "keep-alive",
		},
	}
}

// pick returns headers for a single request: the static set plus a
// randomly selected User-Agent.
func (hc HeaderConfig) pick() map[string]string {
	headers := make(map[string]string, len(hc.Static)+1)
	for k, v := range hc.Static {
		headers[k] = v
	}

	agents := hc.UserAgents
	if len(agents) == 0 {
		agents = defaultUserAgents
	}
	headers["User-Agent"] = agents[rand.Intn(len(agents))]

	return headers
}
