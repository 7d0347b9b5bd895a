package signal

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// originChecker accepts any origin when allowed is empty or contains "*".
// Requests without an Origin header are not from a browser and pass.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	hosts := make([]string, 0, len(allowed))
	for _, a := range allowed {
		hosts = append(hosts, strings.ToLower(strings.TrimSuffix(a, "/")))
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		o := strings.ToLower(u.Scheme + "://" + u.Host)
		return slices.Contains(hosts, o)
	}
}
