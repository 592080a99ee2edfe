package gatewayhttp

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// CORSConfig configures the inner per-request CORS stage. Unlike the outer
// ambient middleware stack, this runs as part of the fixed
// auth → rate-limit → cors → metrics → audit → handler chain and also
// answers OPTIONS preflight requests directly.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAgeSeconds    int
}

// DefaultCORSConfig returns sane defaults for a JSON+SSE API.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key", "X-Trace-ID", "Last-Event-ID"},
		ExposedHeaders: []string{"X-Trace-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAgeSeconds:  3600,
	}
}

func (cfg CORSConfig) allowAllOrigins() bool {
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// isOriginAllowed reports whether origin is permitted: an exact match
// against AllowedOrigins, or a ".example.com"-style suffix wildcard that
// matches any subdomain of example.com (but not example.com itself unless
// listed separately).
func (cfg CORSConfig) isOriginAllowed(origin string) bool {
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	if host == "" {
		return false
	}

	for _, allowed := range cfg.AllowedOrigins {
		allowed = strings.TrimSpace(allowed)
		if allowed == "" {
			continue
		}
		if allowed == origin {
			return true
		}
		if strings.HasPrefix(allowed, ".") {
			suffix := strings.TrimPrefix(allowed, ".")
			if suffix == "" || !strings.HasSuffix(host, suffix) {
				continue
			}
			idx := len(host) - len(suffix)
			if idx > 0 && host[idx-1] == '.' {
				return true
			}
		}
	}
	return false
}

// apply sets CORS response headers and reports whether the request was a
// preflight OPTIONS request that has already been fully answered.
func (cfg CORSConfig) apply(ctx *RequestContext) (preflightHandled bool) {
	origin := ctx.Request.Header.Get("Origin")
	allowed := origin != "" && (cfg.allowAllOrigins() || cfg.isOriginAllowed(origin))

	if allowed {
		h := ctx.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
		h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
		h.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposedHeaders, ", "))
		h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAgeSeconds))
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
	}

	if ctx.Method == http.MethodOptions {
		ctx.responded = true
		ctx.Writer.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}
