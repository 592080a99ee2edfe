// Package middleware provides HTTP middleware for the service layer.
package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/veloz-systems/gateway/infrastructure/httputil"
)

const defaultMaxRequestBodyBytes int64 = 8 << 20 // 8MiB

// BodyLimitMiddleware caps request bodies to reduce memory/CPU DoS risk.
// It reads the body up front, bounded by the configured limit, so downstream
// handlers/decoders never see more than that many bytes.
type BodyLimitMiddleware struct {
	maxBytes int64
}

// NewBodyLimitMiddleware creates a request body limiting middleware.
// When maxBytes <= 0, a conservative default is applied.
func NewBodyLimitMiddleware(maxBytes int64) *BodyLimitMiddleware {
	if maxBytes <= 0 {
		maxBytes = defaultMaxRequestBodyBytes
	}
	return &BodyLimitMiddleware{maxBytes: maxBytes}
}

// Handler returns the body limiting middleware handler. It buffers the body
// up front via httputil.ReadAllStrict rather than wrapping it in a lazily
// enforced reader, so a BodyTooLargeError is reported before any handler
// ever sees a partial body.
func (m *BodyLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil || m.maxBytes <= 0 || r == nil {
			next.ServeHTTP(w, r)
			return
		}

		// Fast-path reject when Content-Length is known and too large.
		if r.ContentLength > m.maxBytes {
			httputil.WriteErrorResponse(
				w,
				r,
				http.StatusRequestEntityTooLarge,
				"",
				"request body too large",
				map[string]any{"limit_bytes": m.maxBytes},
			)
			return
		}

		if r.Body != nil && r.Body != http.NoBody {
			data, err := httputil.ReadAllStrict(r.Body, m.maxBytes)
			r.Body.Close()
			if err != nil {
				var tooLarge *httputil.BodyTooLargeError
				if errors.As(err, &tooLarge) {
					httputil.WriteErrorResponse(
						w, r, http.StatusRequestEntityTooLarge, "",
						"request body too large",
						map[string]any{"limit_bytes": m.maxBytes},
					)
					return
				}
				httputil.WriteErrorResponse(w, r, http.StatusBadRequest, "", "failed to read request body", nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(data))
			r.ContentLength = int64(len(data))
		}

		next.ServeHTTP(w, r)
	})
}
