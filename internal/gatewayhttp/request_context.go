package gatewayhttp

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/veloz-systems/gateway/infrastructure/httputil"
	"github.com/veloz-systems/gateway/infrastructure/middleware"
	"github.com/veloz-systems/gateway/internal/auth"
)

// maxDecodeBodySize bounds how much of a request body DecodeJSON will read,
// independent of the outer body-limit middleware (spec 4.7's handler layer
// never assumes the outer stack ran first).
const maxDecodeBodySize = 1 << 20 // 1MB

// RequestContext is the per-request object the inner middleware chain and
// handlers operate on. It wraps the underlying net/http request/response
// with the fields the spec calls out explicitly: path parameters, the
// resolved AuthInfo, and the json response helpers.
type RequestContext struct {
	Request *http.Request
	Writer  http.ResponseWriter

	Method     string
	Path       string
	Query      url.Values
	PathParams map[string]string
	ClientIP   string

	responded bool
}

// NewRequestContext builds a RequestContext for an incoming request matched
// to params by the router.
func NewRequestContext(w http.ResponseWriter, r *http.Request, params map[string]string) *RequestContext {
	return &RequestContext{
		Request:    r,
		Writer:     w,
		Method:     r.Method,
		Path:       r.URL.Path,
		Query:      r.URL.Query(),
		PathParams: params,
		ClientIP:   httputil.ClientIP(r),
	}
}

// Headers exposes the request's headers read-only.
func (c *RequestContext) Headers() http.Header {
	return c.Request.Header
}

// Body returns the request body. It may be read exactly once.
func (c *RequestContext) Body() io.ReadCloser {
	return c.Request.Body
}

// DecodeJSON reads and decodes the request body into v, rejecting unknown
// fields and bodies past maxDecodeBodySize via middleware.ValidateJSON.
func (c *RequestContext) DecodeJSON(v interface{}) error {
	return middleware.ValidateJSON(c.Request.Body, maxDecodeBodySize, v)
}

// AuthInfo returns the AuthInfo populated by the auth stage of the chain,
// if authentication succeeded.
func (c *RequestContext) AuthInfo() (*auth.AuthInfo, bool) {
	return auth.AuthInfoFromContext(c.Request.Context())
}

// SetAuthInfo attaches info to the context so downstream handlers and RBAC
// decorators can read it.
func (c *RequestContext) SetAuthInfo(info *auth.AuthInfo) {
	c.Request = c.Request.WithContext(auth.WithAuthInfo(c.Request.Context(), info))
}

// Context returns the underlying request's context, for cancellation and
// deadline propagation into the bridge/handlers.
func (c *RequestContext) Context() context.Context {
	return c.Request.Context()
}

// envelope is the success response shape: {"status":"success","data":{...}}.
type envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// SendJSON writes the standard success envelope.
func (c *RequestContext) SendJSON(status int, data interface{}) {
	if c.responded {
		return
	}
	c.responded = true
	httputil.WriteJSON(c.Writer, status, envelope{Status: "success", Data: data})
}

// SendError writes the standard error envelope {"error":"...","message":"..."}.
func (c *RequestContext) SendError(status int, code, message string) {
	if c.responded {
		return
	}
	c.responded = true
	httputil.WriteErrorResponse(c.Writer, c.Request, status, code, message, nil)
}

// Responded reports whether a response has already been written, so
// middleware can tell a short-circuit apart from a pass-through.
func (c *RequestContext) Responded() bool {
	return c.responded
}
