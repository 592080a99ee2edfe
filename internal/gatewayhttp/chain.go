package gatewayhttp

import (
	"net/http"
	"strconv"
	"time"

	svcerrors "github.com/veloz-systems/gateway/infrastructure/errors"
	"github.com/veloz-systems/gateway/infrastructure/middleware"
	"github.com/veloz-systems/gateway/internal/auth"
)

// RateLimitResult is what a single rate-limit check reports.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	ResetAt    int64
	RetryAfter string
}

// RateLimiter is the subset of internal/ratelimit's Limiter the chain needs.
// Kept as an interface here so gatewayhttp doesn't import ratelimit directly.
type RateLimiter interface {
	Check(identity string) RateLimitResult
}

// AuditLogger is the subset of internal/audit's Logger the chain needs.
type AuditLogger interface {
	Log(eventType, action, userID, ip string, details map[string]interface{})
}

// Chain wires the fixed auth → rate-limit → cors → metrics → audit →
// handler order spec 4.7 describes. Any stage may short-circuit by writing
// a response and not invoking the next stage.
type Chain struct {
	Coordinator *auth.Coordinator
	RateLimiter RateLimiter
	CORS        CORSConfig
	Audit       AuditLogger
}

// Wrap composes route.Handler with the fixed middleware order.
func (c *Chain) Wrap(route *Route) HandlerFunc {
	handler := route.Handler
	return func(ctx *RequestContext) {
		if !c.runAuth(ctx) {
			return
		}
		if !c.runRateLimit(ctx) {
			return
		}
		if c.CORS.apply(ctx) {
			return
		}
		c.runMetrics(ctx, route)
		c.runAudit(ctx)
		handler(ctx)
	}
}

func (c *Chain) runAuth(ctx *RequestContext) bool {
	if c.Coordinator == nil {
		return true
	}
	info := c.Coordinator.Authenticate(ctx.Request.Header)
	if info != nil {
		ctx.SetAuthInfo(info)
	}
	return true
}

func (c *Chain) runRateLimit(ctx *RequestContext) bool {
	if c.RateLimiter == nil {
		return true
	}

	identity := ctx.ClientIP
	if info, ok := ctx.AuthInfo(); ok {
		identity = info.UserID
	}

	result := c.RateLimiter.Check(identity)
	ctx.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	ctx.Writer.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

	if !result.Allowed {
		ctx.Writer.Header().Set("Retry-After", result.RetryAfter)
		err := svcerrors.RateLimitExceeded(0, "")
		ctx.SendError(http.StatusTooManyRequests, err.Kind.ShortCode(), "rate limit exceeded")
		return false
	}
	return true
}

func (c *Chain) runMetrics(ctx *RequestContext, route *Route) {
	ctx.Request = ctx.Request.WithContext(middleware.WithRoutePattern(ctx.Request.Context(), route.Pattern))
}

func (c *Chain) runAudit(ctx *RequestContext) {
	if c.Audit == nil {
		return
	}
	userID := ""
	if info, ok := ctx.AuthInfo(); ok {
		userID = info.UserID
	}
	c.Audit.Log("http_request", ctx.Method+" "+ctx.Path, userID, ctx.ClientIP, map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
