package gatewayhttp

import (
	"net/http"
	"strings"

	svcerrors "github.com/veloz-systems/gateway/infrastructure/errors"
	"github.com/veloz-systems/gateway/infrastructure/httputil"
)

// Server ties a Router and a Chain into a single http.Handler: match the
// route, build a RequestContext, run the fixed middleware chain, and
// translate router-level misses (404/405) and CORS preflight into
// responses the way spec 4.6/4.7 describe.
type Server struct {
	Router *Router
	Chain  *Chain
}

// NewServer builds a Server over router and chain.
func NewServer(router *Router, chain *Chain) *Server {
	return &Server{Router: router, Chain: chain}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions && s.Chain != nil {
		if s.Router.HasPath(r.URL.Path) {
			ctx := NewRequestContext(w, r, nil)
			s.Chain.CORS.apply(ctx)
			return
		}
	}

	route, params, ok := s.Router.Match(r.Method, r.URL.Path)
	if !ok {
		if s.Router.HasPath(r.URL.Path) {
			allowed := s.Router.AllowedMethods(r.URL.Path)
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			svcErr := svcerrors.MethodNotAllowed(r.Method, r.URL.Path, allowed)
			writeServiceError(w, r, svcErr)
			return
		}
		writeServiceError(w, r, svcerrors.NotFound("route", r.URL.Path))
		return
	}

	ctx := NewRequestContext(w, r, params)
	handler := route.Handler
	if s.Chain != nil {
		handler = s.Chain.Wrap(route)
	}
	handler(ctx)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, svcErr *svcerrors.ServiceError) {
	httputil.WriteErrorResponse(w, r, svcErr.HTTPStatus, svcErr.Kind.ShortCode(), svcErr.Message, svcErr.Details)
}
