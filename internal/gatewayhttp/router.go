// Package gatewayhttp implements the gateway's request pipeline: a
// purpose-built router with path parameters and the fixed inner middleware
// chain (auth → rate-limit → cors → metrics → audit → handler) that runs
// once a route has matched.
package gatewayhttp

import (
	"fmt"
	"strings"
)

// HandlerFunc handles a matched request.
type HandlerFunc func(ctx *RequestContext)

type segment struct {
	literal string
	isParam bool
}

// Route is a single registered method+pattern+handler triple.
type Route struct {
	Method   string
	Pattern  string
	segments []segment
	Handler  HandlerFunc
}

// Router is a linear-scan, first-match router over method+pattern routes
// with `{name}` path parameters. It is built once at startup and is safe
// for concurrent read-only use thereafter (no locking on the hot path).
type Router struct {
	routes []*Route
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{}
}

// AddRoute registers a handler for method+pattern. Pattern must start with
// "/"; a segment written as "{name}" binds that path segment to name.
// Registering an empty parameter name is an error.
func (r *Router) AddRoute(method, pattern string, handler HandlerFunc) error {
	if !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("gatewayhttp: pattern %q must start with '/'", pattern)
	}
	if len(pattern) > 1 && strings.HasSuffix(pattern, "/") {
		return fmt.Errorf("gatewayhttp: pattern %q must not end with '/' (except root)", pattern)
	}

	segs, err := parsePattern(pattern)
	if err != nil {
		return err
	}

	r.routes = append(r.routes, &Route{
		Method:   method,
		Pattern:  pattern,
		segments: segs,
		Handler:  handler,
	})
	return nil
}

func parsePattern(pattern string) ([]segment, error) {
	trimmed := strings.TrimPrefix(pattern, "/")
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, "/")
	segs := make([]segment, 0, len(parts))
	for _, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") && len(part) >= 2 {
			name := part[1 : len(part)-1]
			if name == "" {
				return nil, fmt.Errorf("gatewayhttp: empty parameter name in pattern %q", pattern)
			}
			segs = append(segs, segment{literal: name, isParam: true})
			continue
		}
		segs = append(segs, segment{literal: part})
	}
	return segs, nil
}

// Match finds the first route whose method and path both match, returning
// its handler and the bound path parameters.
func (r *Router) Match(method, path string) (*Route, map[string]string, bool) {
	normalized := normalizePath(path)
	pathParts := splitPath(normalized)

	for _, route := range r.routes {
		if route.Method != method {
			continue
		}
		if params, ok := matchSegments(route.segments, pathParts); ok {
			return route, params, true
		}
	}
	return nil, nil, false
}

// HasPath reports whether any route (of any method) matches path.
func (r *Router) HasPath(path string) bool {
	pathParts := splitPath(normalizePath(path))
	for _, route := range r.routes {
		if _, ok := matchSegments(route.segments, pathParts); ok {
			return true
		}
	}
	return false
}

// AllowedMethods returns the distinct HTTP methods registered for path, in
// first-registration order. Used to build the 405 response's Allow header.
func (r *Router) AllowedMethods(path string) []string {
	pathParts := splitPath(normalizePath(path))
	seen := make(map[string]struct{})
	var methods []string
	for _, route := range r.routes {
		if _, ok := matchSegments(route.segments, pathParts); !ok {
			continue
		}
		if _, dup := seen[route.Method]; dup {
			continue
		}
		seen[route.Method] = struct{}{}
		methods = append(methods, route.Method)
	}
	return methods
}

func matchSegments(pattern []segment, pathParts []string) (map[string]string, bool) {
	if len(pattern) != len(pathParts) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range pattern {
		if seg.isParam {
			if params == nil {
				params = make(map[string]string, len(pattern))
			}
			params[seg.literal] = pathParts[i]
			continue
		}
		if seg.literal != pathParts[i] {
			return nil, false
		}
	}
	if params == nil {
		params = map[string]string{}
	}
	return params, true
}

func splitPath(path string) []string {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// normalizePath ensures a leading slash and strips a trailing slash, except
// for the root path itself.
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
