package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/conduit-lang/declmeta/internal/web/middleware"
	"github.com/conduit-lang/declmeta/internal/web/response"
)

// Router manages HTTP routing using chi and records every route for
// introspection
type Router struct {
	mux    chi.Router
	routes []RouteInfo
}

// RouteInfo describes a registered route
type RouteInfo struct {
	Method      string   `json:"method"`
	Pattern     string   `json:"pattern"`
	Description string   `json:"description,omitempty"`
	Parameters  []string `json:"parameters,omitempty"`
}

// NewRouter creates a router whose unmatched requests get JSON errors
func NewRouter() *Router {
	mux := chi.NewRouter()
	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.RenderNotFound(w, fmt.Sprintf("no route for %s", r.URL.Path))
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.RenderError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s is not allowed for this resource", r.Method))
	})
	return &Router{mux: mux}
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use adds middleware. It must be called before any route is registered.
func (r *Router) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		r.mux.Use(m)
	}
}

// Get registers a GET route
func (r *Router) Get(pattern, description string, handler http.HandlerFunc) {
	r.mux.Get(pattern, handler)
	r.routes = append(r.routes, RouteInfo{
		Method:      http.MethodGet,
		Pattern:     pattern,
		Description: description,
		Parameters:  pathParameters(pattern),
	})
}

// Routes returns a copy of the registered routes in registration order
func (r *Router) Routes() []RouteInfo {
	out := make([]RouteInfo, len(r.routes))
	copy(out, r.routes)
	return out
}

// RouteList returns a formatted list of all routes
func (r *Router) RouteList() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-8s %-28s %s\n", "METHOD", "PATTERN", "DESCRIPTION")
	for _, info := range r.routes {
		fmt.Fprintf(&sb, "%-8s %-28s %s\n", info.Method, info.Pattern, info.Description)
	}
	return sb.String()
}

// PathParam returns a URL path parameter of the current request
func PathParam(req *http.Request, name string) string {
	return chi.URLParam(req, name)
}

func pathParameters(pattern string) []string {
	var params []string
	for _, part := range strings.Split(pattern, "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := strings.Trim(part, "{}")
			if i := strings.IndexByte(name, ':'); i >= 0 {
				name = name[:i]
			}
			params = append(params, name)
		}
	}
	return params
}
