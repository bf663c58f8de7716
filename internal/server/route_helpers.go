package server

import (
	"net/http"
	"sort"
	"strings"
)

// RouteHandler is a function type for HTTP handlers
type RouteHandler func(http.ResponseWriter, *http.Request)

// MethodRouter maps HTTP methods to handlers
type MethodRouter map[string]RouteHandler

// RouteByMethod dispatches on r.Method. Unsupported methods get a 405 with an
// Allow header listing what the route does accept.
func RouteByMethod(w http.ResponseWriter, r *http.Request, routes MethodRouter) {
	if handler, ok := routes[r.Method]; ok && handler != nil {
		handler(w, r)
		return
	}

	allowed := make([]string, 0, len(routes))
	for method, handler := range routes {
		if handler != nil {
			allowed = append(allowed, method)
		}
	}
	sort.Strings(allowed)

	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// RouteCRUD routes GET, POST, PUT and DELETE; nil handlers are not allowed
func RouteCRUD(w http.ResponseWriter, r *http.Request, get, post, put, del RouteHandler) {
	RouteByMethod(w, r, MethodRouter{
		http.MethodGet:    get,
		http.MethodPost:   post,
		http.MethodPut:    put,
		http.MethodDelete: del,
	})
}

// RouteResourceCollection: GET lists, POST creates
func RouteResourceCollection(w http.ResponseWriter, r *http.Request, list, create RouteHandler) {
	RouteCRUD(w, r, list, create, nil, nil)
}

// RouteResourceItem: GET reads, PUT updates, DELETE removes
func RouteResourceItem(w http.ResponseWriter, r *http.Request, get, update, del RouteHandler) {
	RouteCRUD(w, r, get, nil, update, del)
}
