package resolver

import (
	"druglookup/internal/dataset"
)

// Route is the path a query takes.
type Route int

const (
	// RouteLocal answers from the local vector index.
	RouteLocal Route = iota
	// RouteRemote asks the labeling API.
	RouteRemote
)

func (r Route) String() string {
	switch r {
	case RouteLocal:
		return "local"
	case RouteRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Router decides between the local index and the remote API by exact name
// match against the local name set.
type Router struct {
	names map[string]struct{}
}

// NewRouter builds a router over a set of normalized brand names.
func NewRouter(names map[string]struct{}) *Router {
	if names == nil {
		names = map[string]struct{}{}
	}
	return &Router{names: names}
}

// Route returns RouteLocal when the lower-cased, trimmed query is a known name.
func (r *Router) Route(query string) Route {
	if _, ok := r.names[dataset.NormalizeName(query)]; ok {
		return RouteLocal
	}
	return RouteRemote
}
