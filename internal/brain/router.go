package brain

import (
	"context"
	"strings"
)

// Route names where a query is answered.
type Route string

const (
	RouteChat   Route = "chat"
	RouteSearch Route = "search"
)

var DefaultSearchKeywords = []string{"search", "google", "latest", "news", "find"}

// Router picks the search route when a query mentions any keyword,
// case-insensitively and as a substring.
type Router struct {
	keywords []string
	chat     Adapter
	searcher *Searcher
}

func NewRouter(keywords []string, chat Adapter, searcher *Searcher) *Router {
	kw := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			kw = append(kw, k)
		}
	}
	if len(kw) == 0 {
		kw = DefaultSearchKeywords
	}
	return &Router{keywords: kw, chat: chat, searcher: searcher}
}

func (r *Router) Route(query string) Route {
	q := strings.ToLower(query)
	for _, k := range r.keywords {
		if strings.Contains(q, k) {
			return RouteSearch
		}
	}
	return RouteChat
}

// Reply generates the reply for req on the route chosen for its input.
func (r *Router) Reply(ctx context.Context, req MessageRequest) (string, Route, error) {
	route := r.Route(req.InputText)
	if route == RouteSearch && r.searcher != nil {
		text, err := r.searcher.Summarize(ctx, req)
		return text, route, err
	}
	text, err := Complete(ctx, r.chat, req)
	return text, RouteChat, err
}
