package brain

import (
	"context"
	"testing"
)

func TestRouterRoute(t *testing.T) {
	r := NewRouter(nil, NewMockAdapter(), nil)
	cases := []struct {
		query string
		want  Route
	}{
		{"tell me a joke", RouteChat},
		{"Search for cheap flights", RouteSearch},
		{"what is the LATEST on mars", RouteSearch},
		{"findings about sleep", RouteSearch},
		{"", RouteChat},
	}
	for _, tc := range cases {
		if got := r.Route(tc.query); got != tc.want {
			t.Fatalf("Route(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
}

func TestRouterCustomKeywords(t *testing.T) {
	r := NewRouter([]string{" Weather "}, NewMockAdapter(), nil)
	if got := r.Route("weather in Rome"); got != RouteSearch {
		t.Fatalf("Route() = %q, want %q", got, RouteSearch)
	}
	if got := r.Route("latest news"); got != RouteChat {
		t.Fatalf("Route() = %q, want %q", got, RouteChat)
	}
}

func TestRouterReplyDispatches(t *testing.T) {
	chat := &capturingAdapter{reply: "chat reply"}
	summarizer := &capturingAdapter{reply: "search reply"}
	r := NewRouter(nil, chat, NewSearcher(NewSearchClient("", "", 5), summarizer))

	text, route, err := r.Reply(context.Background(), MessageRequest{InputText: "hello"})
	if err != nil || text != "chat reply" || route != RouteChat {
		t.Fatalf("Reply(hello) = %q, %q, %v", text, route, err)
	}
	text, route, err = r.Reply(context.Background(), MessageRequest{InputText: "google the weather"})
	if err != nil || text != "search reply" || route != RouteSearch {
		t.Fatalf("Reply(google) = %q, %q, %v", text, route, err)
	}
	if chat.calls != 1 || summarizer.calls != 1 {
		t.Fatalf("calls chat=%d search=%d, want 1 and 1", chat.calls, summarizer.calls)
	}
}
