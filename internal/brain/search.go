package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/speakstream/internal/reliability"
)

const DefaultSearchURL = "https://google.serper.dev/search"

// Texts returned instead of results; they are fed to the model as-is.
const (
	searchKeyMissing = "Search API key missing."
	searchNoResults  = "No search results found."
)

// SearchClient queries a Serper-compatible web search API.
type SearchClient struct {
	apiKey  string
	url     string
	results int
	client  *http.Client
}

func NewSearchClient(apiKey, url string, results int) *SearchClient {
	if strings.TrimSpace(url) == "" {
		url = DefaultSearchURL
	}
	if results <= 0 {
		results = 5
	}
	return &SearchClient{
		apiKey:  strings.TrimSpace(apiKey),
		url:     strings.TrimSpace(url),
		results: results,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type searchResponse struct {
	Organic []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"organic"`
}

// Fetch returns the top results as "title - link" lines. Missing credentials
// and empty result sets are reported as text, not errors.
func (c *SearchClient) Fetch(ctx context.Context, query string) (string, error) {
	if c.apiKey == "" {
		return searchKeyMissing, nil
	}
	payload, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return "", fmt.Errorf("marshal search request: %w", err)
	}

	var parsed searchResponse
	err = reliability.Retry(ctx, 2, 250*time.Millisecond, time.Second, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create search request: %w", err)
		}
		req.Header.Set("X-API-KEY", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		res, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("send search request: %w", err)
		}
		defer res.Body.Close()
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
			return &reliability.StatusError{Provider: "search", Code: res.StatusCode, Body: strings.TrimSpace(string(body))}
		}
		parsed = searchResponse{}
		if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("decode search response: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, c.results)
	for _, r := range parsed.Organic {
		if len(lines) == c.results {
			break
		}
		lines = append(lines, fmt.Sprintf("%s - %s", r.Title, r.Link))
	}
	if len(lines) == 0 {
		return searchNoResults, nil
	}
	return strings.Join(lines, "\n"), nil
}

// Searcher answers a query by summarizing live search results with the model.
type Searcher struct {
	search  *SearchClient
	adapter Adapter
}

func NewSearcher(search *SearchClient, adapter Adapter) *Searcher {
	return &Searcher{search: search, adapter: adapter}
}

// Summarize fetches results for query and asks the model for an answer. A
// failed fetch is described to the model instead of failing the request.
func (s *Searcher) Summarize(ctx context.Context, req MessageRequest) (string, error) {
	results, err := s.search.Fetch(ctx, req.InputText)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		results = fmt.Sprintf("Search fetch failed: %v", err)
	}
	req.InputText = SummaryPrompt(req.InputText, results)
	return Complete(ctx, s.adapter, req)
}

const summaryLead = "You are a helpful assistant. A user searched for:"

// SummaryPrompt builds the instruction used to summarize search results.
func SummaryPrompt(query, results string) string {
	return fmt.Sprintf(summaryLead+`
%q

Here are the top search results:
%s

Summarize the results clearly and give a useful answer.`, query, results)
}
