package brain

import (
	"context"
	"fmt"
	"strings"
)

// MockAdapter answers without a backend. Replies are a few short sentences
// streamed word by word so chunked speech and token streaming both run.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) StreamResponse(
	ctx context.Context,
	req MessageRequest,
	onDelta DeltaHandler,
) (MessageResponse, error) {
	text := mockReply(req)
	if onDelta != nil {
		words := strings.Fields(text)
		for i, w := range words {
			if err := ctx.Err(); err != nil {
				return MessageResponse{}, err
			}
			if i < len(words)-1 {
				w += " "
			}
			if err := onDelta(w); err != nil {
				return MessageResponse{}, err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return MessageResponse{}, err
	}
	return MessageResponse{Text: text}, nil
}

func mockReply(req MessageRequest) string {
	if query, ok := searchQuery(req.InputText); ok {
		return fmt.Sprintf("Here is what I found about %s. Search results are not summarized offline. Add a search key and a model key for real answers.", quoteTopic(query))
	}

	topic := quoteTopic(req.InputText)
	if topic == "" {
		return "I am listening. Ask me anything."
	}
	reply := fmt.Sprintf("You asked about %s. I am running without a language model, so this is a placeholder answer.", topic)
	if n := len(req.MemoryContext); n > 0 {
		reply += fmt.Sprintf(" I still have %d earlier messages in mind.", n)
	}
	return reply
}

// searchQuery extracts the query from a prompt built by SummaryPrompt.
func searchQuery(prompt string) (string, bool) {
	rest, ok := strings.CutPrefix(prompt, summaryLead)
	if !ok {
		return "", false
	}
	line, _, _ := strings.Cut(strings.TrimSpace(rest), "\n")
	return strings.Trim(line, `"`), true
}

func quoteTopic(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, ".!?")
}
