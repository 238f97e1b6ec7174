package brain

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

// OpenAIAdapter answers through the OpenAI Responses API.
type OpenAIAdapter struct {
	client *openai.Client
	model  openai.ChatModel
}

func NewOpenAIAdapter(apiKey, model string) *OpenAIAdapter {
	client := openai.NewClient(option.WithAPIKey(strings.TrimSpace(apiKey)))
	m := openai.ChatModel(strings.TrimSpace(model))
	if m == "" {
		m = openai.ChatModelGPT4o
	}
	return &OpenAIAdapter{client: &client, model: m}
}

func (a *OpenAIAdapter) StreamResponse(ctx context.Context, req MessageRequest, onDelta DeltaHandler) (MessageResponse, error) {
	items := responses.ResponseInputParam{}
	if sys := systemText(req); sys != "" {
		items = append(items, responses.ResponseInputItemParamOfMessage(
			responses.ResponseInputMessageContentListParam{
				{OfInputText: &responses.ResponseInputTextParam{Text: sys}},
			},
			responses.EasyInputMessageRoleSystem,
		))
	}
	items = append(items, responses.ResponseInputItemParamOfMessage(
		responses.ResponseInputMessageContentListParam{
			{OfInputText: &responses.ResponseInputTextParam{Text: req.InputText}},
		},
		responses.EasyInputMessageRoleUser,
	))

	resp, err := a.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: a.model,
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: items},
	})
	if err != nil {
		return MessageResponse{}, fmt.Errorf("openai responses: %w", err)
	}

	text := strings.TrimSpace(resp.OutputText())
	if text != "" && onDelta != nil {
		if err := onDelta(text); err != nil {
			return MessageResponse{}, err
		}
	}
	return MessageResponse{Text: text}, nil
}

func systemText(req MessageRequest) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.Instructions))
	if len(req.MemoryContext) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Recent conversation:\n")
		for _, line := range req.MemoryContext {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String())
}
