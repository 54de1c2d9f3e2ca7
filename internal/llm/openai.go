package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient calls the Chat Completions API through the official SDK.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient builds a client. SDK-level retries are disabled; retry
// policy belongs to the chunk generator.
func NewOpenAIClient(apiKey, model string, opts ...option.RequestOption) *OpenAIClient {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxOutputTokens))
	}

	if req.Structured {
		if req.Schema != nil {
			name := req.SchemaName
			if name == "" {
				name = "structured_response"
			}
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
					JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
						Name:   name,
						Schema: req.Schema,
						// Optional fields (nullable asset suggestions, metadata on
						// later chunks) do not survive strict mode.
						Strict: openai.Bool(false),
					},
				},
			}
		} else {
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
			}
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500) {
			return "", &GenerationError{Provider: "openai", Err: &RetryableError{
				StatusCode: apiErr.StatusCode,
				Message:    apiErr.Error(),
			}}
		}
		return "", &GenerationError{Provider: "openai", Err: err}
	}
	if len(completion.Choices) == 0 {
		return "", &GenerationError{Provider: "openai", Err: fmt.Errorf("no choices in response")}
	}
	return completion.Choices[0].Message.Content, nil
}
