package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIClient struct {
	client    *openai.Client
	model     openai.ChatModel
	modelName string
}

func NewOpenAIClient(apiKey, model string, opts ...option.RequestOption) *OpenAIClient {
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIClient{
		client:    &client,
		model:     openai.ChatModel(model),
		modelName: model,
	}
}

func (c *OpenAIClient) Name() string {
	return c.modelName
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt Prompt) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if prompt.System != "" {
		messages = append(messages, openai.SystemMessage(prompt.System))
	}
	messages = append(messages, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: openai.Int(maxTokens(prompt)),
	}
	if prompt.Temperature > 0 {
		params.Temperature = openai.Float(prompt.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	content := cleanTextResponse(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return content, nil
}
