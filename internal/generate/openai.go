package generate

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
)

const (
	defaultOpenAIModel       = openai.GPT3Dot5Turbo
	defaultOpenAITemperature = 0.7
	defaultOpenAIMaxTokens   = 500
)

// OpenAI generates suggestions with the chat completions API.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *log.Logger
}

// NewOpenAI creates an OpenAI generator.
func NewOpenAI(apiKey string, cfg model.GeneratorConfig, logger *log.Logger) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrNoAPIKey)
	}
	return NewOpenAIWithClient(openai.NewClient(apiKey), cfg, logger), nil
}

// NewOpenAIWithClient wraps an existing client, e.g. one pointed at a proxy.
func NewOpenAIWithClient(client *openai.Client, cfg model.GeneratorConfig, logger *log.Logger) *OpenAI {
	o := &OpenAI{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
	if o.model == "" {
		o.model = defaultOpenAIModel
	}
	if o.temperature == 0 {
		o.temperature = defaultOpenAITemperature
	}
	if o.maxTokens == 0 {
		o.maxTokens = defaultOpenAIMaxTokens
	}
	return o
}

func (o *OpenAI) Name() string { return "openai" }

// Generate implements Generator.
func (o *OpenAI) Generate(ctx context.Context, req Request) ([]Suggestion, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	system, user := Prompt(req)
	o.logger.Debug(ctx, "Requesting suggestions from OpenAI", log.Fields{"model": o.model, "count": req.Count, "kind": req.ParentKind.String()})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		o.logger.Error(ctx, "OpenAI API call failed", log.Fields{"error": err})
		return nil, fmt.Errorf("openai API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		o.logger.Warn(ctx, "OpenAI returned no choices", nil)
		return nil, fmt.Errorf("openai returned no choices")
	}
	return ParseSuggestions(resp.Choices[0].Message.Content, req.Count), nil
}
