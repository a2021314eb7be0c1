package generate

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini generates suggestions with the Google GenAI API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
	logger      *log.Logger
}

// NewGemini creates a Gemini generator.
func NewGemini(ctx context.Context, apiKey string, cfg model.GeneratorConfig, logger *log.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrNoAPIKey)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return NewGeminiWithClient(client, cfg, logger), nil
}

// NewGeminiWithClient wraps an already configured GenAI client.
func NewGeminiWithClient(client *genai.Client, cfg model.GeneratorConfig, logger *log.Logger) *Gemini {
	g := &Gemini{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   int32(cfg.MaxTokens),
		logger:      logger,
	}
	if g.model == "" {
		g.model = defaultGeminiModel
	}
	if g.temperature == 0 {
		g.temperature = defaultOpenAITemperature
	}
	return g
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) config(system string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = g.maxTokens
	}
	return cfg
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, req Request) ([]Suggestion, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	system, user := Prompt(req)
	g.logger.Debug(ctx, "Requesting suggestions from Gemini", log.Fields{"model": g.model, "count": req.Count, "kind": req.ParentKind.String()})

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(user, genai.RoleUser)},
		g.config(system),
	)
	if err != nil {
		g.logger.Error(ctx, "Gemini API call failed", log.Fields{"error": err})
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		g.logger.Warn(ctx, "Gemini returned an empty response", nil)
		return nil, fmt.Errorf("gemini returned an empty response")
	}
	return ParseSuggestions(text, req.Count), nil
}
