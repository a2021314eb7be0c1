// Package generate produces candidate child nodes for a mind map node by
// asking a language model, or a built-in offline source, for suggestions.
package generate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
	"mindnoscape/editor/internal/tree"
)

const (
	DefaultCount = 3
	MaxCount     = 8
	MaxTextLen   = 500
)

var validate = validator.New()

// Request describes the node to expand.
type Request struct {
	ParentText string        `validate:"required,max=500"`
	ParentKind model.Kind    `validate:"gte=0,lte=2"`
	Count      int           `validate:"min=1,max=8"`
	Ancestry   tree.Ancestry `validate:"-"`
}

// Validate checks the request bounds.
func (r Request) Validate() error {
	if strings.TrimSpace(r.ParentText) == "" {
		return fmt.Errorf("invalid generation request: parent text is empty")
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid generation request: %w", err)
	}
	return nil
}

// Suggestion is one generated child.
type Suggestion struct {
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Generator returns exactly req.Count suggestions for req.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]Suggestion, error)
	Name() string
}

// ErrNoAPIKey is returned when a remote provider is configured without a key.
var ErrNoAPIKey = errors.New("api key not configured")

var listPrefix = regexp.MustCompile(`^[\d\-\*•\.]+\s*`)

// ParseSuggestions turns a model response into count suggestions. Each
// non-empty line is one suggestion with list markers stripped; a line may
// carry "text | description | source". Missing entries are padded with
// placeholders and extra ones dropped.
func ParseSuggestions(response string, count int) []Suggestion {
	var out []Suggestion
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(listPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		s := Suggestion{Text: strings.TrimSpace(parts[0])}
		if s.Text == "" {
			continue
		}
		if len(parts) > 1 {
			s.Description = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			s.Source = strings.TrimSpace(parts[2])
		}
		out = append(out, s)
	}
	return Pad(out, count)
}

// Pad trims or extends suggestions to exactly count entries.
func Pad(suggestions []Suggestion, count int) []Suggestion {
	if len(suggestions) > count {
		return suggestions[:count]
	}
	for len(suggestions) < count {
		suggestions = append(suggestions, Suggestion{Text: fmt.Sprintf("Concept %d", len(suggestions)+1)})
	}
	return suggestions
}

// Prompt returns the system and user messages for req.
func Prompt(req Request) (system, user string) {
	var b strings.Builder
	switch req.ParentKind {
	case model.KindAnswer:
		system = "You are a mind mapping assistant that deepens exploration through follow-up questions."
		fmt.Fprintf(&b, "Based on the following statement:\n\n%q\n\nGenerate %d follow-up questions that explore it further.\n", req.ParentText, req.Count)
		b.WriteString("Each question must be 5-15 words and approach a different angle (why, how, what if, consequences).\n")
	default:
		system = "You are a mind mapping assistant that explores topics through structured thinking."
		fmt.Fprintf(&b, "Generate %d concise and distinct answers to the following question:\n\n%q\n", req.Count, req.ParentText)
		b.WriteString("Each answer must be 5-15 words and cover a different aspect or perspective.\n")
	}
	if req.Ancestry.RootText != "" && req.Ancestry.Depth > 0 {
		fmt.Fprintf(&b, "\nThe mind map is about %q.", req.Ancestry.RootText)
		if req.Ancestry.ParentText != "" && req.Ancestry.ParentText != req.Ancestry.RootText {
			fmt.Fprintf(&b, " The node was reached from %q.", req.Ancestry.ParentText)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nReturn one item per line without numbering or bullets. ")
	b.WriteString("Optionally append \" | short description | source\" to a line. ")
	b.WriteString("Answer in the language of the input.")
	return system, b.String()
}

// New builds the generator named by cfg.Provider. The remote providers read
// their key from the environment variable named by cfg.APIKeyEnv.
func New(ctx context.Context, cfg model.GeneratorConfig, apiKey string, logger *log.Logger) (Generator, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	var (
		g   Generator
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		g, err = NewOpenAI(apiKey, cfg, logger)
	case "gemini":
		g, err = NewGemini(ctx, apiKey, cfg, logger)
	case "", "static":
		g = NewStatic()
	default:
		return nil, fmt.Errorf("unsupported generator provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		g = NewTimed(g, cfg.Timeout)
	}
	if cfg.RequestsPerMinute > 0 {
		g = NewLimited(g, cfg.RequestsPerMinute)
	}
	return g, nil
}
