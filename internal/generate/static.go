package generate

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"mindnoscape/editor/internal/log"
)

// Static suggests children from a small keyword table without any network
// access. Unmatched topics get numbered placeholders.
type Static struct {
	topics []staticTopic
}

type staticTopic struct {
	keywords    []string
	suggestions []string
}

// NewStatic creates the offline generator.
func NewStatic() *Static {
	return &Static{topics: []staticTopic{
		{
			keywords:    []string{"artificial intelligence", "inteligencia artificial", " ai ", " ia "},
			suggestions: []string{"Machine Learning", "Neural Networks", "Natural Language Processing", "Computer Vision"},
		},
		{
			keywords:    []string{"programming", "programación", "code", "código"},
			suggestions: []string{"Frontend", "Backend", "Databases", "DevOps"},
		},
	}}
}

func (s *Static) Name() string { return "static" }

// Generate implements Generator.
func (s *Static) Generate(ctx context.Context, req Request) ([]Suggestion, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	text := " " + strings.ToLower(req.ParentText) + " "
	for _, topic := range s.topics {
		for _, kw := range topic.keywords {
			if strings.Contains(text, kw) {
				out := make([]Suggestion, 0, len(topic.suggestions))
				for _, t := range topic.suggestions {
					out = append(out, Suggestion{Text: t, Source: "static"})
				}
				return Pad(out, req.Count), nil
			}
		}
	}
	return Pad(nil, req.Count), nil
}

// Timed bounds each call to a wrapped generator.
type Timed struct {
	next    Generator
	timeout time.Duration
}

// NewTimed cancels calls that run longer than timeout.
func NewTimed(next Generator, timeout time.Duration) *Timed {
	return &Timed{next: next, timeout: timeout}
}

func (t *Timed) Name() string { return t.next.Name() }

// Generate implements Generator.
func (t *Timed) Generate(ctx context.Context, req Request) ([]Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Generate(ctx, req)
}

// Limited throttles calls to a wrapped generator.
type Limited struct {
	next    Generator
	limiter *rate.Limiter
}

// NewLimited allows perMinute calls per minute with a burst of one.
func NewLimited(next Generator, perMinute int) *Limited {
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1),
	}
}

func (l *Limited) Name() string { return l.next.Name() }

// Generate waits for the limiter, then delegates.
func (l *Limited) Generate(ctx context.Context, req Request) ([]Suggestion, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.Generate(ctx, req)
}

// Fallback answers from secondary when primary fails, unless the request
// itself is invalid or the context is done.
type Fallback struct {
	primary   Generator
	secondary Generator
	logger    *log.Logger
}

// NewFallback creates a Fallback generator.
func NewFallback(primary, secondary Generator, logger *log.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fallback) Name() string { return f.primary.Name() }

// Generate implements Generator.
func (f *Fallback) Generate(ctx context.Context, req Request) ([]Suggestion, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	out, err := f.primary.Generate(ctx, req)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	f.logger.Warn(ctx, "Generator failed, using fallback", log.Fields{"generator": f.primary.Name(), "error": err})
	return f.secondary.Generate(ctx, req)
}
