// Package generation builds the optional generation capability.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"grocerai/internal/config"
	"grocerai/internal/domain"
	"grocerai/internal/generation/openai"
)

// ErrDisabled is returned by New when generation is switched off in config.
var ErrDisabled = errors.New("generation disabled")

// New returns the configured generator. A non-nil error means the
// capability is absent and answers fall back to retrieved passages.
func New(cfg config.GeneratorConfig) (domain.Generator, error) {
	switch cfg.Type {
	case "none", "":
		return nil, ErrDisabled
	case "openai":
		if cfg.OpenAI == nil {
			return nil, errors.New("openai generator config missing")
		}
		g, err := openai.NewGenerator(openai.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			MaxRetries:  1,
		})
		if err != nil {
			return nil, fmt.Errorf("openai generator init failed: %w", err)
		}
		if rpm := cfg.OpenAI.RequestsPerMinute; rpm > 0 {
			return NewRateLimited(g, rpm), nil
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
}

// RateLimited spaces calls to a generator to stay under a provider quota.
type RateLimited struct {
	next    domain.Generator
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute calls per minute with a burst of one.
func NewRateLimited(next domain.Generator, perMinute int) *RateLimited {
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (r *RateLimited) Name() string { return r.next.Name() }

// Generate waits for a token or for ctx to end, whichever comes first.
func (r *RateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Generate(ctx, prompt)
}
