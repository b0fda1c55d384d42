// Package llm routes generation requests across an ordered list of
// model providers, falling over to the next provider when one fails.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sabaqhq/sabaq/internal/log"
)

// ErrUnavailable is returned when every configured provider failed.
var ErrUnavailable = errors.New("llm: no provider available")

// Provider generates text for a prompt. Implementations must be safe
// for concurrent use.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result carries the generated text and which provider produced it.
type Result struct {
	Text           string
	Provider       string
	FallbackUsed   bool
	FallbackReason string
}

// Gateway tries providers in order. The first provider is primary;
// each subsequent one is only consulted after the previous failed.
type Gateway struct {
	providers []Provider
	timeout   time.Duration
	logger    log.Logger
}

// NewGateway builds a gateway over providers, tried in the given
// order. timeout bounds each individual provider call.
func NewGateway(providers []Provider, timeout time.Duration, logger log.Logger) (*Gateway, error) {
	if len(providers) == 0 {
		return nil, errors.New("llm: at least one provider required")
	}
	if timeout <= 0 {
		return nil, errors.New("llm: timeout must be positive")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	return &Gateway{
		providers: providers,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Complete generates text for prompt, trying each provider in order.
// An empty response counts as a failure. When every provider fails
// the error wraps ErrUnavailable together with each provider's error.
func (g *Gateway) Complete(ctx context.Context, prompt string) (Result, error) {
	var failures []string

	for i, p := range g.providers {
		text, err := g.generate(ctx, p, prompt)
		if err != nil {
			g.logger.Warn("provider failed",
				"provider", p.Name(),
				"attempt", i+1,
				"error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), err))

			if ctx.Err() != nil {
				break
			}
			continue
		}

		res := Result{Text: text, Provider: p.Name()}
		if i > 0 {
			res.FallbackUsed = true
			res.FallbackReason = strings.Join(failures, "; ")
		}
		return res, nil
	}

	return Result{}, fmt.Errorf("%w: %s", ErrUnavailable, strings.Join(failures, "; "))
}

func (g *Gateway) generate(ctx context.Context, p Provider, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := p.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}
