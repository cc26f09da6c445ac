// Package echo provides a testing provider that echoes back the prompt.
// It implements the domain.Provider interface without making external API calls,
// providing deterministic responses for testing and development purposes.
package echo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davidbz/governor/internal/domain"
	"github.com/davidbz/governor/internal/observability"
)

const providerName = "echo"

// Option configures the echo provider.
type Option func(*Provider)

// WithLatency delays every completion by d, honoring context cancellation.
func WithLatency(d time.Duration) Option {
	return func(p *Provider) {
		p.latency = d
	}
}

// Provider implements the domain.Provider interface for echo testing.
type Provider struct {
	name            string
	latency         time.Duration
	supportedModels map[string]bool
}

// NewProvider creates a new echo provider serving the models of CatalogEntries.
// No configuration is required as this provider operates entirely in-memory.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		name:            providerName,
		supportedModels: make(map[string]bool),
	}
	for _, entry := range CatalogEntries() {
		p.supportedModels[entry.ID] = true
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Complete returns the prompt as the completion, truncated to MaxTokens words.
func (p *Provider) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if !p.supportedModels[req.Model] {
		return nil, fmt.Errorf("model %s is not supported by echo provider", req.Model)
	}

	logger := observability.FromContext(ctx)
	logger.Debug("echoing request")

	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Simple word-based token counting
	words := strings.Fields(req.Prompt)
	promptTokens := len(words)
	if req.MaxTokens > 0 && len(words) > req.MaxTokens {
		words = words[:req.MaxTokens]
	}
	content := strings.Join(words, " ")
	completionTokens := len(words)

	logger.Debug("echo completed",
		observability.Int("prompt_tokens", promptTokens),
		observability.Int("completion_tokens", completionTokens),
	)

	return &domain.CompletionResponse{
		ID:       fmt.Sprintf("echo-%d", time.Now().UnixNano()),
		Model:    req.Model,
		Provider: p.name,
		Content:  content,
		Usage: domain.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
		FinishTime: time.Now(),
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}
