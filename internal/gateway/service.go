package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/magify/flame-enhancer/internal/metrics"
)

// Provider is one LLM vendor behind the relay.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Invoker is the client-facing generation surface. Both the Service (direct
// vendor calls) and the HTTP Client (calls through a deployed relay)
// implement it, so the wizard is indifferent to where the relay runs.
type Invoker interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Service routes requests to the named provider, resolving image URLs to
// inline data first so every vendor works from bytes.
type Service struct {
	providers map[string]Provider
	defaultTo string
	fetcher   *ImageFetcher
}

// NewService builds the relay core. defaultProvider must name one of the
// registered providers.
func NewService(defaultProvider string, fetcher *ImageFetcher, providers ...Provider) (*Service, error) {
	s := &Service{
		providers: make(map[string]Provider, len(providers)),
		defaultTo: defaultProvider,
		fetcher:   fetcher,
	}
	for _, p := range providers {
		s.providers[p.Name()] = p
	}
	if _, ok := s.providers[defaultProvider]; !ok {
		return nil, fmt.Errorf("default provider %q is not registered", defaultProvider)
	}
	if s.fetcher == nil {
		s.fetcher = NewImageFetcher(nil)
	}
	return s, nil
}

// Generate implements Invoker.
func (s *Service) Generate(ctx context.Context, req *Request) (*Response, error) {
	name := req.Provider
	if name == "" {
		name = s.defaultTo
	}
	provider, ok := s.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}

	if err := resolveImages(ctx, s.fetcher, &req.Body); err != nil {
		return nil, fmt.Errorf("resolving image urls: %w", err)
	}

	start := time.Now()
	resp, err := provider.Generate(ctx, req)
	elapsed := time.Since(start)

	m := metrics.New().
		Dimension("Provider", name).
		Millis("VendorLatencyMs", elapsed).
		Count("VendorCalls")
	if err != nil {
		m.Count("VendorErrors")
	}
	if resp != nil && resp.UsageMetadata != nil {
		m.Metric("InputTokens", float64(resp.UsageMetadata.PromptTokenCount), metrics.UnitCount)
		m.Metric("OutputTokens", float64(resp.UsageMetadata.CandidatesTokenCount), metrics.UnitCount)
	}
	m.Flush()

	if err != nil {
		log.Error().Err(err).Str("provider", name).Dur("elapsed", elapsed).Msg("Vendor call failed")
		return nil, err
	}

	log.Info().
		Str("provider", name).
		Str("model", resp.ModelVersion).
		Dur("elapsed", elapsed).
		Msg("Generation complete")
	return resp, nil
}
