package generation

import (
	"context"

	"golang.org/x/time/rate"
)

// rateLimitedGenerator wraps a Generator with a shared token-bucket limiter
// so a busy worker cannot exhaust a provider's rate allowance.
type rateLimitedGenerator struct {
	inner   Generator
	limiter *rate.Limiter
}

// WithRateLimit wraps gen so each Generate and Summarize call waits for the
// limiter first. Non-positive rps returns gen unchanged.
func WithRateLimit(gen Generator, rps float64, burst int) Generator {
	if rps <= 0 {
		return gen
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedGenerator{
		inner:   gen,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (g *rateLimitedGenerator) Generate(ctx context.Context, inv Invocation) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return g.inner.Generate(ctx, inv)
}

func (g *rateLimitedGenerator) Summarize(ctx context.Context, req SummarizeRequest) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return g.inner.Summarize(ctx, req)
}

func (g *rateLimitedGenerator) Provider() string {
	return g.inner.Provider()
}
