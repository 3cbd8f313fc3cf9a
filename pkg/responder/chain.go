package responder

import (
	"context"
	"log/slog"
)

// Chain implements Provider by trying providers in order.
// The first successful non-empty response wins.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a responder chain. At least one provider is required.
func NewChain(providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	return &Chain{
		providers: providers,
		logger:    slog.Default().With("component", "responder.chain"),
	}, nil
}

// Respond tries each provider until one succeeds. If every provider
// fails, the fixed fallback utterance is returned with a nil error so
// the call can continue.
func (c *Chain) Respond(ctx context.Context, transcript string, history []Exchange) (string, error) {
	for i, p := range c.providers {
		text, err := p.Respond(ctx, transcript, history)
		if err == nil && text != "" {
			if i > 0 {
				c.logger.Info("fallback generator succeeded", "provider_index", i)
			}
			return text, nil
		}

		if err == nil {
			err = ErrEmptyResponse
		}
		c.logger.Warn("generator failed, trying next",
			"provider_index", i,
			"error", err,
		)

		if ctx.Err() != nil {
			break
		}
	}

	c.logger.Warn("all generators failed, using fallback utterance")
	return FallbackUtterance, nil
}

// Verify Chain implements Provider at compile time.
var _ Provider = (*Chain)(nil)
