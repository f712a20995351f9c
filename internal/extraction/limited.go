package extraction

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limited throttles calls into another Extractor so bursts of captures stay
// under the provider's request quota
type Limited struct {
	next    Extractor
	limiter *rate.Limiter
}

// NewLimited wraps next with a token bucket of perSecond requests and burst.
// A non-positive perSecond disables throttling.
func NewLimited(next Extractor, perSecond float64, burst int) *Limited {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (l *Limited) wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for extraction quota: %w", err)
	}
	return nil
}

// ExtractImage waits for quota, then delegates
func (l *Limited) ExtractImage(ctx context.Context, data []byte, contentType string) ([]LineItem, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	return l.next.ExtractImage(ctx, data, contentType)
}

// ExtractAudio waits for quota, then delegates
func (l *Limited) ExtractAudio(ctx context.Context, data []byte, contentType string) ([]LineItem, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	return l.next.ExtractAudio(ctx, data, contentType)
}

// ExtractText waits for quota, then delegates
func (l *Limited) ExtractText(ctx context.Context, text string) ([]LineItem, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	return l.next.ExtractText(ctx, text)
}

// Close closes the wrapped extractor
func (l *Limited) Close() error {
	return l.next.Close()
}
