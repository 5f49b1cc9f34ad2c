package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// Breaker fails fast with ErrUnavailable while the wrapped store keeps failing.
// Only availability failures count against it; not-found and validation
// errors pass through without tripping.
type Breaker struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Store, cfg BreakerConfig, log *zerolog.Logger) *Breaker {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 3
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        "docstore",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if log != nil {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("document store breaker state changed")
			}
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) run(op string, fn func() (any, error)) (any, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, Unavailable(op, err)
	}
	return res, err
}

func (b *Breaker) Create(ctx context.Context, collection string, doc Document) (string, error) {
	res, err := b.run("create", func() (any, error) {
		return b.next.Create(ctx, collection, doc)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (b *Breaker) Get(ctx context.Context, collection, id string) (Document, error) {
	res, err := b.run("get", func() (any, error) {
		return b.next.Get(ctx, collection, id)
	})
	if err != nil {
		return nil, err
	}
	doc, _ := res.(Document)
	return doc, nil
}

func (b *Breaker) Update(ctx context.Context, collection, id string, partial Document) error {
	_, err := b.run("update", func() (any, error) {
		return nil, b.next.Update(ctx, collection, id, partial)
	})
	return err
}

func (b *Breaker) Delete(ctx context.Context, collection, id string) error {
	_, err := b.run("delete", func() (any, error) {
		return nil, b.next.Delete(ctx, collection, id)
	})
	return err
}

func (b *Breaker) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	res, err := b.run("query", func() (any, error) {
		return b.next.Query(ctx, collection, q)
	})
	if err != nil {
		return nil, err
	}
	docs, _ := res.([]Document)
	return docs, nil
}

func (b *Breaker) Close() error {
	return b.next.Close()
}
