package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"go-album-center/internal/apperr"
	"go-album-center/internal/config"
)

// BreakerStorage fails fast while the wrapped provider keeps erroring.
type BreakerStorage struct {
	next Blob
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Blob, cfg config.BreakerConfig, log zerolog.Logger) *BreakerStorage {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("storage-%s", next.Provider()),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Missing blobs and cancelled requests say nothing about the backend.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, apperr.ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("storage circuit breaker state changed")
		},
	}
	return &BreakerStorage{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerStorage) Provider() StorageProvider { return b.next.Provider() }

// State exposes the breaker state for health reporting.
func (b *BreakerStorage) State() string { return b.cb.State().String() }

func (b *BreakerStorage) Write(ctx context.Context, id uint, data []byte) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Write(ctx, id, data)
	})
	return b.wrap("write", id, err)
}

func (b *BreakerStorage) Read(ctx context.Context, id uint) ([]byte, error) {
	data, err := b.cb.Execute(func() (any, error) {
		return b.next.Read(ctx, id)
	})
	if err != nil {
		return nil, b.wrap("read", id, err)
	}
	return data.([]byte), nil
}

func (b *BreakerStorage) Delete(ctx context.Context, id uint) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Delete(ctx, id)
	})
	return b.wrap("delete", id, err)
}

func (b *BreakerStorage) wrap(op string, id uint, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return storageError(op, id, err)
	}
	return err
}
