package ports

import (
	"context"
	"time"

	"github.com/ozzus/fare-watcher/internal/domain/models"
)

type TokenProvider interface {
	Acquire(ctx context.Context) (models.Credential, error)
	// Invalidate forgets any stored credential so the next Acquire asks upstream.
	Invalidate(ctx context.Context) error
}

type TokenCache interface {
	Get(ctx context.Context, key string) (models.Credential, error)
	Set(ctx context.Context, key string, credential models.Credential, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type OfferSource interface {
	FetchOffers(ctx context.Context, credential models.Credential, query models.SearchQuery) ([]models.Offer, error)
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}
