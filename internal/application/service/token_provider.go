package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	derr "github.com/ozzus/fare-watcher/internal/domain/errors"
	"github.com/ozzus/fare-watcher/internal/domain/models"
	"github.com/ozzus/fare-watcher/internal/domain/ports"
	"go.uber.org/zap"
)

// tokenExpirySkew is subtracted from the credential lifetime before caching.
const tokenExpirySkew = 30 * time.Second

// CachingTokenProvider reuses a credential across runs through a TokenCache.
// Cache failures are logged and fall through to the upstream provider.
type CachingTokenProvider struct {
	log   *zap.Logger
	next  ports.TokenProvider
	cache ports.TokenCache
	key   string
	now   func() time.Time
}

func NewCachingTokenProvider(log *zap.Logger, next ports.TokenProvider, cache ports.TokenCache, key string) *CachingTokenProvider {
	if log == nil {
		log = zap.NewNop()
	}

	return &CachingTokenProvider{
		log:   log,
		next:  next,
		cache: cache,
		key:   key,
		now:   time.Now,
	}
}

func (p *CachingTokenProvider) Acquire(ctx context.Context) (models.Credential, error) {
	const op = "service.CachingTokenProvider.Acquire"
	logger := p.log.With(zap.String("op", op))

	if p.cache == nil {
		return p.next.Acquire(ctx)
	}

	now := p.now()
	cached, err := p.cache.Get(ctx, p.key)
	switch {
	case err == nil && cached.Valid(now.Add(tokenExpirySkew)):
		logger.Debug("token cache hit")
		return cached, nil
	case err == nil:
		logger.Debug("cached token is about to expire")
	case errors.Is(err, derr.ErrTokenNotFound):
		logger.Debug("token cache miss")
	default:
		logger.Warn("redis token read failed", zap.Error(err))
	}

	credential, err := p.next.Acquire(ctx)
	if err != nil {
		return models.Credential{}, err
	}

	if !credential.ExpiresAt.IsZero() {
		ttl := credential.ExpiresAt.Sub(now) - tokenExpirySkew
		if err := p.cache.Set(ctx, p.key, credential, ttl); err != nil {
			logger.Warn("redis token write failed", zap.Error(err))
		}
	}

	return credential, nil
}

// Invalidate drops the cached credential, typically after the search API
// rejected it.
func (p *CachingTokenProvider) Invalidate(ctx context.Context) error {
	if p.cache == nil {
		return p.next.Invalidate(ctx)
	}
	if err := p.cache.Delete(ctx, p.key); err != nil {
		return fmt.Errorf("delete cached token: %w", err)
	}
	return p.next.Invalidate(ctx)
}
