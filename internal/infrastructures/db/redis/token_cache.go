package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	derr "github.com/ozzus/fare-watcher/internal/domain/errors"
	"github.com/ozzus/fare-watcher/internal/domain/models"
	"github.com/redis/go-redis/v9"
)

type TokenCacheRepository struct {
	redis *redis.Client
}

func NewTokenCacheRepository(redisClient *redis.Client) *TokenCacheRepository {
	return &TokenCacheRepository{redis: redisClient}
}

type cachedCredential struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (r *TokenCacheRepository) Get(ctx context.Context, key string) (models.Credential, error) {
	data, err := r.redis.Get(ctx, tokenKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Credential{}, derr.ErrTokenNotFound
		}
		return models.Credential{}, fmt.Errorf("redis get token: %w", err)
	}

	var payload cachedCredential
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return models.Credential{}, fmt.Errorf("unmarshal cached token: %w", err)
	}

	return models.Credential{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
		ExpiresAt:   payload.ExpiresAt,
	}, nil
}

func (r *TokenCacheRepository) Set(ctx context.Context, key string, credential models.Credential, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(cachedCredential{
		AccessToken: credential.AccessToken,
		TokenType:   credential.TokenType,
		ExpiresAt:   credential.ExpiresAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal token for cache: %w", err)
	}

	if err := r.redis.Set(ctx, tokenKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}

	return nil
}

func (r *TokenCacheRepository) Delete(ctx context.Context, key string) error {
	if err := r.redis.Del(ctx, tokenKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete token: %w", err)
	}
	return nil
}

func tokenKey(key string) string {
	return "amadeus:token:" + strings.TrimSpace(key)
}
