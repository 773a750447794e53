package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	derr "github.com/ozzus/fare-watcher/internal/domain/errors"
	"github.com/ozzus/fare-watcher/internal/domain/models"
	"github.com/redis/go-redis/v9"
)

func newTestRepository(t *testing.T) (*TokenCacheRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return NewTokenCacheRepository(client), mr
}

func TestTokenCache_SetGet(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()
	expires := time.Date(2026, 1, 20, 12, 30, 0, 0, time.UTC)

	err := repo.Set(ctx, "client", models.Credential{AccessToken: "abc", TokenType: "Bearer", ExpiresAt: expires}, time.Minute)
	if err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if ttl := mr.TTL("amadeus:token:client"); ttl != time.Minute {
		t.Fatalf("unexpected ttl: %v", ttl)
	}

	got, err := repo.Get(ctx, "client")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if got.AccessToken != "abc" || got.TokenType != "Bearer" || !got.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected credential: %+v", got)
	}
}

func TestTokenCache_Miss(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, derr.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestTokenCache_Expired(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	if err := repo.Set(ctx, "client", models.Credential{AccessToken: "abc"}, time.Second); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	mr.FastForward(2 * time.Second)

	_, err := repo.Get(ctx, "client")
	if !errors.Is(err, derr.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound after expiry, got %v", err)
	}
}

func TestTokenCache_NonPositiveTTLSkipsWrite(t *testing.T) {
	repo, mr := newTestRepository(t)

	if err := repo.Set(context.Background(), "client", models.Credential{AccessToken: "abc"}, 0); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if mr.Exists("amadeus:token:client") {
		t.Fatalf("credential must not be stored without a ttl")
	}
}

func TestTokenCache_CorruptPayload(t *testing.T) {
	repo, mr := newTestRepository(t)
	if err := mr.Set("amadeus:token:client", "not-json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := repo.Get(context.Background(), "client")
	if err == nil || errors.Is(err, derr.ErrTokenNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestTokenCache_Delete(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	if err := repo.Set(ctx, "client", models.Credential{AccessToken: "abc"}, time.Minute); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if err := repo.Delete(ctx, "client"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if mr.Exists("amadeus:token:client") {
		t.Fatalf("credential must be removed")
	}
	if err := repo.Delete(ctx, "client"); err != nil {
		t.Fatalf("deleting a missing key must succeed: %v", err)
	}
}
