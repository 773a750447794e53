package amadeus

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	derr "github.com/ozzus/fare-watcher/internal/domain/errors"
	"github.com/ozzus/fare-watcher/internal/domain/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const tokenPath = "/v1/security/oauth2/token"

// TokenClient performs the client-credentials grant. It never retries.
type TokenClient struct {
	config     clientcredentials.Config
	httpClient *http.Client
}

func NewTokenClient(baseURL, clientID, clientSecret string, timeout time.Duration) *TokenClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &TokenClient{
		config: clientcredentials.Config{
			ClientID:     strings.TrimSpace(clientID),
			ClientSecret: strings.TrimSpace(clientSecret),
			TokenURL:     strings.TrimRight(baseURL, "/") + tokenPath,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *TokenClient) Acquire(ctx context.Context) (models.Credential, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.config.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return models.Credential{}, derr.NewAuthError(retrieveErr.Response.StatusCode, retrieveErr.Body, err)
		}
		return models.Credential{}, derr.NewAuthError(0, nil, err)
	}

	return models.Credential{
		AccessToken: tok.AccessToken,
		TokenType:   tok.Type(),
		ExpiresAt:   tok.Expiry,
	}, nil
}

// Invalidate is a no-op: every Acquire performs a fresh grant.
func (c *TokenClient) Invalidate(context.Context) error {
	return nil
}
