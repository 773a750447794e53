package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Discord struct {
	webhookURL string
	httpClient *http.Client
}

func NewDiscord(webhookURL string, timeout time.Duration) *Discord {
	return &Discord{
		webhookURL: strings.TrimSpace(webhookURL),
		httpClient: newHTTPClient(timeout),
	}
}

func (d *Discord) Name() string {
	return "discord"
}

func (d *Discord) Notify(ctx context.Context, text string) error {
	if err := postJSON(ctx, d.httpClient, d.webhookURL, map[string]string{"content": text}); err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	return nil
}
