package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTelegramURL = "https://api.telegram.org"

type Telegram struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *http.Client
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

func NewTelegram(baseURL, token, chatID string, timeout time.Duration) *Telegram {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultTelegramURL
	}

	return &Telegram{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		chatID:     strings.TrimSpace(chatID),
		httpClient: newHTTPClient(timeout),
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	msg := telegramMessage{
		ChatID:                t.chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	}

	// The endpoint embeds the bot token, so it is kept out of the error.
	if err := postJSON(ctx, t.httpClient, endpoint, msg); err != nil {
		return fmt.Errorf("telegram sendMessage: %s", redact(err.Error(), t.token))
	}
	return nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}
