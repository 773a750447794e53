package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDiscord_PostsContent(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type: %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewDiscord(srv.URL, time.Second).Notify(context.Background(), "cheap flight"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["content"] != "cheap flight" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestDiscord_RejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Cannot send an empty message"}`))
	}))
	defer srv.Close()

	err := NewDiscord(srv.URL, time.Second).Notify(context.Background(), "")
	if err == nil || !strings.Contains(err.Error(), "Cannot send an empty message") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func TestTelegram_SendsMessage(t *testing.T) {
	var got telegramMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botsecret-token/sendMessage" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL+"/", "secret-token", "12345", time.Second)
	if err := tg.Notify(context.Background(), "cheap flight"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ChatID != "12345" || got.Text != "cheap flight" || !got.DisableWebPagePreview {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestTelegram_ErrorHidesToken(t *testing.T) {
	tg := NewTelegram("http://127.0.0.1:1", "secret-token", "12345", 200*time.Millisecond)

	err := tg.Notify(context.Background(), "cheap flight")
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("token leaked into error: %v", err)
	}
}
