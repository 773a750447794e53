package amadeus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	derr "github.com/ozzus/fare-watcher/internal/domain/errors"
	"github.com/ozzus/fare-watcher/internal/domain/models"
	"github.com/shopspring/decimal"
)

const offersBody = `{
	"meta":{"count":3},
	"data":[
		{"id":"1","price":{"currency":"USD","total":"1200.00"},"itineraries":[
			{"segments":[{"departure":{"iataCode":"AUS","at":"2026-01-23T07:00:00"},"carrierCode":"UA"},{"departure":{"iataCode":"SFO","at":"2026-01-23T11:00:00"},"carrierCode":"NH"}]},
			{"segments":[{"departure":{"iataCode":"HND","at":"2026-02-06T17:00:00"},"carrierCode":"NH"}]}
		]},
		{"id":"2","price":{"currency":"USD"},"itineraries":[]},
		{"id":"3","price":{"currency":"USD","total":"900.50"},"itineraries":[
			{"segments":[{"departure":{"iataCode":"AUS","at":"2026-01-23T09:00:00"},"carrierCode":"JL"}]},
			{"segments":[{"departure":{"iataCode":"NRT","at":"2026-02-06T18:00:00"},"carrierCode":"JL"}]}
		]}
	]
}`

func testQuery() models.SearchQuery {
	return models.SearchQuery{
		Origin:      "aus",
		Destination: "HND",
		DepartDate:  time.Date(2026, 1, 23, 0, 0, 0, 0, time.UTC),
		ReturnDate:  time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC),
		Passengers:  2,
	}
}

func newTestClient(url string) *Client {
	c := NewClient(Options{
		BaseURL:        url,
		Currency:       "usd",
		Limit:          5,
		MaxPricePerPax: decimal.RequireFromString("1000.75"),
		Timeout:        time.Second,
		MaxAttempts:    4,
	})
	c.backoff.Sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestFetchOffers_BuildsRequestAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != flightOffersPath {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("unexpected authorization header: %q", got)
		}
		q := r.URL.Query()
		want := map[string]string{
			"originLocationCode":      "AUS",
			"destinationLocationCode": "HND",
			"departureDate":           "2026-01-23",
			"returnDate":              "2026-02-06",
			"adults":                  "2",
			"currencyCode":            "USD",
			"maxPrice":                "2001",
			"nonStop":                 "false",
			"max":                     "5",
		}
		for key, value := range want {
			if q.Get(key) != value {
				t.Fatalf("param %s: got %q want %q", key, q.Get(key), value)
			}
		}
		_, _ = w.Write([]byte(offersBody))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchOffers(context.Background(), models.Credential{AccessToken: "tok"}, testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("malformed offer must be skipped, got %d offers", len(got))
	}
	if !got[1].TotalPrice.Equal(decimal.RequireFromString("900.50")) {
		t.Fatalf("unexpected price: %s", got[1].TotalPrice)
	}
}

func TestFetchOffers_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta":{"count":0},"data":[]}`))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchOffers(context.Background(), models.Credential{AccessToken: "tok"}, testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no offers, got %d", len(got))
	}
}

func TestFetchOffers_RetriesThrottled(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"errors":[{"status":429,"code":38194,"title":"Too many requests"}]}`))
			return
		}
		_, _ = w.Write([]byte(offersBody))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchOffers(context.Background(), models.Credential{AccessToken: "tok"}, testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 || len(got) != 2 {
		t.Fatalf("unexpected result: calls=%d offers=%d", calls, len(got))
	}
}

func TestFetchOffers_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"status":400,"code":477,"title":"INVALID FORMAT"}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchOffers(context.Background(), models.Credential{AccessToken: "tok"}, testQuery())

	var upstreamErr *derr.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstreamErr.Status != http.StatusBadRequest || upstreamErr.Body == "" {
		t.Fatalf("unexpected upstream error: %+v", upstreamErr)
	}
}

func TestFetchOffers_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchOffers(context.Background(), models.Credential{AccessToken: "tok"}, testQuery())
	if !errors.Is(err, derr.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestFetchOffers_RejectedCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"status":401,"code":38190,"title":"Invalid access token"}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchOffers(context.Background(), models.Credential{AccessToken: "expired"}, testQuery())

	var authErr *derr.AuthError
	if !errors.As(err, &authErr) || authErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected AuthError, got %v", err)
	}
}
