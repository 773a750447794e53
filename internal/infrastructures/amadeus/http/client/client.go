package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	derr "github.com/ozzus/fare-watcher/internal/domain/errors"
	"github.com/ozzus/fare-watcher/internal/domain/models"
	"github.com/ozzus/fare-watcher/internal/domain/search"
	"github.com/ozzus/fare-watcher/internal/infrastructures/amadeus/dto"
	"github.com/ozzus/fare-watcher/internal/infrastructures/amadeus/mappers"
	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL   = "https://test.api.amadeus.com"
	flightOffersPath = "/v2/shopping/flight-offers"
)

type Options struct {
	BaseURL        string
	Currency       string
	Limit          int
	NonStop        bool
	MaxPricePerPax decimal.Decimal
	Timeout        time.Duration
	MaxAttempts    int
}

type Client struct {
	baseURL        string
	currency       string
	limit          int
	nonStop        bool
	maxPricePerPax decimal.Decimal
	httpClient     *http.Client
	backoff        Backoff
}

func NewClient(opts Options) *Client {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(opts.Currency) == "" {
		opts.Currency = "USD"
	}
	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 40 * time.Second
	}

	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		currency:       strings.ToUpper(strings.TrimSpace(opts.Currency)),
		limit:          opts.Limit,
		nonStop:        opts.NonStop,
		maxPricePerPax: opts.MaxPricePerPax,
		httpClient:     &http.Client{Timeout: opts.Timeout},
		backoff:        NewBackoff(opts.MaxAttempts),
	}
}

func (c *Client) FetchOffers(ctx context.Context, credential models.Credential, query models.SearchQuery) ([]models.Offer, error) {
	reqURL, err := c.buildURL(query)
	if err != nil {
		return nil, derr.NewUpstreamError(0, nil, err)
	}

	resp, err := c.backoff.Do(ctx, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+credential.AccessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("amadeus request: %w", err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload dto.FlightOffersResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, derr.NewUpstreamError(resp.StatusCode, nil, fmt.Errorf("decode amadeus response: %w", err))
	}

	return mappers.ToOffers(payload.Data, c.currency), nil
}

func (c *Client) buildURL(query models.SearchQuery) (string, error) {
	u, err := url.Parse(c.baseURL + flightOffersPath)
	if err != nil {
		return "", fmt.Errorf("parse amadeus base url: %w", err)
	}

	ceiling := search.Ceiling(c.maxPricePerPax, query.Passengers)

	q := u.Query()
	q.Set("originLocationCode", strings.ToUpper(strings.TrimSpace(query.Origin)))
	q.Set("destinationLocationCode", strings.ToUpper(strings.TrimSpace(query.Destination)))
	q.Set("departureDate", query.DepartDate.Format(models.DateLayout))
	q.Set("returnDate", query.ReturnDate.Format(models.DateLayout))
	q.Set("adults", strconv.Itoa(query.Passengers))
	q.Set("currencyCode", c.currency)
	if ceiling.IsPositive() {
		q.Set("maxPrice", ceiling.Truncate(0).String())
	}
	q.Set("nonStop", strconv.FormatBool(c.nonStop))
	q.Set("max", strconv.Itoa(c.limit))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
