package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Offer struct {
	TotalPrice   decimal.Decimal
	Currency     string
	OutboundDate time.Time
	InboundDate  time.Time
	Carriers     map[string]struct{}
}

// SortedCarriers returns carrier codes in ascending order.
func (o Offer) SortedCarriers() []string {
	codes := make([]string, 0, len(o.Carriers))
	for code := range o.Carriers {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

type BestOffer struct {
	Query SearchQuery
	Offer Offer
}

type Credential struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// Valid reports whether the credential can still be used at now.
func (c Credential) Valid(now time.Time) bool {
	if c.AccessToken == "" {
		return false
	}
	return c.ExpiresAt.IsZero() || now.Before(c.ExpiresAt)
}

// RunReport summarizes one scan.
type RunReport struct {
	RunID           string
	Enumerated      int
	Dispatched      int
	Failed          int
	OffersSeen      int
	BudgetExhausted bool
	Best            *BestOffer
}
