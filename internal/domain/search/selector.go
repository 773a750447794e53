package search

import (
	"github.com/ozzus/fare-watcher/internal/domain/models"
	"github.com/shopspring/decimal"
)

// Ceiling is the qualifying total for a query: per-passenger cap times passengers.
func Ceiling(perPassenger decimal.Decimal, passengers int) decimal.Decimal {
	return perPassenger.Mul(decimal.NewFromInt(int64(passengers)))
}

// Consider folds candidate into current. Candidates above ceiling are
// ignored; equal prices keep the offer seen first.
func Consider(current *models.BestOffer, candidate models.Offer, query models.SearchQuery, ceiling decimal.Decimal) *models.BestOffer {
	if candidate.TotalPrice.GreaterThan(ceiling) {
		return current
	}
	if current != nil && !candidate.TotalPrice.LessThan(current.Offer.TotalPrice) {
		return current
	}
	return &models.BestOffer{Query: query, Offer: candidate}
}
