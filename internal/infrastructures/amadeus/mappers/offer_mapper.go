package mappers

import (
	"fmt"
	"strings"
	"time"

	derr "github.com/ozzus/fare-watcher/internal/domain/errors"
	"github.com/ozzus/fare-watcher/internal/domain/models"
	"github.com/ozzus/fare-watcher/internal/infrastructures/amadeus/dto"
	"github.com/shopspring/decimal"
)

// ToOffers maps every structurally valid raw offer and drops the rest.
func ToOffers(data []dto.FlightOffer, fallbackCurrency string) []models.Offer {
	offers := make([]models.Offer, 0, len(data))
	for _, raw := range data {
		offer, err := ToOffer(raw, fallbackCurrency)
		if err != nil {
			continue
		}
		offers = append(offers, offer)
	}
	return offers
}

// ToOffer maps a round-trip offer. The first itinerary is the outbound leg,
// the second the inbound one.
func ToOffer(raw dto.FlightOffer, fallbackCurrency string) (models.Offer, error) {
	if raw.Price == nil || strings.TrimSpace(raw.Price.Total) == "" {
		return models.Offer{}, fmt.Errorf("%w: missing price", derr.ErrMalformedOffer)
	}
	total, err := decimal.NewFromString(strings.TrimSpace(raw.Price.Total))
	if err != nil {
		return models.Offer{}, fmt.Errorf("%w: price %q: %v", derr.ErrMalformedOffer, raw.Price.Total, err)
	}
	if !total.IsPositive() {
		return models.Offer{}, fmt.Errorf("%w: non-positive price %s", derr.ErrMalformedOffer, total)
	}

	if len(raw.Itineraries) < 2 {
		return models.Offer{}, fmt.Errorf("%w: expected 2 itineraries, got %d", derr.ErrMalformedOffer, len(raw.Itineraries))
	}
	outbound, err := departureDay(raw.Itineraries[0])
	if err != nil {
		return models.Offer{}, fmt.Errorf("%w: outbound: %v", derr.ErrMalformedOffer, err)
	}
	inbound, err := departureDay(raw.Itineraries[1])
	if err != nil {
		return models.Offer{}, fmt.Errorf("%w: inbound: %v", derr.ErrMalformedOffer, err)
	}

	carriers := make(map[string]struct{})
	for _, itin := range raw.Itineraries {
		for _, seg := range itin.Segments {
			if code := strings.ToUpper(strings.TrimSpace(seg.CarrierCode)); code != "" {
				carriers[code] = struct{}{}
			}
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(raw.Price.Currency))
	if currency == "" {
		currency = strings.ToUpper(strings.TrimSpace(fallbackCurrency))
	}

	return models.Offer{
		TotalPrice:   total,
		Currency:     currency,
		OutboundDate: outbound,
		InboundDate:  inbound,
		Carriers:     carriers,
	}, nil
}

func departureDay(itin dto.Itinerary) (time.Time, error) {
	if len(itin.Segments) == 0 {
		return time.Time{}, fmt.Errorf("itinerary without segments")
	}
	at, ok := parseTime(itin.Segments[0].Departure.At)
	if !ok {
		return time.Time{}, fmt.Errorf("unparseable departure %q", itin.Segments[0].Departure.At)
	}
	return models.Day(at), nil
}

// parseTime keeps the local wall clock of the timestamp; Amadeus reports
// segment times in airport local time without an offset.
func parseTime(value string) (time.Time, bool) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, false
	}

	layouts := []string{
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006-01-02T15:04",
		models.DateLayout,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
