package service

import (
	"fmt"
	"strings"

	"github.com/ozzus/fare-watcher/internal/domain/models"
	"github.com/ozzus/fare-watcher/internal/domain/search"
	"github.com/shopspring/decimal"
)

const bookingTip = "Tip: Search these dates on Google Flights/Chase Travel to book."

// FormatAlert renders the message delivered for the best offer of a run.
func FormatAlert(best models.BestOffer, label string, ceilingPerPax decimal.Decimal) string {
	if strings.TrimSpace(label) == "" {
		label = best.Query.Destination
	}

	outbound := best.Offer.OutboundDate
	if outbound.IsZero() {
		outbound = best.Query.DepartDate
	}
	inbound := best.Offer.InboundDate
	if inbound.IsZero() {
		inbound = best.Query.ReturnDate
	}

	ceiling := search.Ceiling(ceilingPerPax, best.Query.Passengers)

	var b strings.Builder
	fmt.Fprintf(&b, "✈️ %s → %s\n", best.Query.Origin, label)
	fmt.Fprintf(&b, "Out: %s  |  Back: %s\n", outbound.Format(models.DateLayout), inbound.Format(models.DateLayout))
	fmt.Fprintf(&b, "Total: %s %s for %d adult(s) (≤ %s)\n",
		best.Offer.Currency,
		best.Offer.TotalPrice.StringFixed(2),
		best.Query.Passengers,
		ceiling.Truncate(0).String(),
	)
	fmt.Fprintf(&b, "Carriers: %s\n", strings.Join(best.Offer.SortedCarriers(), ", "))
	b.WriteString(bookingTip)
	return b.String()
}
