// Package pricing computes the server-side price for a stay.  It is a
// pure calculator: no I/O, no clock, deterministic for a given
// resolver configuration and night count.
package pricing

import (
	"errors"
	"math"
)

// ErrInvalidNights is returned when the requested night count is not
// a positive integer.
var ErrInvalidNights = errors.New("pricing: nights must be at least 1")

// Tier thresholds for the long-stay discounts.  Stays of 7+ nights
// get the weekly percentage off the nightly rate for every night of
// the stay; 30+ nights get the monthly percentage instead.
const (
	weeklyThreshold  = 7
	monthlyThreshold = 30
)

// Quote is the result of resolving a price.
type Quote struct {
	Nights          int   `json:"nights"`
	PricePerNight   int64 `json:"price_per_night"`
	BasePrice       int64 `json:"base_price"`
	DiscountPercent int   `json:"discount_percent"`
	DiscountAmount  int64 `json:"discount_amount"`
	TotalPrice      int64 `json:"total_price"`
}

// Resolver holds the rate card.  NightlyRate is in whole currency
// units; the discount percentages are integers out of 100.
type Resolver struct {
	NightlyRate        int64
	WeeklyDiscountPct  int
	MonthlyDiscountPct int
}

// Resolve returns the quote for a stay of the given number of nights.
//
// Money values are rounded to whole currency units using round half
// away from zero (math.Round).  The rounding rule is applied once to
// the final total and once to the per-night figure, so TotalPrice may
// differ from PricePerNight*Nights by at most half a unit per night.
func (r Resolver) Resolve(nights int) (Quote, error) {
	if nights < 1 {
		return Quote{}, ErrInvalidNights
	}

	pct := 0
	switch {
	case nights >= monthlyThreshold:
		pct = r.MonthlyDiscountPct
	case nights >= weeklyThreshold:
		pct = r.WeeklyDiscountPct
	}

	// Discounted nightly rate for the tier.
	nightly := float64(r.NightlyRate) * (1 - float64(pct)/100)

	base := r.NightlyRate * int64(nights)
	total := int64(math.Round(nightly * float64(nights)))

	return Quote{
		Nights:          nights,
		PricePerNight:   int64(math.Round(nightly)),
		BasePrice:       base,
		DiscountPercent: pct,
		DiscountAmount:  base - total,
		TotalPrice:      total,
	}, nil
}
