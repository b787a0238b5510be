// Package fare estimates what a commuter pays for one ride: distance-banded
// tables for road transit and station-pair tables for rail.
package fare

import (
	"encoding/json"
	"fmt"
	"math"
)

// Money is an amount in centavos.
type Money int64

// Pesos converts a peso amount to Money, rounding to the centavo.
func Pesos(p float64) Money {
	return Money(math.Round(p * 100))
}

// Float returns the amount in pesos.
func (m Money) Float() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s₱%d.%02d", sign, m/100, m%100)
}

// discountRate is applied when a table has no explicit discounted tier.
const discountRate = 0.8

// Discounted returns 80% of m, rounded to the centavo.
func (m Money) Discounted() Money {
	return Money(math.Round(float64(m) * discountRate))
}

const notAvailable = "N/A"

// Price is either an amount or the "N/A" sentinel.
type Price struct {
	Amount    Money
	Available bool
}

// NA is the unavailable price.
var NA = Price{}

// Amount wraps m as an available Price.
func Amount(m Money) Price {
	return Price{Amount: m, Available: true}
}

func (p Price) String() string {
	if !p.Available {
		return notAvailable
	}
	return p.Amount.String()
}

// MarshalJSON encodes an available price as a peso number and an
// unavailable one as the string "N/A".
func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Available {
		return json.Marshal(notAvailable)
	}
	return json.Marshal(p.Amount.Float())
}

// UnmarshalJSON accepts a peso number or "N/A". null leaves p unchanged.
func (p *Price) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != notAvailable {
			return fmt.Errorf("invalid price %q", s)
		}
		*p = NA
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}
	*p = Amount(Pesos(f))
	return nil
}

// Fare is the regular and discounted (student/senior/PWD) price of a ride.
type Fare struct {
	Regular    Price `json:"regular"`
	Discounted Price `json:"discounted"`
}

// Unavailable is the fare returned when no table applies.
var Unavailable = Fare{Regular: NA, Discounted: NA}

// Available reports whether the regular price is known.
func (f Fare) Available() bool {
	return f.Regular.Available
}

// Estimate is one fare option for a ride.
type Estimate struct {
	ModeLabel   string `json:"mode_label"`
	Fare        Fare   `json:"fare"`
	Description string `json:"description"`
}

// PlaceholderDescription marks an estimate produced after an internal failure.
const PlaceholderDescription = "Unable to calculate fare"

// Placeholder returns the estimate used when fare computation failed.
func Placeholder(modeLabel string) Estimate {
	return Estimate{ModeLabel: modeLabel, Fare: Unavailable, Description: PlaceholderDescription}
}
