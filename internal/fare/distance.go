package fare

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Band is one step of a distance-banded fare table. A band covers trips of
// up to MaxKm kilometers. A zero Discounted means no explicit discounted tier.
type Band struct {
	Mode       string `json:"mode"`
	MaxKm      int    `json:"max_km"`
	Regular    Money  `json:"regular"`
	Discounted Money  `json:"discounted"`
}

// Fare converts the band to a Fare, deriving the discounted tier when absent.
func (b Band) Fare() Fare {
	d := b.Discounted
	if d == 0 {
		d = b.Regular.Discounted()
	}
	return Fare{Regular: Amount(b.Regular), Discounted: Amount(d)}
}

// DistanceSource provides the distance bands of a mode.
type DistanceSource interface {
	DistanceBands(ctx context.Context, mode string) ([]Band, error)
}

// BillableKm rounds a distance up to whole kilometers, with a 1 km minimum.
func BillableKm(distanceKm float64) (int, error) {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 {
		return 0, fmt.Errorf("invalid distance %v", distanceKm)
	}
	km := int(math.Ceil(distanceKm))
	if km < 1 {
		km = 1
	}
	return km, nil
}

// SelectBand picks the band for km from bands in any order.
//
// Trips no longer than the first threshold pay the first band (the minimum
// fare). Trips beyond the last threshold have no band. In between, the band
// with the largest threshold not exceeding km applies.
func SelectBand(bands []Band, km int) (Band, bool) {
	if len(bands) == 0 {
		return Band{}, false
	}
	sorted := make([]Band, len(bands))
	copy(sorted, bands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MaxKm < sorted[j].MaxKm })

	if km <= sorted[0].MaxKm {
		return sorted[0], true
	}
	if km > sorted[len(sorted)-1].MaxKm {
		return Band{}, false
	}
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].MaxKm > km })
	return sorted[i-1], true
}

// DistanceBanded prices road transit by kilometers travelled.
type DistanceBanded struct {
	src DistanceSource
}

// NewDistanceBanded creates the road transit strategy.
func NewDistanceBanded(src DistanceSource) *DistanceBanded {
	return &DistanceBanded{src: src}
}

// Estimate prices a ride of distanceKm on mode. A missing band is an N/A
// estimate, not an error.
func (d *DistanceBanded) Estimate(ctx context.Context, mode string, distanceKm float64) (Estimate, error) {
	km, err := BillableKm(distanceKm)
	if err != nil {
		return Estimate{}, err
	}
	bands, err := d.src.DistanceBands(ctx, mode)
	if err != nil {
		return Estimate{}, fmt.Errorf("distance bands for %s: %w", mode, err)
	}

	band, ok := SelectBand(bands, km)
	if !ok {
		return Estimate{
			ModeLabel:   mode,
			Fare:        Unavailable,
			Description: fmt.Sprintf("No %s fare band covers %d km", mode, km),
		}, nil
	}
	return Estimate{
		ModeLabel:   mode,
		Fare:        band.Fare(),
		Description: fmt.Sprintf("%s fare for %d km", mode, km),
	}, nil
}
