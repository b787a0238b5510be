package fare

import (
	"context"
	"errors"
	"math"
	"testing"
)

type fakeDistanceSource struct {
	bands map[string][]Band
	err   error
}

func (f *fakeDistanceSource) DistanceBands(_ context.Context, mode string) ([]Band, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bands[mode], nil
}

func band(maxKm int, regular, discounted float64) Band {
	return Band{Mode: "Jeepney", MaxKm: maxKm, Regular: Pesos(regular), Discounted: Pesos(discounted)}
}

func TestBillableKm(t *testing.T) {
	tests := []struct {
		in      float64
		want    int
		wantErr bool
	}{
		{0, 1, false},
		{0.2, 1, false},
		{1, 1, false},
		{2.8, 3, false},
		{3.0953, 4, false},
		{7, 7, false},
		{-1, 0, true},
		{math.NaN(), 0, true},
		{math.Inf(1), 0, true},
	}
	for _, tt := range tests {
		got, err := BillableKm(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("BillableKm(%v) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("BillableKm(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSelectBand(t *testing.T) {
	bands := []Band{band(15, 20, 16), band(5, 13, 10), band(20, 23, 18), band(10, 16, 13)}

	tests := []struct {
		name   string
		km     int
		wantKm int
		wantOK bool
	}{
		{"below first threshold pays minimum", 1, 5, true},
		{"at first threshold", 5, 5, true},
		{"between bands takes largest not above", 7, 5, true},
		{"exact middle threshold", 10, 10, true},
		{"just under next band", 14, 10, true},
		{"at last threshold", 20, 20, true},
		{"beyond last band", 25, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectBand(bands, tt.km)
			if ok != tt.wantOK {
				t.Fatalf("SelectBand(%d) ok = %v, want %v", tt.km, ok, tt.wantOK)
			}
			if ok && got.MaxKm != tt.wantKm {
				t.Errorf("SelectBand(%d) = %d km band, want %d", tt.km, got.MaxKm, tt.wantKm)
			}
		})
	}

	if _, ok := SelectBand(nil, 3); ok {
		t.Error("empty table should have no band")
	}
	if bands[0].MaxKm != 15 {
		t.Error("SelectBand reordered its input")
	}
}

func TestDistanceBanded_Estimate(t *testing.T) {
	src := &fakeDistanceSource{bands: map[string][]Band{
		"Jeepney": {band(5, 13, 10), band(10, 16, 13), band(15, 20, 16), band(20, 23, 18)},
	}}
	d := NewDistanceBanded(src)
	ctx := context.Background()

	e, err := d.Estimate(ctx, "Jeepney", 7)
	if err != nil {
		t.Fatalf("Estimate(7): %v", err)
	}
	if e.Fare.Regular != Amount(Pesos(13)) || e.Fare.Discounted != Amount(Pesos(10)) {
		t.Errorf("Estimate(7) fare = %+v, want 13/10", e.Fare)
	}

	e, err = d.Estimate(ctx, "Jeepney", 25)
	if err != nil {
		t.Fatalf("Estimate(25): %v", err)
	}
	if e.Fare.Available() || e.Fare.Discounted.Available {
		t.Errorf("Estimate(25) fare = %+v, want N/A", e.Fare)
	}

	e, err = d.Estimate(ctx, "Bus", 3)
	if err != nil {
		t.Fatalf("Estimate(Bus): %v", err)
	}
	if e.Fare.Available() {
		t.Errorf("mode without a table should be N/A, got %+v", e.Fare)
	}
}

func TestDistanceBanded_ShortTripPaysMinimum(t *testing.T) {
	src := &fakeDistanceSource{bands: map[string][]Band{"Jeepney": {band(5, 13, 10)}}}
	e, err := NewDistanceBanded(src).Estimate(context.Background(), "Jeepney", 3.0953)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if e.Fare.Regular.String() != "₱13.00" || e.Fare.Discounted.String() != "₱10.00" {
		t.Errorf("fare = %s/%s, want ₱13.00/₱10.00", e.Fare.Regular, e.Fare.Discounted)
	}
}

func TestDistanceBanded_DerivesDiscount(t *testing.T) {
	src := &fakeDistanceSource{bands: map[string][]Band{"Jeepney": {{Mode: "Jeepney", MaxKm: 4, Regular: Pesos(13)}}}}
	e, err := NewDistanceBanded(src).Estimate(context.Background(), "Jeepney", 2)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if e.Fare.Discounted != Amount(Pesos(10.40)) {
		t.Errorf("discounted = %v, want ₱10.40", e.Fare.Discounted)
	}
}

func TestDistanceBanded_Errors(t *testing.T) {
	boom := errors.New("table locked")
	d := NewDistanceBanded(&fakeDistanceSource{err: boom})
	if _, err := d.Estimate(context.Background(), "Jeepney", 3); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if _, err := d.Estimate(context.Background(), "Jeepney", math.NaN()); err == nil {
		t.Error("NaN distance should fail")
	}
}
