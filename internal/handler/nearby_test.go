package handler

import "testing"

func TestNextRadius(t *testing.T) {
	tests := []struct {
		name       string
		current    float64
		wantRadius float64
		wantOK     bool
	}{
		{"zero gets first tier", 0, 300, true},
		{"below first tier", 100, 300, true},
		{"at first tier", 300, 600, true},
		{"between tiers", 900, 1200, true},
		{"at fourth tier", 2400, 4800, true},
		{"at max tier", 4800, 0, false},
		{"above max tier", 20000, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotRadius, gotOK := nextRadius(tt.current)
			if gotRadius != tt.wantRadius || gotOK != tt.wantOK {
				t.Errorf("nextRadius(%v) = (%v, %v), want (%v, %v)",
					tt.current, gotRadius, gotOK, tt.wantRadius, tt.wantOK)
			}
		})
	}
}

func TestRadiusTiersOrdering(t *testing.T) {
	for i := 1; i < len(radiusTiers); i++ {
		if radiusTiers[i] <= radiusTiers[i-1] {
			t.Errorf("radiusTiers not strictly increasing: [%d]=%v >= [%d]=%v",
				i-1, radiusTiers[i-1], i, radiusTiers[i])
		}
	}
}

func TestLimitForRadius(t *testing.T) {
	tests := []struct {
		radius float64
		want   int
	}{
		{100, 10},
		{300, 10},
		{600, 20},
		{1000, 30},
		{2400, 50},
		{4800, 75},
	}
	for _, tt := range tests {
		if got := limitForRadius(tt.radius); got != tt.want {
			t.Errorf("limitForRadius(%v) = %d, want %d", tt.radius, got, tt.want)
		}
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		want   string
	}{
		{0, "0 m"},
		{49.6, "50 m"},
		{999, "999 m"},
		{1000, "1.00 km"},
		{3095.3, "3.10 km"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatDistance(tt.meters); got != tt.want {
				t.Errorf("formatDistance(%v) = %q, want %q", tt.meters, got, tt.want)
			}
		})
	}
}
