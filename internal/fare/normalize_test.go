package fare

import "testing"

func TestNormalizeStation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Monumento", "monumento"},
		{"  Doroteo   Jose  ", "doroteo jose"},
		{"EDSA Station (LRT-1)", "edsa"},
		{"LRT-1 Monumento", "monumento"},
		{"Monumento LRT", "monumento"},
		{"Taft Avenue MRT-3 Station", "taft avenue"},
		{"MRT3 North Avenue", "north avenue"},
		{"Araneta Center-Cubao", "araneta center cubao"},
		{"Araneta Center Cubao LRT2", "araneta center cubao"},
		{"España PNR Station", "españa"},
		{"Tutuban Train Station", "tutuban"},
		{"Recto Stn.", "recto"},
		{"Line 2 Santolan", "santolan"},
		{"PNR", "pnr"},
		{"Station", "station"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeStation(tt.in); got != tt.want {
				t.Errorf("NormalizeStation(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeStation_Idempotent(t *testing.T) {
	for _, name := range []string{"EDSA Station (LRT-1)", "Taft Avenue MRT-3 Station", "Gil Puyat"} {
		once := NormalizeStation(name)
		if twice := NormalizeStation(once); twice != once {
			t.Errorf("NormalizeStation not idempotent for %q: %q then %q", name, once, twice)
		}
	}
}
