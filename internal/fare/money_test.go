package fare

import (
	"encoding/json"
	"testing"
)

func TestMoney_String(t *testing.T) {
	tests := []struct {
		m    Money
		want string
	}{
		{Pesos(13), "₱13.00"},
		{Pesos(10.4), "₱10.40"},
		{Pesos(0.05), "₱0.05"},
		{Pesos(-2.5), "-₱2.50"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("Money(%d).String() = %q, want %q", int64(tt.m), got, tt.want)
		}
	}
}

func TestMoney_Discounted(t *testing.T) {
	tests := []struct {
		regular Money
		want    Money
	}{
		{Pesos(13), Pesos(10.40)},
		{Pesos(28), Pesos(22.40)},
		{Pesos(15.55), Pesos(12.44)},
		{Money(1), Money(1)},
	}
	for _, tt := range tests {
		if got := tt.regular.Discounted(); got != tt.want {
			t.Errorf("%v.Discounted() = %v, want %v", tt.regular, got, tt.want)
		}
	}
}

func TestPrice_JSON(t *testing.T) {
	b, err := json.Marshal(Fare{Regular: Amount(Pesos(13)), Discounted: NA})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if got, want := string(b), `{"regular":13,"discounted":"N/A"}`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}

	var f Fare
	if err := json.Unmarshal([]byte(`{"regular":28.5,"discounted":"N/A"}`), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if f.Regular != Amount(Pesos(28.5)) || f.Discounted.Available {
		t.Errorf("Unmarshal = %+v", f)
	}

	var p Price
	if err := json.Unmarshal([]byte(`"free"`), &p); err == nil {
		t.Error("Unmarshal of a non N/A string should fail")
	}

	var omitted struct {
		FarePaid Price `json:"fare_paid"`
	}
	if err := json.Unmarshal([]byte(`{"fare_paid":null}`), &omitted); err != nil {
		t.Fatalf("Unmarshal null: %v", err)
	}
	if omitted.FarePaid.Available {
		t.Errorf("null price = %+v, want unavailable", omitted.FarePaid)
	}
}

func TestPlaceholder(t *testing.T) {
	p := Placeholder("Jeepney")
	if p.Fare.Available() || p.Fare.Discounted.Available {
		t.Errorf("placeholder fare should be N/A: %+v", p.Fare)
	}
	if p.Description != "Unable to calculate fare" {
		t.Errorf("Description = %q", p.Description)
	}
	if p.Fare.Regular.String() != "N/A" {
		t.Errorf("Regular.String() = %q, want N/A", p.Fare.Regular.String())
	}
}
