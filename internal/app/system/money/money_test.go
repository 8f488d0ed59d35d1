package money

import "testing"

func TestTotal(t *testing.T) {
	tests := []struct {
		name     string
		lines    []Line
		shipping float64
		tax      float64
		discount float64
		wantSub  float64
		want     float64
	}{
		{"single line", []Line{{Price: 10, Quantity: 5}}, 0, 0, 0, 50, 50},
		{"float drift", []Line{{Price: 0.1, Quantity: 3}}, 0, 0, 0, 0.3, 0.3},
		{"all components", []Line{{Price: 19.99, Quantity: 2}, {Price: 5.01, Quantity: 1}}, 4.5, 3.25, 2, 44.99, 50.74},
		{"discount clamps", []Line{{Price: 5, Quantity: 1}}, 0, 0, 10, 5, 0},
		{"no lines", nil, 7, 0, 0, 0, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Total(tt.lines, tt.shipping, tt.tax, tt.discount)
			if got.Subtotal != tt.wantSub {
				t.Errorf("Subtotal = %v, want %v", got.Subtotal, tt.wantSub)
			}
			if got.Total != tt.want {
				t.Errorf("Total = %v, want %v", got.Total, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	if !Equal(0.1+0.2, 0.3) {
		t.Error("expected 0.1+0.2 to equal 0.3 to the cent")
	}
	if Equal(10.01, 10.02) {
		t.Error("expected different cents to differ")
	}
}

func TestRoundTenths(t *testing.T) {
	tests := map[float64]float64{
		4.5:        4.5,
		4.25:       4.3,
		14.0 / 3.0: 4.7,
		13.0 / 3.0: 4.3,
		0:          0,
		5:          5,
	}
	for in, want := range tests {
		if got := RoundTenths(in); got != want {
			t.Errorf("RoundTenths(%v) = %v, want %v", in, got, want)
		}
	}
}
