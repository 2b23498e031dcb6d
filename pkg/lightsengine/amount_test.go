package lightsengine

import "testing"

func TestAmountTracker(t *testing.T) {
	type obs struct {
		total    float64
		existing int
		regular  int
		fresh    int
	}
	tests := []struct {
		name  string
		steps []obs
	}{
		{"first load", []obs{{49000, 0, 980, 0}}},
		{"donation", []obs{{49000, 0, 980, 0}, {49150, 980, 0, 3}}},
		{"sub price delta", []obs{{49000, 0, 980, 0}, {49030, 980, 0, 0}, {49060, 980, 1, 0}}},
		{"pending counted", []obs{{1000, 0, 20, 0}, {1000, 20, 0, 0}}},
		{"zero seed", []obs{{0, 0, 0, 0}, {500, 0, 10, 0}}},
		{"decrease", []obs{{1000, 0, 20, 0}, {900, 20, 0, 0}}},
		{"floor", []obs{{49, 0, 0, 0}, {101, 0, 1, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewAmountTracker(50)
			for i, s := range tt.steps {
				r, n := tr.Observe(s.total, s.existing)
				if r != s.regular || n != s.fresh {
					t.Errorf("step %d: Observe(%v, %d) = (%d, %d), want (%d, %d)", i, s.total, s.existing, r, n, s.regular, s.fresh)
				}
			}
		})
	}
}

func TestAmountTrackerDefaultPrice(t *testing.T) {
	if got := NewAmountTracker(0).PricePerPoint; got != DefaultPricePerPoint {
		t.Errorf("PricePerPoint = %v, want %v", got, DefaultPricePerPoint)
	}
}
