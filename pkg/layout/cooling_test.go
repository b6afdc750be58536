package layout

import (
	"math"
	"testing"
)

func TestCoolLinearSchedule(t *testing.T) {
	tests := []struct {
		name      string
		initial   float64
		iteration int
		total     int
		want      float64
	}{
		{"first_iteration_full", 5.0, 0, 100, 5.0},
		{"midpoint_half", 5.0, 50, 100, 2.5},
		{"last_iteration_one_step", 5.0, 99, 100, 0.05},
		{"single_iteration_run", 5.0, 0, 1, 5.0},
		{"zero_initial", 0, 40, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cool(tt.initial, tt.iteration, tt.total)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("cool(%v, %d, %d) = %v, want %v",
					tt.initial, tt.iteration, tt.total, got, tt.want)
			}
		})
	}
}

func TestCoolZeroTotal(t *testing.T) {
	if got := cool(5.0, 0, 0); got != 0 {
		t.Errorf("cool with total=0 = %v, want 0", got)
	}
	if got := cool(5.0, 0, -3); got != 0 {
		t.Errorf("cool with negative total = %v, want 0", got)
	}
}

// TestCoolMonotonic verifies the schedule never heats back up mid-run.
func TestCoolMonotonic(t *testing.T) {
	const total = 100
	prev := math.Inf(1)
	for i := 0; i < total; i++ {
		temp := cool(5.0, i, total)
		if temp > prev {
			t.Fatalf("temperature rose at iteration %d: %v > %v", i, temp, prev)
		}
		if temp <= 0 {
			t.Fatalf("temperature hit %v at iteration %d; every iteration should retain some motion", temp, i)
		}
		prev = temp
	}
}
