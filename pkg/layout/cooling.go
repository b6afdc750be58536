package layout

// cool returns the temperature for one iteration of a run. The schedule is
// linear: full initial temperature at iteration 0, decaying to one step
// above zero at the final iteration, so late iterations make only fine
// adjustments.
func cool(initial float64, iteration, total int) float64 {
	if total <= 0 {
		return 0
	}
	return initial * float64(total-iteration) / float64(total)
}
