package mutation

import (
	"alcyxob/workout-engine/internal/domain"
)

// ComputeTotals derives workout counters from canonical set data. Only done sets of type
// working or dropset count; warmups, failure-typed, skipped and planned sets contribute zero.
// Totals are always recomputed in full so every op path converges on the same numbers.
func ComputeTotals(exercises []domain.ExerciseInstance) domain.Totals {
	var t domain.Totals
	for _, ex := range exercises {
		for _, set := range ex.Sets {
			if set.Status != domain.SetDone || !set.SetType.CountsTowardTotals() {
				continue
			}
			t.Sets++
			if set.Reps == nil {
				continue
			}
			t.Reps += *set.Reps
			if set.Weight != nil {
				t.Volume += *set.Weight * float64(*set.Reps)
			}
		}
	}
	return t
}
