package service

import (
	"math"
	"time"

	"alcyxob/workout-engine/internal/domain"
	"alcyxob/workout-engine/internal/mutation"
)

// EstimateOneRepMax uses the Epley formula. A single rep returns the weight itself.
func EstimateOneRepMax(weight float64, reps int) float64 {
	if reps <= 1 {
		return weight
	}
	return round2(weight * (1 + float64(reps)/30))
}

// Summarize derives the archive analytics of a finished workout.
func Summarize(w *domain.ActiveWorkout, end time.Time) domain.ArchiveSummary {
	summary := domain.ArchiveSummary{
		Totals:        mutation.ComputeTotals(w.Exercises),
		ExerciseCount: len(w.Exercises),
		Exercises:     make([]domain.ExerciseSummary, 0, len(w.Exercises)),
	}
	if d := end.Sub(w.StartTime); d > 0 {
		summary.DurationSeconds = int64(d / time.Second)
	}

	for _, ex := range w.Exercises {
		es := domain.ExerciseSummary{InstanceID: ex.InstanceID, ExerciseID: ex.ExerciseID, Name: ex.Name}
		for _, set := range ex.Sets {
			if set.Status == domain.SetSkipped {
				summary.SkippedSets++
				continue
			}
			if set.Status != domain.SetDone || !set.SetType.CountsTowardTotals() {
				continue
			}
			es.CompletedSets++
			if set.Weight == nil || set.Reps == nil {
				continue
			}
			weight, reps := *set.Weight, *set.Reps
			es.Volume += weight * float64(reps)
			if reps == 0 {
				continue
			}
			if es.TopWeight == nil || weight > *es.TopWeight || (weight == *es.TopWeight && reps > *es.TopReps) {
				es.TopWeight = domain.Float64(weight)
				es.TopReps = domain.Int(reps)
			}
			if e1rm := EstimateOneRepMax(weight, reps); es.Estimated1RM == nil || e1rm > *es.Estimated1RM {
				es.Estimated1RM = domain.Float64(e1rm)
			}
		}
		es.Volume = round2(es.Volume)
		summary.Exercises = append(summary.Exercises, es)
	}
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
