package domain

import (
	"time"
)

// WorkoutLock points at the single in-progress workout of a user.
type WorkoutLock struct {
	UserID    string    `bson:"_id" json:"userId"`
	WorkoutID string    `bson:"workoutId" json:"workoutId"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IdempotencyRecord caches the success response of a request keyed by (workout, key).
type IdempotencyRecord struct {
	WorkoutID   string    `bson:"workoutId" json:"workoutId"`
	Key         string    `bson:"key" json:"key"`
	UserID      string    `bson:"userId" json:"userId"`
	Operation   string    `bson:"operation" json:"operation"`
	Fingerprint string    `bson:"fingerprint" json:"fingerprint"`
	Response    []byte    `bson:"response" json:"response"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// ExerciseSummary is the per-exercise part of an archive.
type ExerciseSummary struct {
	InstanceID    string   `bson:"instanceId" json:"instanceId"`
	ExerciseID    string   `bson:"exerciseId" json:"exerciseId"`
	Name          string   `bson:"name" json:"name"`
	CompletedSets int      `bson:"completedSets" json:"completedSets"`
	Volume        float64  `bson:"volume" json:"volume"`
	TopWeight     *float64 `bson:"topWeight,omitempty" json:"topWeight,omitempty"`
	TopReps       *int     `bson:"topReps,omitempty" json:"topReps,omitempty"`
	Estimated1RM  *float64 `bson:"estimated1RM,omitempty" json:"estimated1RM,omitempty"`
}

// ArchiveSummary holds the analytics derived when a workout completes.
type ArchiveSummary struct {
	Totals          Totals            `bson:"totals" json:"totals"`
	DurationSeconds int64             `bson:"durationSeconds" json:"durationSeconds"`
	ExerciseCount   int               `bson:"exerciseCount" json:"exerciseCount"`
	SkippedSets     int               `bson:"skippedSets" json:"skippedSets"`
	Exercises       []ExerciseSummary `bson:"exercises" json:"exercises"`
}

// WorkoutArchive is the immutable record written once when a workout completes.
type WorkoutArchive struct {
	WorkoutID  string         `bson:"_id" json:"workoutId"`
	UserID     string         `bson:"userId" json:"userId"`
	Workout    ActiveWorkout  `bson:"workout" json:"workout"`
	Summary    ArchiveSummary `bson:"summary" json:"summary"`
	ArchivedAt time.Time      `bson:"archivedAt" json:"archivedAt"`
}
