// internal/domain/template.go
package domain

import (
	"time"
)

// PlannedSet is a prescribed set used when seeding a workout.
type PlannedSet struct {
	ID      string   `bson:"id,omitempty" json:"id,omitempty"`
	SetType SetType  `bson:"setType,omitempty" json:"setType,omitempty"`
	Weight  *float64 `bson:"weight,omitempty" json:"weight,omitempty"`
	Reps    *int     `bson:"reps,omitempty" json:"reps,omitempty"`
	RIR     *int     `bson:"rir,omitempty" json:"rir,omitempty"`
}

// PlannedExercise is one exercise of a plan. InstanceID is optional; the server generates one.
type PlannedExercise struct {
	InstanceID string       `bson:"instanceId,omitempty" json:"instanceId,omitempty"`
	ExerciseID string       `bson:"exerciseId" json:"exerciseId"`
	Name       string       `bson:"name" json:"name"`
	Sets       []PlannedSet `bson:"sets" json:"sets"`
}

// WorkoutPlan seeds the exercise list of a new workout.
type WorkoutPlan struct {
	Name      string            `bson:"name,omitempty" json:"name,omitempty"`
	Exercises []PlannedExercise `bson:"exercises" json:"exercises"`
}

// WorkoutTemplate is a user-owned catalog record a workout can be started from.
type WorkoutTemplate struct {
	ID        string      `bson:"_id" json:"id"`
	UserID    string      `bson:"userId" json:"userId"` // Owner of the template
	Plan      WorkoutPlan `bson:"plan" json:"plan"`
	CreatedAt time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time   `bson:"updatedAt" json:"updatedAt"`
}
