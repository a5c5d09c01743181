// internal/domain/exercise.go
package domain

import (
	"time"
)

// Exercise is a catalog entry. The engine only reads it, to resolve display names.
type Exercise struct {
	ID          string `bson:"_id" json:"id"`
	Name        string `bson:"name" json:"name"`
	MuscleGroup string `bson:"muscleGroup,omitempty" json:"muscleGroup,omitempty"` // e.g., "Chest", "Legs", "Back"
	Equipment   string `bson:"equipment,omitempty" json:"equipment,omitempty"`     // e.g., "Barbell", "Dumbbell"

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
