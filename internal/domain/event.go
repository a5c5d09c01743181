package domain

import (
	"strconv"
	"strings"
	"time"
)

// EventType names the kind of mutation an event records.
type EventType string

const (
	EventSetDone            EventType = "set_done"
	EventSetUpdated         EventType = "set_updated"
	EventSetAdded           EventType = "set_added"
	EventSetRemoved         EventType = "set_removed"
	EventExerciseAdded      EventType = "exercise_added"
	EventExerciseSwapped    EventType = "exercise_swapped"
	EventExerciseUpdated    EventType = "exercise_updated"
	EventExercisesReordered EventType = "exercises_reordered"
	EventWorkoutUpdated     EventType = "workout_updated"
	EventAutofillApplied    EventType = "autofill_applied"
)

// Cause records who originated a mutation.
type Cause string

const (
	CauseUserEdit     Cause = "user_edit"
	CauseUserAIAction Cause = "user_ai_action"
)

// Valid reports whether c is a known cause.
func (c Cause) Valid() bool {
	return c == CauseUserEdit || c == CauseUserAIAction
}

// DiffKind is the closed set of structural diff operations.
type DiffKind string

const (
	DiffAdd     DiffKind = "add"
	DiffReplace DiffKind = "replace"
	DiffRemove  DiffKind = "remove"
)

// PathSegment is one token of a structured diff path: either a field name or a slice index.
type PathSegment struct {
	Field string `bson:"field,omitempty" json:"field,omitempty"`
	Index *int   `bson:"index,omitempty" json:"index,omitempty"`
}

// Path addresses a location inside the aggregate document.
type Path []PathSegment

// NewPath builds a path from string field names and int indexes. Other types are ignored.
func NewPath(tokens ...any) Path {
	p := make(Path, 0, len(tokens))
	for _, t := range tokens {
		switch v := t.(type) {
		case string:
			p = append(p, PathSegment{Field: v})
		case int:
			idx := v
			p = append(p, PathSegment{Index: &idx})
		}
	}
	return p
}

// String renders the path JSON-pointer style, e.g. /exercises/0/sets/1/weight.
func (p Path) String() string {
	var b strings.Builder
	for _, seg := range p {
		b.WriteByte('/')
		if seg.Index != nil {
			b.WriteString(strconv.Itoa(*seg.Index))
		} else {
			b.WriteString(seg.Field)
		}
	}
	return b.String()
}

// DiffOp is one precise structural change. Value is absent for removals and for
// replacements that clear a nullable field.
type DiffOp struct {
	Op    DiffKind `bson:"op" json:"op"`
	Path  Path     `bson:"path" json:"path"`
	Value any      `bson:"value,omitempty" json:"value,omitempty"`
}

// Event is an append-only audit record of one successful mutation.
type Event struct {
	ID        string         `bson:"_id" json:"id"`
	WorkoutID string         `bson:"workoutId" json:"workoutId"`
	UserID    string         `bson:"userId" json:"userId"`
	Type      EventType      `bson:"type" json:"type"`
	Payload   map[string]any `bson:"payload" json:"payload"`
	DiffOps   []DiffOp       `bson:"diffOps" json:"diffOps"`
	Cause     Cause          `bson:"cause" json:"cause"`
	Version   int            `bson:"version" json:"version"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
}
