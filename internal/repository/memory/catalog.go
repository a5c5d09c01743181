package memory

import (
	"context"
	"sync"

	"alcyxob/workout-engine/internal/domain"
	"alcyxob/workout-engine/internal/repository"
)

// Catalog is an in-memory repository.CatalogRepository.
type Catalog struct {
	mu        sync.RWMutex
	exercises map[string]domain.Exercise
	templates map[string]domain.WorkoutTemplate
}

// NewCatalog creates a catalog preloaded with the given exercises.
func NewCatalog(exercises ...domain.Exercise) *Catalog {
	c := &Catalog{
		exercises: make(map[string]domain.Exercise),
		templates: make(map[string]domain.WorkoutTemplate),
	}
	for _, ex := range exercises {
		c.exercises[ex.ID] = ex
	}
	return c
}

var _ repository.CatalogRepository = (*Catalog)(nil)

// AddExercise inserts or replaces a catalog exercise.
func (c *Catalog) AddExercise(ex domain.Exercise) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exercises[ex.ID] = ex
}

// AddTemplate inserts or replaces a workout template.
func (c *Catalog) AddTemplate(tpl domain.WorkoutTemplate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[tpl.ID] = tpl
}

func (c *Catalog) GetExercise(ctx context.Context, exerciseID string) (*domain.Exercise, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ex, ok := c.exercises[exerciseID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ex, nil
}

func (c *Catalog) GetTemplate(ctx context.Context, userID, templateID string) (*domain.WorkoutTemplate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tpl, ok := c.templates[templateID]
	if !ok || tpl.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &tpl, nil
}
