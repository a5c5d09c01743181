package memory

import (
	"context"

	"alcyxob/workout-engine/internal/domain"
	"alcyxob/workout-engine/internal/repository"
)

type write struct {
	value   any
	deleted bool
}

// tx is the per-attempt view of a Store: a read set of observed revisions and buffered writes.
type tx struct {
	store  *Store
	reads  map[string]uint64
	writes map[string]write
}

func newTx(s *Store) *tx {
	return &tx{
		store:  s,
		reads:  make(map[string]uint64),
		writes: make(map[string]write),
	}
}

var _ repository.Tx = (*tx)(nil)

// get returns a private copy of the value at key, observing buffered writes first.
func (t *tx) get(key string) (any, bool) {
	if w, ok := t.writes[key]; ok {
		if w.deleted {
			return nil, false
		}
		return cloneValue(w.value), true
	}
	rec, ok := t.store.load(key)
	if _, seen := t.reads[key]; !seen {
		t.reads[key] = rec.rev
	}
	if !ok {
		return nil, false
	}
	return rec.value, true
}

func (t *tx) put(key string, value any) {
	t.writes[key] = write{value: cloneValue(value)}
}

// insert buffers a write that must not overwrite an existing record.
func (t *tx) insert(key string, value any) error {
	if _, exists := t.get(key); exists {
		return repository.ErrDuplicate
	}
	t.put(key, value)
	return nil
}

func (t *tx) GetWorkout(ctx context.Context, userID, workoutID string) (*domain.ActiveWorkout, error) {
	v, ok := t.get(workoutPrefix + workoutID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	w := v.(*domain.ActiveWorkout)
	if w.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return w, nil
}

func (t *tx) FindInProgress(ctx context.Context, userID string) (*domain.ActiveWorkout, error) {
	committed, rev := t.store.scanInProgress(userID)
	indexKey := indexPrefix + userID
	if _, seen := t.reads[indexKey]; !seen {
		t.reads[indexKey] = rev
	}

	candidates := make(map[string]*domain.ActiveWorkout, len(committed))
	for _, w := range committed {
		candidates[w.ID] = w
	}
	// buffered writes shadow committed state
	for key, w := range t.writes {
		aw, ok := w.value.(*domain.ActiveWorkout)
		if !ok || aw.UserID != userID {
			continue
		}
		if aw.Status == domain.WorkoutInProgress {
			candidates[aw.ID] = aw.Clone()
		} else {
			delete(candidates, key[len(workoutPrefix):])
		}
	}

	var latest *domain.ActiveWorkout
	for _, w := range candidates {
		if latest == nil || w.StartTime.After(latest.StartTime) {
			latest = w
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (t *tx) PutWorkout(ctx context.Context, w *domain.ActiveWorkout) error {
	t.put(workoutPrefix+w.ID, w)
	// bump the user index so concurrent FindInProgress scans conflict
	t.put(indexPrefix+w.UserID, indexMarker{})
	return nil
}

func (t *tx) GetLock(ctx context.Context, userID string) (*domain.WorkoutLock, error) {
	v, ok := t.get(lockPrefix + userID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return v.(*domain.WorkoutLock), nil
}

func (t *tx) PutLock(ctx context.Context, lock *domain.WorkoutLock) error {
	t.put(lockPrefix+lock.UserID, lock)
	return nil
}

func (t *tx) DeleteLock(ctx context.Context, userID string) error {
	key := lockPrefix + userID
	t.get(key)
	t.writes[key] = write{deleted: true}
	return nil
}

func (t *tx) GetIdempotency(ctx context.Context, workoutID, key string) (*domain.IdempotencyRecord, error) {
	v, ok := t.get(idemPrefix + workoutID + ":" + key)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return v.(*domain.IdempotencyRecord), nil
}

func (t *tx) PutIdempotency(ctx context.Context, rec *domain.IdempotencyRecord) error {
	return t.insert(idemPrefix+rec.WorkoutID+":"+rec.Key, rec)
}

func (t *tx) AppendEvent(ctx context.Context, ev *domain.Event) error {
	return t.insert(eventPrefix+ev.ID, ev)
}

func (t *tx) PutArchive(ctx context.Context, a *domain.WorkoutArchive) error {
	return t.insert(archivePrefix+a.WorkoutID, a)
}
