package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"alcyxob/workout-engine/internal/domain"
	"alcyxob/workout-engine/internal/repository"
)

// These tests need a replica set, e.g. MONGO_TEST_URI=mongodb://localhost:27017/?replicaSet=rs0.
func newReplicaSetStore(t *testing.T, maxAttempts int) repository.AggregateStore {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	client, err := ConnectDB(uri)
	require.NoError(t, err)

	db := client.Database("workout_engine_test_" + uuid.NewString()[:8])
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	EnsureIndexes(ctx, db, zap.NewNop())

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = DisconnectDB(client)
	})
	return NewMongoAggregateStore(client, db, maxAttempts, zap.NewNop())
}

func TestMongoTransactionRoundTrip(t *testing.T) {
	store := newReplicaSetStore(t, 3)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	w := &domain.ActiveWorkout{ID: store.NewWorkoutID(), UserID: "u1", Status: domain.WorkoutInProgress, Version: 1, StartTime: now}

	err := store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.PutWorkout(ctx, w); err != nil {
			return err
		}
		if err := tx.PutLock(ctx, &domain.WorkoutLock{UserID: "u1", WorkoutID: w.ID, UpdatedAt: now}); err != nil {
			return err
		}
		return tx.PutIdempotency(ctx, &domain.IdempotencyRecord{WorkoutID: w.ID, Key: "k1", UserID: "u1", CreatedAt: now})
	})
	require.NoError(t, err)

	err = store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		got, err := tx.GetWorkout(ctx, "u1", w.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Version)

		_, err = tx.GetWorkout(ctx, "u2", w.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)

		active, err := tx.FindInProgress(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, w.ID, active.ID)

		lock, err := tx.GetLock(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, w.ID, lock.WorkoutID)

		rec, err := tx.GetIdempotency(ctx, w.ID, "k1")
		require.NoError(t, err)
		assert.Equal(t, "u1", rec.UserID)
		return nil
	})
	require.NoError(t, err)

	err = store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.PutIdempotency(ctx, &domain.IdempotencyRecord{WorkoutID: w.ID, Key: "k1", UserID: "u1", CreatedAt: now})
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestMongoTransactionRollsBack(t *testing.T) {
	store := newReplicaSetStore(t, 3)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.PutLock(ctx, &domain.WorkoutLock{UserID: "u1", WorkoutID: "w1"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.GetLock(ctx, "u1")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestMongoTransactionAttemptBound(t *testing.T) {
	store := newReplicaSetStore(t, 3)
	transient := mongo.CommandError{Code: 112, Name: "WriteConflict", Labels: []string{"TransientTransactionError"}}

	calls := 0
	err := store.RunTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		calls++
		return transient
	})
	assert.ErrorIs(t, err, repository.ErrTransactionConflict)
	assert.Equal(t, 3, calls)
}
