package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"

	"alcyxob/workout-engine/internal/domain"
	"alcyxob/workout-engine/internal/repository"
)

const defaultMaxAttempts = 5

// mongoAggregateStore implements repository.AggregateStore with multi-document transactions.
type mongoAggregateStore struct {
	client      *mongo.Client
	workouts    *mongo.Collection
	locks       *mongo.Collection
	idempotency *mongo.Collection
	events      *mongo.Collection
	archives    *mongo.Collection
	maxAttempts int
	logger      *zap.Logger
}

// NewMongoAggregateStore creates the transactional store over db. maxAttempts bounds how many
// times the driver may re-run a transaction body after transient errors.
func NewMongoAggregateStore(client *mongo.Client, db *mongo.Database, maxAttempts int, logger *zap.Logger) repository.AggregateStore {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &mongoAggregateStore{
		client:      client,
		workouts:    db.Collection(activeWorkoutCollectionName),
		locks:       db.Collection(lockCollectionName),
		idempotency: db.Collection(idempotencyCollectionName),
		events:      db.Collection(eventCollectionName),
		archives:    db.Collection(archiveCollectionName),
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// NewWorkoutID returns a fresh ObjectID in hex form.
func (s *mongoAggregateStore) NewWorkoutID() string {
	return primitive.NewObjectID().Hex()
}

// RunTransaction runs fn inside session.WithTransaction. The driver re-runs the callback on
// TransientTransactionError and retries the commit on UnknownTransactionCommitResult; the
// attempt counter turns an endless conflict into ErrTransactionConflict.
func (s *mongoAggregateStore) RunTransaction(ctx context.Context, fn repository.TxFunc) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	attempts := 0
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		attempts++
		if attempts > s.maxAttempts {
			return nil, repository.ErrTransactionConflict
		}
		if attempts > 1 {
			s.logger.Debug("mongo transaction retry", zap.Int("attempt", attempts))
		}
		return nil, fn(sessCtx, &mongoTx{store: s})
	}, txnOpts)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionConflict) {
			s.logger.Warn("mongo transaction retry limit exceeded", zap.Int("maxAttempts", s.maxAttempts))
		}
		return err
	}
	return nil
}

// mongoTx issues every operation with the session context it was handed, so all reads and
// writes join the surrounding transaction.
type mongoTx struct {
	store *mongoAggregateStore
}

// idempotencyDoc stores an IdempotencyRecord under a composite _id.
type idempotencyDoc struct {
	ID                       string `bson:"_id"`
	domain.IdempotencyRecord `bson:",inline"`
}

func idempotencyID(workoutID, key string) string {
	return workoutID + ":" + key
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}

// --- Workouts ---

func (t *mongoTx) GetWorkout(ctx context.Context, userID, workoutID string) (*domain.ActiveWorkout, error) {
	var w domain.ActiveWorkout
	filter := bson.M{"_id": workoutID, "userId": userID}
	if err := t.store.workouts.FindOne(ctx, filter).Decode(&w); err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (t *mongoTx) FindInProgress(ctx context.Context, userID string) (*domain.ActiveWorkout, error) {
	var w domain.ActiveWorkout
	filter := bson.M{"userId": userID, "status": domain.WorkoutInProgress}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "startTime", Value: -1}})
	if err := t.store.workouts.FindOne(ctx, filter, findOptions).Decode(&w); err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (t *mongoTx) PutWorkout(ctx context.Context, w *domain.ActiveWorkout) error {
	_, err := t.store.workouts.ReplaceOne(ctx, bson.M{"_id": w.ID}, w, options.Replace().SetUpsert(true))
	return err
}

// --- Locks ---

func (t *mongoTx) GetLock(ctx context.Context, userID string) (*domain.WorkoutLock, error) {
	var lock domain.WorkoutLock
	if err := t.store.locks.FindOne(ctx, bson.M{"_id": userID}).Decode(&lock); err != nil {
		return nil, notFound(err)
	}
	return &lock, nil
}

func (t *mongoTx) PutLock(ctx context.Context, lock *domain.WorkoutLock) error {
	_, err := t.store.locks.ReplaceOne(ctx, bson.M{"_id": lock.UserID}, lock, options.Replace().SetUpsert(true))
	return err
}

func (t *mongoTx) DeleteLock(ctx context.Context, userID string) error {
	_, err := t.store.locks.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}

// --- Idempotency ---

func (t *mongoTx) GetIdempotency(ctx context.Context, workoutID, key string) (*domain.IdempotencyRecord, error) {
	var doc idempotencyDoc
	if err := t.store.idempotency.FindOne(ctx, bson.M{"_id": idempotencyID(workoutID, key)}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return &doc.IdempotencyRecord, nil
}

func (t *mongoTx) PutIdempotency(ctx context.Context, rec *domain.IdempotencyRecord) error {
	doc := idempotencyDoc{ID: idempotencyID(rec.WorkoutID, rec.Key), IdempotencyRecord: *rec}
	_, err := t.store.idempotency.InsertOne(ctx, doc)
	return duplicate(err)
}

// --- Append-only records ---

func (t *mongoTx) AppendEvent(ctx context.Context, ev *domain.Event) error {
	_, err := t.store.events.InsertOne(ctx, ev)
	return duplicate(err)
}

func (t *mongoTx) PutArchive(ctx context.Context, a *domain.WorkoutArchive) error {
	_, err := t.store.archives.InsertOne(ctx, a)
	return duplicate(err)
}

var _ repository.Tx = (*mongoTx)(nil)
