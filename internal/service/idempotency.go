package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"alcyxob/workout-engine/internal/domain"
	"alcyxob/workout-engine/internal/repository"
)

// IdempotencyResult reports whether a request was already applied.
type IdempotencyResult struct {
	IsDuplicate bool
	Record      *domain.IdempotencyRecord
}

// IdempotencyGuard deduplicates retried mutations by (workoutId, idempotencyKey). Both the
// lookup and the record write run inside the caller's transaction.
type IdempotencyGuard struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewIdempotencyGuard creates a guard.
func NewIdempotencyGuard(logger *zap.Logger) *IdempotencyGuard {
	return &IdempotencyGuard{logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Fingerprint hashes an operation name and its request body with BLAKE2b-256.
func (g *IdempotencyGuard) Fingerprint(operation string, request any) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s request: %w", operation, err)
	}
	h, _ := blake2b.New256(nil)
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// EnsureIdempotent looks up a prior result. An empty key is never deduplicated.
// A reused key with a different request still replays the cached response; the mismatch is
// only logged.
func (g *IdempotencyGuard) EnsureIdempotent(ctx context.Context, tx repository.Tx, userID, workoutID, key, operation, fingerprint string) (IdempotencyResult, error) {
	if key == "" {
		return IdempotencyResult{}, nil
	}
	rec, err := tx.GetIdempotency(ctx, workoutID, key)
	if errors.Is(err, repository.ErrNotFound) {
		return IdempotencyResult{}, nil
	}
	if err != nil {
		return IdempotencyResult{}, err
	}
	if rec.UserID != userID {
		return IdempotencyResult{}, ErrWorkoutNotFound
	}
	if rec.Operation != operation || rec.Fingerprint != fingerprint {
		g.logger.Warn("idempotency key reused with a different request",
			zap.String("workoutId", workoutID),
			zap.String("idempotencyKey", key),
			zap.String("operation", operation),
			zap.String("recordedOperation", rec.Operation),
		)
	}
	return IdempotencyResult{IsDuplicate: true, Record: rec}, nil
}

// Remember stores the success response of a request under its key.
func (g *IdempotencyGuard) Remember(ctx context.Context, tx repository.Tx, userID, workoutID, key, operation, fingerprint string, response any) error {
	if key == "" {
		return nil
	}
	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("encode %s response: %w", operation, err)
	}
	return tx.PutIdempotency(ctx, &domain.IdempotencyRecord{
		WorkoutID:   workoutID,
		Key:         key,
		UserID:      userID,
		Operation:   operation,
		Fingerprint: fingerprint,
		Response:    body,
		CreatedAt:   g.now(),
	})
}

// Replay decodes a cached response into out.
func (g *IdempotencyGuard) Replay(rec *domain.IdempotencyRecord, out any) error {
	if err := json.Unmarshal(rec.Response, out); err != nil {
		return fmt.Errorf("decode cached %s response: %w", rec.Operation, err)
	}
	return nil
}
