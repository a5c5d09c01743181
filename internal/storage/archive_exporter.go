package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"alcyxob/workout-engine/internal/domain"
)

// ArchiveExporter writes completed workout archives as JSON objects and hands back a
// presigned download URL.
type ArchiveExporter struct {
	store     ObjectStore
	prefix    string
	urlExpiry time.Duration
	logger    *zap.Logger
}

// NewArchiveExporter creates an exporter writing under prefix.
func NewArchiveExporter(store ObjectStore, prefix string, urlExpiry time.Duration, logger *zap.Logger) *ArchiveExporter {
	return &ArchiveExporter{store: store, prefix: prefix, urlExpiry: urlExpiry, logger: logger}
}

// ArchiveKey is the object key of an archive: <prefix>/<userId>/<workoutId>.json.
func (e *ArchiveExporter) ArchiveKey(archive *domain.WorkoutArchive) string {
	return path.Join(e.prefix, archive.UserID, archive.WorkoutID+".json")
}

// ExportArchive uploads the archive. Re-exporting overwrites the same object.
func (e *ArchiveExporter) ExportArchive(ctx context.Context, archive *domain.WorkoutArchive) (string, error) {
	body, err := json.Marshal(archive)
	if err != nil {
		return "", fmt.Errorf("encode archive %s: %w", archive.WorkoutID, err)
	}
	key := e.ArchiveKey(archive)
	if err := e.store.PutObject(ctx, key, "application/json", body); err != nil {
		return "", err
	}
	url, err := e.store.GeneratePresignedDownloadURL(ctx, key, e.urlExpiry)
	if err != nil {
		return "", err
	}
	e.logger.Info("archive exported", zap.String("workoutId", archive.WorkoutID), zap.String("key", key))
	return url, nil
}
