// Package analytics tells the downstream analytics consumer about completed workouts.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"alcyxob/workout-engine/internal/domain"
)

// TokenSource supplies the bearer token for the analytics consumer.
type TokenSource interface {
	Token() (string, error)
	Invalidate()
}

// NotifierConfig configures a Notifier.
type NotifierConfig struct {
	Endpoint   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Notifier posts a completion message per archived workout.
type Notifier struct {
	endpoint string
	client   *http.Client
	tokens   TokenSource
	logger   *zap.Logger
}

// completionMessage is the body posted to the analytics consumer.
type completionMessage struct {
	Type       string                `json:"type"`
	WorkoutID  string                `json:"workoutId"`
	UserID     string                `json:"userId"`
	Version    int                   `json:"version"`
	Summary    domain.ArchiveSummary `json:"summary"`
	ArchivedAt time.Time             `json:"archivedAt"`
}

// NewNotifier creates a Notifier.
func NewNotifier(cfg NotifierConfig, tokens TokenSource, logger *zap.Logger) *Notifier {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Notifier{endpoint: cfg.Endpoint, client: client, tokens: tokens, logger: logger}
}

// NotifyWorkoutCompleted posts the archive summary. A 401 invalidates the cached token and
// the request is retried once with a fresh one.
func (n *Notifier) NotifyWorkoutCompleted(ctx context.Context, archive *domain.WorkoutArchive) error {
	body, err := json.Marshal(completionMessage{
		Type:       "workout_completed",
		WorkoutID:  archive.WorkoutID,
		UserID:     archive.UserID,
		Version:    archive.Workout.Version,
		Summary:    archive.Summary,
		ArchivedAt: archive.ArchivedAt,
	})
	if err != nil {
		return fmt.Errorf("encode completion message: %w", err)
	}

	status, err := n.post(ctx, body)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		n.logger.Info("analytics token rejected, refreshing", zap.String("workoutId", archive.WorkoutID))
		n.tokens.Invalidate()
		status, err = n.post(ctx, body)
		if err != nil {
			return err
		}
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("analytics consumer returned status %d", status)
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, body []byte) (int, error) {
	token, err := n.tokens.Token()
	if err != nil {
		return 0, fmt.Errorf("analytics token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build analytics request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post analytics notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
