package api

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alcyxob/workout-engine/internal/domain"
	"alcyxob/workout-engine/internal/mutation"
	"alcyxob/workout-engine/internal/service"
)

// IdempotencyHeader carries the idempotency key when the body does not.
const IdempotencyHeader = "Idempotency-Key"

// WorkoutHandler exposes the workout engine over HTTP.
type WorkoutHandler struct {
	workouts  service.WorkoutService
	lifecycle service.LifecycleService
	logger    *zap.Logger
}

// NewWorkoutHandler creates a new WorkoutHandler.
func NewWorkoutHandler(workouts service.WorkoutService, lifecycle service.LifecycleService, logger *zap.Logger) *WorkoutHandler {
	return &WorkoutHandler{workouts: workouts, lifecycle: lifecycle, logger: logger}
}

// --- DTOs for API ---

type logSetBody struct {
	service.LogSetRequest
	IdempotencyKey string `json:"idempotencyKey"`
}

type patchBody struct {
	Ops            []mutation.RawOp `json:"ops"`
	Cause          domain.Cause     `json:"cause"`
	Scope          *mutation.Scope  `json:"scope,omitempty"`
	IdempotencyKey string           `json:"idempotencyKey"`
}

type addExerciseBody struct {
	service.AddExerciseRequest
	IdempotencyKey string `json:"idempotencyKey"`
}

type swapExerciseBody struct {
	service.SwapExerciseRequest
	IdempotencyKey string `json:"idempotencyKey"`
}

type autofillBody struct {
	service.AutofillRequest
	IdempotencyKey string `json:"idempotencyKey"`
}

type keyBody struct {
	IdempotencyKey string `json:"idempotencyKey"`
}

type activeWorkoutResponse struct {
	Workout *domain.ActiveWorkout `json:"workout"`
}

// --- Handler Methods ---

// StartWorkout handles POST /workouts/start.
func (h *WorkoutHandler) StartWorkout(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req service.StartRequest
	if !h.bindOptional(c, &req) {
		return
	}
	res, err := h.lifecycle.Start(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, res)
}

// GetActiveWorkout handles GET /workouts/active. The workout is null when none is in progress.
func (h *WorkoutHandler) GetActiveWorkout(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	w, err := h.lifecycle.GetActive(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, activeWorkoutResponse{Workout: w})
}

// LogSet handles POST /workouts/:workoutId/sets/log.
func (h *WorkoutHandler) LogSet(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var body logSetBody
	if !h.bind(c, &body) {
		return
	}
	req := body.LogSetRequest
	req.WorkoutID = c.Param("workoutId")
	req.IdempotencyKey = idempotencyKey(c, body.IdempotencyKey)

	res, err := h.workouts.LogSet(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, res)
}

// CompleteCurrentSet handles POST /workouts/:workoutId/sets/complete-current.
func (h *WorkoutHandler) CompleteCurrentSet(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var body keyBody
	if !h.bindOptional(c, &body) {
		return
	}
	res, err := h.workouts.CompleteCurrentSet(c.Request.Context(), userID, c.Param("workoutId"), idempotencyKey(c, body.IdempotencyKey))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, res)
}

// PatchWorkout handles POST /workouts/:workoutId/patch.
func (h *WorkoutHandler) PatchWorkout(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var body patchBody
	if !h.bind(c, &body) {
		return
	}
	ops, err := mutation.DecodeOps(body.Ops)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	res, err := h.workouts.PatchWorkout(c.Request.Context(), userID, service.PatchRequest{
		WorkoutID:      c.Param("workoutId"),
		Ops:            ops,
		Cause:          body.Cause,
		Scope:          body.Scope,
		IdempotencyKey: idempotencyKey(c, body.IdempotencyKey),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, res)
}

// AddExercise handles POST /workouts/:workoutId/exercises.
func (h *WorkoutHandler) AddExercise(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var body addExerciseBody
	if !h.bind(c, &body) {
		return
	}
	req := body.AddExerciseRequest
	req.WorkoutID = c.Param("workoutId")
	req.IdempotencyKey = idempotencyKey(c, body.IdempotencyKey)

	res, err := h.workouts.AddExercise(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, res)
}

// SwapExercise handles POST /workouts/:workoutId/exercises/swap.
func (h *WorkoutHandler) SwapExercise(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var body swapExerciseBody
	if !h.bind(c, &body) {
		return
	}
	req := body.SwapExerciseRequest
	req.WorkoutID = c.Param("workoutId")
	req.IdempotencyKey = idempotencyKey(c, body.IdempotencyKey)

	res, err := h.workouts.SwapExercise(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, res)
}

// AutofillExercise handles POST /workouts/:workoutId/exercises/:instanceId/autofill.
func (h *WorkoutHandler) AutofillExercise(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var body autofillBody
	if !h.bind(c, &body) {
		return
	}
	req := body.AutofillRequest
	req.WorkoutID = c.Param("workoutId")
	req.ExerciseInstanceID = c.Param("instanceId")
	req.IdempotencyKey = idempotencyKey(c, body.IdempotencyKey)

	res, err := h.workouts.AutofillExercise(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, res)
}

// CompleteWorkout handles POST /workouts/:workoutId/complete.
func (h *WorkoutHandler) CompleteWorkout(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	res, err := h.lifecycle.Complete(c.Request.Context(), userID, c.Param("workoutId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, res)
}

// CancelWorkout handles POST /workouts/:workoutId/cancel.
func (h *WorkoutHandler) CancelWorkout(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	res, err := h.lifecycle.Cancel(c.Request.Context(), userID, c.Param("workoutId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, res)
}

// --- Helpers ---

func (h *WorkoutHandler) userID(c *gin.Context) (string, bool) {
	userID, err := getUserIDFromContext(c)
	if err != nil || userID == "" {
		abortUnauthenticated(c, "Unable to identify user from token")
		return "", false
	}
	return userID, true
}

func (h *WorkoutHandler) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		abortWithError(c, domain.InvalidArgument("invalid request body: %v", err))
		return false
	}
	return true
}

// bindOptional accepts an empty body.
func (h *WorkoutHandler) bindOptional(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, domain.InvalidArgument("invalid request body: %v", err))
		return false
	}
	return true
}

// idempotencyKey prefers the body field over the header.
func idempotencyKey(c *gin.Context, fromBody string) string {
	if key := strings.TrimSpace(fromBody); key != "" {
		return key
	}
	return strings.TrimSpace(c.GetHeader(IdempotencyHeader))
}
