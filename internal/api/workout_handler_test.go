package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alcyxob/workout-engine/internal/domain"
	"alcyxob/workout-engine/internal/repository/memory"
	"alcyxob/workout-engine/internal/service"
)

const testSecret = "test-secret"

type testServer struct {
	router *gin.Engine
	store  *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	store := memory.NewStore(memory.WithMaxAttempts(50))
	catalog := memory.NewCatalog(
		domain.Exercise{ID: "bench", Name: "Bench Press"},
		domain.Exercise{ID: "ohp", Name: "Overhead Press"},
	)
	workouts := service.NewWorkoutService(store, catalog, service.NewIdempotencyGuard(logger), logger)
	lifecycle := service.NewLifecycleService(store, catalog, service.LifecycleConfig{}, nil, nil, logger)
	return &testServer{
		router: NewRouter(RouterConfig{JWTSecret: testSecret}, workouts, lifecycle, logger),
		store:  store,
	}
}

func signToken(t *testing.T, secret, userID string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expiresAt)},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

type decoded struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *domain.Error   `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, userID string, body any, headers ...string) (int, decoded) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID, time.Now().Add(time.Hour)))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out decoded
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func (s *testServer) startWorkout(t *testing.T, userID string) string {
	t.Helper()
	code, out := s.do(t, http.MethodPost, "/api/v1/workouts/start", userID, map[string]any{
		"plan": map[string]any{
			"name": "Push",
			"exercises": []map[string]any{{
				"instanceId": "E1",
				"exerciseId": "bench",
				"sets":       []map[string]any{{"id": "S1", "setType": "working", "weight": 50, "reps": 10, "rir": 2}},
			}},
		},
	})
	require.Equal(t, http.StatusOK, code, string(out.Data))
	var res service.StartResult
	require.NoError(t, json.Unmarshal(out.Data, &res))
	return res.WorkoutID
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pong")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	code, out := s.do(t, http.MethodGet, "/api/v1/workouts/active", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, out.Success)
	require.NotNil(t, out.Error)
	assert.Equal(t, domain.CodeUnauthenticated, out.Error.Code)

	expired := signToken(t, testSecret, "u1", time.Now().Add(-time.Minute))
	code, _ = s.do(t, http.MethodGet, "/api/v1/workouts/active", "", nil, "Authorization", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, code)

	forged := signToken(t, "other-secret", "u1", time.Now().Add(time.Hour))
	code, _ = s.do(t, http.MethodGet, "/api/v1/workouts/active", "", nil, "Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestActiveWorkoutLifecycle(t *testing.T) {
	s := newTestServer(t)

	code, out := s.do(t, http.MethodGet, "/api/v1/workouts/active", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"workout":null}`, string(out.Data))

	workoutID := s.startWorkout(t, "u1")

	code, out = s.do(t, http.MethodGet, "/api/v1/workouts/active", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	var active activeWorkoutResponse
	require.NoError(t, json.Unmarshal(out.Data, &active))
	require.NotNil(t, active.Workout)
	assert.Equal(t, workoutID, active.Workout.ID)

	code, out = s.do(t, http.MethodPost, "/api/v1/workouts/"+workoutID+"/complete", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	var completed service.CompleteResult
	require.NoError(t, json.Unmarshal(out.Data, &completed))
	assert.True(t, completed.Archived)

	code, out = s.do(t, http.MethodPost, "/api/v1/workouts/"+workoutID+"/cancel", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, domain.CodeInvalidState, out.Error.Code)
}

func TestLogSetOverHTTP(t *testing.T) {
	s := newTestServer(t)
	workoutID := s.startWorkout(t, "u1")
	path := "/api/v1/workouts/" + workoutID + "/sets/log"
	body := map[string]any{
		"exerciseInstanceId": "E1",
		"setId":              "S1",
		"values":             map[string]any{"weight": 50, "reps": 10, "rir": 1},
		"idempotencyKey":     "log-1",
	}

	code, first := s.do(t, http.MethodPost, path, "u1", body)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, first.Success)
	var res service.MutationResult
	require.NoError(t, json.Unmarshal(first.Data, &res))
	assert.Equal(t, domain.Totals{Sets: 1, Reps: 10, Volume: 500}, res.Totals)
	assert.Equal(t, 2, res.Version)

	code, second := s.do(t, http.MethodPost, path, "u1", body)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, string(first.Data), string(second.Data))
	assert.Len(t, s.store.Events(workoutID), 1)

	// same set again under a new key
	delete(body, "idempotencyKey")
	code, out := s.do(t, http.MethodPost, path, "u1", body, IdempotencyHeader, "log-2")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, domain.CodeAlreadyDone, out.Error.Code)

	code, out = s.do(t, http.MethodPost, path, "u1", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, domain.CodeInvalidArgument, out.Error.Code)
}

func TestPatchOverHTTP(t *testing.T) {
	s := newTestServer(t)
	workoutID := s.startWorkout(t, "u1")
	path := "/api/v1/workouts/" + workoutID + "/patch"

	code, out := s.do(t, http.MethodPost, path, "u1", map[string]any{
		"ops": []map[string]any{
			{"op": "setField", "target": map[string]any{"exerciseInstanceId": "E1", "setId": "S1"}, "field": "weight", "value": 52.5},
			{"op": "setField", "target": map[string]any{"exerciseInstanceId": "E1", "setId": "S1"}, "field": "tags.tempo", "value": "3-1-1"},
		},
		"cause":          "user_edit",
		"idempotencyKey": "p1",
	})
	require.Equal(t, http.StatusOK, code, out.Error)
	set := s.store.Workout(workoutID).Exercises[0].Sets[0]
	assert.Equal(t, 52.5, *set.Weight)
	assert.Equal(t, "3-1-1", set.Tags["tempo"])

	code, out = s.do(t, http.MethodPost, path, "u1", map[string]any{
		"ops":            []map[string]any{{"op": "setField", "target": map[string]any{"exerciseInstanceId": "E9", "setId": "S1"}, "field": "weight", "value": 1}},
		"idempotencyKey": "p2",
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, domain.CodeTargetNotFound, out.Error.Code)

	code, out = s.do(t, http.MethodPost, path, "u1", map[string]any{
		"ops":            []map[string]any{{"op": "setField", "target": map[string]any{"exerciseInstanceId": "E1", "setId": "S1"}, "field": "weight", "value": 60}},
		"cause":          "user_ai_action",
		"scope":          map[string]any{"exerciseInstanceId": "E2"},
		"idempotencyKey": "p3",
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, domain.CodePermissionDenied, out.Error.Code)

	code, out = s.do(t, http.MethodPost, path, "u1", map[string]any{
		"ops":            []map[string]any{{"op": "explode"}},
		"idempotencyKey": "p4",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, domain.CodeInvalidArgument, out.Error.Code)
}

func TestExerciseEndpoints(t *testing.T) {
	s := newTestServer(t)
	workoutID := s.startWorkout(t, "u1")
	base := "/api/v1/workouts/" + workoutID

	code, out := s.do(t, http.MethodPost, base+"/exercises", "u1", map[string]any{
		"instanceId":     "E2",
		"exerciseId":     "ohp",
		"sets":           []map[string]any{{"weight": 30, "reps": 8}},
		"idempotencyKey": "add-1",
	})
	require.Equal(t, http.StatusOK, code, out.Error)
	var added service.AddExerciseResult
	require.NoError(t, json.Unmarshal(out.Data, &added))
	assert.Equal(t, "E2", added.ExerciseInstanceID)

	code, out = s.do(t, http.MethodPost, base+"/exercises/swap", "u1", map[string]any{
		"fromExerciseId": "E2",
		"toExerciseId":   "bench",
	})
	require.Equal(t, http.StatusOK, code, out.Error)
	assert.Equal(t, "Bench Press", s.store.Workout(workoutID).Exercises[1].Name)

	code, out = s.do(t, http.MethodPost, base+"/exercises/E2/autofill", "u1", map[string]any{
		"additions": []map[string]any{{"weight": 32.5, "reps": 6}},
	})
	require.Equal(t, http.StatusOK, code, out.Error)
	assert.Len(t, s.store.Workout(workoutID).Exercises[1].Sets, 2)

	code, out = s.do(t, http.MethodPost, base+"/sets/complete-current", "u1", nil)
	require.Equal(t, http.StatusOK, code, out.Error)
	var current service.CompleteCurrentSetResult
	require.NoError(t, json.Unmarshal(out.Data, &current))
	assert.Equal(t, "Bench Press", current.ExerciseName)
	assert.Equal(t, 1, current.SetNumber)
}

func TestForeignWorkoutIsNotFound(t *testing.T) {
	s := newTestServer(t)
	workoutID := s.startWorkout(t, "u1")

	code, out := s.do(t, http.MethodPost, "/api/v1/workouts/"+workoutID+"/cancel", "u2", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, domain.CodeNotFound, out.Error.Code)
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[domain.ErrorCode]int{
		domain.CodeInvalidArgument:       http.StatusBadRequest,
		domain.CodeUnauthenticated:       http.StatusUnauthorized,
		domain.CodeNotFound:              http.StatusNotFound,
		domain.CodeTargetNotFound:        http.StatusNotFound,
		domain.CodeInvalidState:          http.StatusBadRequest,
		domain.CodeAlreadyDone:           http.StatusBadRequest,
		domain.CodePermissionDenied:      http.StatusForbidden,
		domain.CodeValidation:            http.StatusBadRequest,
		domain.CodeDuplicateSetID:        http.StatusBadRequest,
		domain.CodeMixedOpTypes:          http.StatusBadRequest,
		domain.CodeMultiSetEdit:          http.StatusBadRequest,
		domain.CodeMultipleStructuralOps: http.StatusBadRequest,
		domain.CodeInternal:              http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, httpStatus(code), code)
	}
}
