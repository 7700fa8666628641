package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/internal/config"
	"github.com/jakechorley/oncall-roster/pkg/sqlite"
)

const weekRoster = `{
  "name": "Week 10",
  "start": "2025-03-03",
  "end": "2025-03-07",
  "seed": 42,
  "template": [
    {"post": "ML", "site": "North", "dayTypes": ["weekday"]},
    {"post": "CA", "site": "North", "dayTypes": ["weekday"]},
    {"post": "NL", "site": "North"}
  ],
  "staff": [
    {"name": "Dr A", "kind": "doctor",
     "desiderata": [{"start": "2025-03-04", "period": "morning", "priority": "primary"}]},
    {"name": "Dr B", "kind": "doctor"}
  ],
  "doctors": {
    "Dr A": {"posts": {"ML": {"min": 0, "max": 5}, "CA": {"min": 0, "max": 5}, "NL": {"min": 0, "max": 3}}},
    "Dr B": {"posts": {"ML": {"min": 0, "max": 5}, "CA": {"min": 0, "max": 5}, "NL": {"min": 0, "max": 3}}}
  }
}`

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, h *Handler) *gin.Engine {
	t.Helper()
	r := gin.New()
	h.Register(r)
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, New(&config.Config{}, zap.NewNop(), nil))

	w := do(r, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["storage"])
}

func TestDistribute_DryRun(t *testing.T) {
	h := New(&config.Config{}, zap.NewNop(), nil)
	r := newTestRouter(t, h)

	w := do(r, http.MethodPost, "/api/distribute", weekRoster)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp distributionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Persisted)
	assert.Equal(t, uint64(42), resp.Planning.Seed)
	assert.Equal(t, "Week 10", resp.Planning.Name)
	assert.NotEmpty(t, resp.Assignments)
	assert.NotEmpty(t, resp.Stages)
	assert.Equal(t, resp.Planning.Unfilled, resp.Shortfall.Total)

	metrics := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "roster_distribution_stage_duration_seconds")
}

func TestDistribute_SeedQueryOverridesDocument(t *testing.T) {
	r := newTestRouter(t, New(&config.Config{}, zap.NewNop(), nil))

	w := do(r, http.MethodPost, "/api/distribute?seed=7", weekRoster)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp distributionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(7), resp.Planning.Seed)
}

func TestDistribute_SameSeedSameAssignments(t *testing.T) {
	r := newTestRouter(t, New(&config.Config{}, zap.NewNop(), nil))

	first := do(r, http.MethodPost, "/api/distribute", weekRoster)
	second := do(r, http.MethodPost, "/api/distribute", weekRoster)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)

	var a, b distributionResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.Equal(t, a.Assignments, b.Assignments)
}

func TestDistribute_Persist(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "roster.db"))
	require.NoError(t, err)
	defer store.Close()

	r := newTestRouter(t, New(&config.Config{}, zap.NewNop(), store))

	w := do(r, http.MethodPost, "/api/distribute?persist=true", weekRoster)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp distributionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Persisted)

	plannings, err := store.GetPlannings(context.Background())
	require.NoError(t, err)
	require.Len(t, plannings, 1)
	assert.Equal(t, resp.Planning.ID, plannings[0].ID)

	stored, err := store.GetAssignments(context.Background(), resp.Planning.ID)
	require.NoError(t, err)
	assert.Len(t, stored, len(resp.Assignments))
}

func TestDistribute_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		status int
		want   string
	}{
		{
			name:   "persist without store",
			target: "/api/distribute?persist=true",
			body:   weekRoster,
			status: http.StatusServiceUnavailable,
			want:   "no database configured",
		},
		{
			name:   "bad seed",
			target: "/api/distribute?seed=abc",
			body:   weekRoster,
			status: http.StatusBadRequest,
			want:   "invalid seed",
		},
		{
			name:   "malformed json",
			target: "/api/distribute",
			body:   "{",
			status: http.StatusBadRequest,
			want:   "failed to parse roster file",
		},
		{
			name:   "invalid document",
			target: "/api/distribute",
			body:   `{"start": "2025-03-03", "end": "2025-03-07", "template": []}`,
			status: http.StatusBadRequest,
			want:   "roster validation failed",
		},
		{
			name:   "unknown post",
			target: "/api/distribute",
			body:   `{"start": "2025-03-03", "end": "2025-03-07", "template": [{"post": "ZZ", "site": "North"}]}`,
			status: http.StatusUnprocessableEntity,
			want:   "unknown post",
		},
	}

	r := newTestRouter(t, New(&config.Config{}, zap.NewNop(), nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestCriticalPeriods(t *testing.T) {
	r := newTestRouter(t, New(&config.Config{}, zap.NewNop(), nil))

	w := do(r, http.MethodPost, "/api/critical-periods", weekRoster)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp criticalPeriodsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Staff)
	require.NotEmpty(t, resp.Periods, "half the staff is away on Tuesday morning")
	assert.Equal(t, "2025-03-04", resp.Periods[0].Date)
	assert.Equal(t, "morning", resp.Periods[0].Period)
}

func TestCombinations(t *testing.T) {
	r := newTestRouter(t, New(&config.Config{}, zap.NewNop(), nil))

	w := do(r, http.MethodPost, "/api/combinations", weekRoster)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp combinationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Combinations)

	var mlca *combinationResponse
	for i := range resp.Combinations {
		if resp.Combinations[i].Code == "MLCA" {
			mlca = &resp.Combinations[i]
		}
	}
	require.NotNil(t, mlca)
	assert.Equal(t, 5, mlca.Opportunities)
	assert.Equal(t, 2, mlca.EligibleDoctors)
	assert.NotNil(t, mlca.Ratio)
}
