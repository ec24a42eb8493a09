package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lestari-foundation/forestgate/internal/access"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/pkg/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const programID = "4b0f7d9e-3c0e-4c51-9d7e-2f4f5d8a1b11"

type mockHistory struct {
	entries []domain.ActivityEntry
}

func (m *mockHistory) ListForResource(_ context.Context, _, _ string) ([]domain.ActivityEntry, error) {
	return m.entries, nil
}

func newTestRouter(f *fixture) http.Handler {
	profiles := &mockProfiles{roles: testUsers}
	h := NewHandler(f.tracker, access.NewEvaluator(profiles), &mockHistory{
		entries: []domain.ActivityEntry{{Action: "workflow.submit", ResourceID: programID}},
	})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u := r.Header.Get("X-Test-User"); u != "" {
				r = r.WithContext(httputil.WithUserID(r.Context(), u))
			}
			next.ServeHTTP(w, r)
		})
	})
	h.RegisterRoutes(r, "/programs", domain.KindProgram)
	return r
}

type errorBody struct {
	Error struct {
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		status     domain.WorkflowStatus
		missing    string
		method     string
		path       string
		user       string
		body       string
		wantStatus int
	}{
		{"submit ok", domain.StatusDraft, "", http.MethodPost, "/programs/" + programID + "/submit", "planner", "", http.StatusOK},
		{"submit anonymous", domain.StatusDraft, "", http.MethodPost, "/programs/" + programID + "/submit", "", "", http.StatusUnauthorized},
		{"submit forbidden", domain.StatusDraft, "", http.MethodPost, "/programs/" + programID + "/submit", "viewer", "", http.StatusForbidden},
		{"submit incomplete", domain.StatusDraft, FieldForestCategory, http.MethodPost, "/programs/" + programID + "/submit", "planner", "", http.StatusBadRequest},
		{"submit approved", domain.StatusApproved, "", http.MethodPost, "/programs/" + programID + "/submit", "planner", "", http.StatusBadRequest},
		{"submit unknown id", domain.StatusDraft, "", http.MethodPost, "/programs/0d6c2f1e-8f0a-4a7e-b1c4-0c2f5e9d7a10/submit", "planner", "", http.StatusNotFound},
		{"submit malformed id", domain.StatusDraft, "", http.MethodPost, "/programs/not-a-uuid/submit", "planner", "", http.StatusNotFound},
		{"review ok", domain.StatusSubmittedForReview, "", http.MethodPost, "/programs/" + programID + "/review", "monev-1", `{"decision":"approve"}`, http.StatusOK},
		{"review bad decision", domain.StatusSubmittedForReview, "", http.MethodPost, "/programs/" + programID + "/review", "monev-1", `{"decision":"maybe"}`, http.StatusBadRequest},
		{"review invalid json", domain.StatusSubmittedForReview, "", http.MethodPost, "/programs/" + programID + "/review", "monev-1", `{`, http.StatusBadRequest},
		{"review by planner", domain.StatusSubmittedForReview, "", http.MethodPost, "/programs/" + programID + "/review", "planner", `{"decision":"approve"}`, http.StatusForbidden},
		{"start review", domain.StatusSubmittedForReview, "", http.MethodPost, "/programs/" + programID + "/start-review", "monev-1", "", http.StatusOK},
		{"reopen without body", domain.StatusApproved, "", http.MethodPost, "/programs/" + programID + "/reopen", "admin", "", http.StatusOK},
		{"history", domain.StatusDraft, "", http.MethodGet, "/programs/" + programID + "/history", "viewer", "", http.StatusOK},
		{"history anonymous", domain.StatusDraft, "", http.MethodGet, "/programs/" + programID + "/history", "", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := karbonProgram(programID, tt.status)
			snap.SubmittedBy = strPtr("planner")
			if tt.missing != "" {
				snap.Fields[tt.missing] = ""
			}
			f := newFixture(snap)

			rec := do(t, newTestRouter(f), tt.method, tt.path, tt.user, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_ErrorDetails(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		snap := karbonProgram(programID, domain.StatusDraft)
		snap.Fields[FieldForestCategory] = ""
		f := newFixture(snap)

		rec := do(t, newTestRouter(f), http.MethodPost, "/programs/"+programID+"/submit", "planner", "")

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body errorBody
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "resource is incomplete", body.Error.Message)
		assert.Equal(t, []any{FieldForestCategory}, body.Error.Details["missing_fields"])
	})

	t.Run("invalid transition", func(t *testing.T) {
		f := newFixture(karbonProgram(programID, domain.StatusRejected))

		rec := do(t, newTestRouter(f), http.MethodPost, "/programs/"+programID+"/review", "monev-1", `{"decision":"approve"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body errorBody
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "invalid transition", body.Error.Message)
		assert.Equal(t, "rejected", body.Error.Details["current_status"])
		assert.Len(t, body.Error.Details["allowed_statuses"], 3)
	})

	t.Run("edited while submitting", func(t *testing.T) {
		f := newFixture(karbonProgram(programID, domain.StatusDraft))
		f.store.afterRead = func(stored *Snapshot) {
			stored.UpdatedAt = stored.UpdatedAt.Add(time.Minute)
		}

		rec := do(t, newTestRouter(f), http.MethodPost, "/programs/"+programID+"/submit", "planner", "")

		require.Equal(t, http.StatusConflict, rec.Code)
		var body errorBody
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "resource changed concurrently, retry", body.Error.Message)
	})
}

func TestHandler_ReviewResponse(t *testing.T) {
	f := newFixture(submitted(programID))

	rec := do(t, newTestRouter(f), http.MethodPost, "/programs/"+programID+"/review", "monev-1",
		`{"decision":"reject","notes":"incomplete budget"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Resource struct {
				Status      string `json:"status"`
				ReviewNotes string `json:"review_notes"`
			} `json:"resource"`
			NotificationsSent int `json:"notifications_sent"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "rejected", body.Data.Resource.Status)
	assert.Equal(t, "incomplete budget", body.Data.Resource.ReviewNotes)
	assert.Equal(t, 1, body.Data.NotificationsSent)
}
