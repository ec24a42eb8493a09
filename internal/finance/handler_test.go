package finance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/lestari-foundation/forestgate/internal/access"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/pkg/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	programID = "4b0f7d9e-3c0e-4c51-9d7e-2f4f5d8a1b11"
	txID      = "9d7e2f4f-5d8a-4b11-8c0e-4c514b0f7d9e"
)

type mockProfiles map[string]domain.Role

func (m mockProfiles) GetRole(_ context.Context, userID string) (domain.Role, error) {
	role, ok := m[userID]
	if !ok {
		return "", access.ErrUnauthenticated
	}
	return role, nil
}

func newTestRouter(repo *mockRepository) http.Handler {
	ev := access.NewEvaluator(mockProfiles{
		"manager":  domain.RoleFinanceManager,
		"approver": domain.RoleFinanceApprover,
		"admin":    domain.RoleAdmin,
		"viewer":   domain.RoleViewer,
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
	NewHandler(NewService(repo, &mockActivity{})).RegisterRoutes(r, ev.Require)
	return r
}

func TestHandler_StatusCodes(t *testing.T) {
	const txBody = `{"program_id":"` + programID + `","tanggal":"2026-02-01T00:00:00Z","jenis":"PENGELUARAN","jumlah":2500000,"keterangan":"Bibit kopi"}`

	tests := []struct {
		name       string
		method     string
		path       string
		user       string
		body       string
		createdBy  string
		wantStatus int
	}{
		{"create transaction", http.MethodPost, "/transactions", "manager", txBody, "", http.StatusCreated},
		{"approver cannot create", http.MethodPost, "/transactions", "approver", txBody, "", http.StatusForbidden},
		{"create negative amount", http.MethodPost, "/transactions", "manager", strings.Replace(txBody, "2500000", "-1", 1), "", http.StatusBadRequest},
		{"approve", http.MethodPost, "/transactions/" + txID + "/approve", "approver", "", "manager", http.StatusOK},
		{"manager cannot approve", http.MethodPost, "/transactions/" + txID + "/approve", "manager", "", "admin", http.StatusForbidden},
		{"admin cannot approve own", http.MethodPost, "/transactions/" + txID + "/approve", "admin", "", "admin", http.StatusForbidden},
		{"reject with note", http.MethodPost, "/transactions/" + txID + "/reject", "approver", `{"catatan":"tanpa kuitansi"}`, "manager", http.StatusOK},
		{"approve missing", http.MethodPost, "/transactions/" + txID + "/approve", "approver", "", "", http.StatusNotFound},
		{"set budget", http.MethodPut, "/programs/" + programID + "/budgets/2026", "manager", `{"jumlah":1000}`, "", http.StatusOK},
		{"set budget bad year", http.MethodPut, "/programs/" + programID + "/budgets/abc", "manager", `{"jumlah":1000}`, "", http.StatusBadRequest},
		{"viewer cannot see finance", http.MethodGet, "/programs/" + programID + "/finance-summary", "viewer", "", "", http.StatusForbidden},
		{"summary", http.MethodGet, "/programs/" + programID + "/finance-summary?tahun=2026", "approver", "", "", http.StatusOK},
		{"list bad status", http.MethodGet, "/transactions?status=void", "approver", "", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			repo := newMockRepository()
			if tt.createdBy != "" {
				repo.transactions[txID] = &domain.Transaction{
					ID:        txID,
					ProgramID: programID,
					Status:    domain.TransactionPending,
					CreatedBy: tt.createdBy,
				}
			}
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("X-Test-User", tt.user)
			rec := httptest.NewRecorder()

			// Act
			newTestRouter(repo).ServeHTTP(rec, req)

			// Assert
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.name == "admin cannot approve own" {
				assert.Contains(t, rec.Body.String(), "creator cannot decide")
			}
		})
	}
}
