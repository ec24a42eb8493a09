package forestry

import (
	"context"
	"encoding/json"
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

type mockProfiles map[string]domain.Role

func (m mockProfiles) GetRole(_ context.Context, userID string) (domain.Role, error) {
	role, ok := m[userID]
	if !ok {
		return "", access.ErrUnauthenticated
	}
	return role, nil
}

func newTestRouter(repo *mockRepository, importPerMinute int) http.Handler {
	ev := access.NewEvaluator(mockProfiles{
		"implementer": domain.RoleProgramImplementer,
		"viewer":      domain.RoleViewer,
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
	NewHandler(NewService(repo, &mockActivity{})).RegisterRoutes(r, ev.Require, importPerMinute)
	return r
}

func post(h http.Handler, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("X-Test-User", user)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const importBody = `{"rows":[
	{"nomor_sk":"SK.1/2020","nama_kelompok":"LPHD Sungai Beras","skema":"HD","provinsi":"Jambi","luas_ha":120.5,"jumlah_kk":40},
	{"nomor_sk":"SK.3/2020","nama_kelompok":"KTH","skema":"ZZ","provinsi":"Jambi","luas_ha":1}
]}`

func TestHandler_Import(t *testing.T) {
	router := newTestRouter(newMockRepository(), 5)

	rec := post(router, "/social-forestry/import", "implementer", importBody)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data ImportReport `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1, body.Data.Inserted)
	assert.Equal(t, 1, body.Data.Failed)
	require.Len(t, body.Data.Errors, 1)
	assert.Equal(t, 2, body.Data.Errors[0].Row)
}

func TestHandler_Import_Errors(t *testing.T) {
	tests := []struct {
		name       string
		user       string
		body       string
		wantStatus int
	}{
		{"viewer cannot import", "viewer", importBody, http.StatusForbidden},
		{"empty rows", "implementer", `{"rows":[]}`, http.StatusBadRequest},
		{"invalid json", "implementer", `{"rows":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(newTestRouter(newMockRepository(), 5), "/social-forestry/import", tt.user, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_Import_RateLimited(t *testing.T) {
	router := newTestRouter(newMockRepository(), 1)

	first := post(router, "/social-forestry/import", "implementer", importBody)
	second := post(router, "/social-forestry/import", "implementer", importBody)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestHandler_Create_Validation(t *testing.T) {
	router := newTestRouter(newMockRepository(), 5)

	rec := post(router, "/social-forestry", "implementer", `{"nomor_sk":"SK.1","skema":"HD"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "nama_kelompok")
}
