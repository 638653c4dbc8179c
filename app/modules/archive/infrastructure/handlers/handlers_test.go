package archivehandlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	archivedb "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/repositories"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestArchiveHandlers(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		url        string
		setup      func(*FakeService)
		wantStatus int
		wantBody   string
	}{
		{
			name:   "delete returns tombstone id",
			method: http.MethodDelete,
			url:    "/entity/team/4",
			setup: func(s *FakeService) {
				s.DeleteEntityFunc = func(ctx context.Context, kind string, id int64) (int64, error) {
					assert.Equal(t, "team", kind)
					assert.Equal(t, int64(4), id)
					return 17, nil
				}
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"tombstone_id":17}`,
		},
		{
			name:   "missing row is 404",
			method: http.MethodDelete,
			url:    "/entity/flag/4",
			setup: func(s *FakeService) {
				s.DeleteEntityFunc = func(context.Context, string, int64) (int64, error) {
					return 0, archivedb.ErrRowNotFound
				}
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "referenced row is 409",
			method: http.MethodDelete,
			url:    "/entity/team/1",
			setup: func(s *FakeService) {
				s.DeleteEntityFunc = func(context.Context, string, int64) (int64, error) {
					return 0, archivedb.ErrStillReferenced
				}
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "non numeric id is 400",
			method:     http.MethodDelete,
			url:        "/entity/team/x",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "kinds",
			method: http.MethodGet,
			url:    "/entity/kinds",
			setup: func(s *FakeService) {
				s.KindsFunc = func() []string { return []string{"event", "team"} }
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"kinds":["event","team"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeService{}
			if tt.setup != nil {
				tt.setup(svc)
			}
			r := chi.NewRouter()
			NewArchiveHandlers(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(r)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.url, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
