package archivehandlers

import (
	"log/slog"
	"net/http"

	archiveservice "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/application"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/httpx"
	"github.com/go-chi/chi/v5"
)

// ArchiveHandlers exposes the tombstoning delete.
type ArchiveHandlers struct {
	service archiveservice.Service
	logger  *slog.Logger
}

func NewArchiveHandlers(service archiveservice.Service, logger *slog.Logger) *ArchiveHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveHandlers{service: service, logger: logger}
}

func (h *ArchiveHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/entity/kinds", h.HandleKinds)
	r.Delete("/entity/{kind}/{id}", h.HandleDelete)
}

func (h *ArchiveHandlers) HandleKinds(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"kinds": h.service.Kinds()})
}

// HandleDelete answers with the id of the tombstone that now holds the row.
func (h *ArchiveHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	tombstoneID, err := h.service.DeleteEntity(r.Context(), chi.URLParam(r, "kind"), id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"tombstone_id": tombstoneID})
}
