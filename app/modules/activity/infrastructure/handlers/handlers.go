package activityhandlers

import (
	"log/slog"
	"net/http"

	activityservice "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/application"
	activitydb "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/httpx"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/go-chi/chi/v5"
)

// ActivityHandlers serves the per-service operator switches.
type ActivityHandlers struct {
	service activityservice.Service
	logger  *slog.Logger
}

func NewActivityHandlers(service activityservice.Service, logger *slog.Logger) *ActivityHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityHandlers{service: service, logger: logger}
}

func (h *ActivityHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/service/{id}/{kind}/{value}", h.HandleSetToggle)
	r.Get("/service/{id}/{kind}", h.HandleCurrent)
	r.Get("/service/{id}/{kind}/tick/{tick_id}", h.HandleValueAt)
}

func (h *ActivityHandlers) HandleSetToggle(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	toggle, err := h.service.SetToggle(r.Context(),
		activitydb.ToggleKind(chi.URLParam(r, "kind")),
		sharedtypes.ServiceID(id),
		chi.URLParam(r, "value"),
	)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toggle)
}

func (h *ActivityHandlers) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	view, err := h.service.Current(r.Context(), activitydb.ToggleKind(chi.URLParam(r, "kind")), sharedtypes.ServiceID(id))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (h *ActivityHandlers) HandleValueAt(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	tick, err := httpx.PathInt64(r, "tick_id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	view, err := h.service.ValueAt(r.Context(),
		activitydb.ToggleKind(chi.URLParam(r, "kind")),
		sharedtypes.ServiceID(id),
		sharedtypes.TickID(tick),
	)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}
