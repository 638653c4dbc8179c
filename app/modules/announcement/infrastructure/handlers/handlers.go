package announcementhandlers

import (
	"log/slog"
	"net/http"

	announcementservice "github.com/Black-And-White-Club/ctf-engine/app/modules/announcement/application"
	announcementdb "github.com/Black-And-White-Club/ctf-engine/app/modules/announcement/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/httpx"
	"github.com/go-chi/chi/v5"
)

type AnnouncementHandlers struct {
	service announcementservice.Service
	logger  *slog.Logger
}

func NewAnnouncementHandlers(service announcementservice.Service, logger *slog.Logger) *AnnouncementHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnnouncementHandlers{service: service, logger: logger}
}

func (h *AnnouncementHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/announcements", h.HandlePost)
	r.Get("/announcements", h.HandleList)
}

type postRequest struct {
	Text string `json:"text"`
}

type listResponse struct {
	Announcements []announcementdb.Announcement `json:"announcements"`
}

func (h *AnnouncementHandlers) HandlePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	a, err := h.service.Post(r.Context(), req.Text)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, a)
}

func (h *AnnouncementHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{Announcements: list})
}
