package rosterhandlers

import (
	"log/slog"
	"net/http"

	rosterservice "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/application"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/httpx"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/go-chi/chi/v5"
)

// RosterHandlers serves the team and service listings.
type RosterHandlers struct {
	service rosterservice.Service
	logger  *slog.Logger
}

// NewRosterHandlers creates a new RosterHandlers.
func NewRosterHandlers(service rosterservice.Service, logger *slog.Logger) *RosterHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &RosterHandlers{service: service, logger: logger}
}

// RegisterRoutes mounts the roster routes on r.
func (h *RosterHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/teams", h.HandleListTeams)
	r.Post("/teams", h.HandleCreateTeam)
	r.Get("/team/{id}", h.HandleGetTeam)
	r.Get("/team/ip/{ip}", h.HandleTeamFromIP)
	r.Get("/services", h.HandleListServices)
	r.Post("/services", h.HandleCreateService)
	r.Get("/service/{id}", h.HandleGetService)
}

// HandleListTeams lists the non-test teams.
func (h *RosterHandlers) HandleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.ListTeams(r.Context(), false)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (h *RosterHandlers) HandleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var input rosterservice.TeamInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	team, err := h.service.CreateTeam(r.Context(), input)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, team)
}

func (h *RosterHandlers) HandleGetTeam(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	team, err := h.service.GetTeam(r.Context(), sharedtypes.TeamID(id))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, team)
}

// HandleTeamFromIP answers with {"team": null} when no team owns the address.
func (h *RosterHandlers) HandleTeamFromIP(w http.ResponseWriter, r *http.Request) {
	team, err := h.service.TeamFromIP(r.Context(), chi.URLParam(r, "ip"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"team": team})
}

func (h *RosterHandlers) HandleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.ListServices(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (h *RosterHandlers) HandleCreateService(w http.ResponseWriter, r *http.Request) {
	var input rosterservice.ServiceInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	service, err := h.service.CreateService(r.Context(), input)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, service)
}

func (h *RosterHandlers) HandleGetService(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	service, err := h.service.GetService(r.Context(), sharedtypes.ServiceID(id))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, service)
}
