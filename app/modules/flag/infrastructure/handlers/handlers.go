package flaghandlers

import (
	"log/slog"
	"net/http"

	flagservice "github.com/Black-And-White-Club/ctf-engine/app/modules/flag/application"
	flagdb "github.com/Black-And-White-Club/ctf-engine/app/modules/flag/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/httpx"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/go-chi/chi/v5"
)

// FlagHandlers serves flag issuance and submission.
type FlagHandlers struct {
	service flagservice.Service
	limiter *SubmitLimiter
	logger  *slog.Logger
}

// NewFlagHandlers creates the handlers. A nil limiter disables rate limiting.
func NewFlagHandlers(service flagservice.Service, limiter *SubmitLimiter, logger *slog.Logger) *FlagHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = NewSubmitLimiter(0, 1)
	}
	return &FlagHandlers{service: service, limiter: limiter, logger: logger}
}

func (h *FlagHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/flag/generate/{service_id}/{team_id}", h.HandleGenerate)
	r.Get("/flag/latest/{service_id}/{team_id}", h.HandleLatest)
	r.Get("/flag/tick/{tick_id}", h.HandleForTick)
	r.Get("/flag/submissions/{team_id}", h.HandleSubmissions)
	r.With(h.limiter.Middleware).Post("/flag/submit/{team_id}", h.HandleSubmit)
}

func (h *FlagHandlers) pair(r *http.Request) (sharedtypes.ServiceID, sharedtypes.TeamID, error) {
	svc, err := httpx.PathInt64(r, "service_id")
	if err != nil {
		return 0, 0, err
	}
	team, err := httpx.PathInt64(r, "team_id")
	if err != nil {
		return 0, 0, err
	}
	return sharedtypes.ServiceID(svc), sharedtypes.TeamID(team), nil
}

func (h *FlagHandlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	svc, team, err := h.pair(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	flag, err := h.service.GenerateFlag(r.Context(), svc, team)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, flag)
}

func (h *FlagHandlers) HandleLatest(w http.ResponseWriter, r *http.Request) {
	svc, team, err := h.pair(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	flag, err := h.service.LatestFlag(r.Context(), svc, team)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, flag)
}

func (h *FlagHandlers) HandleForTick(w http.ResponseWriter, r *http.Request) {
	tick, err := httpx.PathInt64(r, "tick_id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	flags, err := h.service.FlagsForTick(r.Context(), sharedtypes.TickID(tick))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]flagdb.Flag{"flags": flags})
}

type submitRequest struct {
	Flag string `json:"flag"`
}

func (h *FlagHandlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	team, err := httpx.PathInt64(r, "team_id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	sub, err := h.service.SubmitFlag(r.Context(), sharedtypes.TeamID(team), req.Flag)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sub)
}

// HandleSubmissions lists a team's submission history.
func (h *FlagHandlers) HandleSubmissions(w http.ResponseWriter, r *http.Request) {
	team, err := httpx.PathInt64(r, "team_id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	subs, err := h.service.SubmissionsForTeam(r.Context(), sharedtypes.TeamID(team))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]flagdb.Submission{"submissions": subs})
}
