package scorehandlers

import (
	"log/slog"
	"net/http"
	"strconv"

	scoreservice "github.com/Black-And-White-Club/ctf-engine/app/modules/score/application"
	scoredb "github.com/Black-And-White-Club/ctf-engine/app/modules/score/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/httpx"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/go-chi/chi/v5"
)

const defaultTopN = 10

// ScoreHandlers serves per-tick scores and standings.
type ScoreHandlers struct {
	service scoreservice.Service
	logger  *slog.Logger
}

func NewScoreHandlers(service scoreservice.Service, logger *slog.Logger) *ScoreHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoreHandlers{service: service, logger: logger}
}

func (h *ScoreHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/scores", h.HandleAll)
	r.Get("/scores/tick/{tick_id}", h.HandleTick)
	r.Get("/scores/ctftime", h.HandleCTFtime)
	r.Get("/scores/top", h.HandleTop)
	r.Post("/scores/koh/{service_id}/rebuild", h.HandleRebuild)
}

func (h *ScoreHandlers) HandleAll(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.ScoreAllTicks(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, all)
}

func (h *ScoreHandlers) HandleTick(w http.ResponseWriter, r *http.Request) {
	tick, err := httpx.PathInt64(r, "tick_id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	scores, err := h.service.ScoreTick(r.Context(), sharedtypes.TickID(tick))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, scores)
}

type standingsResponse struct {
	Standings []scoredb.Standing `json:"standings"`
}

// HandleCTFtime serves {"standings":[{pos, team, score}]}.
func (h *ScoreHandlers) HandleCTFtime(w http.ResponseWriter, r *http.Request) {
	standings, err := h.service.AggregateScore(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, standingsResponse{Standings: standings})
}

func (h *ScoreHandlers) HandleTop(w http.ResponseWriter, r *http.Request) {
	n := defaultTopN
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(w, r, h.logger, apperrors.Validationf("n must be an integer, got %q", raw))
			return
		}
		n = v
	}
	standings, err := h.service.TopStandings(r.Context(), n)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, standingsResponse{Standings: standings})
}

func (h *ScoreHandlers) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "service_id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	res, err := h.service.RebuildKohScores(r.Context(), sharedtypes.ServiceID(id))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
