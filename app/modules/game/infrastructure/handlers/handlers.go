package gamehandlers

import (
	"log/slog"
	"net/http"
	"strconv"

	gameservice "github.com/Black-And-White-Club/ctf-engine/app/modules/game/application"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/httpx"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/go-chi/chi/v5"
)

// GameHandlers serves the tick clock and game settings.
type GameHandlers struct {
	service gameservice.Service
	logger  *slog.Logger
}

// NewGameHandlers creates a new GameHandlers.
func NewGameHandlers(service gameservice.Service, logger *slog.Logger) *GameHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &GameHandlers{service: service, logger: logger}
}

// RegisterRoutes mounts the game routes on r.
func (h *GameHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/game/state", h.HandleGetState)
	r.Post("/game/state", h.HandleSetState)
	r.Post("/game/start", h.HandleStart)
	r.Post("/game/tick", h.HandleAdvanceTick)
	r.Get("/game/ticks", h.HandleListTicks)
	r.Get("/game/tick_at", h.HandleTickAt)
	r.Post("/game/tick_time", h.HandleSetTickTime)
	r.Post("/game/public/{value}", h.HandleSetPublic)
	r.Post("/game/delay/{value}", h.HandleSetDelay)
}

func (h *GameHandlers) HandleGetState(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.CurrentState(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

type setStateRequest struct {
	State sharedtypes.GameState `json:"state"`
}

func (h *GameHandlers) HandleSetState(w http.ResponseWriter, r *http.Request) {
	var req setStateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	id, err := h.service.SetState(r.Context(), req.State)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *GameHandlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	tick, err := h.service.Start(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]sharedtypes.TickID{"tick_id": tick})
}

func (h *GameHandlers) HandleAdvanceTick(w http.ResponseWriter, r *http.Request) {
	tick, err := h.service.AdvanceTick(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]sharedtypes.TickID{"tick_id": tick})
}

func (h *GameHandlers) HandleListTicks(w http.ResponseWriter, r *http.Request) {
	ticks, err := h.service.ListTicks(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ticks": ticks})
}

// HandleTickAt accepts ts as unix seconds (fractions allowed) or RFC 3339.
func (h *GameHandlers) HandleTickAt(w http.ResponseWriter, r *http.Request) {
	ts, err := httpx.ParseTimestamp(r.URL.Query().Get("ts"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	tick, err := h.service.TickAt(r.Context(), ts)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tick)
}

type setTickTimeRequest struct {
	Seconds int `json:"seconds"`
}

func (h *GameHandlers) HandleSetTickTime(w http.ResponseWriter, r *http.Request) {
	var req setTickTimeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	id, err := h.service.SetTickTime(r.Context(), req.Seconds)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *GameHandlers) HandleSetPublic(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "value")
	public, err := strconv.ParseBool(raw)
	if err != nil {
		httpx.WriteError(w, r, h.logger, apperrors.Validationf("value must be a boolean, got %q", raw))
		return
	}
	id, err := h.service.SetGameStatePublic(r.Context(), public)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *GameHandlers) HandleSetDelay(w http.ResponseWriter, r *http.Request) {
	delay, err := httpx.PathInt64(r, "value")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	id, err := h.service.SetGameStateDelay(r.Context(), int(delay))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"id": id})
}
