package eventhandlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	eventservice "github.com/Black-And-White-Club/ctf-engine/app/modules/event/application"
	eventdb "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/httpx"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/go-chi/chi/v5"
)

// EventHandlers serves the event log.
type EventHandlers struct {
	service eventservice.Service
	logger  *slog.Logger
}

func NewEventHandlers(service eventservice.Service, logger *slog.Logger) *EventHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandlers{service: service, logger: logger}
}

func (h *EventHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/event", h.HandleRecord)
	r.Post("/event/timestamped", h.HandleRecordTimestamped)
	r.Get("/event/{id}", h.HandleGet)
	r.Delete("/event/{id}", h.HandleDelete)
	r.Get("/events", h.HandleList)
	r.Get("/events/tick/{tick_id}", h.HandleListForTick)
	r.Get("/team/{id}/pcaps", h.HandlePcapsForTeam)
}

func (h *EventHandlers) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var ev eventdb.Event
	if err := httpx.DecodeJSON(r, &ev); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	id, err := h.service.Record(r.Context(), &ev)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]sharedtypes.EventID{"event_id": id})
}

type timestampedRequest struct {
	Timestamp json.RawMessage `json:"timestamp"`
	Event     eventdb.Event   `json:"event"`
}

// HandleRecordTimestamped accepts {"timestamp": <unix seconds or RFC 3339>,
// "event": {...}}.
func (h *EventHandlers) HandleRecordTimestamped(w http.ResponseWriter, r *http.Request) {
	var req timestampedRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	raw := string(req.Timestamp)
	var quoted string
	if err := json.Unmarshal(req.Timestamp, &quoted); err == nil {
		raw = quoted
	}
	ts, err := httpx.ParseTimestamp(raw)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	id, err := h.service.RecordAtTimestamp(r.Context(), &req.Event, ts)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]sharedtypes.EventID{"event_id": id})
}

func (h *EventHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	ev, err := h.service.Get(r.Context(), sharedtypes.EventID(id))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ev)
}

func (h *EventHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	tombstoneID, err := h.service.Delete(r.Context(), sharedtypes.EventID(id))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"tombstone_id": tombstoneID})
}

func (h *EventHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.List(r.Context())
	h.writeEvents(w, r, events, err)
}

func (h *EventHandlers) HandleListForTick(w http.ResponseWriter, r *http.Request) {
	tick, err := httpx.PathInt64(r, "tick_id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	events, err := h.service.ListForTick(r.Context(), sharedtypes.TickID(tick))
	h.writeEvents(w, r, events, err)
}

// HandlePcapsForTeam lists the captures released to a team.
func (h *EventHandlers) HandlePcapsForTeam(w http.ResponseWriter, r *http.Request) {
	team, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if team <= 0 {
		httpx.WriteError(w, r, h.logger, apperrors.Validationf("team id must be positive"))
		return
	}
	events, err := h.service.PcapsForTeam(r.Context(), sharedtypes.TeamID(team))
	h.writeEvents(w, r, events, err)
}

func (h *EventHandlers) writeEvents(w http.ResponseWriter, r *http.Request, events []eventdb.Event, err error) {
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}
