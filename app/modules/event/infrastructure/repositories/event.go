package eventdb

import (
	"encoding/json"
	"fmt"
	"time"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

// Event is the tagged union stored across the header table and one payload
// table. Exactly one payload pointer matches Type.
type Event struct {
	ID        sharedtypes.EventID
	Type      sharedtypes.EventType
	Reason    string
	TickID    sharedtypes.TickID
	CreatedOn time.Time

	ExploitScript *ExploitScript
	SlaScript     *SlaScript
	SetFlag       *SetFlag
	FlagStolen    *FlagStolen
	KohScoreFetch *KohScoreFetch
	KohRanking    *KohRanking
	PcapCreated   *PcapCreated
	PcapReleased  *PcapReleased
	Stealth       *Stealth
}

// Payload returns the payload selected by Type, or nil.
func (e *Event) Payload() any {
	switch e.Type {
	case sharedtypes.EventExploitScript:
		return nilIfNil(e.ExploitScript)
	case sharedtypes.EventSlaScript:
		return nilIfNil(e.SlaScript)
	case sharedtypes.EventSetFlag:
		return nilIfNil(e.SetFlag)
	case sharedtypes.EventFlagStolen:
		return nilIfNil(e.FlagStolen)
	case sharedtypes.EventKohScoreFetch:
		return nilIfNil(e.KohScoreFetch)
	case sharedtypes.EventKohRanking:
		return nilIfNil(e.KohRanking)
	case sharedtypes.EventPcapCreated:
		return nilIfNil(e.PcapCreated)
	case sharedtypes.EventPcapReleased:
		return nilIfNil(e.PcapReleased)
	case sharedtypes.EventStealth:
		return nilIfNil(e.Stealth)
	}
	return nil
}

func nilIfNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return p
}

// allocate points the payload field for Type at a fresh value and returns it.
func (e *Event) allocate() any {
	switch e.Type {
	case sharedtypes.EventExploitScript:
		e.ExploitScript = new(ExploitScript)
	case sharedtypes.EventSlaScript:
		e.SlaScript = new(SlaScript)
	case sharedtypes.EventSetFlag:
		e.SetFlag = new(SetFlag)
	case sharedtypes.EventFlagStolen:
		e.FlagStolen = new(FlagStolen)
	case sharedtypes.EventKohScoreFetch:
		e.KohScoreFetch = new(KohScoreFetch)
	case sharedtypes.EventKohRanking:
		e.KohRanking = new(KohRanking)
	case sharedtypes.EventPcapCreated:
		e.PcapCreated = new(PcapCreated)
	case sharedtypes.EventPcapReleased:
		e.PcapReleased = new(PcapReleased)
	case sharedtypes.EventStealth:
		e.Stealth = new(Stealth)
	}
	return e.Payload()
}

type header struct {
	ID        sharedtypes.EventID   `json:"id,omitempty"`
	Type      sharedtypes.EventType `json:"event_type"`
	Reason    string                `json:"reason"`
	TickID    sharedtypes.TickID    `json:"tick_id,omitempty"`
	CreatedOn *time.Time            `json:"created_on,omitempty"`
}

// MarshalJSON flattens the header and payload into one object.
func (e Event) MarshalJSON() ([]byte, error) {
	h := header{ID: e.ID, Type: e.Type, Reason: e.Reason, TickID: e.TickID}
	if !e.CreatedOn.IsZero() {
		h.CreatedOn = &e.CreatedOn
	}
	fields := map[string]json.RawMessage{}
	if payload := e.Payload(); payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, err
		}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	var base map[string]json.RawMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, err
	}
	for k, v := range base {
		fields[k] = v
	}
	return json.Marshal(fields)
}

// UnmarshalJSON reads a flat object. The payload is decoded only for known
// event types; validation reports anything else.
func (e *Event) UnmarshalJSON(data []byte) error {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	*e = Event{ID: h.ID, Type: h.Type, Reason: h.Reason, TickID: h.TickID}
	if h.CreatedOn != nil {
		e.CreatedOn = *h.CreatedOn
	}
	payload := e.allocate()
	if payload == nil {
		return nil
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("%s payload: %w", h.Type, err)
	}
	return nil
}

func (e *Event) row() *EventRow {
	return &EventRow{ID: e.ID, Type: e.Type, Reason: e.Reason, TickID: e.TickID, CreatedOn: e.CreatedOn}
}

func fromRow(row EventRow) Event {
	return Event{ID: row.ID, Type: row.Type, Reason: row.Reason, TickID: row.TickID, CreatedOn: row.CreatedOn}
}
