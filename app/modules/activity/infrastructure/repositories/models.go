package activitydb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// ToggleKind names one of the per-service operator switches.
type ToggleKind string

const (
	KindIsActive        ToggleKind = "is_active"
	KindIsVisible       ToggleKind = "is_visible"
	KindReleasePcaps    ToggleKind = "release_pcaps"
	KindStatusIndicator ToggleKind = "status_indicator"
)

// AllKinds lists the toggle kinds.
var AllKinds = []ToggleKind{KindIsActive, KindIsVisible, KindReleasePcaps, KindStatusIndicator}

func (k ToggleKind) Valid() bool {
	switch k {
	case KindIsActive, KindIsVisible, KindReleasePcaps, KindStatusIndicator:
		return true
	}
	return false
}

// IsBool reports whether the kind stores "true"/"false".
func (k ToggleKind) IsBool() bool {
	return k != KindStatusIndicator
}

// Default is the value read when a service has no rows of this kind.
func (k ToggleKind) Default() string {
	if k == KindStatusIndicator {
		return string(sharedtypes.ServiceStatusGood)
	}
	return "false"
}

// Toggle is one append-only switch row. TickID 0 marks a row written before
// the first tick.
type Toggle struct {
	bun.BaseModel `bun:"table:service_toggles,alias:st"`

	ID        int64                 `bun:"id,pk,autoincrement" json:"id"`
	Kind      ToggleKind            `bun:"kind,notnull" json:"kind"`
	ServiceID sharedtypes.ServiceID `bun:"service_id,notnull" json:"service_id"`
	Value     string                `bun:"value,notnull" json:"value"`
	TickID    sharedtypes.TickID    `bun:"tick_id,notnull" json:"tick_id"`
	CreatedOn time.Time             `bun:"created_on,notnull,default:current_timestamp" json:"created_on"`
}

// ActiveMemo caches a settled WasActive answer.
type ActiveMemo struct {
	bun.BaseModel `bun:"table:cache_was_service_active,alias:cwa"`

	ID        int64                 `bun:"id,pk,autoincrement"`
	ServiceID sharedtypes.ServiceID `bun:"service_id,notnull"`
	TickID    sharedtypes.TickID    `bun:"tick_id,notnull"`
	WasActive bool                  `bun:"was_active,notnull"`
	CreatedOn time.Time             `bun:"created_on,notnull,default:current_timestamp"`
}
