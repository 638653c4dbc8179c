package patchdb

import (
	"encoding/json"
	"time"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// PatchStatus is one step of a patch's test history.
type PatchStatus string

const (
	StatusSubmitted    PatchStatus = "SUBMITTED"
	StatusAccepted     PatchStatus = "ACCEPTED"
	StatusTooManyBytes PatchStatus = "TOO_MANY_BYTES"
	StatusSLATimeout   PatchStatus = "SLA_TIMEOUT"
	StatusSLAFail      PatchStatus = "SLA_FAIL"
	StatusTestingPatch PatchStatus = "TESTING_PATCH"
)

func (s PatchStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusAccepted, StatusTooManyBytes, StatusSLATimeout, StatusSLAFail, StatusTestingPatch:
		return true
	}
	return false
}

// Patch is a replacement binary a team uploaded for one of its services.
// A team gets one patch per service per tick. The file is only loaded by
// GetPatch.
type Patch struct {
	bun.BaseModel `bun:"table:uploaded_patches,alias:up"`

	ID           int64                 `bun:"id,pk,autoincrement" json:"id"`
	TeamID       sharedtypes.TeamID    `bun:"team_id,notnull" json:"team_id"`
	ServiceID    sharedtypes.ServiceID `bun:"service_id,notnull" json:"service_id"`
	TickID       sharedtypes.TickID    `bun:"tick_id,notnull" json:"tick_id"`
	UploadedFile []byte                `bun:"uploaded_file,notnull" json:"-"`
	UploadedHash string                `bun:"uploaded_hash,notnull" json:"uploaded_hash"`
	CreatedOn    time.Time             `bun:"created_on,notnull,default:current_timestamp" json:"created_on"`

	// Results is newest first.
	Results []*PatchResult `bun:"rel:has-many,join:id=patch_id" json:"results"`
}

// PatchResult is an append-only status row written by the patch tester.
type PatchResult struct {
	bun.BaseModel `bun:"table:patch_results,alias:pr"`

	ID              int64       `bun:"id,pk,autoincrement" json:"id"`
	PatchID         int64       `bun:"patch_id,notnull" json:"patch_id"`
	Status          PatchStatus `bun:"status,notnull" json:"status"`
	PublicMetadata  *string     `bun:"public_metadata" json:"public_metadata"`
	PrivateMetadata *string     `bun:"private_metadata" json:"private_metadata"`
	CreatedOn       time.Time   `bun:"created_on,notnull,default:current_timestamp" json:"created_on"`
}

// ServiceProfile is the opaque execution profile the patch tester runs a
// service under.
type ServiceProfile struct {
	bun.BaseModel `bun:"table:service_profiles,alias:sp"`

	ServiceID sharedtypes.ServiceID `bun:"service_id,pk" json:"service_id"`
	Profile   json.RawMessage       `bun:"profile,type:jsonb,notnull" json:"profile"`
	UpdatedOn time.Time             `bun:"updated_on,notnull,default:current_timestamp" json:"updated_on"`
}
