package patchservice

import (
	"context"
	"encoding/json"

	patchdb "github.com/Black-And-White-Club/ctf-engine/app/modules/patch/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

// Service defines the patch upload and patch testing operations.
type Service interface {
	UploadPatch(ctx context.Context, req UploadRequest) (*patchdb.Patch, error)
	RecordResult(ctx context.Context, patchID int64, req ResultRequest) (*patchdb.PatchResult, error)
	GetPatch(ctx context.Context, id int64) (*PatchDetail, error)
	PatchesForTeam(ctx context.Context, teamID sharedtypes.TeamID) ([]patchdb.Patch, error)
	SetServiceProfile(ctx context.Context, serviceID sharedtypes.ServiceID, profile json.RawMessage) (*patchdb.ServiceProfile, error)
	ServiceProfile(ctx context.Context, serviceID sharedtypes.ServiceID) (*patchdb.ServiceProfile, error)
}

// UploadRequest is one team's patch for one service.
type UploadRequest struct {
	TeamID    sharedtypes.TeamID
	ServiceID sharedtypes.ServiceID
	File      []byte
}

// ResultRequest is a status reported by the patch tester.
type ResultRequest struct {
	Status          patchdb.PatchStatus `json:"status"`
	PublicMetadata  *string             `json:"public_metadata,omitempty"`
	PrivateMetadata *string             `json:"private_metadata,omitempty"`
}

// PatchDetail is a patch with its file contents, base64 encoded in JSON.
type PatchDetail struct {
	*patchdb.Patch
	UploadedFile []byte `json:"uploaded_file"`
}

// PatchUploaded is published once an upload commits. The patch tester picks
// it up unless ManualReview is set.
type PatchUploaded struct {
	PatchID      int64                 `json:"patch_id"`
	TeamID       sharedtypes.TeamID    `json:"team_id"`
	ServiceID    sharedtypes.ServiceID `json:"service_id"`
	TickID       sharedtypes.TickID    `json:"tick_id"`
	UploadedHash string                `json:"uploaded_hash"`
	ManualReview bool                  `json:"manual_review"`
}

// PatchStatusChanged is published for every committed result row.
type PatchStatusChanged struct {
	PatchID        int64               `json:"patch_id"`
	ResultID       int64               `json:"result_id"`
	Status         patchdb.PatchStatus `json:"status"`
	PublicMetadata *string             `json:"public_metadata,omitempty"`
}
