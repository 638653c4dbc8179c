package patchhandlers

import (
	"context"
	"encoding/json"

	patchservice "github.com/Black-And-White-Club/ctf-engine/app/modules/patch/application"
	patchdb "github.com/Black-And-White-Club/ctf-engine/app/modules/patch/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

type FakeService struct {
	UploadPatchFunc       func(ctx context.Context, req patchservice.UploadRequest) (*patchdb.Patch, error)
	RecordResultFunc      func(ctx context.Context, patchID int64, req patchservice.ResultRequest) (*patchdb.PatchResult, error)
	GetPatchFunc          func(ctx context.Context, id int64) (*patchservice.PatchDetail, error)
	PatchesForTeamFunc    func(ctx context.Context, teamID sharedtypes.TeamID) ([]patchdb.Patch, error)
	SetServiceProfileFunc func(ctx context.Context, serviceID sharedtypes.ServiceID, profile json.RawMessage) (*patchdb.ServiceProfile, error)
	ServiceProfileFunc    func(ctx context.Context, serviceID sharedtypes.ServiceID) (*patchdb.ServiceProfile, error)
}

func (f *FakeService) UploadPatch(ctx context.Context, req patchservice.UploadRequest) (*patchdb.Patch, error) {
	if f.UploadPatchFunc != nil {
		return f.UploadPatchFunc(ctx, req)
	}
	return &patchdb.Patch{ID: 1, TeamID: req.TeamID, ServiceID: req.ServiceID}, nil
}

func (f *FakeService) RecordResult(ctx context.Context, patchID int64, req patchservice.ResultRequest) (*patchdb.PatchResult, error) {
	if f.RecordResultFunc != nil {
		return f.RecordResultFunc(ctx, patchID, req)
	}
	return &patchdb.PatchResult{ID: 1, PatchID: patchID, Status: req.Status}, nil
}

func (f *FakeService) GetPatch(ctx context.Context, id int64) (*patchservice.PatchDetail, error) {
	if f.GetPatchFunc != nil {
		return f.GetPatchFunc(ctx, id)
	}
	return &patchservice.PatchDetail{Patch: &patchdb.Patch{ID: id}}, nil
}

func (f *FakeService) PatchesForTeam(ctx context.Context, teamID sharedtypes.TeamID) ([]patchdb.Patch, error) {
	if f.PatchesForTeamFunc != nil {
		return f.PatchesForTeamFunc(ctx, teamID)
	}
	return []patchdb.Patch{}, nil
}

func (f *FakeService) SetServiceProfile(ctx context.Context, serviceID sharedtypes.ServiceID, profile json.RawMessage) (*patchdb.ServiceProfile, error) {
	if f.SetServiceProfileFunc != nil {
		return f.SetServiceProfileFunc(ctx, serviceID, profile)
	}
	return &patchdb.ServiceProfile{ServiceID: serviceID, Profile: profile}, nil
}

func (f *FakeService) ServiceProfile(ctx context.Context, serviceID sharedtypes.ServiceID) (*patchdb.ServiceProfile, error) {
	if f.ServiceProfileFunc != nil {
		return f.ServiceProfileFunc(ctx, serviceID)
	}
	return &patchdb.ServiceProfile{ServiceID: serviceID, Profile: json.RawMessage(`{}`)}, nil
}
