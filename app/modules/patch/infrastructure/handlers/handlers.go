package patchhandlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	patchservice "github.com/Black-And-White-Club/ctf-engine/app/modules/patch/application"
	patchdb "github.com/Black-And-White-Club/ctf-engine/app/modules/patch/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/httpx"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/go-chi/chi/v5"
)

// MaxUploadBytes caps the multipart body of a patch upload.
const MaxUploadBytes = 64 << 20

// PatchHandlers serves patch uploads, patch test results and service
// execution profiles.
type PatchHandlers struct {
	service patchservice.Service
	logger  *slog.Logger
}

func NewPatchHandlers(service patchservice.Service, logger *slog.Logger) *PatchHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &PatchHandlers{service: service, logger: logger}
}

func (h *PatchHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/service/upload_patch", h.HandleUpload)
	r.Get("/team/{id}/uploaded_patches", h.HandleTeamPatches)
	r.Get("/patch/{id}", h.HandleGet)
	r.Post("/patch/{id}/status", h.HandleStatus)
	r.Get("/service/{id}/profile", h.HandleGetProfile)
	r.Post("/service/{id}/profile", h.HandleSetProfile)
}

// HandleUpload reads a multipart form with team_id, service_id and the
// uploaded_file part.
func (h *PatchHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	req, err := parseUpload(w, r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	patch, err := h.service.UploadPatch(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, patch)
}

func parseUpload(w http.ResponseWriter, r *http.Request) (patchservice.UploadRequest, error) {
	var req patchservice.UploadRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return req, apperrors.Validationf("invalid upload form: %v", err)
	}
	team, err := formInt64(r, "team_id")
	if err != nil {
		return req, err
	}
	svc, err := formInt64(r, "service_id")
	if err != nil {
		return req, err
	}
	file, _, err := r.FormFile("uploaded_file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return req, apperrors.Validationf("uploaded_file is required")
		}
		return req, apperrors.Validationf("invalid uploaded_file: %v", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return req, apperrors.Validationf("read uploaded_file: %v", err)
	}
	return patchservice.UploadRequest{
		TeamID:    sharedtypes.TeamID(team),
		ServiceID: sharedtypes.ServiceID(svc),
		File:      data,
	}, nil
}

func formInt64(r *http.Request, name string) (int64, error) {
	raw := r.FormValue(name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Validationf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

type patchesResponse struct {
	Patches []patchdb.Patch `json:"patches"`
}

func (h *PatchHandlers) HandleTeamPatches(w http.ResponseWriter, r *http.Request) {
	team, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	patches, err := h.service.PatchesForTeam(r.Context(), sharedtypes.TeamID(team))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, patchesResponse{Patches: patches})
}

func (h *PatchHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	detail, err := h.service.GetPatch(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, detail)
}

func (h *PatchHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	var req patchservice.ResultRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	res, err := h.service.RecordResult(r.Context(), id, req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *PatchHandlers) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	profile, err := h.service.ServiceProfile(r.Context(), sharedtypes.ServiceID(id))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}

// HandleSetProfile stores the request body, any JSON value, as the profile.
func (h *PatchHandlers) HandleSetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	var body json.RawMessage
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	profile, err := h.service.SetServiceProfile(r.Context(), sharedtypes.ServiceID(id), body)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}
