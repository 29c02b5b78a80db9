// Package httpx provides HTTP handlers and utilities for the subgencluster broker API.
package httpx

import (
	"errors"
	"io"
	"net/http"

	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
	apperrors "github.com/b0vik/subgencluster-api-server/internal/errors"
	"github.com/b0vik/subgencluster-api-server/internal/service"
)

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Svc            *service.JobService
	MaxUploadBytes int64
}

// submitJobRequest is the wire form of a public-url job submission.
type submitJobRequest struct {
	RequestedModel model.TranscriptionModel `json:"requested_model"`
	SourceURL      string                   `json:"source_url"`
	LiveTranscribe bool                     `json:"live_transcribe,omitempty"`
}

// SubmitJob handles HTTP requests to submit a new public-url job.
func (h *JobHandlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	account := AccountFromContext(r.Context())
	if account == nil {
		WriteAppError(w, apperrors.Unauthorized("account required"))
		return
	}

	job, err := h.Svc.Submit(r.Context(), &model.CreateJobRequest{
		RequestingUser: account.Username,
		RequestedModel: req.RequestedModel,
		Kind:           model.JobKindPublicURL,
		SourceLocator:  req.SourceURL,
		LiveTranscribe: req.LiveTranscribe,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{"job_id": job.ID})
}

// SubmitUpload handles multipart file submissions. The payload is stored
// content-addressed, so re-uploading identical bytes creates a new job that
// shares the existing stored payload and retrieval identity.
func (h *JobHandlers) SubmitUpload(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())
	if account == nil {
		WriteAppError(w, apperrors.Unauthorized("account required"))
		return
	}

	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteAppError(w, apperrors.Validation("invalid multipart form: "+err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteAppError(w, apperrors.ValidationField("file", "file part is required"))
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteAppError(w, apperrors.ValidationField("file", "uploaded file too large"))
			return
		}
		WriteAppError(w, apperrors.Wrap(err, apperrors.ErrCodeInternal, "read upload"))
		return
	}

	job, err := h.Svc.SubmitUpload(r.Context(), service.UploadSubmission{
		RequestingUser: account.Username,
		RequestedModel: model.TranscriptionModel(r.FormValue("requested_model")),
		Filename:       header.Filename,
		Payload:        payload,
		LiveTranscribe: r.FormValue("live_transcribe") == "true",
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	resp := map[string]string{"job_id": job.ID}
	if job.ContentHash != nil {
		resp["content_hash"] = *job.ContentHash
	}
	WriteJSON(w, http.StatusCreated, resp)
}

// claimRequest is the wire form of a worker claim.
type claimRequest struct {
	WorkerID string `json:"worker_id"`
}

// Claim handles worker poll requests. An empty queue is a successful response
// with job_kind "none", never an error.
func (h *JobHandlers) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	claimed, err := h.Svc.Claim(r.Context(), req.WorkerID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, claimed)
}

// ReportProgress handles worker progress updates for an in-flight job.
func (h *JobHandlers) ReportProgress(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	var report model.ProgressReport
	if !DecodeJSON(w, r, &report) {
		return
	}

	job, err := h.Svc.ReportProgress(r.Context(), jobID, &report)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"status": job.Status})
}

// ReportCompletion handles a worker's final transcript for a job.
func (h *JobHandlers) ReportCompletion(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	var report model.CompletionReport
	if !DecodeJSON(w, r, &report) {
		return
	}

	job, err := h.Svc.ReportCompletion(r.Context(), jobID, &report)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"status": job.Status})
}

// GetJob returns the completed-job summary. Unknown and in-flight jobs both
// render as 404.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Svc.RetrieveByID(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// GetStatus returns the current state and telemetry of a job at any
// lifecycle stage.
func (h *JobHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Svc.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// GetTranscripts handles retrieval by external identity: source URL for
// public-url jobs, content hash for file jobs.
func (h *JobHandlers) GetTranscripts(w http.ResponseWriter, r *http.Request) {
	q, err := identityQueryFromRequest(r)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	summaries, err := h.Svc.RetrieveByIdentity(r.Context(), q)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"transcripts": summaries})
}

func identityQueryFromRequest(r *http.Request) (model.IdentityQuery, error) {
	kind := model.JobKind(r.URL.Query().Get("job_kind"))
	switch kind {
	case model.JobKindPublicURL:
		url := r.URL.Query().Get("source_url")
		if url == "" {
			return model.IdentityQuery{}, apperrors.ValidationField("source_url", "source_url is required for public-url lookups")
		}
		return model.IdentityQuery{Kind: kind, Key: url}, nil
	case model.JobKindFile:
		hash := r.URL.Query().Get("content_hash")
		if hash == "" {
			return model.IdentityQuery{}, apperrors.ValidationField("content_hash", "content_hash is required for file lookups")
		}
		return model.IdentityQuery{Kind: kind, Key: hash}, nil
	default:
		return model.IdentityQuery{}, apperrors.ValidationField("job_kind", "job_kind must be public-url or file")
	}
}

// GetStats returns per-state job counts.
func (h *JobHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
