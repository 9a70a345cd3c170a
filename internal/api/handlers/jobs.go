package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/labstack/echo/v4"
	"github.com/maitreyyi/SANA-Development-sub001/internal/api/middleware"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/fileserver"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/job"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/service"
	"github.com/rs/zerolog/log"
)

type JobsHandler struct {
	svc   *service.AlignService
	files *fileserver.Server
}

func NewJobsHandler(svc *service.AlignService, files *fileserver.Server) *JobsHandler {
	return &JobsHandler{svc: svc, files: files}
}

// Shared types

type JobIDInput struct {
	ID string `path:"id" doc:"Job ID"`
}

type SubmitBody struct {
	JobID   string `json:"job_id" doc:"Job ID"`
	Status  string `json:"status" doc:"Job status"`
	Process string `json:"process" doc:"Locator that triggers processing"`
	Results string `json:"results" doc:"Locator that reports results"`
}

type ProcessBody struct {
	JobID   string `json:"job_id" doc:"Job ID"`
	Status  string `json:"status" doc:"Job status after the trigger"`
	Started bool   `json:"started" doc:"Whether this trigger started the alignment"`
	Tail    string `json:"tail,omitempty" doc:"Run log tail when the job is already running"`
	Results string `json:"results" doc:"Locator that reports results"`
}

type ProcessOutput struct {
	Body ProcessBody
}

type ResultsBody struct {
	JobID    string   `json:"job_id" doc:"Job ID"`
	Kind     string   `json:"kind" doc:"Projection kind (redirect, failure, success)"`
	Status   string   `json:"status" doc:"Job status"`
	Redirect string   `json:"redirect,omitempty" doc:"Locator to trigger processing, set for non-terminal jobs"`
	Log      []string `json:"log,omitempty" doc:"Log lines (error log on failure, run log on success)"`
	Download string   `json:"download,omitempty" doc:"Signed archive download URL"`
	Note     string   `json:"note,omitempty" doc:"Human-readable summary"`
}

type ResultsOutput struct {
	Body ResultsBody
}

type JobSummary struct {
	JobID        string    `json:"job_id" doc:"Job ID"`
	Status       string    `json:"status" doc:"Job status"`
	ModelVersion string    `json:"model_version" doc:"Aligner version"`
	CreatedAt    time.Time `json:"created_at" doc:"Submission time"`
}

// Handlers

func (h *JobsHandler) Process(ctx context.Context, input *JobIDInput) (*ProcessOutput, error) {
	userID := middleware.GetUserID(ctx)

	outcome, err := h.svc.Process(ctx, input.ID, userID)
	if err != nil {
		return nil, domainError(err)
	}

	return &ProcessOutput{Body: ProcessBody{
		JobID:   input.ID,
		Status:  string(outcome.Status),
		Started: outcome.Started,
		Tail:    outcome.Tail,
		Results: h.svc.ResultsLocator(input.ID),
	}}, nil
}

func (h *JobsHandler) Get(ctx context.Context, input *JobIDInput) (*ResultsOutput, error) {
	userID := middleware.GetUserID(ctx)

	p, err := h.svc.Results(input.ID, userID)
	if err != nil {
		return nil, domainError(err)
	}

	return &ResultsOutput{Body: ResultsBody{
		JobID:    p.JobID,
		Kind:     string(p.Kind),
		Status:   string(p.Status),
		Redirect: p.Redirect,
		Log:      p.Log,
		Download: p.Download,
		Note:     p.Note,
	}}, nil
}

func (h *JobsHandler) List(ctx context.Context, _ *EmptyInput) (*DataOutput[[]JobSummary], error) {
	userID := middleware.GetUserID(ctx)

	jobs, err := h.svc.ListJobs(ctx, userID)
	if err != nil {
		return nil, domainError(err)
	}

	out := make([]JobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, JobSummary{
			JobID:        j.ID,
			Status:       string(j.Status),
			ModelVersion: string(j.ModelVersion),
			CreatedAt:    j.CreatedAt,
		})
	}
	return OK(out), nil
}

// Submit is the multipart submission route. It stays on echo because
// huma's typed bodies do not model two file parts plus form fields.
func (h *JobsHandler) Submit(c echo.Context) error {
	userID := middleware.GetUserID(c.Request().Context())

	sub := job.Submission{
		Owner:        userID,
		ModelVersion: c.FormValue("model_version"),
	}

	if raw := c.FormValue("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &sub.RawOptions); err != nil {
			return echoError(c, &job.ValidationError{Reason: "Options must be a JSON object."})
		}
	}

	for _, field := range []string{"network1", "network2"} {
		fh, err := c.FormFile(field)
		if err != nil {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return echoError(c, fmt.Errorf("open upload %s: %w", field, err))
		}
		defer f.Close()
		sub.Files = append(sub.Files, job.Upload{Filename: fh.Filename, Reader: f})
	}

	j, err := h.svc.Submit(c.Request().Context(), sub)
	if err != nil {
		return echoError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"data": SubmitBody{
			JobID:   j.ID,
			Status:  string(j.Status),
			Process: h.svc.ProcessLocator(j.ID),
			Results: h.svc.ResultsLocator(j.ID),
		},
	})
}

// Archive streams a finished job's result bundle. The route is reached
// through signed URLs handed out by the results projection, so it
// authorizes by token instead of credential headers.
func (h *JobsHandler) Archive(c echo.Context) error {
	id := c.Param("id")
	token := c.QueryParam("token")
	if token == "" {
		return echoError(c, job.ErrNotFound)
	}

	owner, err := h.svc.VerifyDownloadToken(id, token)
	if err != nil {
		return echoError(c, job.ErrNotFound)
	}

	path, err := h.svc.ArchivePath(c.Request().Context(), id, owner)
	if err != nil {
		return echoError(c, err)
	}

	h.files.Serve(c.Response(), c.Request(), path)
	return nil
}

// domainError maps core errors onto huma status errors. The mapping is
// total over the job package's error set; anything unrecognized is a 500.
func domainError(err error) error {
	var (
		valErr   *job.ValidationError
		quotaErr *job.QuotaExceededError
	)
	switch {
	case errors.Is(err, job.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.As(err, &valErr):
		return huma.Error422UnprocessableEntity(valErr.Reason)
	case errors.As(err, &quotaErr):
		return huma.Error429TooManyRequests(quotaErr.Error())
	default:
		// PackagingError and IOError land here as server faults
		log.Error().Err(err).Msg("job operation failed")
		return huma.Error500InternalServerError(err.Error())
	}
}

// echoError writes the same unified {success, error} body for the raw
// echo routes that domainError produces for the huma operations.
func echoError(c echo.Context, err error) error {
	var apiErr *APIError
	if !errors.As(domainError(err), &apiErr) {
		apiErr = &APIError{status: http.StatusInternalServerError, Err: err.Error()}
	}
	return c.JSON(apiErr.GetStatus(), apiErr)
}
