package handlers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/maitreyyi/SANA-Development-sub001/internal/api/middleware"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/align"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/event"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/fileserver"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/job"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJobsHandler(t *testing.T) (*JobsHandler, *service.AlignService) {
	t.Helper()
	jobs, err := job.NewStore(t.TempDir())
	require.NoError(t, err)
	bus := event.NewBus()
	engine := align.NewEngine(jobs, bus, align.Config{BinDir: t.TempDir(), MaxConcurrent: 1, RunGrace: time.Minute})
	svc := service.NewAlignService(jobs, engine, bus, fileserver.NewSigner("secret"), 3, "http://localhost:8080", time.Hour)
	return NewJobsHandler(svc, fileserver.NewServer(jobs.Root())), svc
}

func authedCtx(userID string) context.Context {
	return context.WithValue(context.Background(), middleware.UserIDKey, userID)
}

func TestListSummarizesOwnJobs(t *testing.T) {
	h, svc := newTestJobsHandler(t)
	ctx := authedCtx("alice")

	submitted, err := svc.Submit(ctx, job.Submission{
		Owner:        "alice",
		ModelVersion: "SANA1",
		RawOptions:   map[string]any{"t": 2},
		Files: []job.Upload{
			{Filename: "yeast.el", Reader: strings.NewReader("a b\n")},
			{Filename: "human.el", Reader: strings.NewReader("x y\n")},
		},
	})
	require.NoError(t, err)

	out, err := h.List(ctx, &EmptyInput{})
	require.NoError(t, err)
	require.True(t, out.Body.Success)
	require.Len(t, out.Body.Data, 1)

	summary := out.Body.Data[0]
	assert.Equal(t, submitted.ID, summary.JobID)
	assert.Equal(t, "preprocessed", summary.Status)
	assert.Equal(t, "SANA1", summary.ModelVersion)
	assert.False(t, summary.CreatedAt.IsZero())

	// other users see nothing
	out, err = h.List(authedCtx("bob"), &EmptyInput{})
	require.NoError(t, err)
	assert.Empty(t, out.Body.Data)
}

func TestGetRedirectsWhilePreprocessed(t *testing.T) {
	h, svc := newTestJobsHandler(t)
	ctx := authedCtx("alice")

	submitted, err := svc.Submit(ctx, job.Submission{
		Owner:        "alice",
		ModelVersion: "SANA2",
		RawOptions:   map[string]any{"t": 1},
		Files: []job.Upload{
			{Filename: "a.gw", Reader: strings.NewReader("g1\n")},
			{Filename: "b.gw", Reader: strings.NewReader("g2\n")},
		},
	})
	require.NoError(t, err)

	out, err := h.Get(ctx, &JobIDInput{ID: submitted.ID})
	require.NoError(t, err)
	assert.Equal(t, "redirect", out.Body.Kind)
	assert.Equal(t, "/api/v1/jobs/"+submitted.ID+"/process", out.Body.Redirect)
}

func TestDomainErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{job.ErrNotFound, 404},
		{&job.ValidationError{Reason: "bad"}, 422},
		{&job.QuotaExceededError{Active: 3, Limit: 3}, 429},
		{&job.PackagingError{Err: assert.AnError}, 500},
		{&job.IOError{Op: "read", Err: assert.AnError}, 500},
	}
	for _, tc := range cases {
		se, ok := domainError(tc.err).(huma.StatusError)
		require.True(t, ok, "error %v", tc.err)
		assert.Equal(t, tc.want, se.GetStatus(), "error %v", tc.err)
	}
}
