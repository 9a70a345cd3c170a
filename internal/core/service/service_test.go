package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maitreyyi/SANA-Development-sub001/internal/core/align"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/event"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/fileserver"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/job"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, quota int) (*AlignService, *job.Store) {
	t.Helper()
	jobs, err := job.NewStore(t.TempDir())
	require.NoError(t, err)
	bus := event.NewBus()
	engine := align.NewEngine(jobs, bus, align.Config{BinDir: t.TempDir(), MaxConcurrent: 1, RunGrace: time.Minute})
	signer := fileserver.NewSigner("test-secret")
	return NewAlignService(jobs, engine, bus, signer, quota, "http://localhost:8080", time.Hour), jobs
}

func elSubmission(owner string) job.Submission {
	return job.Submission{
		Owner:        owner,
		ModelVersion: "SANA1",
		RawOptions:   map[string]any{"t": 2},
		Files: []job.Upload{
			{Filename: "yeast.el", Reader: strings.NewReader("a b\n")},
			{Filename: "human.el", Reader: strings.NewReader("x y\n")},
		},
	}
}

func seedServiceJob(t *testing.T, jobs *job.Store, id, owner string, status job.Status) *job.Job {
	t.Helper()
	j := &job.Job{
		ID:           id,
		Owner:        owner,
		Status:       status,
		ModelVersion: schema.SANA1,
		Options:      job.Options{Standard: map[string]float64{"t": 2, "s3": 1, "ec": 0}},
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, os.MkdirAll(jobs.Dir(id), 0o755))
	require.NoError(t, jobs.Create(j))
	return j
}

func TestSubmitAdmits(t *testing.T) {
	svc, _ := newTestService(t, 3)

	j, err := svc.Submit(context.Background(), elSubmission("alice"))
	require.NoError(t, err)
	assert.Equal(t, job.StatusPreprocessed, j.Status)
}

func TestSubmitQuotaExceeded(t *testing.T) {
	svc, jobs := newTestService(t, 3)
	seedServiceJob(t, jobs, "a1", "alice", job.StatusProcessing)
	seedServiceJob(t, jobs, "a2", "alice", job.StatusProcessing)
	seedServiceJob(t, jobs, "a3", "alice", job.StatusProcessing)

	_, err := svc.Submit(context.Background(), elSubmission("alice"))
	var qerr *job.QuotaExceededError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, 3, qerr.Active)
	assert.Equal(t, 3, qerr.Limit)

	// another user is unaffected
	_, err = svc.Submit(context.Background(), elSubmission("bob"))
	assert.NoError(t, err)
}

func TestSubmitQuotaIgnoresFinishedJobs(t *testing.T) {
	svc, jobs := newTestService(t, 3)
	seedServiceJob(t, jobs, "a1", "alice", job.StatusProcessed)
	seedServiceJob(t, jobs, "a2", "alice", job.StatusFailed)
	seedServiceJob(t, jobs, "a3", "alice", job.StatusPreprocessed)

	_, err := svc.Submit(context.Background(), elSubmission("alice"))
	assert.NoError(t, err)
}

func TestProcessOwnershipHidesForeignJobs(t *testing.T) {
	svc, jobs := newTestService(t, 3)
	seedServiceJob(t, jobs, "b1", "bob", job.StatusPreprocessed)

	_, err := svc.Process(context.Background(), "b1", "alice")
	assert.ErrorIs(t, err, job.ErrNotFound)

	_, err = svc.Results("b1", "alice")
	assert.ErrorIs(t, err, job.ErrNotFound)

	_, err = svc.ArchivePath(context.Background(), "b1", "alice")
	assert.ErrorIs(t, err, job.ErrNotFound)
}

func TestResultsRedirectWhileNotTerminal(t *testing.T) {
	svc, jobs := newTestService(t, 3)
	seedServiceJob(t, jobs, "j1", "alice", job.StatusPreprocessed)
	seedServiceJob(t, jobs, "j2", "alice", job.StatusProcessing)

	for _, id := range []string{"j1", "j2"} {
		p, err := svc.Results(id, "alice")
		require.NoError(t, err)
		assert.Equal(t, ProjectionRedirect, p.Kind)
		assert.Equal(t, "/api/v1/jobs/"+id+"/process", p.Redirect)
	}
}

func TestResultsFailureCarriesErrorLog(t *testing.T) {
	svc, jobs := newTestService(t, 3)
	seedServiceJob(t, jobs, "j1", "alice", job.StatusFailed)
	logPath := filepath.Join(jobs.Dir("j1"), job.ErrorLogName)
	require.NoError(t, os.WriteFile(logPath, []byte("bad graph\nexit 3\n"), 0o644))

	p, err := svc.Results("j1", "alice")
	require.NoError(t, err)
	assert.Equal(t, ProjectionFailure, p.Kind)
	assert.Equal(t, []string{"bad graph", "exit 3"}, p.Log)
}

func TestResultsFailureFallbackWithoutLog(t *testing.T) {
	svc, jobs := newTestService(t, 3)
	seedServiceJob(t, jobs, "j1", "alice", job.StatusFailed)

	p, err := svc.Results("j1", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{failureLogFallback}, p.Log)
}

func TestResultsSuccessCarriesSignedDownload(t *testing.T) {
	svc, jobs := newTestService(t, 3)
	j := seedServiceJob(t, jobs, "j1", "alice", job.StatusPreprocessed)
	_, err := jobs.Transition(j.ID, job.StatusPreprocessed, job.StatusProcessing, nil)
	require.NoError(t, err)
	_, err = jobs.Transition(j.ID, job.StatusProcessing, job.StatusProcessed, func(j *job.Job) {
		j.Archive = job.ArchiveName(j.ID)
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(jobs.Dir("j1"), job.RunLogName), []byte("iterating\ndone\n"), 0o644))

	p, err := svc.Results("j1", "alice")
	require.NoError(t, err)
	assert.Equal(t, ProjectionSuccess, p.Kind)
	assert.Equal(t, []string{"iterating", "done"}, p.Log)
	assert.Contains(t, p.Download, "http://localhost:8080/api/v1/jobs/j1/archive?token=")
	assert.Contains(t, p.Note, "ready")

	// the embedded token resolves back to the owner
	token := p.Download[strings.Index(p.Download, "token=")+len("token="):]
	owner, err := svc.VerifyDownloadToken("j1", token)
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)

	// and never to a different job
	_, err = svc.VerifyDownloadToken("j2", token)
	assert.Error(t, err)
}

func TestArchivePathRequiresProcessedWithArchive(t *testing.T) {
	svc, jobs := newTestService(t, 3)
	j := seedServiceJob(t, jobs, "j1", "alice", job.StatusPreprocessed)

	_, err := svc.ArchivePath(context.Background(), "j1", "alice")
	assert.ErrorIs(t, err, job.ErrNotFound)

	_, err = jobs.Transition(j.ID, job.StatusPreprocessed, job.StatusProcessing, nil)
	require.NoError(t, err)
	_, err = jobs.Transition(j.ID, job.StatusProcessing, job.StatusProcessed, func(j *job.Job) {
		j.Archive = job.ArchiveName(j.ID)
	})
	require.NoError(t, err)

	// descriptor says processed but the file is missing
	_, err = svc.ArchivePath(context.Background(), "j1", "alice")
	assert.ErrorIs(t, err, job.ErrNotFound)

	archive := filepath.Join(jobs.Dir("j1"), job.ArchiveName("j1"))
	require.NoError(t, os.WriteFile(archive, []byte("zip"), 0o644))

	path, err := svc.ArchivePath(context.Background(), "j1", "alice")
	require.NoError(t, err)
	assert.Equal(t, archive, path)
}

func TestListJobsOnlyOwn(t *testing.T) {
	svc, jobs := newTestService(t, 3)
	seedServiceJob(t, jobs, "a1", "alice", job.StatusPreprocessed)
	seedServiceJob(t, jobs, "b1", "bob", job.StatusPreprocessed)

	list, err := svc.ListJobs(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a1", list[0].ID)
}
