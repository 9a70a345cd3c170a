package align

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/maitreyyi/SANA-Development-sub001/internal/core/event"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/job"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAligner installs a shell script under binDir in place of the real
// aligner binary.
func fakeAligner(t *testing.T, binDir, name, script string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	path := filepath.Join(binDir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
}

func seedAlignJob(t *testing.T, s *job.Store, id string) *job.Job {
	t.Helper()
	j := &job.Job{
		ID:           id,
		Owner:        "alice",
		Status:       job.StatusPreprocessed,
		ModelVersion: schema.SANA1,
		Inputs: []job.Input{
			{Name: "network1", Original: "a.el", Format: "el"},
			{Name: "network2", Original: "b.el", Format: "el"},
		},
		Options:   job.Options{Standard: map[string]float64{"t": 1, "s3": 1, "ec": 0}},
		CreatedAt: time.Now().UTC(),
	}
	dir := s.Dir(id)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "inputs", "network1"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "inputs", "network2"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inputs", "network1", "network1.el"), []byte("a b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inputs", "network2", "network2.el"), []byte("x y\n"), 0o644))
	require.NoError(t, s.Create(j))
	return j
}

func newTestEngine(t *testing.T, binDir string, maxConcurrent int) (*Engine, *job.Store) {
	t.Helper()
	s, err := job.NewStore(t.TempDir())
	require.NoError(t, err)
	e := NewEngine(s, event.NewBus(), Config{
		BinDir:        binDir,
		MaxConcurrent: maxConcurrent,
		RunGrace:      time.Minute,
	})
	return e, s
}

func TestProcessSuccess(t *testing.T) {
	binDir := t.TempDir()
	fakeAligner(t, binDir, "sana1", "echo aligning\necho 'a x' > sana.align\n")
	e, s := newTestEngine(t, binDir, 1)
	seedAlignJob(t, s, "j1")

	out, err := e.Process(context.Background(), "j1")
	require.NoError(t, err)
	assert.True(t, out.Started)
	assert.Equal(t, job.StatusProcessed, out.Status)

	done, err := s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, job.StatusProcessed, done.Status)
	assert.Equal(t, job.ArchiveName("j1"), done.Archive)
	assert.NotEmpty(t, done.Command)

	// archive verified on disk, run log captured
	info, err := os.Stat(filepath.Join(s.Dir("j1"), done.Archive))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(emptyArchiveSize))

	logData, err := os.ReadFile(filepath.Join(s.Dir("j1"), job.RunLogName))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "aligning")
}

func TestProcessUnknownJob(t *testing.T) {
	e, _ := newTestEngine(t, t.TempDir(), 1)
	_, err := e.Process(context.Background(), "missing")
	assert.ErrorIs(t, err, job.ErrNotFound)
}

func TestProcessFailureRecovered(t *testing.T) {
	binDir := t.TempDir()
	fakeAligner(t, binDir, "sana1", "echo 'graph parse error' >&2\nexit 3\n")
	e, s := newTestEngine(t, binDir, 1)
	seedAlignJob(t, s, "j1")

	out, err := e.Process(context.Background(), "j1")
	require.NoError(t, err)
	assert.True(t, out.Started)
	assert.Equal(t, job.StatusFailed, out.Status)

	failed, err := s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, failed.Status)
	assert.Equal(t, job.ErrorLogName, failed.ErrorLog)

	// error log carries the aligner's output plus the failure reason
	logData, err := os.ReadFile(filepath.Join(s.Dir("j1"), job.ErrorLogName))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "graph parse error")
	assert.Contains(t, string(logData), "exited with code 3")
}

func TestProcessTerminalStatusIdempotent(t *testing.T) {
	binDir := t.TempDir()
	fakeAligner(t, binDir, "sana1", "echo done > sana.align\n")
	e, s := newTestEngine(t, binDir, 1)
	seedAlignJob(t, s, "j1")

	first, err := e.Process(context.Background(), "j1")
	require.NoError(t, err)
	assert.True(t, first.Started)

	// the second trigger must not re-run the aligner
	second, err := e.Process(context.Background(), "j1")
	require.NoError(t, err)
	assert.False(t, second.Started)
	assert.Equal(t, job.StatusProcessed, second.Status)
}

func TestProcessConcurrentTriggersRunOnce(t *testing.T) {
	binDir := t.TempDir()
	fakeAligner(t, binDir, "sana1", "echo run >> invocations.txt\nsleep 0.3\necho done > sana.align\n")
	e, s := newTestEngine(t, binDir, 4)
	seedAlignJob(t, s, "j1")

	const n = 4
	var wg sync.WaitGroup
	outcomes := make([]*Outcome, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = e.Process(context.Background(), "j1")
		}(i)
	}
	wg.Wait()

	started := 0
	for i, out := range outcomes {
		require.NoError(t, errs[i])
		if out.Started {
			started++
		}
	}
	assert.Equal(t, 1, started)

	data, err := os.ReadFile(filepath.Join(s.Dir("j1"), "invocations.txt"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "run"))
}

func TestProcessStuckOnPackagingFailure(t *testing.T) {
	binDir := t.TempDir()
	// a directory squatting on the archive name makes packaging fail
	// after a successful run
	fakeAligner(t, binDir, "sana1", "mkdir j1.zip\nexit 0\n")
	e, s := newTestEngine(t, binDir, 1)
	seedAlignJob(t, s, "j1")

	_, err := e.Process(context.Background(), "j1")
	var perr *job.PackagingError
	require.ErrorAs(t, err, &perr)

	// no compensating transition: the job stays in processing
	stuck, err := s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, job.StatusProcessing, stuck.Status)
}

func TestRunTimeoutClassification(t *testing.T) {
	dir := t.TempDir()
	binDir := t.TempDir()
	fakeAligner(t, binDir, "sleepy", "sleep 5\n")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := run(ctx, dir, []string{filepath.Join(binDir, "sleepy")})
	var xerr *job.ExecutionError
	require.ErrorAs(t, err, &xerr)
	assert.True(t, xerr.Timeout)
}

func TestRunSpawnFailureClassification(t *testing.T) {
	dir := t.TempDir()
	err := run(context.Background(), dir, []string{filepath.Join(dir, "no-such-binary")})
	var xerr *job.ExecutionError
	require.ErrorAs(t, err, &xerr)
	assert.False(t, xerr.Timeout)
	assert.Error(t, xerr.Err)
}

func TestTailLog(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, tailLog(dir, 1024))

	require.NoError(t, os.WriteFile(filepath.Join(dir, job.RunLogName), []byte("0123456789"), 0o644))
	assert.Equal(t, "0123456789", tailLog(dir, 1024))
	assert.Equal(t, "56789", tailLog(dir, 5))
}
