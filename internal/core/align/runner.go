package align

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/maitreyyi/SANA-Development-sub001/internal/core/job"
	"github.com/rs/zerolog/log"
)

// run executes the aligner synchronously from the job's working
// directory, streaming combined stdout/stderr into the run log. The
// returned error, when non-nil, is always a *job.ExecutionError.
func run(ctx context.Context, workdir string, args []string) error {
	logFile, err := os.Create(filepath.Join(workdir, job.RunLogName))
	if err != nil {
		return &job.ExecutionError{Err: err}
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = workdir
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	log.Info().Str("bin", args[0]).Str("dir", workdir).Msg("starting aligner")

	if err := cmd.Start(); err != nil {
		return &job.ExecutionError{Err: err}
	}

	err = cmd.Wait()
	if ctx.Err() == context.DeadlineExceeded {
		return &job.ExecutionError{Timeout: true}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &job.ExecutionError{ExitCode: exitErr.ExitCode()}
		}
		return &job.ExecutionError{Err: err}
	}
	return nil
}

// tailLog returns up to limit bytes from the end of the job's run log,
// for the "still running" response. A missing log reads as empty.
func tailLog(workdir string, limit int64) string {
	path := filepath.Join(workdir, job.RunLogName)
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ""
	}

	offset := int64(0)
	size := info.Size()
	if size > limit {
		offset = size - limit
	}
	buf := make([]byte, size-offset)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return ""
	}
	return string(buf)
}
