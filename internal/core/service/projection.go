package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maitreyyi/SANA-Development-sub001/internal/core/job"
)

// ProjectionKind classifies the client-facing view of a job's state.
type ProjectionKind string

const (
	// ProjectionRedirect tells the client to (re)trigger processing.
	ProjectionRedirect ProjectionKind = "redirect"
	// ProjectionFailure carries the captured error log.
	ProjectionFailure ProjectionKind = "failure"
	// ProjectionSuccess carries the download locator and the run log.
	ProjectionSuccess ProjectionKind = "success"
)

// Projection is the read-only, client-facing view of a descriptor. Log
// content is split into lines so the client renders each independently.
type Projection struct {
	Kind     ProjectionKind
	JobID    string
	Status   job.Status
	Redirect string
	Log      []string
	Download string
	Note     string
}

const failureLogFallback = "The alignment failed, but no error log was captured."

// Results maps a descriptor's state to its client-facing projection.
// The stored status set is closed; anything else on disk is corruption
// and surfaces as an internal error.
func (s *AlignService) Results(id, owner string) (*Projection, error) {
	j, err := s.owned(id, owner)
	if err != nil {
		return nil, err
	}

	dir := s.jobs.Dir(id)

	switch j.Status {
	case job.StatusPreprocessed, job.StatusProcessing:
		return &Projection{
			Kind:     ProjectionRedirect,
			JobID:    id,
			Status:   j.Status,
			Redirect: s.ProcessLocator(id),
		}, nil

	case job.StatusFailed:
		lines := readLogLines(filepath.Join(dir, job.ErrorLogName))
		if lines == nil {
			lines = []string{failureLogFallback}
		}
		return &Projection{
			Kind:   ProjectionFailure,
			JobID:  id,
			Status: j.Status,
			Log:    lines,
		}, nil

	case job.StatusProcessed:
		download := s.downloadLocator(id, j.Owner)
		return &Projection{
			Kind:     ProjectionSuccess,
			JobID:    id,
			Status:   j.Status,
			Log:      readLogLines(filepath.Join(dir, job.RunLogName)),
			Download: download,
			Note:     fmt.Sprintf("Alignment results for job %s are ready. Download the archive at %s", id, download),
		}, nil
	}

	return nil, fmt.Errorf("job %s has corrupt status %q", id, j.Status)
}

// readLogLines loads a log file and splits it into display lines.
// Returns nil when the file is absent or unreadable.
func readLogLines(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}
