// Package job holds the durable job descriptor, the file-resident store
// that is the single source of truth for job state, and the intake
// validator that admits new submissions into it.
package job

import (
	"path"
	"time"

	"github.com/maitreyyi/SANA-Development-sub001/internal/core/schema"
)

// Status is the closed set of job states. Transitions are monotonic and
// one-directional: preprocessed -> processing -> processed | failed.
type Status string

const (
	StatusPreprocessed Status = "preprocessed"
	StatusProcessing   Status = "processing"
	StatusProcessed    Status = "processed"
	StatusFailed       Status = "failed"
)

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	switch s {
	case StatusPreprocessed, StatusProcessing, StatusProcessed, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// CanTransition reports whether s -> next is an allowed transition.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPreprocessed:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusProcessed || next == StatusFailed
	}
	return false
}

// Input is one of the two uploaded network files, renamed under a
// logical name inside the job's working directory.
type Input struct {
	Name     string `json:"name"`     // logical name: network1, network2
	Original string `json:"original"` // filename as uploaded
	Format   string `json:"format"`   // shared extension, member of schema.Formats
}

// RelPath is the input file's path relative to the job working directory.
func (in Input) RelPath() string {
	return path.Join("inputs", in.Name, in.Name+"."+in.Format)
}

// Options is the validated, defaulted configuration for one job.
type Options struct {
	Standard map[string]float64 `json:"standard"`
	Esim     []float64          `json:"esim,omitempty"`
}

// Job is the durable descriptor persisted as job.json inside the job's
// working directory. It is created once by intake, mutated only by the
// processing engine, and read-only afterwards.
type Job struct {
	ID           string         `json:"id"`
	Owner        string         `json:"owner"`
	Status       Status         `json:"status"`
	ModelVersion schema.Version `json:"model_version"`
	Inputs       []Input        `json:"inputs"`
	Options      Options        `json:"options"`
	Command      []string       `json:"command,omitempty"`
	Archive      string         `json:"archive,omitempty"`
	ErrorLog     string         `json:"error_log,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// RunLogName is the combined-output log captured during processing.
const RunLogName = "run.log"

// ErrorLogName is written alongside the descriptor when processing fails.
const ErrorLogName = "error.log"

// DescriptorName is the per-job descriptor document.
const DescriptorName = "job.json"

// ArchiveName is the packaged result archive for the given job id.
func ArchiveName(id string) string {
	return id + ".zip"
}
