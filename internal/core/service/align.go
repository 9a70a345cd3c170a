// Package service wires admission, intake, processing, and result
// projection into the operations the API handlers call. All job data
// flows through the descriptor store and the job working directories;
// components never talk to each other directly.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/maitreyyi/SANA-Development-sub001/internal/core/align"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/event"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/fileserver"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/job"
)

type AlignService struct {
	jobs       *job.Store
	engine     *align.Engine
	bus        event.Bus
	signer     *fileserver.Signer
	quota      int
	baseURL    string
	linkExpiry time.Duration
}

func NewAlignService(jobs *job.Store, engine *align.Engine, bus event.Bus, signer *fileserver.Signer, quota int, baseURL string, linkExpiry time.Duration) *AlignService {
	return &AlignService{
		jobs:       jobs,
		engine:     engine,
		bus:        bus,
		signer:     signer,
		quota:      quota,
		baseURL:    baseURL,
		linkExpiry: linkExpiry,
	}
}

// Submit runs admission then intake. Admission is a read-only gate: the
// active-job count is derived by scanning descriptors, and the quota
// "increment" is simply the descriptor intake creates.
func (s *AlignService) Submit(ctx context.Context, sub job.Submission) (*job.Job, error) {
	active, err := s.jobs.CountActiveByOwner(sub.Owner)
	if err != nil {
		return nil, err
	}
	if active >= s.quota {
		return nil, &job.QuotaExceededError{Active: active, Limit: s.quota}
	}

	j, err := s.jobs.Intake(sub)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, event.Event{
		Type:    event.EventJobCreated,
		Payload: event.JobEvent{JobID: j.ID, UserID: j.Owner, Version: string(j.ModelVersion), Status: string(j.Status)},
	})

	return j, nil
}

// Process triggers processing for an owned job. The call blocks for the
// duration of the aligner run when this trigger wins the claim.
func (s *AlignService) Process(ctx context.Context, id, owner string) (*align.Outcome, error) {
	if _, err := s.owned(id, owner); err != nil {
		return nil, err
	}
	return s.engine.Process(ctx, id)
}

// ListJobs returns the owner's jobs, newest first.
func (s *AlignService) ListJobs(ctx context.Context, owner string) ([]*job.Job, error) {
	return s.jobs.ListByOwner(owner)
}

// ArchivePath resolves the packaged archive for download. The archive
// exists if and only if the job is processed; anything else is not
// found.
func (s *AlignService) ArchivePath(ctx context.Context, id, owner string) (string, error) {
	j, err := s.owned(id, owner)
	if err != nil {
		return "", err
	}
	if j.Status != job.StatusProcessed || j.Archive == "" {
		return "", job.ErrNotFound
	}

	path := filepath.Join(s.jobs.Dir(id), j.Archive)
	if _, err := os.Stat(path); err != nil {
		return "", job.ErrNotFound
	}
	return path, nil
}

// ProcessLocator is the client path that triggers processing for a job.
func (s *AlignService) ProcessLocator(id string) string {
	return fmt.Sprintf("/api/v1/jobs/%s/process", id)
}

// ResultsLocator is the client path that queries a job's results.
func (s *AlignService) ResultsLocator(id string) string {
	return fmt.Sprintf("/api/v1/jobs/%s", id)
}

// downloadLocator builds a signed, time-limited URL for the archive so
// it can be fetched without request headers.
func (s *AlignService) downloadLocator(id, owner string) string {
	token := s.signer.Sign(id, owner, time.Now().Add(s.linkExpiry))
	return fmt.Sprintf("%s/api/v1/jobs/%s/archive?token=%s", s.baseURL, id, token)
}

// VerifyDownloadToken resolves a signed download token to the owner it
// was issued for, ensuring it matches the requested job.
func (s *AlignService) VerifyDownloadToken(id, token string) (string, error) {
	jobID, userID, err := s.signer.Verify(token)
	if err != nil {
		return "", err
	}
	if jobID != id {
		return "", fmt.Errorf("token does not match job")
	}
	return userID, nil
}

// owned loads the descriptor and hides other users' jobs behind not
// found.
func (s *AlignService) owned(id, owner string) (*job.Job, error) {
	j, err := s.jobs.Get(id)
	if err != nil {
		return nil, err
	}
	if j.Owner != owner {
		return nil, job.ErrNotFound
	}
	return j, nil
}
