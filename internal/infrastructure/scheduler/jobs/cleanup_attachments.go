// Package jobs contains the scheduled background jobs.
package jobs

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/pkg/retry"
)

// FileRemover deletes stored attachment files. The local disk implementation
// is the default; object storage slots in behind the same interface.
type FileRemover interface {
	Remove(ctx context.Context, path string) error
}

// DiskRemover removes files from the local filesystem.
type DiskRemover struct{}

// Remove deletes the file at path. A missing file is not an error; a
// previous pass may have removed it before the row was marked.
func (DiskRemover) Remove(_ context.Context, path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CleanupAttachments sweeps terminal offerings past the retention window,
// removes their stored files, and nulls the attachment metadata.
type CleanupAttachments struct {
	offerings offering.Repository
	remover   FileRemover
	retention time.Duration
	logger    *slog.Logger
}

// NewCleanupAttachments creates the job. A non-positive retention falls back
// to the domain default.
func NewCleanupAttachments(offerings offering.Repository, remover FileRemover, retention time.Duration, logger *slog.Logger) *CleanupAttachments {
	if logger == nil {
		logger = slog.Default()
	}
	if retention <= 0 {
		retention = offering.CleanupRetention
	}
	if remover == nil {
		remover = DiskRemover{}
	}
	return &CleanupAttachments{
		offerings: offerings,
		remover:   remover,
		retention: retention,
		logger:    logger.With("job", "cleanup_attachments"),
	}
}

// Name implements scheduler.Job.
func (j *CleanupAttachments) Name() string { return "cleanup_attachments" }

// Run performs one sweep. Each candidate is handled independently; a failure
// on one offering is logged and the sweep moves on. The row is marked cleaned
// only after its files are gone, so a crash mid-pass leaves the offering a
// candidate for the next sweep.
func (j *CleanupAttachments) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-j.retention)

	candidates, err := retry.DoWithData(ctx, func(ctx context.Context) ([]*offering.Offering, error) {
		return j.offerings.FindCleanupCandidates(ctx, cutoff)
	}, retry.WithMaxAttempts(3))
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		j.logger.Debug("no cleanup candidates")
		return nil
	}

	cleaned := 0
	for _, o := range candidates {
		if err := j.cleanOne(ctx, o); err != nil {
			j.logger.Error("cleanup failed", "offering_id", o.ID, "error", err)
			continue
		}
		cleaned++
	}

	j.logger.Info("cleanup sweep done", "candidates", len(candidates), "cleaned", cleaned)
	return nil
}

func (j *CleanupAttachments) cleanOne(ctx context.Context, o *offering.Offering) error {
	for _, a := range o.Attachments {
		if err := j.remover.Remove(ctx, a.Path); err != nil {
			return err
		}
	}

	return retry.Do(ctx, func(ctx context.Context) error {
		return j.offerings.MarkFilesCleaned(ctx, o.ID, time.Now().UTC())
	}, retry.WithMaxAttempts(3))
}
