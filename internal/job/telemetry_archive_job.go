package job

import (
	"context"
	"time"
)

type telemetryArchiver interface {
	Archive(ctx context.Context, cutoff time.Time, batch int) (int, error)
}

type TelemetryArchiveJob struct {
	archiver      telemetryArchiver
	retentionDays int
	now           func() time.Time
}

func NewTelemetryArchiveJob(archiver telemetryArchiver, retentionDays int) *TelemetryArchiveJob {
	return &TelemetryArchiveJob{archiver: archiver, retentionDays: retentionDays, now: time.Now}
}

func (j *TelemetryArchiveJob) Name() string {
	return "telemetry_archive"
}

func (j *TelemetryArchiveJob) Run(ctx context.Context) error {
	if j.archiver == nil || j.retentionDays <= 0 {
		return nil
	}
	cutoff := j.now().Add(-time.Duration(j.retentionDays) * 24 * time.Hour)
	_, err := j.archiver.Archive(ctx, cutoff, 0)
	return err
}
