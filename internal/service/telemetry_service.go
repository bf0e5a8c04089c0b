package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/lexassist/internal/filestore"
	"github.com/xxxsen/lexassist/internal/model"
	appErr "github.com/xxxsen/lexassist/internal/pkg/errors"
)

const defaultArchiveBatch = 500

type telemetryStore interface {
	Create(ctx context.Context, rec *model.TelemetryRecord) error
	List(ctx context.Context, limit, offset int) ([]model.TelemetryRecord, error)
	ListBefore(ctx context.Context, cutoff int64, limit int) ([]model.TelemetryRecord, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

type TelemetryService struct {
	repo   telemetryStore
	store  filestore.Store
	prefix string
	now    func() time.Time
}

func NewTelemetryService(repo telemetryStore, store filestore.Store, prefix string) *TelemetryService {
	return &TelemetryService{repo: repo, store: store, prefix: prefix, now: time.Now}
}

func (s *TelemetryService) Record(ctx context.Context, rec *model.TelemetryRecord) error {
	if rec == nil {
		return appErr.ErrInvalid
	}
	if rec.ID == "" {
		rec.ID = newID()
	}
	if rec.Ctime == 0 {
		rec.Ctime = s.now().UnixMilli()
	}
	return s.repo.Create(ctx, rec)
}

const (
	defaultTelemetryPage = 50
	maxTelemetryPage     = 200
)

func (s *TelemetryService) List(ctx context.Context, limit, offset int) ([]model.TelemetryRecord, error) {
	switch {
	case limit <= 0:
		limit = defaultTelemetryPage
	case limit > maxTelemetryPage:
		limit = maxTelemetryPage
	}
	if offset < 0 {
		offset = 0
	}
	records, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.TelemetryRecord{}
	}
	return records, nil
}

// Archive moves records created before cutoff into the file store as
// newline delimited JSON, one object per batch, and deletes them once the
// object is written.
func (s *TelemetryService) Archive(ctx context.Context, cutoff time.Time, batch int) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("telemetry archive store is not configured")
	}
	if batch <= 0 {
		batch = defaultArchiveBatch
	}
	logger := logutil.GetLogger(ctx).With(zap.Time("cutoff", cutoff))
	archived := 0
	for part := 0; ; part++ {
		if err := ctx.Err(); err != nil {
			return archived, err
		}
		records, err := s.repo.ListBefore(ctx, cutoff.UnixMilli(), batch)
		if err != nil {
			return archived, err
		}
		if len(records) == 0 {
			break
		}
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		ids := make([]string, 0, len(records))
		for i := range records {
			if err := enc.Encode(&records[i]); err != nil {
				return archived, err
			}
			ids = append(ids, records[i].ID)
		}
		key := s.archiveKey(cutoff, part)
		if err := s.store.Save(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
			logger.Error("save telemetry archive failed", zap.String("key", key), zap.Error(err))
			return archived, err
		}
		if _, err := s.repo.DeleteByIDs(ctx, ids); err != nil {
			return archived, err
		}
		archived += len(records)
		logger.Info("telemetry archived", zap.String("key", key), zap.Int("count", len(records)))
		if len(records) < batch {
			break
		}
	}
	return archived, nil
}

func (s *TelemetryService) archiveKey(cutoff time.Time, part int) string {
	day := cutoff.UTC()
	name := fmt.Sprintf("telemetry-%s-%d-%03d.ndjson", day.Format("20060102"), s.now().Unix(), part)
	return path.Join(s.prefix, day.Format("2006"), day.Format("01"), name)
}
