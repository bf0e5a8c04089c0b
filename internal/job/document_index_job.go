package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/lexassist/internal/service"
)

type pendingIndexer interface {
	ProcessPendingIndex(ctx context.Context, batch int) (service.IndexStats, error)
}

// DocumentIndexJob rebuilds chunks for documents edited since their last
// index.
type DocumentIndexJob struct {
	indexer pendingIndexer
	batch   int
}

func NewDocumentIndexJob(indexer pendingIndexer, batch int) *DocumentIndexJob {
	if batch <= 0 {
		batch = 20
	}
	return &DocumentIndexJob{indexer: indexer, batch: batch}
}

func (j *DocumentIndexJob) Name() string {
	return "document_index"
}

func (j *DocumentIndexJob) Run(ctx context.Context) error {
	if j.indexer == nil {
		return nil
	}
	stats, err := j.indexer.ProcessPendingIndex(ctx, j.batch)
	if err != nil {
		return err
	}
	if stats.Processed() > 0 {
		logutil.GetLogger(ctx).Info("documents indexed",
			zap.Int("count", stats.Indexed), zap.Int("failed", stats.Failed))
	}
	return nil
}
