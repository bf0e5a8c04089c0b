package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/lexassist/internal/config"
	"github.com/xxxsen/lexassist/internal/filestore"
	"github.com/xxxsen/lexassist/internal/model"
)

type memTelemetry struct {
	mu        sync.Mutex
	records   []model.TelemetryRecord
	lastLimit int
}

func (m *memTelemetry) Create(ctx context.Context, rec *model.TelemetryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return nil
}

func (m *memTelemetry) List(ctx context.Context, limit, offset int) ([]model.TelemetryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	out := append([]model.TelemetryRecord(nil), m.records...)
	sort.Slice(out, func(i, j int) bool { return out[i].Ctime > out[j].Ctime })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTelemetry) ListBefore(ctx context.Context, cutoff int64, limit int) ([]model.TelemetryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TelemetryRecord
	for _, r := range m.records {
		if r.Ctime < cutoff {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ctime < out[j].Ctime })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTelemetry) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.records[:0]
	var n int64
	for _, r := range m.records {
		if drop[r.ID] {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return n, nil
}

func TestTelemetryServiceRecordFillsDefaults(t *testing.T) {
	repo := &memTelemetry{}
	svc := NewTelemetryService(repo, nil, "telemetry")
	require.NoError(t, svc.Record(context.Background(), &model.TelemetryRecord{Question: "q"}))
	require.Len(t, repo.records, 1)
	require.NotEmpty(t, repo.records[0].ID)
	require.NotZero(t, repo.records[0].Ctime)
	require.Error(t, svc.Record(context.Background(), nil))
}

func TestTelemetryServiceListClampsLimit(t *testing.T) {
	repo := &memTelemetry{}
	svc := NewTelemetryService(repo, nil, "")
	ctx := context.Background()
	for _, tc := range []struct {
		in, want int
	}{{0, 50}, {-3, 50}, {120, 120}, {200, 200}, {500, 200}} {
		records, err := svc.List(ctx, tc.in, 0)
		require.NoError(t, err)
		require.NotNil(t, records)
		require.Equal(t, tc.want, repo.lastLimit, "limit %d", tc.in)
	}
}

func TestTelemetryServiceArchive(t *testing.T) {
	dir := t.TempDir()
	store, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)
	repo := &memTelemetry{}
	svc := NewTelemetryService(repo, store, "telemetry")
	cutoff := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return cutoff.Add(90 * 24 * time.Hour) }

	for i := 0; i < 5; i++ {
		repo.records = append(repo.records, model.TelemetryRecord{ID: fmt.Sprintf("old-%d", i), Ctime: cutoff.UnixMilli() - int64(i+1)})
	}
	repo.records = append(repo.records, model.TelemetryRecord{ID: "new", Ctime: cutoff.UnixMilli() + 1})

	n, err := svc.Archive(context.Background(), cutoff, 2)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Len(t, repo.records, 1)
	require.Equal(t, "new", repo.records[0].ID)

	rc, err := store.Open(context.Background(), svc.archiveKey(cutoff, 0))
	require.NoError(t, err)
	defer rc.Close()
	lines := readLines(t, rc)
	require.Len(t, lines, 2)
	var rec model.TelemetryRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.True(t, strings.HasPrefix(rec.ID, "old-"))
}

func TestTelemetryServiceArchiveRequiresStore(t *testing.T) {
	svc := NewTelemetryService(&memTelemetry{}, nil, "")
	_, err := svc.Archive(context.Background(), time.Now(), 10)
	require.Error(t, err)
}

func readLines(t *testing.T, r io.Reader) []string {
	t.Helper()
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}
