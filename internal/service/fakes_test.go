package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/lexassist/internal/model"
	appErr "github.com/xxxsen/lexassist/internal/pkg/errors"
	"github.com/xxxsen/lexassist/internal/repo"
)

type memDocs struct {
	mu   sync.Mutex
	docs map[string]*model.Document
}

func newMemDocs() *memDocs {
	return &memDocs{docs: map[string]*model.Document{}}
}

func (m *memDocs) Create(ctx context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.State == repo.DocumentStateNormal && d.Number == doc.Number {
			return appErr.ErrConflict
		}
	}
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memDocs) Update(ctx context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[doc.ID]
	if !ok || cur.State != repo.DocumentStateNormal {
		return appErr.ErrNotFound
	}
	cur.Title, cur.Number, cur.Content, cur.Mtime = doc.Title, doc.Number, doc.Content, doc.Mtime
	return nil
}

func (m *memDocs) GetByID(ctx context.Context, docID string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[docID]
	if !ok || d.State != repo.DocumentStateNormal {
		return nil, appErr.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memDocs) GetByNumber(ctx context.Context, number string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.State == repo.DocumentStateNormal && d.Number == number {
			cp := *d
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (m *memDocs) List(ctx context.Context, limit, offset uint) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Document
	for _, d := range m.docs {
		if d.State == repo.DocumentStateNormal {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mtime > out[j].Mtime })
	return out, nil
}

func (m *memDocs) Delete(ctx context.Context, docID string, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[docID]
	if !ok || d.State != repo.DocumentStateNormal {
		return appErr.ErrNotFound
	}
	d.State = repo.DocumentStateDeleted
	d.Mtime = mtime
	return nil
}

func (m *memDocs) ListPendingIndex(ctx context.Context, limit int) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Document
	for _, d := range m.docs {
		if d.State == repo.DocumentStateNormal && d.Mtime > d.IndexedMtime && d.Mtime > d.FailedMtime {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mtime < out[j].Mtime })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memDocs) MarkIndexFailed(ctx context.Context, docID string, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.docs[docID]; ok && d.Mtime == mtime {
		d.FailedMtime = mtime
	}
	return nil
}

type memChunks struct {
	docs   *memDocs
	chunks map[string][]model.DocumentChunk
}

func (m *memChunks) ReplaceDocumentChunks(ctx context.Context, docID string, chunks []model.DocumentChunk, indexedMtime int64) error {
	m.chunks[docID] = chunks
	m.docs.mu.Lock()
	defer m.docs.mu.Unlock()
	if d, ok := m.docs.docs[docID]; ok {
		d.IndexedMtime = indexedMtime
	}
	return nil
}

type fakeEmbedder struct {
	calls    []string
	failOn   string
	lastTask string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.calls = append(f.calls, text)
	f.lastTask = taskType
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("embed failed")
	}
	return []float32{float32(len(text)), 1}, nil
}
