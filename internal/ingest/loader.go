package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/lexassist/internal/model"
	"github.com/xxxsen/lexassist/internal/service"
)

type Upserter interface {
	Upsert(ctx context.Context, in service.DocumentInput) (*model.Document, bool, error)
}

type Result struct {
	Changed   int
	Unchanged int
	Failed    int
}

// Loader feeds markdown files with front matter into the document store.
type Loader struct {
	docs Upserter
}

func NewLoader(docs Upserter) *Loader {
	return &Loader{docs: docs}
}

func (l *Loader) LoadDir(ctx context.Context, dir string) (Result, error) {
	var res Result
	files, err := markdownFiles(dir)
	if err != nil {
		return res, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("dir", dir))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		changed, err := l.LoadFile(ctx, path)
		switch {
		case err != nil:
			res.Failed++
			logger.Error("ingest file failed", zap.String("file", path), zap.Error(err))
		case changed:
			res.Changed++
		default:
			res.Unchanged++
		}
	}
	logger.Info("ingest finished",
		zap.Int("changed", res.Changed),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (l *Loader) LoadFile(ctx context.Context, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	fm, body, err := ParseFrontMatter(data)
	if err != nil {
		return false, err
	}
	doc, changed, err := l.docs.Upsert(ctx, service.DocumentInput{Title: fm.Title, Number: fm.Number, Content: body})
	if err != nil {
		return false, err
	}
	if changed {
		logutil.GetLogger(ctx).Info("legal source ingested",
			zap.String("file", path),
			zap.String("doc_id", doc.ID),
			zap.String("number", doc.Number),
		)
	}
	return changed, nil
}

// Watch reloads markdown files under dir and its subdirectories as they are
// written, until ctx is done. Bursts of events on one file within debounce
// collapse into a single load.
func (l *Loader) Watch(ctx context.Context, dir string, debounce time.Duration) error {
	w, err := watchDir(dir)
	if err != nil {
		return err
	}
	defer w.Close()
	return l.runWatch(ctx, w, debounce)
}

func watchDir(dir string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addTree(w, dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers dir and every directory below it with w.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.Add(path)
	})
}

func (l *Loader) runWatch(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	logger := logutil.GetLogger(ctx)
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()
	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					// files may land before the new directory is watched
					if err := addTree(w, ev.Name); err != nil {
						logger.Warn("watch new directory failed", zap.String("dir", ev.Name), zap.Error(err))
					}
					files, _ := markdownFiles(ev.Name)
					for _, f := range files {
						pending[f] = time.Now()
					}
					continue
				}
			}
			if !isMarkdown(ev.Name) || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			pending[ev.Name] = time.Now()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		case now := <-ticker.C:
			for path, seen := range pending {
				if now.Sub(seen) < debounce {
					continue
				}
				delete(pending, path)
				if _, err := l.LoadFile(ctx, path); err != nil {
					logger.Error("ingest file failed", zap.String("file", path), zap.Error(err))
				}
			}
		}
	}
}

func markdownFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isMarkdown(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}
