// Package watch maps content snapshot files on disk to subjects: a write to
// <watch-dir>/<subject-id>.md updates that subject's content, which marks its
// documents stale and queues a re-extraction in daemon mode.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ContentSink receives updated content for a subject.
type ContentSink interface {
	UpdateSubjectContent(ctx context.Context, subjectID, content string) error
}

// Watcher watches one directory for snapshot writes.
type Watcher struct {
	dir     string
	sink    ContentSink
	watcher *fsnotify.Watcher

	// OnUpdate, when set, is called after a successful content update;
	// daemon mode uses it to enqueue a re-extraction.
	OnUpdate func(subjectID string)
}

// New creates a watcher over dir.
func New(dir string, sink ContentSink) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &Watcher{dir: dir, sink: sink, watcher: fsw}, nil
}

// Run processes events until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	slog.Info("watching content snapshots", slog.String("dir", w.dir))
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.handle(ctx, event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watch error", slog.Any("error", err))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handle(ctx context.Context, path string) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".md") {
		return
	}
	subjectID := strings.TrimSuffix(base, ".md")

	content, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("reading snapshot", slog.String("path", path), slog.Any("error", err))
		return
	}
	if len(content) == 0 {
		return
	}

	if err := w.sink.UpdateSubjectContent(ctx, subjectID, string(content)); err != nil {
		slog.Warn("updating subject from snapshot",
			slog.String("subject", subjectID), slog.Any("error", err))
		return
	}
	slog.Info("subject content updated from snapshot", slog.String("subject", subjectID))
	if w.OnUpdate != nil {
		w.OnUpdate(subjectID)
	}
}
