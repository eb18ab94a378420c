// Package inbox queues files dropped into a watched directory.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/five82/cpsync/internal/logging"
)

// DefaultSettle is how long a file must stay unchanged before it is queued.
const DefaultSettle = 500 * time.Millisecond

// AddFunc queues files by path.
type AddFunc func(paths ...string) (int, error)

// Watcher queues files that appear in a directory once they stop changing.
type Watcher struct {
	dir    string
	add    AddFunc
	settle time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	queued  map[string]fileStamp
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

// New builds a Watcher for dir. settle <= 0 uses DefaultSettle.
func New(dir string, add AddFunc, settle time.Duration, logger *zap.Logger) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:     dir,
		add:     add,
		settle:  settle,
		logger:  logging.OrNop(logger),
		pending: make(map[string]*time.Timer),
		queued:  make(map[string]fileStamp),
	}
}

// Run queues the files already present, then watches for new ones until ctx
// is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.scan()
	w.logger.Info("watching inbox", zap.String("dir", w.dir))

	defer w.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.schedule(event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) scan() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("scan inbox failed", zap.Error(err))
		return
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || hidden(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(w.dir, entry.Name()))
	}
	sort.Strings(paths)
	for _, path := range paths {
		w.queue(path)
	}
}

func (w *Watcher) schedule(path string) {
	if hidden(filepath.Base(path)) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.queue(path)
	})
}

func (w *Watcher) queue(path string) {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Debug("stat inbox file failed", zap.String("path", path), zap.Error(err))
		}
		return
	}
	if info.IsDir() {
		return
	}
	stamp := fileStamp{size: info.Size(), modTime: info.ModTime()}

	w.mu.Lock()
	if prev, ok := w.queued[path]; ok && prev == stamp {
		w.mu.Unlock()
		return
	}
	w.queued[path] = stamp
	w.mu.Unlock()

	if _, err := w.add(path); err != nil {
		w.logger.Warn("queue inbox file failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("inbox file queued", zap.String("file", filepath.Base(path)))
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

// Partial downloads and editor swap files start with a dot.
func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
