package server

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/five82/cpsync/internal/app"
)

// uploadStore owns the files the browser sends. Each file lives in its own
// directory under root and is deleted once it is no longer queued: after a
// pass attempted it, or when it was removed or cleared.
type uploadStore struct {
	root   string
	ctrl   *app.Controller
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]struct{} // stored but not yet queued
}

func newUploadStore(root string, ctrl *app.Controller, logger *zap.Logger) *uploadStore {
	return &uploadStore{
		root:    root,
		ctrl:    ctrl,
		logger:  logger,
		pending: make(map[string]struct{}),
	}
}

// sweep deletes everything under root. The queue does not survive a restart,
// so nothing left there is referenced.
func (u *uploadStore) sweep() {
	if u.root == "" {
		return
	}
	entries, err := os.ReadDir(u.root)
	if err != nil {
		if !os.IsNotExist(err) {
			u.logger.Warn("read upload dir failed", zap.String("dir", u.root), zap.Error(err))
		}
		return
	}
	for _, entry := range entries {
		u.remove(filepath.Join(u.root, entry.Name()))
	}
}

// watch subscribes to the controller and reconciles the upload directory
// after queue and pass changes until ctx is done.
func (u *uploadStore) watch(ctx context.Context) {
	events, unsubscribe := u.ctrl.Subscribe(64)
	go func() {
		defer unsubscribe()
		u.loop(ctx, events)
	}()
}

func (u *uploadStore) loop(ctx context.Context, events <-chan app.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == app.EventQueue || ev.Kind == app.EventPassFinished {
				u.reconcile()
			}
		}
	}
}

// reconcile deletes stored files that are neither queued nor pending.
// Nothing is deleted while a pass runs since the pass holds its entries
// outside the queue; the pass-finished event triggers the cleanup.
func (u *uploadStore) reconcile() {
	if u.root == "" {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	// Read the queue before checking for a pass: a pass that starts in
	// between still finds its entries in this snapshot.
	keep := make(map[string]struct{})
	for _, entry := range u.ctrl.Queue() {
		keep[filepath.Dir(entry.Path)] = struct{}{}
	}
	if u.ctrl.Syncing() {
		return
	}
	for path := range u.pending {
		keep[filepath.Dir(path)] = struct{}{}
	}

	entries, err := os.ReadDir(u.root)
	if err != nil {
		return
	}
	for _, entry := range entries {
		dir := filepath.Join(u.root, entry.Name())
		if _, ok := keep[dir]; ok {
			continue
		}
		u.remove(dir)
	}
}

func (u *uploadStore) remove(path string) {
	if err := os.RemoveAll(path); err != nil {
		u.logger.Warn("remove stored upload failed", zap.String("path", path), zap.Error(err))
		return
	}
	u.logger.Debug("stored upload removed", zap.String("path", path))
}

// save copies a multipart file into its own directory and marks it pending
// until release is called.
func (u *uploadStore) save(header *multipart.FileHeader) (string, error) {
	base := filepath.Base(filepath.Clean("/" + header.Filename))
	if base == "/" || base == "." {
		return "", fmt.Errorf("invalid file name %q", header.Filename)
	}
	dir := filepath.Join(u.root, uuid.NewString())
	path := filepath.Join(dir, base)

	u.mu.Lock()
	u.pending[path] = struct{}{}
	u.mu.Unlock()

	if err := writePart(header, dir, path); err != nil {
		u.release(path)
		u.remove(dir)
		return "", err
	}
	return path, nil
}

// release ends the pending state of paths once they are queued or rejected.
func (u *uploadStore) release(paths ...string) {
	u.mu.Lock()
	for _, path := range paths {
		delete(u.pending, path)
	}
	u.mu.Unlock()
}

func writePart(header *multipart.FileHeader, dir, path string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	src, err := header.Open()
	if err != nil {
		return fmt.Errorf("open part: %w", err)
	}
	defer func() { _ = src.Close() }()

	name := filepath.Base(path)
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
