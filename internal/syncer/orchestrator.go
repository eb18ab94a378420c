// Package syncer drains the upload queue against the device one file at a time.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/five82/cpsync/internal/device"
	"github.com/five82/cpsync/internal/logging"
	"github.com/five82/cpsync/internal/metrics"
	"github.com/five82/cpsync/internal/queue"
	"github.com/five82/cpsync/internal/state"
)

// Reasons Sync declines to start. Callers treat all three as a silent no-op.
var (
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrNotConnected   = errors.New("device not connected")
	ErrQueueEmpty     = errors.New("upload queue is empty")
)

// Link hands out an uploader for the device while it is connected.
type Link interface {
	Uploader() (device.Uploader, bool)
}

// Pass is one complete sequential drain of the queue.
type Pass struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []state.Result
}

// Failed counts the unsuccessful uploads in the pass.
func (p Pass) Failed() int {
	n := 0
	for _, r := range p.Results {
		if !r.Success {
			n++
		}
	}
	return n
}

// Hooks receive pass notifications. Either field may be nil.
type Hooks struct {
	Started  func(passID string, total int)
	Progress func(state.Progress)
}

// Orchestrator runs sync passes. At most one pass runs at a time.
type Orchestrator struct {
	queue   *queue.Queue
	link    Link
	logger  *zap.Logger
	open    func(path string) (io.ReadCloser, error)
	running atomic.Bool
}

// New builds an Orchestrator over q, uploading through link.
func New(q *queue.Queue, link Link, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		queue:  q,
		link:   link,
		logger: logging.OrNop(logger),
		open: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// Running reports whether a pass is in flight.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Sync uploads every queued entry in order and returns the result log.
//
// A second call while a pass is in flight returns ErrSyncInProgress without
// touching the queue. The pass takes the whole queue when it starts, so every
// attempted entry is gone afterwards, failed ones included, while files added
// during the pass wait for the next one. Item failures never abort the pass:
// a non-2xx status or a transport error marks that item failed and the next
// one starts.
func (o *Orchestrator) Sync(ctx context.Context, hooks Hooks) (Pass, error) {
	if !o.running.CompareAndSwap(false, true) {
		metrics.RecordSyncRejected()
		return Pass{}, ErrSyncInProgress
	}
	defer o.running.Store(false)

	uploader, ok := o.link.Uploader()
	if !ok {
		return Pass{}, ErrNotConnected
	}
	entries := o.queue.Take()
	if len(entries) == 0 {
		return Pass{}, ErrQueueEmpty
	}

	pass := Pass{ID: uuid.NewString(), StartedAt: time.Now()}
	logger := o.logger.With(zap.String("pass", pass.ID))
	logger.Info("sync pass started", zap.Int("files", len(entries)))
	if hooks.Started != nil {
		hooks.Started(pass.ID, len(entries))
	}

	total := len(entries)
	pass.Results = make([]state.Result, 0, total)
	for i, entry := range entries {
		progress := state.Progress{
			Index:         i,
			Total:         total,
			CurrentName:   entry.DisplayName,
			PercentBefore: float64(i) / float64(total),
			PercentAfter:  float64(i+1) / float64(total),
		}
		if hooks.Progress != nil {
			hooks.Progress(progress)
		}

		err := o.uploadOne(ctx, uploader, entry)
		pass.Results = append(pass.Results, state.Result{
			DisplayName: entry.DisplayName,
			Success:     err == nil,
		})
		metrics.RecordUpload(err == nil, entry.SizeBytes)
		if err != nil {
			logger.Warn("upload failed", zap.String("file", entry.DisplayName), zap.Error(err))
		} else {
			logger.Debug("upload accepted", zap.String("file", entry.DisplayName), zap.Int64("bytes", entry.SizeBytes))
		}

		progress.Done = true
		if hooks.Progress != nil {
			hooks.Progress(progress)
		}
	}

	metrics.SetQueueLength(o.queue.Len())
	pass.FinishedAt = time.Now()
	metrics.RecordSyncPass(pass.FinishedAt.Sub(pass.StartedAt))
	logger.Info("sync pass finished",
		zap.Int("files", total),
		zap.Int("failed", pass.Failed()),
		zap.Duration("elapsed", pass.FinishedAt.Sub(pass.StartedAt)))
	return pass, nil
}

func (o *Orchestrator) uploadOne(ctx context.Context, uploader device.Uploader, entry queue.Entry) error {
	file, err := o.open(entry.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", entry.DisplayName, err)
	}
	defer func() { _ = file.Close() }()
	return uploader.Upload(ctx, entry.DisplayName, file)
}
