package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/cpsync/internal/device"
	"github.com/five82/cpsync/internal/logging"
	"github.com/five82/cpsync/internal/metrics"
	"github.com/five82/cpsync/internal/prefs"
	"github.com/five82/cpsync/internal/queue"
	"github.com/five82/cpsync/internal/state"
	"github.com/five82/cpsync/internal/syncer"
)

// Device is the slice of *device.Client the controller drives.
type Device interface {
	device.Prober
	device.Uploader
	BaseURL() string
}

// Dialer builds a Device for a user-supplied address.
type Dialer func(address string) (Device, error)

// ClientDialer dials real devices with the given probe timeout.
func ClientDialer(probeTimeout time.Duration) Dialer {
	return func(address string) (Device, error) {
		return device.NewClient(address, device.WithProbeTimeout(probeTimeout))
	}
}

// EventKind identifies what changed.
type EventKind int

const (
	EventConnection EventKind = iota
	EventQueue
	EventPassStarted
	EventProgress
	EventPassFinished
)

func (k EventKind) String() string {
	switch k {
	case EventConnection:
		return "connection"
	case EventQueue:
		return "queue"
	case EventPassStarted:
		return "pass_started"
	case EventProgress:
		return "progress"
	case EventPassFinished:
		return "pass_finished"
	default:
		return "unknown"
	}
}

// Event carries the state right after a change.
type Event struct {
	Kind     EventKind
	Snapshot state.Snapshot
	Queue    []queue.Entry
}

// ControllerOptions configure a Controller.
type ControllerOptions struct {
	Dial      Dialer
	PrefsPath string
	Logger    *zap.Logger
}

// Controller owns the application state. Connection state changes only
// through Connect and the poller; every change is published to subscribers.
type Controller struct {
	store     *state.Store
	queue     *queue.Queue
	orch      *syncer.Orchestrator
	dial      Dialer
	prefsPath string
	logger    *zap.Logger

	mu      sync.Mutex
	address string
	dev     Device

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewController builds a disconnected controller with an empty queue.
func NewController(opts ControllerOptions) *Controller {
	dial := opts.Dial
	if dial == nil {
		dial = ClientDialer(device.ProbeTimeout)
	}
	c := &Controller{
		store:     &state.Store{},
		queue:     &queue.Queue{},
		dial:      dial,
		prefsPath: opts.PrefsPath,
		logger:    logging.OrNop(opts.Logger),
		subs:      make(map[int]chan Event),
	}
	c.orch = syncer.New(c.queue, c, c.logger)
	c.store.SetConnection(state.Connection{State: state.Disconnected}, "Disconnected")
	return c
}

// Snapshot returns the current state snapshot.
func (c *Controller) Snapshot() state.Snapshot {
	return c.store.Snapshot()
}

// Queue returns a copy of the queued entries.
func (c *Controller) Queue() []queue.Entry {
	return c.queue.Entries()
}

// QueueLen returns the number of queued entries.
func (c *Controller) QueueLen() int {
	return c.queue.Len()
}

// Address returns the last address a connect was attempted with.
func (c *Controller) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

// Connect probes address and records the outcome. A successful connect is
// persisted as the last-used device. An empty address is ignored.
func (c *Controller) Connect(ctx context.Context, address string) device.ProbeResult {
	address = strings.TrimSpace(address)
	if address == "" {
		return device.ProbeResult{Outcome: device.ProbeFailed, Err: errors.New("device address is empty")}
	}

	dev, err := c.dial(address)
	if err != nil {
		c.logger.Warn("invalid device address", zap.String("address", address), zap.Error(err))
		// The previous device is dropped so the poller cannot reconnect to it.
		c.mu.Lock()
		c.address = address
		c.dev = nil
		c.mu.Unlock()
		c.setConnection(state.Connection{State: state.Disconnected}, "Invalid address")
		return device.ProbeResult{Outcome: device.ProbeFailed, Err: err}
	}

	c.mu.Lock()
	c.address = address
	c.dev = dev
	c.mu.Unlock()

	conn := state.Connection{BaseURL: dev.BaseURL(), State: state.Connecting}
	c.setConnection(conn, "Connecting...")

	result := dev.Probe(ctx)
	metrics.RecordProbe(result.Outcome.String(), "user")
	if !result.Connected() {
		c.logger.Info("device probe failed",
			zap.String("device", dev.BaseURL()),
			zap.String("outcome", result.Outcome.String()),
			zap.Error(result.Err))
		if c.current(dev) {
			conn.State = state.Disconnected
			c.setConnection(conn, result.Reason())
		}
		return result
	}
	c.markConnected(dev)
	return result
}

// poll re-probes the last device while disconnected. Failures stay silent.
// It reports whether the device came back.
func (c *Controller) poll(ctx context.Context) bool {
	c.mu.Lock()
	dev := c.dev
	c.mu.Unlock()
	if dev == nil {
		return false
	}
	if c.store.Snapshot().Connection.State != state.Disconnected {
		return false
	}

	result := dev.Probe(ctx)
	metrics.RecordProbe(result.Outcome.String(), "poller")
	if !result.Connected() {
		c.logger.Debug("background probe failed",
			zap.String("device", dev.BaseURL()),
			zap.String("outcome", result.Outcome.String()))
		return false
	}
	if !c.current(dev) {
		return false
	}
	c.logger.Info("device reachable again", zap.String("device", dev.BaseURL()))
	c.markConnected(dev)
	return true
}

func (c *Controller) current(dev Device) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dev == dev
}

func (c *Controller) markConnected(dev Device) {
	c.setConnection(state.Connection{BaseURL: dev.BaseURL(), State: state.Connected}, "Connected")
	err := prefs.Update(c.prefsPath, func(p *prefs.Prefs) {
		p.DeviceAddress = dev.BaseURL()
	})
	if err != nil {
		c.logger.Warn("save device address failed", zap.Error(err))
	}
}

// Uploader hands the orchestrator the device while it is connected.
func (c *Controller) Uploader() (device.Uploader, bool) {
	if c.store.Snapshot().Connection.State != state.Connected {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		return nil, false
	}
	return c.dev, true
}

// AddPaths queues the given files in order. Paths that cannot be queued are
// skipped and reported together; the rest are still added.
func (c *Controller) AddPaths(paths ...string) (int, error) {
	var (
		entries []queue.Entry
		errs    []error
	)
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		entry, err := queue.EntryFromPath(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, entry)
	}
	c.AddEntries(entries...)
	return len(entries), errors.Join(errs...)
}

// AddEntries appends entries to the queue.
func (c *Controller) AddEntries(entries ...queue.Entry) {
	if len(entries) == 0 {
		return
	}
	c.queue.Add(entries...)
	c.logger.Debug("files queued", zap.Int("added", len(entries)), zap.Int("queued", c.queue.Len()))
	c.queueChanged()
}

// RemoveAt drops the queue entry at index. Stale indexes are ignored.
func (c *Controller) RemoveAt(index int) bool {
	if !c.queue.RemoveAt(index) {
		return false
	}
	c.queueChanged()
	return true
}

// ClearQueue empties the queue.
func (c *Controller) ClearQueue() {
	c.queue.Clear()
	c.queueChanged()
}

// Syncing reports whether a pass is in flight.
func (c *Controller) Syncing() bool {
	return c.orch.Running()
}

// Sync runs one pass over the queue. It returns the syncer sentinel errors
// when the pass does not start; callers treat those as no-ops.
func (c *Controller) Sync(ctx context.Context) (syncer.Pass, error) {
	pass, err := c.orch.Sync(ctx, syncer.Hooks{
		Started: func(passID string, _ int) {
			c.store.BeginPass(passID)
			c.publish(EventPassStarted)
		},
		Progress: func(p state.Progress) {
			c.store.SetProgress(p)
			c.publish(EventProgress)
		},
	})
	if err != nil {
		c.logger.Debug("sync not started", zap.Error(err))
		return pass, err
	}
	c.store.FinishPass(pass.Results)
	c.publish(EventPassFinished)
	return pass, nil
}

// IsNoop reports whether err is one of the reasons Sync declines to start.
func IsNoop(err error) bool {
	return errors.Is(err, syncer.ErrSyncInProgress) ||
		errors.Is(err, syncer.ErrNotConnected) ||
		errors.Is(err, syncer.ErrQueueEmpty)
}

// Subscribe registers for events. Slow subscribers miss events rather than
// block the controller, so they should re-read Snapshot when it matters.
// The returned function unsubscribes and closes the channel.
func (c *Controller) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
			close(ch)
		})
	}
}

func (c *Controller) setConnection(conn state.Connection, text string) {
	c.store.SetConnection(conn, text)
	c.publish(EventConnection)
}

func (c *Controller) queueChanged() {
	metrics.SetQueueLength(c.queue.Len())
	c.publish(EventQueue)
}

func (c *Controller) publish(kind EventKind) {
	event := Event{Kind: kind, Snapshot: c.store.Snapshot(), Queue: c.queue.Entries()}

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for id, ch := range c.subs {
		select {
		case ch <- event:
		default:
			c.logger.Debug("event dropped", zap.Int("subscriber", id), zap.Stringer("kind", kind))
		}
	}
}
