package state

import (
	"sync"
	"time"
)

// ConnState is the lifecycle of the device connection.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Connection is the device the client talks to. BaseURL survives a
// disconnect so the poller can retry it.
type Connection struct {
	BaseURL string
	State   ConnState
}

// Progress is the coarse per-item progress of a sync pass.
type Progress struct {
	Index         int
	Total         int
	CurrentName   string
	PercentBefore float64
	PercentAfter  float64
	// Done is false for the event emitted before the transfer and true for
	// the one emitted after it settles.
	Done bool
}

// Result is the outcome of one upload in a pass.
type Result struct {
	DisplayName string `json:"name"`
	Success     bool   `json:"success"`
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Connection  Connection
	StatusText  string
	Syncing     bool
	Progress    Progress
	HasProgress bool
	PassID      string
	Results     []Result
	LastUpdated time.Time
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// SetConnection records a connection transition and its status text.
func (s *Store) SetConnection(conn Connection, statusText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Connection = conn
	s.snapshot.StatusText = statusText
	s.snapshot.LastUpdated = time.Now()
}

// BeginPass marks a sync pass as running and discards the previous result log.
func (s *Store) BeginPass(passID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Syncing = true
	s.snapshot.PassID = passID
	s.snapshot.Results = nil
	s.snapshot.Progress = Progress{}
	s.snapshot.HasProgress = false
	s.snapshot.LastUpdated = time.Now()
}

// SetProgress records the latest progress event.
func (s *Store) SetProgress(p Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Progress = p
	s.snapshot.HasProgress = true
	s.snapshot.LastUpdated = time.Now()
}

// FinishPass stores the ordered result log of a completed pass.
func (s *Store) FinishPass(results []Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Syncing = false
	s.snapshot.Results = cloneResults(results)
	s.snapshot.LastUpdated = time.Now()
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Results = cloneResults(s.snapshot.Results)
	return snap
}

func cloneResults(items []Result) []Result {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Result, len(items))
	copy(dup, items)
	return dup
}
