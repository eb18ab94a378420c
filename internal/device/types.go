package device

import "errors"

// StatusResponse mirrors the payload returned by GET /status.
type StatusResponse struct {
	Ready bool `json:"ready"`
}

// ProbeOutcome classifies a health check.
type ProbeOutcome int

const (
	ProbeConnected ProbeOutcome = iota
	ProbeNotReady
	ProbeTimedOut
	ProbeFailed
)

func (o ProbeOutcome) String() string {
	switch o {
	case ProbeConnected:
		return "connected"
	case ProbeNotReady:
		return "not_ready"
	case ProbeTimedOut:
		return "timed_out"
	default:
		return "failed"
	}
}

// Sentinel errors carried by ProbeResult.Err and upload failures.
var (
	ErrNotReady    = errors.New("device not ready")
	ErrTimeout     = errors.New("device timeout")
	ErrUnreachable = errors.New("device unreachable")
	ErrRejected    = errors.New("upload rejected")
)

// ProbeResult reports the outcome of a single health check.
type ProbeResult struct {
	Outcome ProbeOutcome
	BaseURL string
	Err     error
}

// Connected reports whether the device answered ready.
func (r ProbeResult) Connected() bool {
	return r.Outcome == ProbeConnected
}

// Reason returns the human-readable status line for the outcome.
func (r ProbeResult) Reason() string {
	switch r.Outcome {
	case ProbeConnected:
		return "Connected"
	case ProbeNotReady:
		return "Device not ready"
	case ProbeTimedOut:
		return "Timeout"
	default:
		return "Connection failed"
	}
}
