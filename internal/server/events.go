package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/five82/cpsync/internal/queue"
	"github.com/five82/cpsync/internal/state"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type connectionPayload struct {
	BaseURL string `json:"base_url"`
	State   string `json:"state"`
}

type progressPayload struct {
	Index         int     `json:"index"`
	Total         int     `json:"total"`
	Current       string  `json:"current"`
	PercentBefore float64 `json:"percent_before"`
	PercentAfter  float64 `json:"percent_after"`
	Done          bool    `json:"done"`
}

type queueItem struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type statusPayload struct {
	Event      string            `json:"event,omitempty"`
	Address    string            `json:"address"`
	Connection connectionPayload `json:"connection"`
	StatusText string            `json:"status_text"`
	Syncing    bool              `json:"syncing"`
	PassID     string            `json:"pass_id,omitempty"`
	Progress   *progressPayload  `json:"progress,omitempty"`
	Results    []state.Result    `json:"results"`
	Queue      []queueItem       `json:"queue"`
}

func (s *Server) payload(snap state.Snapshot, event string) statusPayload {
	return s.payloadWithQueue(snap, s.ctrl.Queue(), event)
}

func (s *Server) payloadWithQueue(snap state.Snapshot, entries []queue.Entry, event string) statusPayload {
	address := s.ctrl.Address()
	if address == "" {
		address = s.start
	}
	p := statusPayload{
		Event:   event,
		Address: address,
		Connection: connectionPayload{
			BaseURL: snap.Connection.BaseURL,
			State:   snap.Connection.State.String(),
		},
		StatusText: snap.StatusText,
		Syncing:    snap.Syncing,
		PassID:     snap.PassID,
		Results:    snap.Results,
		Queue:      make([]queueItem, 0, len(entries)),
	}
	if p.Results == nil {
		p.Results = []state.Result{}
	}
	if snap.HasProgress {
		p.Progress = &progressPayload{
			Index:         snap.Progress.Index,
			Total:         snap.Progress.Total,
			Current:       snap.Progress.CurrentName,
			PercentBefore: snap.Progress.PercentBefore,
			PercentAfter:  snap.Progress.PercentAfter,
			Done:          snap.Progress.Done,
		}
	}
	for _, e := range entries {
		p.Queue = append(p.Queue, queueItem{Name: e.DisplayName, Size: e.SizeBytes})
	}
	return p
}

// events streams a status payload on every controller event.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := s.ctrl.Subscribe(32)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v)
	}
	if err := write(s.payload(s.ctrl.Snapshot(), "hello")); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := write(s.payloadWithQueue(ev.Snapshot, ev.Queue, ev.Kind.String())); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
