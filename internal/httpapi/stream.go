package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"gatewayd/internal/manager"
	"gatewayd/pkg/types"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamReadLimit  = 4096
)

// Stream frame types.
const (
	FrameLog   = "log"
	FrameEvent = "event"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  4096,
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin:      checkStreamOrigin,
}

// checkStreamOrigin accepts non-browser clients (no Origin), same-host pages
// and the configured CORS origins.
func checkStreamOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, o := range corsAllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// streamLogs godoc
// @Summary Live gateway output over a websocket
// @Description Sends the last n buffered lines, then every new line and lifecycle event as JSON frames.
// @Tags gateway
// @Security BasicAuth
// @Param n query int false "backlog lines (default 100, 0 for none)"
// @Success 101 {object} types.StreamMessage
// @Failure 400 {object} types.ErrorResponse
// @Failure 401 {object} types.ErrorResponse
// @Router /api/logs/stream [get]
func (h *handlers) streamLogs(w http.ResponseWriter, r *http.Request) {
	backlog := 0
	if raw := r.URL.Query().Get("n"); raw != "0" {
		n, err := parseLineCount(raw, DefaultLogLines, h.svc.LogCapacity())
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, types.CategoryRequest, err.Error())
			return
		}
		backlog = n
	}

	// Subscribe before reading the backlog so no line falls between the two.
	events, cancelSub := h.svc.Subscribe()
	defer cancelSub()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	defer conn.Close()
	logStreamClients.Inc()
	defer logStreamClients.Dec()

	ctx, cancel := joinContexts(r.Context(), serverBaseCtx)
	defer cancel()

	// Reader: handles pongs and notices the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(streamReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg types.StreamMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return conn.WriteJSON(msg) == nil
	}

	var lastSeq uint64
	if backlog > 0 {
		for _, l := range h.svc.Logs(backlog).Lines {
			line := l
			if !write(types.StreamMessage{Type: FrameLog, Line: &line}) {
				return
			}
			lastSeq = l.Seq
		}
	}

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(streamWriteWait))
			return
		case <-gone:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			msg, seq, send := streamFrame(ev, lastSeq)
			if !send {
				continue
			}
			if seq > 0 {
				lastSeq = seq
			}
			if !write(msg) {
				return
			}
		}
	}
}

// streamFrame converts a supervisor event to a websocket frame. Log lines at
// or below lastSeq were already sent with the backlog and are skipped.
func streamFrame(ev manager.Event, lastSeq uint64) (types.StreamMessage, uint64, bool) {
	if ev.Name != manager.EventLog {
		return types.StreamMessage{Type: FrameEvent, Event: ev.Name, RunID: ev.RunID, Fields: ev.Fields}, 0, true
	}
	seq, _ := ev.Fields["seq"].(uint64)
	if seq != 0 && seq <= lastSeq {
		return types.StreamMessage{}, 0, false
	}
	text, _ := ev.Fields["line"].(string)
	return types.StreamMessage{
		Type:  FrameLog,
		RunID: ev.RunID,
		Line:  &types.LogLine{Seq: seq, TimeUnixMs: ev.Time.UnixMilli(), Text: text},
	}, seq, true
}
