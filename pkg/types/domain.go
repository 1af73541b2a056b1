package types

// LogLine is one captured line of gateway output.
type LogLine struct {
	// Monotonic sequence number.
	// example: 1042
	Seq uint64 `json:"seq" example:"1042"`
	// Capture time (unix milliseconds).
	// example: 1700000000123
	TimeUnixMs int64 `json:"ts_unix_ms" example:"1700000000123"`
	// Line text without the trailing newline.
	// example: Gateway started on port 18790
	Text string `json:"text" example:"Gateway started on port 18790"`
}

// StreamMessage is one websocket frame on /api/logs/stream.
type StreamMessage struct {
	// Frame type: log or event.
	// example: log
	Type string `json:"type" example:"log"`
	// Set for log frames.
	Line *LogLine `json:"line,omitempty"`
	// Lifecycle event name for event frames.
	// example: spawn_exit
	Event string `json:"event,omitempty" example:"spawn_exit"`
	// Gateway run the frame belongs to.
	RunID string `json:"run_id,omitempty"`
	// Event details.
	Fields map[string]any `json:"fields,omitempty"`
}
