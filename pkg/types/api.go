package types

// Error categories carried by every ErrorResponse.
const (
	CategoryValidation = "validation"
	CategoryAuth       = "auth"
	CategoryInternal   = "internal"
	CategoryRequest    = "request"
)

// ErrorResponse is a consistent JSON error payload. It never contains
// secret values.
type ErrorResponse struct {
	// Error message.
	// example: invalid config: gateway.port: must be at most 65535
	Error string `json:"error" example:"invalid config: gateway.port: must be at most 65535"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Error category: validation, auth, internal or request.
	// example: validation
	Category string `json:"category" example:"validation"`
	// Field-level problems for validation errors.
	Fields []FieldError `json:"fields,omitempty"`
}

// FieldError points at one invalid field of a config document.
type FieldError struct {
	// Dotted path of the field.
	// example: providers.openai.apiBase
	Path string `json:"path" example:"providers.openai.apiBase"`
	// Why the value was rejected.
	// example: must be a valid URL
	Reason string `json:"reason" example:"must be a valid URL"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	// Gateway lifecycle state: stopped, starting, running, stopping or crashed.
	// example: running
	State string `json:"state" example:"running"`
	// Process ID of the live gateway; omitted when none is running.
	// example: 4242
	PID int `json:"pid,omitempty" example:"4242"`
	// Identifier of the current gateway run.
	// example: 0f8fad5b-d9cb-469f-a165-70867728950e
	RunID string `json:"run_id,omitempty" example:"0f8fad5b-d9cb-469f-a165-70867728950e"`
	// Start time of the live gateway (unix seconds).
	// example: 1700000000
	StartedAtUnix int64 `json:"started_at_unix,omitempty" example:"1700000000"`
	// Seconds the live gateway has been up.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// How the previous gateway process ended.
	LastExit *ExitStatus `json:"last_exit,omitempty"`
	// Last recorded failure (spawn error or unexpected exit).
	// example: gateway exited with code 1
	LastError string `json:"last_error,omitempty" example:"gateway exited with code 1"`
	// Successful spawns since the supervisor started.
	// example: 3
	Starts uint64 `json:"starts" example:"3"`
	// Unexpected exits since the supervisor started.
	// example: 1
	Crashes uint64 `json:"crashes" example:"1"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ExitStatus describes how a gateway process ended.
type ExitStatus struct {
	// Exit code, -1 when killed by a signal.
	// example: 1
	Code int `json:"code" example:"1"`
	// Terminating signal, if any.
	// example: killed
	Signal string `json:"signal,omitempty" example:"killed"`
	// Exit time (unix seconds).
	// example: 1700000000
	AtUnix int64 `json:"at_unix" example:"1700000000"`
	// True when the exit was requested via stop.
	// example: false
	Expected bool `json:"expected" example:"false"`
}

// LogsResponse is returned by GET /api/logs.
type LogsResponse struct {
	Lines []LogLine `json:"lines"`
	// Number of lines returned.
	// example: 100
	Count int `json:"count" example:"100"`
	// Fixed capacity of the log buffer.
	// example: 500
	Capacity int `json:"capacity" example:"500"`
}

// ConfigResponse is returned by GET /api/config.
type ConfigResponse struct {
	// Stored gateway configuration with secrets masked.
	Config any `json:"config" swaggertype:"object"`
	// Dotted paths of secrets that currently hold a value.
	// example: ["providers.openai.apiKey"]
	SecretsSet []string `json:"secrets_set"`
	// Placeholder shown for set secrets; send it back unchanged to keep a secret.
	// example: ••••••••
	Placeholder string `json:"placeholder" example:"••••••••"`
}

// UpdateConfigResponse is returned by PUT /api/config.
type UpdateConfigResponse struct {
	ConfigResponse
	// Gateway status after the restart.
	Gateway StatusResponse `json:"gateway"`
	// Outcome of the restart triggered by the update.
	Restart ActionResponse `json:"restart"`
}

// ActionResponse is returned by POST /api/gateway/{start,stop,restart}.
type ActionResponse struct {
	// Action performed.
	// example: restart
	Action string `json:"action" example:"restart"`
	// False when the action recorded a failure (for example a spawn error).
	// example: true
	OK bool `json:"ok" example:"true"`
	// False when the call was a no-op.
	// example: true
	Changed bool `json:"changed" example:"true"`
	// Gateway state after the action.
	// example: starting
	State string `json:"state" example:"starting"`
	// Recorded failure, if any.
	Error string `json:"error,omitempty"`
}
