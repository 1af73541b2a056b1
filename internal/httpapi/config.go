package httpapi

import "time"

// maxBodyBytes controls the maximum allowed request body size for config uploads.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}

// Per-IP rate limit for /api. Zero requests disables limiting.
var (
	rateLimitRequests = 120
	rateLimitWindow   = time.Minute
)

// SetRateLimit configures the /api rate limit.
func SetRateLimit(requests int, window time.Duration) {
	if requests < 0 {
		requests = 0
	}
	if window <= 0 {
		window = time.Minute
	}
	rateLimitRequests = requests
	rateLimitWindow = window
}

// swaggerEnabled mounts the Swagger UI under /swagger/.
var swaggerEnabled bool

// SetSwaggerEnabled toggles the Swagger UI.
func SetSwaggerEnabled(on bool) { swaggerEnabled = on }
