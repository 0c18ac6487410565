// Package lifecycle holds shared constants for application start/stop
// coordination.
package lifecycle

import "time"

// DefaultTimeout bounds graceful startup and shutdown of long-running
// components (HTTP server, background workers).
const DefaultTimeout = 10 * time.Second
