// Package delivery defines the common contract for the process's serving
// surfaces (HTTP API, background workers).
package delivery

import "context"

// Delivery is a long-running serving component started by main. Serve blocks
// until the component stops or fails; shutdown is coordinated through the
// application lifecycle.
type Delivery interface {
	Serve(ctx context.Context) error
}
