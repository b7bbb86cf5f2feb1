// Package delivery holds the transports that expose the usecases.
package delivery

import "context"

// Delivery is a server started by the application after Fx has wired it.
type Delivery interface {
	// Serve blocks until the server stops.
	Serve(ctx context.Context) error
}
