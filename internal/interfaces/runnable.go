package interfaces

import "context"

// Runnable is a long-running component of the service. Run blocks until ctx is cancelled
// or the component fails, the returned error explains which one happened
type Runnable interface {
	Run(ctx context.Context) error
}
