package health

import "context"

// Pinger checks a backing component's availability.
type Pinger interface {
	Ping(ctx context.Context) error
}
