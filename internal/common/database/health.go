// internal/common/database/health.go
package database

import (
	"context"
	"fmt"
	"time"
)

// Pinger is a dependency the readiness check can ping.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// PingAll pings every dependency with a shared timeout and returns the first failure.
func PingAll(ctx context.Context, timeout time.Duration, deps ...Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, d := range deps {
		if d == nil {
			continue
		}
		if err := d.Ping(ctx); err != nil {
			return fmt.Errorf("%s not ready: %w", d.Name(), err)
		}
	}
	return nil
}
