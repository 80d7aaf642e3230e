package cache

import (
	"context"
	"strings"
	"time"
)

// Store keeps fixed-window counters shared by every instance of the service. Implementations
// must be safe for concurrent use.
type Store interface {
	// IncrementWithTTL bumps the counter for key, opening a window of the given length when
	// none is active, and returns the new count with the time left in the window.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

var (
	_ Store = (*DatabaseStore)(nil)
	_ Store = (*RedisStore)(nil)
)

const keySeparator = ":"

// Key joins a namespace and its parts into a counter key, dropping blank parts.
func Key(namespace string, parts ...string) string {
	segments := make([]string, 0, len(parts)+1)
	for _, part := range append([]string{namespace}, parts...) {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, keySeparator)
}
