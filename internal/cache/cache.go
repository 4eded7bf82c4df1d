// Package cache provides the finding cache shared by all workers and all
// concurrently running investigations. Keys are derived from (worker,
// effective id, effective date); values are serialized worker outcomes.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines cache operations. Last write wins per key; there is no
// concurrent writer for the same key within one investigation.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration)
}

// Key builds a cache key from its parts.
func Key(parts ...string) string {
	h := md5.Sum([]byte(strings.Join(parts, "|")))
	return "finding:" + hex.EncodeToString(h[:])
}
