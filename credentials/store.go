package credentials

import "time"

// Durable keys written by the session core. These are the only persisted artifacts.
const (
	KeyAccessToken    = "access-token"
	KeyRefreshToken   = "refresh-token"
	KeyHostAddress    = "host-address"
	KeySelectedTenant = "selected-tenant-id"
)

// AllKeys lists every key the core writes
var AllKeys = []string{KeyAccessToken, KeyRefreshToken, KeyHostAddress, KeySelectedTenant}

// Store is durable key/value storage that survives process restarts.
// Implementations return errors.ErrNotFound for absent or expired keys.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string, ttl time.Duration) error
	Delete(keys ...string) error
}
