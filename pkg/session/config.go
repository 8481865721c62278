package session

import "time"

// Config holds session manager configuration.
type Config struct {
	// Lifetime is the fixed session window from creation to expiry.
	Lifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"720h"`

	// ActivityUpdateThreshold is the minimum time between persisted
	// activity updates for one session.
	ActivityUpdateThreshold time.Duration `env:"SESSION_ACTIVITY_UPDATE_THRESHOLD" envDefault:"5m"`

	// CleanupInterval for expired sessions in the memory store
	// (0 disables the background ticker).
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`

	// MaxSessions is the advisory per-principal session cap. Exceeding it
	// is reported, never enforced.
	MaxSessions int `env:"SESSION_MAX_SESSIONS" envDefault:"5"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Lifetime:                30 * 24 * time.Hour,
		ActivityUpdateThreshold: 5 * time.Minute,
		CleanupInterval:         5 * time.Minute,
		MaxSessions:             5,
	}
}
