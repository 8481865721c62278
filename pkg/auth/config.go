package auth

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds credential flow settings.
type Config struct {
	TokenSecret       string        `env:"AUTH_TOKEN_SECRET,required"`
	BcryptCost        int           `env:"AUTH_BCRYPT_COST" envDefault:"10"`
	MinPasswordLength int           `env:"AUTH_MIN_PASSWORD_LENGTH" envDefault:"8"`
	ResetTokenTTL     time.Duration `env:"AUTH_RESET_TOKEN_TTL" envDefault:"1h"`
	ResetURL          string        `env:"AUTH_RESET_URL" envDefault:"/password/reset"`
}

// DefaultConfig returns settings matching the env defaults, minus the
// secret, which has no safe default.
func DefaultConfig() Config {
	return Config{
		BcryptCost:        bcrypt.DefaultCost,
		MinPasswordLength: 8,
		ResetTokenTTL:     time.Hour,
		ResetURL:          "/password/reset",
	}
}
