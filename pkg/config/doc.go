// Package config loads environment-based configuration structs.
//
// Every subsystem (session, tenant, audit retention, postgres, redis, email,
// OAuth providers) declares its own struct with `env` tags and loads it
// through Load. A .env file is read once if present; each config type is
// parsed once and cached for the process lifetime, so misconfiguration is
// detected at startup rather than at request time.
//
//	type SessionConfig struct {
//	    Lifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"720h"`
//	}
//
//	var cfg SessionConfig
//	if err := config.Load(&cfg); err != nil { ... }
package config
