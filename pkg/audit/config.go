package audit

// Config holds audit analytics tuning knobs.
type Config struct {
	// PatternThreshold is the failed-login count per principal+IP pair
	// that flags a suspicious pattern.
	PatternThreshold int `env:"AUDIT_PATTERN_THRESHOLD" envDefault:"5"`
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() Config {
	return Config{PatternThreshold: defaultPatternThreshold}
}

// NewReporterFromConfig creates a reporter tuned by the config.
func NewReporterFromConfig(storage Storage, cfg Config) *Reporter {
	return NewReporter(storage, WithPatternThreshold(cfg.PatternThreshold))
}
