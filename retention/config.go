package retention

// Config contains configuration for the retention sweeper
type Config struct {
	// RetentionDays is how long a record stays soft-deleted before it is erased
	RetentionDays int

	// BatchSize caps the number of records erased per Cleanup call
	BatchSize int

	// MaxBatches caps the number of Cleanup calls per type in one SweepAll
	MaxBatches int

	// Schedule is a cron expression for SweepAll. Empty disables scheduling.
	Schedule string

	// ArchiveDir receives a compressed copy of every erased batch.
	// Empty disables archiving.
	ArchiveDir string
}

// DefaultConfig returns the default retention configuration
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 30,
		BatchSize:     100,
		MaxBatches:    50,
		Schedule:      "0 3 * * *",
	}
}

func (c *Config) withDefaults() *Config {
	defaults := DefaultConfig()
	if c == nil {
		return defaults
	}
	out := *c
	if out.RetentionDays <= 0 {
		out.RetentionDays = defaults.RetentionDays
	}
	if out.BatchSize <= 0 {
		out.BatchSize = defaults.BatchSize
	}
	if out.MaxBatches <= 0 {
		out.MaxBatches = defaults.MaxBatches
	}
	return &out
}
