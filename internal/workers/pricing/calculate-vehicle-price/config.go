package calculatevehicleprice

import "time"

type Config struct {
	Timeout time.Duration
	// RecordQuotes is the default when a job does not set recordQuote.
	RecordQuotes bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
