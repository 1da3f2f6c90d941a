package quickvehicleprice

import "time"

type Config struct {
	Timeout      time.Duration
	FetchTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      10 * time.Second,
		FetchTimeout: 5 * time.Second,
	}
}
