// internal/workers/questionnaire/generate-dynamic-spec/config.go
package generatedynamicspec

import "time"

type Config struct {
	Timeout    time.Duration
	MaxFields  int
	MaxRetries int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    90 * time.Second,
		MaxRetries: 2,
	}
}
