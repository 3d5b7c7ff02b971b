// internal/workers/application/send-submission-notice/config.go
package sendsubmissionnotice

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{Timeout: 30 * time.Second}
}
