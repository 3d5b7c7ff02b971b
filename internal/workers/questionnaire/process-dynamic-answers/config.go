// internal/workers/questionnaire/process-dynamic-answers/config.go
package processdynamicanswers

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}
