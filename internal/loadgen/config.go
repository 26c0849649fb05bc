package loadgen

import (
	"time"

	"github.com/okian/alie/internal/domain/model"
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Requests   int           // Number of snapshots to generate and submit
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	APIKey     string        // Sent as X-API-Key when set
	OutputFile string        // Optional JSON dump of the generated snapshots
	Verbose    bool          // Log every contract violation
}

// Stats holds probe statistics.
type Stats struct {
	Generated          int
	Submitted          int
	Successful         int
	Rejected           int // 4xx other than 429
	RateLimited        int
	Failed             int // transport errors and 5xx
	ContractViolations int
	Weak               int
	Actions            map[model.Action]int
	Difficulties       map[model.DifficultyLevel]int
	MaxPredictionMS    float64
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

func newStats() *Stats {
	return &Stats{
		Actions:      make(map[model.Action]int),
		Difficulties: make(map[model.DifficultyLevel]int),
		StartTime:    time.Now(),
	}
}

// health mirrors the /health body.
type health struct {
	Status       string `json:"status"`
	ModelsLoaded bool   `json:"models_loaded"`
	Version      string `json:"version"`
}
