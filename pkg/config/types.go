package config

import "time"

// Config represents a full experiment configuration
type Config struct {
	LogLevel    string       `yaml:"log_level"`
	Seed        int64        `yaml:"seed"`
	Start       []float64    `yaml:"start"`
	Strategy    Strategy     `yaml:"strategy"`
	Evaluation  Evaluation   `yaml:"evaluation"`
	Pool        Pool         `yaml:"pool"`
	Budget      Budget       `yaml:"budget"`
	Convergence *Convergence `yaml:"convergence,omitempty"`
	Store       Store        `yaml:"store"`
	Priors      []Prior      `yaml:"priors,omitempty"`
}

// Strategy selects and parameterizes the proposal strategy
type Strategy struct {
	Name     string  `yaml:"name"`      // ensemble or hillclimb
	Walkers  int     `yaml:"walkers"`   // ensemble: number of walkers
	Stretch  float64 `yaml:"stretch"`   // ensemble: stretch-move scale parameter a
	StepSize float64 `yaml:"step_size"` // hillclimb: coordinate step size
}

// Evaluation configures the objective function adapter
type Evaluation struct {
	Objective    string  `yaml:"objective"`
	Timeout      string  `yaml:"timeout"` // e.g., "5s"; empty disables the per-item timeout
	FailureScore float64 `yaml:"failure_score"`
}

// Pool configures the worker pool
type Pool struct {
	Workers int `yaml:"workers"`
}

// Budget bounds the run
type Budget struct {
	MaxIterations int `yaml:"max_iterations"`
}

// Convergence configures convergence detection
type Convergence struct {
	MinIterations           int     `yaml:"min_iterations"`
	NoImprovementIterations int     `yaml:"no_improvement_iterations"`
	PlateauIterations       int     `yaml:"plateau_iterations"`
	ImprovementThreshold    float64 `yaml:"improvement_threshold"`
	ScoreTolerance          float64 `yaml:"score_tolerance"`
}

// Store configures the record sink
type Store struct {
	Backend       string `yaml:"backend"` // memory or badger
	Path          string `yaml:"path,omitempty"`
	AppendRetries int    `yaml:"append_retries"`
	RetryBackoff  string `yaml:"retry_backoff,omitempty"` // exponential, linear, constant
	RetryBaseMs   int    `yaml:"retry_base_ms,omitempty"`
}

// Prior configures one parameter's prior distribution
type Prior struct {
	Type string  `yaml:"type"` // uniform or gaussian
	Low  float64 `yaml:"low,omitempty"`
	High float64 `yaml:"high,omitempty"`
	Mean float64 `yaml:"mean,omitempty"`
	Std  float64 `yaml:"std,omitempty"`
}

// GetTimeout parses the evaluation timeout; zero duration means no timeout
func (e *Evaluation) GetTimeout() (time.Duration, error) {
	if e.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(e.Timeout)
}
