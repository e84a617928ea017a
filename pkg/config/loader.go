package config

import (
	"fmt"
	"math"
	"os"
)

// Load reads and parses an experiment configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults fills in zero values that have sensible defaults
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Strategy.Name == "" {
		cfg.Strategy.Name = "hillclimb"
	}
	if cfg.Strategy.Walkers == 0 {
		cfg.Strategy.Walkers = 2 * len(cfg.Start)
		if cfg.Strategy.Walkers < 4 {
			cfg.Strategy.Walkers = 4
		}
	}
	if cfg.Strategy.Stretch == 0 {
		cfg.Strategy.Stretch = 2.0
	}
	if cfg.Strategy.StepSize == 0 {
		cfg.Strategy.StepSize = 1.0
	}
	if cfg.Evaluation.FailureScore == 0 {
		cfg.Evaluation.FailureScore = 1e9
	}
	if cfg.Pool.Workers == 0 {
		cfg.Pool.Workers = 4
	}
	if cfg.Budget.MaxIterations == 0 {
		cfg.Budget.MaxIterations = 100
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Store.RetryBackoff == "" {
		cfg.Store.RetryBackoff = "exponential"
	}
	if cfg.Store.RetryBaseMs == 0 {
		cfg.Store.RetryBaseMs = 100
	}
}

// validate performs validation on the configuration
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	if len(cfg.Start) == 0 {
		return fmt.Errorf("start vector cannot be empty")
	}
	for i, v := range cfg.Start {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("start[%d] must be finite, got %f", i, v)
		}
	}

	if err := validateStrategy(&cfg.Strategy); err != nil {
		return fmt.Errorf("strategy validation failed: %w", err)
	}
	if err := validateEvaluation(&cfg.Evaluation); err != nil {
		return fmt.Errorf("evaluation validation failed: %w", err)
	}

	if cfg.Pool.Workers < 1 {
		return fmt.Errorf("pool workers must be at least 1, got %d", cfg.Pool.Workers)
	}
	if cfg.Budget.MaxIterations <= 0 {
		return fmt.Errorf("budget max_iterations must be positive, got %d", cfg.Budget.MaxIterations)
	}

	if cfg.Convergence != nil {
		if err := validateConvergence(cfg.Convergence); err != nil {
			return fmt.Errorf("convergence validation failed: %w", err)
		}
	}

	if err := validateStore(&cfg.Store); err != nil {
		return fmt.Errorf("store validation failed: %w", err)
	}

	if len(cfg.Priors) > 0 {
		if len(cfg.Priors) != len(cfg.Start) {
			return fmt.Errorf("priors must match start dimension: got %d priors for %d parameters", len(cfg.Priors), len(cfg.Start))
		}
		for i, p := range cfg.Priors {
			if err := validatePrior(&p); err != nil {
				return fmt.Errorf("prior %d invalid: %w", i, err)
			}
		}
	}

	return nil
}

func validateStrategy(s *Strategy) error {
	switch s.Name {
	case "ensemble":
		if s.Walkers < 4 {
			return fmt.Errorf("ensemble walkers must be at least 4, got %d", s.Walkers)
		}
		if s.Walkers%2 != 0 {
			return fmt.Errorf("ensemble walkers must be even, got %d", s.Walkers)
		}
		if s.Stretch <= 1 {
			return fmt.Errorf("ensemble stretch must be greater than 1, got %f", s.Stretch)
		}
	case "hillclimb":
		if s.StepSize <= 0 {
			return fmt.Errorf("hillclimb step_size must be positive, got %f", s.StepSize)
		}
	default:
		return fmt.Errorf("unknown strategy name: %s (must be ensemble or hillclimb)", s.Name)
	}
	return nil
}

func validateEvaluation(e *Evaluation) error {
	if e.Objective == "" {
		return fmt.Errorf("evaluation objective cannot be empty")
	}
	if _, err := e.GetTimeout(); err != nil {
		return fmt.Errorf("invalid timeout %s: %w", e.Timeout, err)
	}
	if math.IsNaN(e.FailureScore) || math.IsInf(e.FailureScore, 0) {
		return fmt.Errorf("failure_score must be finite")
	}
	return nil
}

func validateConvergence(c *Convergence) error {
	if c.MinIterations < 0 {
		return fmt.Errorf("min_iterations cannot be negative, got %d", c.MinIterations)
	}
	if c.NoImprovementIterations < 0 {
		return fmt.Errorf("no_improvement_iterations cannot be negative, got %d", c.NoImprovementIterations)
	}
	if c.PlateauIterations < 0 {
		return fmt.Errorf("plateau_iterations cannot be negative, got %d", c.PlateauIterations)
	}
	if c.ImprovementThreshold < 0 {
		return fmt.Errorf("improvement_threshold cannot be negative, got %f", c.ImprovementThreshold)
	}
	if c.ScoreTolerance < 0 {
		return fmt.Errorf("score_tolerance cannot be negative, got %f", c.ScoreTolerance)
	}
	return nil
}

func validateStore(s *Store) error {
	switch s.Backend {
	case "memory":
	case "badger":
		if s.Path == "" {
			return fmt.Errorf("path is required for the badger backend")
		}
	default:
		return fmt.Errorf("unknown store backend: %s (must be memory or badger)", s.Backend)
	}
	if s.AppendRetries < 0 {
		return fmt.Errorf("append_retries cannot be negative, got %d", s.AppendRetries)
	}
	validBackoffs := map[string]bool{
		"exponential": true,
		"linear":      true,
		"constant":    true,
	}
	if !validBackoffs[s.RetryBackoff] {
		return fmt.Errorf("invalid retry_backoff type: %s (must be exponential, linear, or constant)", s.RetryBackoff)
	}
	if s.RetryBaseMs < 0 {
		return fmt.Errorf("retry_base_ms cannot be negative, got %d", s.RetryBaseMs)
	}
	return nil
}

func validatePrior(p *Prior) error {
	switch p.Type {
	case "uniform":
		if p.Low >= p.High {
			return fmt.Errorf("uniform prior requires low < high, got [%f, %f]", p.Low, p.High)
		}
	case "gaussian":
		if p.Std <= 0 {
			return fmt.Errorf("gaussian prior requires positive std, got %f", p.Std)
		}
	default:
		return fmt.Errorf("unknown prior type: %s (must be uniform or gaussian)", p.Type)
	}
	return nil
}
