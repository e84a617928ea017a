package driver

import (
	"fmt"
	"math"

	"github.com/parfit-dev/parfit/pkg/config"
	"github.com/parfit-dev/parfit/pkg/utils"
)

// IterationStep is one entry of the driver's score history: the best score
// observed up to and including that iteration.
type IterationStep struct {
	Iteration int
	Score     float64
}

// ConvergenceStrategy defines how to detect convergence
type ConvergenceStrategy interface {
	// CheckConvergence checks if the run has converged based on history
	CheckConvergence(history []IterationStep) (bool, string)
	// Name returns the name of the convergence strategy
	Name() string
}

// ConvergenceConfig holds configuration for convergence detection
type ConvergenceConfig struct {
	// NoImprovementIterations is the number of iterations without improvement before stopping
	NoImprovementIterations int
	// ImprovementThreshold is the minimum relative improvement to consider significant
	ImprovementThreshold float64
	// ScoreTolerance is the absolute tolerance for score changes to be considered equal
	ScoreTolerance float64
	// MinIterations is the minimum number of iterations before convergence can be detected
	MinIterations int
	// PlateauIterations is the number of iterations with similar scores before stopping
	PlateauIterations int
}

// DefaultConvergenceConfig returns a default convergence configuration
func DefaultConvergenceConfig() *ConvergenceConfig {
	return &ConvergenceConfig{
		NoImprovementIterations: 5,
		ImprovementThreshold:    0.01,
		ScoreTolerance:          0.001,
		MinIterations:           3,
		PlateauIterations:       5,
	}
}

// ConvergenceFromConfig builds a combined strategy from the experiment
// config; a nil section disables convergence detection (budget only).
func ConvergenceFromConfig(c *config.Convergence) ConvergenceStrategy {
	if c == nil {
		return nil
	}
	cfg := DefaultConvergenceConfig()
	if c.MinIterations > 0 {
		cfg.MinIterations = c.MinIterations
	}
	if c.NoImprovementIterations > 0 {
		cfg.NoImprovementIterations = c.NoImprovementIterations
	}
	if c.PlateauIterations > 0 {
		cfg.PlateauIterations = c.PlateauIterations
	}
	if c.ImprovementThreshold > 0 {
		cfg.ImprovementThreshold = c.ImprovementThreshold
	}
	if c.ScoreTolerance > 0 {
		cfg.ScoreTolerance = c.ScoreTolerance
	}
	return NewCombinedStrategy(cfg)
}

// NoImprovementStrategy detects convergence when there's no improvement for N iterations
type NoImprovementStrategy struct {
	config *ConvergenceConfig
}

// NewNoImprovementStrategy creates a new no-improvement convergence strategy
func NewNoImprovementStrategy(config *ConvergenceConfig) *NoImprovementStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &NoImprovementStrategy{config: config}
}

func (s *NoImprovementStrategy) Name() string {
	return "no_improvement"
}

func (s *NoImprovementStrategy) CheckConvergence(history []IterationStep) (converged bool, reason string) {
	if len(history) < s.config.MinIterations {
		return false, ""
	}

	bestScore := math.MaxFloat64
	bestIteration := -1
	for i, step := range history {
		if step.Score < bestScore {
			bestScore = step.Score
			bestIteration = i
		}
	}
	if bestIteration < 0 {
		return false, ""
	}

	iterationsSinceBest := len(history) - 1 - bestIteration
	if iterationsSinceBest >= s.config.NoImprovementIterations {
		return true, fmt.Sprintf("no improvement for %d iterations (best at iteration %d)", iterationsSinceBest, bestIteration)
	}

	return false, ""
}

// PlateauStrategy detects convergence when scores have plateaued
type PlateauStrategy struct {
	config *ConvergenceConfig
}

// NewPlateauStrategy creates a new plateau convergence strategy
func NewPlateauStrategy(config *ConvergenceConfig) *PlateauStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &PlateauStrategy{config: config}
}

func (s *PlateauStrategy) Name() string {
	return "plateau"
}

func (s *PlateauStrategy) CheckConvergence(history []IterationStep) (converged bool, reason string) {
	if len(history) < s.config.MinIterations {
		return false, ""
	}
	if len(history) < s.config.PlateauIterations {
		return false, ""
	}

	recent := history[len(history)-s.config.PlateauIterations:]
	minScore := recent[0].Score
	maxScore := recent[0].Score
	for _, step := range recent {
		if step.Score < minScore {
			minScore = step.Score
		}
		if step.Score > maxScore {
			maxScore = step.Score
		}
	}

	scoreRange := maxScore - minScore
	if scoreRange <= s.config.ScoreTolerance {
		return true, fmt.Sprintf("score plateaued for %d iterations (range: %.6f)", s.config.PlateauIterations, scoreRange)
	}

	return false, ""
}

// ImprovementThresholdStrategy detects convergence when improvements are below threshold
type ImprovementThresholdStrategy struct {
	config *ConvergenceConfig
}

// NewImprovementThresholdStrategy creates a new improvement threshold convergence strategy
func NewImprovementThresholdStrategy(config *ConvergenceConfig) *ImprovementThresholdStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &ImprovementThresholdStrategy{config: config}
}

func (s *ImprovementThresholdStrategy) Name() string {
	return "improvement_threshold"
}

func (s *ImprovementThresholdStrategy) CheckConvergence(history []IterationStep) (converged bool, reason string) {
	if len(history) < s.config.MinIterations+1 {
		return false, ""
	}

	window := s.config.NoImprovementIterations
	if len(history) < window {
		window = len(history)
	}
	recent := history[len(history)-window:]
	if len(recent) < 2 {
		return false, ""
	}

	improvements := make([]float64, 0, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		if recent[i-1].Score > 0 {
			improvements = append(improvements, (recent[i-1].Score-recent[i].Score)/recent[i-1].Score)
		}
	}
	if len(improvements) == 0 {
		return false, ""
	}

	maxImprovement := improvements[0]
	for _, imp := range improvements {
		if imp > maxImprovement {
			maxImprovement = imp
		}
	}
	if maxImprovement <= s.config.ImprovementThreshold {
		return true, fmt.Sprintf("improvements below threshold (max: %.4f%%, threshold: %.4f%%)", maxImprovement*100, s.config.ImprovementThreshold*100)
	}

	return false, ""
}

// VarianceStrategy detects convergence when score variance is low
type VarianceStrategy struct {
	config *ConvergenceConfig
}

// NewVarianceStrategy creates a new variance-based convergence strategy
func NewVarianceStrategy(config *ConvergenceConfig) *VarianceStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &VarianceStrategy{config: config}
}

func (s *VarianceStrategy) Name() string {
	return "variance"
}

func (s *VarianceStrategy) CheckConvergence(history []IterationStep) (converged bool, reason string) {
	if len(history) < s.config.MinIterations {
		return false, ""
	}

	windowSize := s.config.PlateauIterations
	if len(history) < windowSize {
		windowSize = len(history)
	}
	recent := history[len(history)-windowSize:]
	if len(recent) < 2 {
		return false, ""
	}

	scores := make([]float64, len(recent))
	for i, step := range recent {
		scores[i] = step.Score
	}
	mean := utils.Mean(scores)
	if mean <= 0 {
		return false, ""
	}

	relativeStdDev := utils.StdDev(scores) / mean
	if relativeStdDev < s.config.ImprovementThreshold {
		return true, fmt.Sprintf("low score variance (relative stddev: %.4f%%)", relativeStdDev*100)
	}

	return false, ""
}

// CombinedStrategy converges as soon as any member strategy does
type CombinedStrategy struct {
	strategies []ConvergenceStrategy
}

// NewCombinedStrategy creates the default combination of strategies
func NewCombinedStrategy(config *ConvergenceConfig) *CombinedStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &CombinedStrategy{
		strategies: []ConvergenceStrategy{
			NewNoImprovementStrategy(config),
			NewPlateauStrategy(config),
			NewImprovementThresholdStrategy(config),
		},
	}
}

func (s *CombinedStrategy) Name() string {
	return "combined"
}

func (s *CombinedStrategy) CheckConvergence(history []IterationStep) (converged bool, reason string) {
	for _, strategy := range s.strategies {
		converged, reason := strategy.CheckConvergence(history)
		if converged {
			return true, fmt.Sprintf("%s: %s", strategy.Name(), reason)
		}
	}
	return false, ""
}

// AddStrategy adds a custom strategy to the combined strategy
func (s *CombinedStrategy) AddStrategy(strategy ConvergenceStrategy) {
	s.strategies = append(s.strategies, strategy)
}
