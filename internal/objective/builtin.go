package objective

import (
	"fmt"
	"math"

	"github.com/parfit-dev/parfit/pkg/config"
)

// Built-in objective names accepted in experiment configs
const (
	NameSphere     = "sphere"
	NameRosenbrock = "rosenbrock"
	NameRastrigin  = "rastrigin"
)

// Sphere is the sum of squares. Global minimum 0 at the origin.
func Sphere(vector []float64) (float64, error) {
	sum := 0.0
	for _, v := range vector {
		sum += v * v
	}
	return sum, nil
}

// Rosenbrock is the banana-valley function. Global minimum 0 at (1, ..., 1).
func Rosenbrock(vector []float64) (float64, error) {
	if len(vector) < 2 {
		return 0, fmt.Errorf("rosenbrock requires at least 2 dimensions, got %d", len(vector))
	}
	sum := 0.0
	for i := 0; i < len(vector)-1; i++ {
		a := vector[i+1] - vector[i]*vector[i]
		b := 1 - vector[i]
		sum += 100*a*a + b*b
	}
	return sum, nil
}

// Rastrigin is a highly multimodal benchmark. Global minimum 0 at the origin.
func Rastrigin(vector []float64) (float64, error) {
	sum := 10.0 * float64(len(vector))
	for _, v := range vector {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return sum, nil
}

// New creates a built-in objective function from a name
func New(name string) (Func, error) {
	switch name {
	case NameSphere:
		return Sphere, nil
	case NameRosenbrock:
		return Rosenbrock, nil
	case NameRastrigin:
		return Rastrigin, nil
	default:
		return nil, &UnknownObjectiveError{Name: name}
	}
}

// FromConfig builds the configured objective, wrapping it with the prior
// penalty when priors are declared.
func FromConfig(cfg *config.Config) (Func, error) {
	fn, err := New(cfg.Evaluation.Objective)
	if err != nil {
		return nil, err
	}
	if len(cfg.Priors) > 0 {
		priors, err := PriorsFromConfig(cfg.Priors)
		if err != nil {
			return nil, err
		}
		return WithPriors(priors, fn), nil
	}
	return fn, nil
}

// UnknownObjectiveError indicates an unknown objective name
type UnknownObjectiveError struct {
	Name string
}

func (e *UnknownObjectiveError) Error() string {
	return "unknown objective: " + e.Name
}
