package gp

import (
	"github.com/YuminosukeSato/gpseq/pkg/errors"
)

// Mode distinguishes the two structurally different model variants.
// Regression and classification use disjoint fitted state and math, so the
// mode is a tagged variant rather than a boolean threaded through every
// method.
type Mode int

const (
	// ModeRegression is Gaussian process regression on real-valued outputs.
	ModeRegression Mode = iota
	// ModeClassification is binary classification on -1/+1 outputs via a
	// Laplace approximation.
	ModeClassification
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeRegression:
		return "regression"
	case ModeClassification:
		return "classification"
	default:
		return "unknown"
	}
}

// Objective selects the training objective minimized (negated) during
// hyperparameter fitting.
type Objective int

const (
	// LogML is the negative log marginal likelihood, the default objective.
	LogML Objective = iota
	// LOOLogP is the negative leave-one-out log probability. Regression only:
	// no closed form exists for the Laplace approximation.
	LOOLogP
)

// String returns the objective name.
func (o Objective) String() string {
	switch o {
	case LogML:
		return "log_ML"
	case LOOLogP:
		return "LOO_log_p"
	default:
		return "unknown"
	}
}

// ParseObjective maps an objective name to its Objective value.
func ParseObjective(name string) (Objective, error) {
	switch name {
	case "log_ML":
		return LogML, nil
	case "LOO_log_p":
		return LOOLogP, nil
	default:
		return 0, errors.NewValidationError("objective", "not a valid objective", name)
	}
}

// Option is a function that configures a Model.
type Option func(*Model) error

// WithObjective sets the training objective.
func WithObjective(o Objective) Option {
	return func(m *Model) error {
		if o != LogML && o != LOOLogP {
			return errors.NewValidationError("objective", "not a valid objective", o)
		}
		m.objective = o
		return nil
	}
}

// WithObjectiveName sets the training objective by name
// ("log_ML" or "LOO_log_p").
func WithObjectiveName(name string) Option {
	return func(m *Model) error {
		o, err := ParseObjective(name)
		if err != nil {
			return err
		}
		m.objective = o
		return nil
	}
}

// WithGuesses sets the initial hyperparameter guesses used by the optimizer.
// The length is validated against the hyperparameter count at Fit time.
func WithGuesses(guesses []float64) Option {
	return func(m *Model) error {
		if len(guesses) == 0 {
			return errors.NewValueError("WithGuesses", "guesses must not be empty")
		}
		for _, g := range guesses {
			if g < hyperFloor {
				return errors.NewValidationError("guesses", "initial guesses must respect the hyperparameter lower bound", g)
			}
		}
		m.guesses = append([]float64(nil), guesses...)
		return nil
	}
}

// WithMeanFunction sets the prior-mean baseline for regression models.
// The default is ZeroMean.
func WithMeanFunction(mf MeanFunction) Option {
	return func(m *Model) error {
		if mf == nil {
			return errors.NewValueError("WithMeanFunction", "mean function must not be nil")
		}
		m.meanFunc = mf
		return nil
	}
}

// WithMaxIter sets the iteration cap for the Newton mode-finding routine.
// The default is 1000.
func WithMaxIter(n int) Option {
	return func(m *Model) error {
		if n <= 0 {
			return errors.NewValidationError("max_iter", "must be positive", n)
		}
		m.maxIter = n
		return nil
	}
}
