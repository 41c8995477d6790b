package gp

import (
	"math"

	"github.com/YuminosukeSato/gpseq/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// hyperFloor is the exclusive lower bound on every hyperparameter. The search
// runs in an unconstrained space u with hyper = hyperFloor + exp(u), which
// keeps every candidate strictly above the floor.
const hyperFloor = 1e-5

// objectiveFunc evaluates the negative of the training objective for a
// hyperparameter vector.
type objectiveFunc func(hypers []float64) (float64, error)

// objectiveFor returns the function minimized during fitting.
func (m *Model) objectiveFor() objectiveFunc {
	if m.mode == ModeClassification {
		return m.negLogMLClassification
	}
	if m.objective == LOOLogP {
		return m.negLOOLogP
	}
	return m.negLogMLRegression
}

// optimizeHypers runs the bounded quasi-Newton search from the given initial
// guesses and returns the hyperparameter vector at the located minimum.
//
// The search result is accepted unconditionally: failure to formally converge
// raises a warning, not an error. Errors from the objective itself (such as a
// covariance matrix that is not positive definite, or mode finding hitting its
// iteration cap) abort the search and are returned.
func (m *Model) optimizeHypers(guesses []float64) ([]float64, error) {
	obj := m.objectiveFor()

	u0 := make([]float64, len(guesses))
	for i, g := range guesses {
		u0[i] = math.Log(g - hyperFloor)
	}

	var evalErr error
	fn := func(u []float64) float64 {
		if evalErr != nil {
			return math.NaN()
		}
		hypers := make([]float64, len(u))
		for i, ui := range u {
			hypers[i] = hyperFloor + math.Exp(ui)
		}
		v, err := obj(hypers)
		if err != nil {
			evalErr = err
			return math.NaN()
		}
		return v
	}

	problem := optimize.Problem{
		Func: fn,
		Grad: func(grad, u []float64) {
			fd.Gradient(grad, fn, u, nil)
		},
	}

	result, err := optimize.Minimize(problem, u0, nil, &optimize.LBFGS{})
	if evalErr != nil {
		return nil, evalErr
	}
	if err != nil {
		if result == nil {
			return nil, errors.Wrap(err, "gpseq: hyperparameter search failed")
		}
		errors.Warn(errors.NewConvergenceWarning("L-BFGS", result.Stats.MajorIterations, err.Error()))
	}

	optimum := make([]float64, len(result.X))
	for i, ui := range result.X {
		optimum[i] = hyperFloor + math.Exp(ui)
	}
	if err := errors.CheckValues("hyperparameter search", optimum); err != nil {
		return nil, err
	}
	return optimum, nil
}

// negLogMLRegression is the negative log marginal likelihood of the normalized
// residuals under the noisy covariance for the given hyperparameters.
func (m *Model) negLogMLRegression(hypers []float64) (float64, error) {
	_, covKy, err := m.makeKs(hypers)
	if err != nil {
		return 0, err
	}
	_, l, err := factorize("GPModel.negLogMLRegression", covKy)
	if err != nil {
		return 0, err
	}
	alpha, err := cholSolveVec(l, m.normedY)
	if err != nil {
		return 0, err
	}
	n := float64(m.ell)
	ml := 0.5*mat.Dot(m.normedY, alpha) + logDetFromChol(l) + 0.5*n*math.Log(2*math.Pi)
	return ml, nil
}

// negLOOLogP is the negative leave-one-out log predictive probability of the
// normalized residuals, computed in closed form from the inverse of the noisy
// covariance.
func (m *Model) negLOOLogP(hypers []float64) (float64, error) {
	mus, vs, err := m.looMoments(hypers)
	if err != nil {
		return 0, err
	}
	var logP float64
	for i := 0; i < m.ell; i++ {
		dist := distuv.Normal{Mu: mus.AtVec(i), Sigma: math.Sqrt(vs.AtVec(i))}
		logP += dist.LogProb(m.normedY.AtVec(i))
	}
	return -logP, nil
}

// negLogMLClassification is the negative Laplace-approximated log marginal
// likelihood. Each evaluation locates the posterior mode for the candidate
// hyperparameters.
func (m *Model) negLogMLClassification(hypers []float64) (float64, error) {
	fHat, err := m.findMode(hypers, nil)
	if err != nil {
		return 0, err
	}
	return m.logq(fHat, hypers)
}

// logDetFromChol returns half the log determinant of the factored matrix,
// that is the sum of the logs of the diagonal of L.
func logDetFromChol(l *mat.TriDense) float64 {
	n, _ := l.Dims()
	var s float64
	for i := 0; i < n; i++ {
		s += math.Log(l.At(i, i))
	}
	return s
}
