package gp

import (
	"time"

	"github.com/YuminosukeSato/gpseq/core/model"
	"github.com/YuminosukeSato/gpseq/pkg/errors"
	"github.com/YuminosukeSato/gpseq/pkg/log"
	"github.com/YuminosukeSato/gpseq/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// hyperVarN is the name of the global noise hyperparameter, prepended to the
// kernel's hyperparameters for regression models without known measurement
// variances.
const hyperVarN = "var_n"

// Model is a Gaussian process model over protein sequences.
//
// A Model is a single mutable object exclusively owned by its caller; it is
// not safe for concurrent use without external synchronization. All derived
// covariance artifacts are a snapshot tied to the current hyperparameter
// vector and are rebuilt together whenever a hyperparameter vector is
// accepted.
type Model struct {
	model.BaseEstimator

	kern     Kernel
	meanFunc MeanFunction

	mode      Mode
	objective Objective
	guesses   []float64
	maxIter   int

	// Training data.
	xSeqs *SequenceSet
	// y holds the mean-subtracted residual for regression and the -1/+1
	// labels for classification.
	y         *mat.VecDense
	normedY   *mat.VecDense
	norm      *preprocessing.Normalizer
	variances []float64 // scaled by 1/std^2, aligned with xSeqs; nil if estimated
	ell       int

	hyperNames []string
	hypers     []float64

	// Covariance artifacts. L factors Ky for regression and
	// I + W_root*Ky*W_root for classification.
	covK  *mat.SymDense
	covKy *mat.SymDense
	cholL *mat.TriDense
	alpha *mat.VecDense

	// Laplace artifacts (classification only).
	fHat  *mat.VecDense
	wDiag []float64
	wRoot []float64
	grad  *mat.VecDense

	// Stored objective values at the fitted hyperparameters.
	ml   float64 // negative log marginal likelihood
	logP float64 // negative LOO log probability (regression)
}

// New creates a Model backed by the given kernel.
func New(kern Kernel, opts ...Option) (*Model, error) {
	if kern == nil {
		return nil, errors.NewValueError("gp.New", "kernel must not be nil")
	}
	m := &Model{
		kern:      kern,
		meanFunc:  NewZeroMean(),
		objective: LogML,
		maxIter:   1000,
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Mode returns the fitted model variant.
func (m *Model) Mode() Mode { return m.mode }

// Objective returns the configured training objective.
func (m *Model) Objective() Objective { return m.objective }

// HyperNames returns the ordered hyperparameter names. For regression models
// without known measurement variances the kernel's names are prefixed with
// the global noise term "var_n".
func (m *Model) HyperNames() []string {
	return append([]string(nil), m.hyperNames...)
}

// Hypers returns the fitted hyperparameter values.
func (m *Model) Hypers() []float64 {
	return append([]float64(nil), m.hypers...)
}

// MarginalLikelihood returns the negative log marginal likelihood at the
// fitted hyperparameters.
func (m *Model) MarginalLikelihood() float64 { return m.ml }

// LOOLogProbability returns the negative leave-one-out log probability at the
// fitted hyperparameters. It is only populated for regression models.
func (m *Model) LOOLogProbability() float64 { return m.logP }

// TrainingSet returns the training sequences.
func (m *Model) TrainingSet() *SequenceSet { return m.xSeqs }

// isClass reports whether every output is -1 or +1.
func isClass(y *mat.VecDense) bool {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 1 && v != -1 {
			return false
		}
	}
	return true
}

// Fit fits the model to the given data.
//
// The mode is selected from the outputs: classification iff every value in y
// is -1 or +1, regression otherwise. For regression models, per-sequence
// measurement variances can be given keyed by identifier; they must cover
// exactly the identifiers in X. When variances is nil a global noise term is
// estimated jointly with the kernel hyperparameters.
//
// The bounded search minimizes the negative of the configured objective; its
// result is accepted unconditionally and all derived artifacts are rebuilt
// from it.
func (m *Model) Fit(X *SequenceSet, y *mat.VecDense, variances map[string]float64) error {
	const op = "GPModel.Fit"
	start := time.Now()

	if X == nil || y == nil {
		return errors.NewValueError(op, "X and y must not be nil")
	}
	if X.Len() == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if y.Len() != X.Len() {
		return errors.NewDimensionError(op, X.Len(), y.Len(), 0)
	}

	m.xSeqs = X.Clone()
	m.ell = X.Len()
	if err := m.kern.SetX(m.xSeqs); err != nil {
		return errors.Wrap(err, "gpseq: caching training covariance")
	}

	var nGuesses int
	if isClass(y) {
		m.mode = ModeClassification
		if m.objective == LOOLogP {
			return errors.NewValidationError("objective",
				"classification models must be trained on marginal likelihood", m.objective.String())
		}
		if variances != nil {
			return errors.NewValidationError("variances",
				"measurement variances only apply to regression models", len(variances))
		}
		m.y = mat.VecDenseCopyOf(y)
		m.normedY = nil
		m.norm = nil
		m.variances = nil
		nGuesses = len(m.kern.Hypers())
	} else {
		m.mode = ModeRegression
		if err := m.meanFunc.Fit(X, y); err != nil {
			return errors.Wrap(err, "gpseq: fitting mean function")
		}
		means := m.meanFunc.Means()
		if means == nil || means.Len() != m.ell {
			return errors.NewDimensionError(op+" mean function", m.ell, vecLen(means), 0)
		}
		resid := mat.NewVecDense(m.ell, nil)
		resid.SubVec(y, means)
		m.y = resid

		m.norm = preprocessing.NewNormalizer()
		if err := m.norm.Fit(resid); err != nil {
			return err
		}
		normed, err := m.norm.Transform(resid)
		if err != nil {
			return err
		}
		m.normedY = normed

		if variances != nil {
			scaled, err := m.alignVariances(variances)
			if err != nil {
				return err
			}
			m.variances = scaled
			nGuesses = len(m.kern.Hypers())
		} else {
			m.variances = nil
			nGuesses = 1 + len(m.kern.Hypers())
		}
	}

	guesses := m.guesses
	if guesses == nil {
		guesses = make([]float64, nGuesses)
		for i := range guesses {
			guesses[i] = 0.9
		}
	} else if len(guesses) != nGuesses {
		return errors.NewValidationError("guesses",
			"length of guesses does not match number of hyperparameters", len(guesses))
	}

	if m.mode == ModeRegression && m.variances == nil {
		m.hyperNames = append([]string{hyperVarN}, m.kern.Hypers()...)
	} else {
		m.hyperNames = append([]string(nil), m.kern.Hypers()...)
	}

	optimum, err := m.optimizeHypers(guesses)
	if err != nil {
		return err
	}
	if err := m.setHypers(optimum); err != nil {
		return err
	}
	m.SetFitted()

	logger := log.GetLoggerWithName("gp.model")
	logger.Info("model fitted",
		log.ModelNameKey, "GP"+titleMode(m.mode),
		log.OperationKey, "fit",
		log.SamplesKey, m.ell,
		log.ObjectiveKey, m.objective.String(),
		log.HypersKey, m.Hypers(),
		log.MarginalLikelihoodKey, m.ml,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func titleMode(mode Mode) string {
	if mode == ModeClassification {
		return "Classification"
	}
	return "Regression"
}

func vecLen(v *mat.VecDense) int {
	if v == nil {
		return 0
	}
	return v.Len()
}

// alignVariances validates the variance map against the training identifiers
// and returns the values in training order, rescaled to the normalized scale.
func (m *Model) alignVariances(variances map[string]float64) ([]float64, error) {
	if len(variances) != m.ell {
		return nil, errors.NewValidationError("variances",
			"indices do not match the training outputs", len(variances))
	}
	scaled := make([]float64, m.ell)
	for i, id := range m.xSeqs.ids {
		v, ok := variances[id]
		if !ok {
			return nil, errors.NewValidationError("variances",
				"indices do not match the training outputs", id)
		}
		scaled[i] = m.norm.ScaleVariance(v)
	}
	return scaled, nil
}

// SetHypers installs an explicit hyperparameter vector and rebuilds all
// derived artifacts from it. The vector length must match HyperNames.
func (m *Model) SetHypers(values []float64) error {
	if m.xSeqs == nil {
		return errors.NewNotFittedError("GPModel", "SetHypers")
	}
	if len(values) != len(m.hyperNames) {
		return errors.NewDimensionError("GPModel.SetHypers", len(m.hyperNames), len(values), 1)
	}
	return m.setHypers(values)
}

// setHypers stores a hyperparameter vector and rebuilds the covariance
// artifacts for it. It is invoked for every vector accepted by the optimizer
// and once finally at the optimum.
func (m *Model) setHypers(hypers []float64) error {
	m.hypers = append([]float64(nil), hypers...)

	if m.mode == ModeRegression {
		covK, covKy, err := m.makeKs(hypers)
		if err != nil {
			return err
		}
		_, l, err := factorize("GPModel.setHypers", covKy)
		if err != nil {
			return err
		}
		alpha, err := cholSolveVec(l, m.normedY)
		if err != nil {
			return err
		}
		m.covK = covK
		m.covKy = covKy
		m.cholL = l
		m.alpha = alpha
		m.fHat = nil
		m.wDiag = nil
		m.wRoot = nil
		m.grad = nil

		ml, err := m.negLogMLRegression(hypers)
		if err != nil {
			return err
		}
		m.ml = ml
		logP, err := m.negLOOLogP(hypers)
		if err != nil {
			return err
		}
		m.logP = logP
		return nil
	}

	fHat, err := m.findMode(hypers, nil)
	if err != nil {
		return err
	}
	covK, err := m.kern.MakeK(nil, hypers)
	if err != nil {
		return errors.Wrap(err, "gpseq: building covariance")
	}
	w := bernoulliVariance(fHat)
	wRoot := sqrtDiag(w)
	b := laplaceSystem(covK, wRoot)
	_, l, err := factorize("GPModel.setHypers", b)
	if err != nil {
		return err
	}
	m.fHat = fHat
	m.wDiag = w
	m.wRoot = wRoot
	m.covK = covK
	m.covKy = covK
	m.cholL = l
	m.alpha = nil
	m.grad = gradLogLogisticLikelihood(m.y, fHat)

	ml, err := m.logq(fHat, hypers)
	if err != nil {
		return err
	}
	m.ml = ml
	m.logP = 0
	return nil
}

// makeKs builds the clean covariance matrix K and the noisy covariance matrix
// Ky for the given hyperparameter vector. With known measurement variances the
// vector holds exactly the kernel's hyperparameters and the supplied diagonal
// is added; otherwise the first entry is the global noise term.
func (m *Model) makeKs(hypers []float64) (*mat.SymDense, *mat.SymDense, error) {
	nKern := len(m.kern.Hypers())
	switch len(hypers) {
	case nKern:
		if m.variances == nil {
			return nil, nil, errors.NewValidationError("hypers", "no variances given", len(hypers))
		}
		covK, err := m.kern.MakeK(nil, hypers)
		if err != nil {
			return nil, nil, errors.Wrap(err, "gpseq: building covariance")
		}
		covKy := mat.NewSymDense(m.ell, nil)
		covKy.CopySym(covK)
		for i := 0; i < m.ell; i++ {
			covKy.SetSym(i, i, covKy.At(i, i)+m.variances[i])
		}
		return covK, covKy, nil
	case nKern + 1:
		covK, err := m.kern.MakeK(nil, hypers[1:])
		if err != nil {
			return nil, nil, errors.Wrap(err, "gpseq: building covariance")
		}
		covKy := mat.NewSymDense(m.ell, nil)
		covKy.CopySym(covK)
		for i := 0; i < m.ell; i++ {
			covKy.SetSym(i, i, covKy.At(i, i)+hypers[0])
		}
		return covK, covKy, nil
	default:
		return nil, nil, errors.NewDimensionError("GPModel.makeKs", nKern, len(hypers), 1)
	}
}

// kernelHypers returns the hyperparameters passed to the kernel, stripping the
// global noise term when it is present.
func (m *Model) kernelHypers() []float64 {
	if len(m.hyperNames) > 0 && m.hyperNames[0] == hyperVarN {
		return m.hypers[1:]
	}
	return m.hypers
}

// noiseVariance returns the fitted global noise term.
func (m *Model) noiseVariance() (float64, bool) {
	if len(m.hyperNames) > 0 && m.hyperNames[0] == hyperVarN {
		return m.hypers[0], true
	}
	return 0, false
}

// factorize computes the lower-triangular Cholesky factor of a. A matrix that
// is not positive definite is a fatal numerical error.
func factorize(op string, a *mat.SymDense) (*mat.Cholesky, *mat.TriDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, nil, errors.NewNumericalError(op, "covariance matrix is not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)
	return &chol, &l, nil
}

// triSolveVec solves the triangular system L x = b (or L^T x = b with trans)
// for a single right-hand side. Triangular solves in gonum run on matrices, so
// the vector is threaded through as a one-column system.
func triSolveVec(l *mat.TriDense, trans bool, b mat.Vector) (*mat.VecDense, error) {
	var sol mat.Dense
	if err := l.SolveTo(&sol, trans, b); err != nil {
		return nil, errors.NewNumericalError("triSolveVec", "triangular solve failed")
	}
	n := b.Len()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetVec(i, sol.At(i, 0))
	}
	return out, nil
}

// cholSolveVec solves (L L^T) x = b with two triangular solves.
func cholSolveVec(l *mat.TriDense, b *mat.VecDense) (*mat.VecDense, error) {
	tmp, err := triSolveVec(l, false, b)
	if err != nil {
		return nil, errors.NewNumericalError("cholSolveVec", "forward substitution failed")
	}
	out, err := triSolveVec(l, true, tmp)
	if err != nil {
		return nil, errors.NewNumericalError("cholSolveVec", "back substitution failed")
	}
	return out, nil
}
