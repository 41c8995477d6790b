package gp

import (
	"gonum.org/v1/gonum/mat"
)

// Kernel computes covariance values and matrices for sequences. Implementations
// hold an internal cache of pairwise evaluations; callers must serialize
// Train/Delete calls with prediction calls against the same instance.
//
// All covariance values consumed by the model must share the same scale:
// Calc(a, b, hypers, false) has to agree with the corresponding entry of
// MakeK for a training set containing a and b.
type Kernel interface {
	// Hypers returns the ordered list of hyperparameter names.
	Hypers() []string

	// SetX caches the unscaled covariance matrix for a training set.
	SetX(X *SequenceSet) error

	// MakeK returns the covariance matrix scaled by the given hyperparameters.
	// A nil X uses the base matrix cached by SetX.
	MakeK(X *SequenceSet, hypers []float64) (*mat.SymDense, error)

	// Calc returns the covariance between two sequences, identified either by
	// cached identifiers or raw representations. When normalize is true the
	// value is normalized to a unit diagonal.
	Calc(a, b string, hypers []float64, normalize bool) (float64, error)

	// Train adds sequences to the internal pairwise-evaluation cache.
	Train(seqs *SequenceSet) error

	// Delete removes sequences from the internal pairwise-evaluation cache.
	Delete(seqs *SequenceSet) error
}

// MeanFunction fits and evaluates a deterministic prior-mean baseline for
// regression models.
type MeanFunction interface {
	// Fit fits the baseline on the training set.
	Fit(X *SequenceSet, y *mat.VecDense) error

	// Mean returns per-sequence prior-mean values.
	Mean(X *SequenceSet) (*mat.VecDense, error)

	// Means returns the fit-time values for the training set.
	Means() *mat.VecDense
}

// ZeroMean is the default MeanFunction: a constant zero baseline.
type ZeroMean struct {
	means *mat.VecDense
}

// NewZeroMean creates a ZeroMean.
func NewZeroMean() *ZeroMean {
	return &ZeroMean{}
}

// Fit records a zero baseline for the training set.
func (z *ZeroMean) Fit(X *SequenceSet, _ *mat.VecDense) error {
	z.means = mat.NewVecDense(X.Len(), nil)
	return nil
}

// Mean returns zeros for every sequence.
func (z *ZeroMean) Mean(X *SequenceSet) (*mat.VecDense, error) {
	return mat.NewVecDense(X.Len(), nil), nil
}

// Means returns the fit-time (zero) values.
func (z *ZeroMean) Means() *mat.VecDense {
	return z.means
}
