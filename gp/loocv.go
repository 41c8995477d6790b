package gp

import (
	"github.com/YuminosukeSato/gpseq/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LOOResult holds the leave-one-out predictive moments for every training
// sequence, in training order.
type LOOResult struct {
	Mean     *mat.VecDense
	Variance *mat.VecDense
}

// looMoments computes the closed-form leave-one-out predictive mean and
// variance on the normalized scale, for the given hyperparameter vector.
// Both fall out of a single inverse of the noisy covariance:
//
//	mu_i = y_i - (Ky^{-1} y)_i / (Ky^{-1})_ii
//	v_i  = 1 / (Ky^{-1})_ii
func (m *Model) looMoments(hypers []float64) (*mat.VecDense, *mat.VecDense, error) {
	_, covKy, err := m.makeKs(hypers)
	if err != nil {
		return nil, nil, err
	}
	chol, _, err := factorize("GPModel.looMoments", covKy)
	if err != nil {
		return nil, nil, err
	}
	var kinv mat.SymDense
	if err := chol.InverseTo(&kinv); err != nil {
		return nil, nil, errors.NewNumericalError("GPModel.looMoments", "covariance inverse failed")
	}
	ky := mat.NewVecDense(m.ell, nil)
	ky.MulVec(&kinv, m.normedY)

	mus := mat.NewVecDense(m.ell, nil)
	vs := mat.NewVecDense(m.ell, nil)
	for i := 0; i < m.ell; i++ {
		d := kinv.At(i, i)
		mus.SetVec(i, m.normedY.AtVec(i)-ky.AtVec(i)/d)
		vs.SetVec(i, 1/d)
	}
	return mus, vs, nil
}

// LOOResiduals returns the leave-one-out predictive moments for every
// training sequence at the fitted hyperparameters. With unnormalize the
// moments are returned on the original output scale; addMean additionally
// adds the fitted mean function back to the means. The mean function lives on
// the original scale, so addMean forces unnormalization. Only regression
// models support leave-one-out residuals.
func (m *Model) LOOResiduals(addMean, unnormalize bool) (*LOOResult, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("GPModel", "LOOResiduals")
	}
	if m.mode != ModeRegression {
		return nil, errors.NewValidationError("mode",
			"leave-one-out residuals require a regression model", m.mode.String())
	}
	mus, vs, err := m.looMoments(m.hypers)
	if err != nil {
		return nil, err
	}
	if unnormalize || addMean {
		for i := 0; i < m.ell; i++ {
			mus.SetVec(i, m.norm.InverseValue(mus.AtVec(i)))
			vs.SetVec(i, m.norm.UnscaleVariance(vs.AtVec(i)))
		}
	}
	if addMean {
		means := m.meanFunc.Means()
		if means == nil || means.Len() != m.ell {
			return nil, errors.NewDimensionError("GPModel.LOOResiduals", m.ell, vecLen(means), 0)
		}
		mus.AddVec(mus, means)
	}
	return &LOOResult{Mean: mus, Variance: vs}, nil
}
