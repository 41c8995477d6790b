package gp

import (
	"time"

	"github.com/YuminosukeSato/gpseq/pkg/errors"
	"github.com/YuminosukeSato/gpseq/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Prediction is the posterior predictive distribution at a query sequence in
// regression mode, on the original output scale.
type Prediction struct {
	Mean     float64
	Variance float64
}

// ClassPrediction is the predictive distribution at a query sequence in
// classification mode. Probability is the probability of the +1 class; the
// latent moments describe the Gaussian over the latent function value.
type ClassPrediction struct {
	Probability    float64
	LatentMean     float64
	LatentVariance float64
}

// PredictOption adjusts a single prediction call.
type PredictOption func(*predictConfig)

type predictConfig struct {
	retainCache bool
}

// WithRetainCache keeps the query sequences in the kernel cache after the
// call, which speeds up repeated prediction over the same queries.
func WithRetainCache(retain bool) PredictOption {
	return func(c *predictConfig) { c.retainCache = retain }
}

// Predict returns the posterior predictive mean and variance for each query
// sequence, in the order of X. The model must be a fitted regression model.
func (m *Model) Predict(X *SequenceSet, opts ...PredictOption) ([]Prediction, error) {
	const op = "GPModel.Predict"
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("GPModel", "Predict")
	}
	if m.mode != ModeRegression {
		return nil, errors.NewValidationError("mode",
			"Predict requires a regression model; use PredictProba", m.mode.String())
	}
	start := time.Now()

	cleanup, err := m.enterQueries(X, opts)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	queryMeans, err := m.meanFunc.Mean(X)
	if err != nil {
		return nil, errors.Wrap(err, "gpseq: evaluating mean function")
	}
	if queryMeans.Len() != X.Len() {
		return nil, errors.NewDimensionError(op+" mean function", X.Len(), queryMeans.Len(), 0)
	}

	kh := m.kernelHypers()
	out := make([]Prediction, 0, X.Len())
	for qi, id := range X.ids {
		k, kStar, err := m.crossCovariance(id, kh)
		if err != nil {
			return nil, err
		}
		mean := mat.Dot(k, m.alpha)
		v, err := triSolveVec(m.cholL, false, k)
		if err != nil {
			return nil, err
		}
		variance := kStar - mat.Dot(v, v)

		out = append(out, Prediction{
			Mean:     m.norm.InverseValue(mean) + queryMeans.AtVec(qi),
			Variance: m.norm.UnscaleVariance(variance),
		})
	}

	log.GetLoggerWithName("gp.model").Debug("predicted",
		log.OperationKey, "predict",
		log.QueriesKey, X.Len(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return out, nil
}

// PredictProba returns the probability of the +1 class for each query
// sequence, in the order of X. The model must be a fitted classification
// model.
func (m *Model) PredictProba(X *SequenceSet, opts ...PredictOption) ([]ClassPrediction, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("GPModel", "PredictProba")
	}
	if m.mode != ModeClassification {
		return nil, errors.NewValidationError("mode",
			"PredictProba requires a classification model; use Predict", m.mode.String())
	}
	start := time.Now()

	cleanup, err := m.enterQueries(X, opts)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	out := make([]ClassPrediction, 0, X.Len())
	for _, id := range X.ids {
		k, kStar, err := m.crossCovariance(id, m.hypers)
		if err != nil {
			return nil, err
		}
		fBar := mat.Dot(k, m.grad)

		wk := mat.NewVecDense(m.ell, nil)
		for i := 0; i < m.ell; i++ {
			wk.SetVec(i, m.wRoot[i]*k.AtVec(i))
		}
		v, err := triSolveVec(m.cholL, false, wk)
		if err != nil {
			return nil, err
		}
		variance := kStar - mat.Dot(v, v)

		out = append(out, ClassPrediction{
			Probability:    classProbability(fBar, variance),
			LatentMean:     fBar,
			LatentVariance: variance,
		})
	}

	log.GetLoggerWithName("gp.model").Debug("predicted",
		log.OperationKey, "predict_proba",
		log.QueriesKey, X.Len(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return out, nil
}

// enterQueries caches the query sequences in the kernel and returns a cleanup
// that evicts the ones not part of the training set, unless the call opted
// into retaining them.
func (m *Model) enterQueries(X *SequenceSet, opts []PredictOption) (func(), error) {
	if X == nil || X.Len() == 0 {
		return nil, errors.NewModelError("GPModel.enterQueries", "empty query set", errors.ErrEmptyData)
	}
	var cfg predictConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := m.kern.Train(X); err != nil {
		return nil, errors.Wrap(err, "gpseq: caching query sequences")
	}
	if cfg.retainCache {
		return func() {}, nil
	}
	evict := NewSequenceSet()
	for _, id := range X.ids {
		if !m.xSeqs.Has(id) {
			seq, _ := X.Get(id)
			_ = evict.Add(id, seq)
		}
	}
	return func() {
		if evict.Len() > 0 {
			_ = m.kern.Delete(evict)
		}
	}, nil
}

// crossCovariance computes the covariance vector between a query and every
// training sequence along with the query's self covariance. Inputs are
// assumed to share the training scale, so no per-pair normalization is
// applied.
func (m *Model) crossCovariance(id string, hypers []float64) (*mat.VecDense, float64, error) {
	k := mat.NewVecDense(m.ell, nil)
	for i, tid := range m.xSeqs.ids {
		v, err := m.kern.Calc(id, tid, hypers, false)
		if err != nil {
			return nil, 0, errors.Wrap(err, "gpseq: evaluating cross covariance")
		}
		k.SetVec(i, v)
	}
	kStar, err := m.kern.Calc(id, id, hypers, false)
	if err != nil {
		return nil, 0, errors.Wrap(err, "gpseq: evaluating self covariance")
	}
	return k, kStar, nil
}
