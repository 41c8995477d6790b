package gp

import (
	"github.com/YuminosukeSato/gpseq/metrics"
	"github.com/YuminosukeSato/gpseq/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Metric names accepted by ScoreMetrics for regression models.
const (
	MetricKendallTau = "kendalltau"
	MetricR2         = "R2"
	MetricR          = "R"
)

// Score evaluates the fitted model on held-out data and returns a single
// scalar: area under the ROC curve for classification, Kendall's tau
// otherwise.
func (m *Model) Score(X *SequenceSet, y *mat.VecDense) (float64, error) {
	if !m.IsFitted() {
		return 0, errors.NewNotFittedError("GPModel", "Score")
	}
	if X == nil || y == nil {
		return 0, errors.NewValueError("GPModel.Score", "X and y must not be nil")
	}
	if y.Len() != X.Len() {
		return 0, errors.NewDimensionError("GPModel.Score", X.Len(), y.Len(), 0)
	}

	if m.mode == ModeClassification {
		preds, err := m.PredictProba(X)
		if err != nil {
			return 0, err
		}
		probs := mat.NewVecDense(len(preds), nil)
		for i, p := range preds {
			probs.SetVec(i, p.Probability)
		}
		return metrics.AUC(y, probs)
	}

	res, err := m.ScoreMetrics(X, y, MetricKendallTau)
	if err != nil {
		return 0, err
	}
	return res[MetricKendallTau], nil
}

// ScoreMetrics evaluates a fitted regression model on held-out data under one
// or more named rank or fit metrics: "kendalltau", "R2" and "R". The result
// maps each requested name to its score against the predicted means.
func (m *Model) ScoreMetrics(X *SequenceSet, y *mat.VecDense, names ...string) (map[string]float64, error) {
	const op = "GPModel.ScoreMetrics"
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("GPModel", "ScoreMetrics")
	}
	if m.mode != ModeRegression {
		return nil, errors.NewValidationError("mode",
			"named metrics require a regression model", m.mode.String())
	}
	if X == nil || y == nil {
		return nil, errors.NewValueError(op, "X and y must not be nil")
	}
	if y.Len() != X.Len() {
		return nil, errors.NewDimensionError(op, X.Len(), y.Len(), 0)
	}
	if len(names) == 0 {
		names = []string{MetricKendallTau}
	}

	preds, err := m.Predict(X)
	if err != nil {
		return nil, err
	}
	means := mat.NewVecDense(len(preds), nil)
	for i, p := range preds {
		means.SetVec(i, p.Mean)
	}

	out := make(map[string]float64, len(names))
	for _, name := range names {
		var score float64
		var err error
		switch name {
		case MetricKendallTau:
			score, err = metrics.KendallTau(y, means)
		case MetricR2:
			score, err = metrics.R2Score(y, means)
		case MetricR:
			score, err = metrics.PearsonR(y, means)
		default:
			return nil, errors.NewValidationError("metric", "unknown metric name", name)
		}
		if err != nil {
			return nil, err
		}
		out[name] = score
	}
	return out, nil
}
