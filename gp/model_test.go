package gp

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/gpseq/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) expected error, got nil")
	}
	if _, err := New(newDotKernel(), WithObjectiveName("no_such_objective")); err == nil {
		t.Error("New with unknown objective expected error, got nil")
	}
	if _, err := New(newDotKernel(), WithGuesses([]float64{0.5, 0})); err == nil {
		t.Error("New with guess below the lower bound expected error, got nil")
	}
	if _, err := New(newDotKernel(), WithMaxIter(0)); err == nil {
		t.Error("New with non-positive max iterations expected error, got nil")
	}
}

func TestFitRegression(t *testing.T) {
	kern, X, y := regressionFixture(t)
	m, err := New(kern)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := m.Fit(X, y, nil); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	if !m.IsFitted() {
		t.Error("IsFitted() = false after Fit")
	}
	if got := m.Mode(); got != ModeRegression {
		t.Errorf("Mode() = %v, want %v", got, ModeRegression)
	}
	names := m.HyperNames()
	if len(names) != 2 || names[0] != "var_n" || names[1] != "var_p" {
		t.Errorf("HyperNames() = %v, want [var_n var_p]", names)
	}
	for i, h := range m.Hypers() {
		if h <= hyperFloor {
			t.Errorf("Hypers()[%d] = %v, want above %v", i, h, hyperFloor)
		}
	}
	if ml := m.MarginalLikelihood(); math.IsNaN(ml) || math.IsInf(ml, 0) {
		t.Errorf("MarginalLikelihood() = %v, want finite", ml)
	}
	if lp := m.LOOLogProbability(); math.IsNaN(lp) || math.IsInf(lp, 0) {
		t.Errorf("LOOLogProbability() = %v, want finite", lp)
	}

	// The posterior coefficients must solve Ky alpha = y_normed.
	check := mat.NewVecDense(m.ell, nil)
	check.MulVec(m.covKy, m.alpha)
	for i := 0; i < m.ell; i++ {
		if diff := math.Abs(check.AtVec(i) - m.normedY.AtVec(i)); diff > 1e-8 {
			t.Errorf("Ky alpha mismatch at %d: |diff| = %v", i, diff)
		}
	}
}

func TestFitWithSuppliedVariances(t *testing.T) {
	kern, X, y := regressionFixture(t)
	m, err := New(kern)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	variances := map[string]float64{"A": 0.01, "B": 0.02, "C": 0.01, "D": 0.03, "E": 0.02}
	if err := m.Fit(X, y, variances); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	names := m.HyperNames()
	if len(names) != 1 || names[0] != "var_p" {
		t.Errorf("HyperNames() = %v, want [var_p]", names)
	}
	if _, ok := m.noiseVariance(); ok {
		t.Error("noiseVariance() reported a global noise term with supplied variances")
	}
}

func TestFitVarianceAlignment(t *testing.T) {
	kern, X, y := regressionFixture(t)
	m, _ := New(kern)

	short := map[string]float64{"A": 0.01}
	if err := m.Fit(X, y, short); err == nil {
		t.Error("Fit with missing variance entries expected error, got nil")
	}

	wrongIDs := map[string]float64{"A": 0.01, "B": 0.02, "C": 0.01, "D": 0.03, "Z": 0.02}
	if err := m.Fit(X, y, wrongIDs); err == nil {
		t.Error("Fit with mismatched variance identifiers expected error, got nil")
	}
}

func TestFitInputValidation(t *testing.T) {
	kern, X, y := regressionFixture(t)
	m, _ := New(kern)

	if err := m.Fit(nil, y, nil); err == nil {
		t.Error("Fit(nil, y) expected error, got nil")
	}
	if err := m.Fit(NewSequenceSet(), mat.NewVecDense(1, []float64{1}), nil); err == nil {
		t.Error("Fit on empty set expected error, got nil")
	}
	if err := m.Fit(X, mat.NewVecDense(3, []float64{1, 2, 3}), nil); err == nil {
		t.Error("Fit with mismatched lengths expected error, got nil")
	}
}

func TestFitGuessLengthValidation(t *testing.T) {
	kern, X, y := regressionFixture(t)
	// Regression without variances needs two guesses (noise + kernel).
	m, err := New(kern, WithGuesses([]float64{0.9, 0.9, 0.9}))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := m.Fit(X, y, nil); err == nil {
		t.Error("Fit with wrong guess count expected error, got nil")
	}
}

func TestClassificationRejectsLOOObjective(t *testing.T) {
	kern, X, y := classificationFixture(t)
	m, err := New(kern, WithObjective(LOOLogP))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := m.Fit(X, y, nil); err == nil {
		t.Error("classification Fit under the leave-one-out objective expected error, got nil")
	}
}

func TestClassificationRejectsVariances(t *testing.T) {
	kern, X, y := classificationFixture(t)
	m, _ := New(kern)
	if err := m.Fit(X, y, map[string]float64{"p1": 0.1}); err == nil {
		t.Error("classification Fit with variances expected error, got nil")
	}
}

func TestModeDetection(t *testing.T) {
	tests := []struct {
		name string
		y    []float64
		want bool
	}{
		{"all labels", []float64{1, -1, 1}, true},
		{"continuous", []float64{0.5, 1.0, -1.0}, false},
		{"zero present", []float64{1, 0, -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isClass(mat.NewVecDense(len(tt.y), tt.y)); got != tt.want {
				t.Errorf("isClass(%v) = %v, want %v", tt.y, got, tt.want)
			}
		})
	}
}

func TestSetHypersRebuildsArtifacts(t *testing.T) {
	kern, X, y := regressionFixture(t)
	m, _ := New(kern)
	if err := m.Fit(X, y, nil); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	fitted := m.Hypers()
	fittedML := m.MarginalLikelihood()

	if err := m.SetHypers([]float64{0.5, 0.5}); err != nil {
		t.Fatalf("SetHypers() error: %v", err)
	}
	if m.MarginalLikelihood() == fittedML {
		t.Error("MarginalLikelihood unchanged after SetHypers with different values")
	}

	if err := m.SetHypers(fitted); err != nil {
		t.Fatalf("SetHypers() error: %v", err)
	}
	if got := m.MarginalLikelihood(); math.Abs(got-fittedML) > 1e-10 {
		t.Errorf("MarginalLikelihood() = %v after restoring hypers, want %v", got, fittedML)
	}

	if err := m.SetHypers([]float64{0.5}); err == nil {
		t.Error("SetHypers with wrong length expected error, got nil")
	}
}

func TestSetHypersRequiresFit(t *testing.T) {
	m, _ := New(newDotKernel())
	err := m.SetHypers([]float64{0.5})
	if err == nil {
		t.Fatal("SetHypers before Fit expected error, got nil")
	}
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("SetHypers before Fit: error %v is not a NotFittedError", err)
	}
}

func TestPredictAtTrainingPoints(t *testing.T) {
	kern, X, y := regressionFixture(t)
	m, _ := New(kern)
	if err := m.Fit(X, y, nil); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	// Pin a near-zero noise term so the posterior interpolates the
	// measurements regardless of where the search landed.
	if err := m.SetHypers([]float64{1e-6 + hyperFloor, 1.0}); err != nil {
		t.Fatalf("SetHypers() error: %v", err)
	}
	preds, err := m.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}
	if len(preds) != X.Len() {
		t.Fatalf("Predict() returned %d results, want %d", len(preds), X.Len())
	}
	for i, p := range preds {
		if p.Variance < -1e-9 {
			t.Errorf("Predict()[%d].Variance = %v, want non-negative", i, p.Variance)
		}
		if diff := math.Abs(p.Mean - y.AtVec(i)); diff > 1e-3 {
			t.Errorf("Predict()[%d].Mean = %v, want near %v", i, p.Mean, y.AtVec(i))
		}
	}
}

func TestPredictRequiresFit(t *testing.T) {
	m, _ := New(newDotKernel())
	if _, err := m.Predict(NewSequenceSet()); err == nil {
		t.Error("Predict before Fit expected error, got nil")
	}
}

func TestPredictModeMismatch(t *testing.T) {
	kern, X, y := classificationFixture(t)
	m, _ := New(kern)
	if err := m.Fit(X, y, nil); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	if _, err := m.Predict(X); err == nil {
		t.Error("Predict on a classification model expected error, got nil")
	}

	rkern, rX, ry := regressionFixture(t)
	rm, _ := New(rkern)
	if err := rm.Fit(rX, ry, nil); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	if _, err := rm.PredictProba(rX); err == nil {
		t.Error("PredictProba on a regression model expected error, got nil")
	}
}

func TestPredictCacheEviction(t *testing.T) {
	kern, X, y := regressionFixture(t)
	m, _ := New(kern)
	if err := m.Fit(X, y, nil); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}

	queries := seqSet(t, []string{"Q1", "A"}, [][]float64{{0.5, 0.5, 0}, {1, 0, 0}})
	if _, err := m.Predict(queries); err != nil {
		t.Fatalf("Predict() error: %v", err)
	}
	if kern.cached("Q1") {
		t.Error("query Q1 still cached after Predict")
	}
	if !kern.cached("A") {
		t.Error("training sequence A evicted by Predict")
	}

	if _, err := m.Predict(queries, WithRetainCache(true)); err != nil {
		t.Fatalf("Predict() error: %v", err)
	}
	if !kern.cached("Q1") {
		t.Error("query Q1 evicted despite WithRetainCache")
	}
}

// TestPredictHandComputedExample pins the hyperparameters on a three-sequence
// problem whose posterior can be worked out by hand.
//
// Payloads e1, e2, e1+e2 with a unit-scale dot kernel give
//
//	K  = [[1 0 1] [0 1 1] [1 1 2]],  Ky = K + 0.5 I
//
// and outputs {1, 2, 3} normalize to {-1, 0, 1} (mean 2, sample std 1).
// Solving Ky alpha = y_normed gives alpha = (-34/21, -20/21, 10/7). For the
// query (1, 0.5): k = (1, 0.5, 1.5), k* = 1.25, posterior mean
// 2 + 1/21 and variance 1.25 - 22/21 = 4.25/21.
func TestPredictHandComputedExample(t *testing.T) {
	kern := newDotKernel()
	X := seqSet(t,
		[]string{"s1", "s2", "s3"},
		[][]float64{
			{1, 0},
			{0, 1},
			{1, 1},
		})
	y := mat.NewVecDense(3, []float64{1, 2, 3})

	m, _ := New(kern)
	if err := m.Fit(X, y, nil); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	if err := m.SetHypers([]float64{0.5, 1.0}); err != nil {
		t.Fatalf("SetHypers() error: %v", err)
	}

	wantAlpha := []float64{-34.0 / 21.0, -20.0 / 21.0, 10.0 / 7.0}
	for i, want := range wantAlpha {
		if diff := math.Abs(m.alpha.AtVec(i) - want); diff > 1e-12 {
			t.Errorf("alpha[%d] = %v, want %v", i, m.alpha.AtVec(i), want)
		}
	}

	q := seqSet(t, []string{"q"}, [][]float64{{1, 0.5}})
	preds, err := m.Predict(q)
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}
	wantMean := 2.0 + 1.0/21.0
	wantVar := 4.25 / 21.0
	if diff := math.Abs(preds[0].Mean - wantMean); diff > 1e-12 {
		t.Errorf("Predict mean = %v, want %v", preds[0].Mean, wantMean)
	}
	if diff := math.Abs(preds[0].Variance - wantVar); diff > 1e-12 {
		t.Errorf("Predict variance = %v, want %v", preds[0].Variance, wantVar)
	}
}

func TestFitRefitReplacesState(t *testing.T) {
	kern, X, y := regressionFixture(t)
	m, _ := New(kern)
	if err := m.Fit(X, y, nil); err != nil {
		t.Fatalf("first Fit() error: %v", err)
	}

	ckern, cX, cy := classificationFixture(t)
	cm, _ := New(ckern)
	if err := cm.Fit(cX, cy, nil); err != nil {
		t.Fatalf("classification Fit() error: %v", err)
	}
	if cm.Mode() != ModeClassification {
		t.Errorf("Mode() = %v, want %v", cm.Mode(), ModeClassification)
	}

	// Refit the regression model on the classification data with the same
	// kernel kind switches mode.
	m2, _ := New(newDotKernel())
	if err := m2.Fit(cX, cy, nil); err != nil {
		t.Fatalf("refit error: %v", err)
	}
	if m2.Mode() != ModeClassification {
		t.Errorf("Mode() after refit = %v, want %v", m2.Mode(), ModeClassification)
	}
}
