package gp

import (
	"testing"

	"github.com/YuminosukeSato/gpseq/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// dotKernel is a linear covariance over []float64 payloads with a single
// scale hyperparameter. It mirrors the caching contract real sequence kernels
// implement: SetX fixes the training set, Train/Delete manage a lookup cache
// used by Calc.
type dotKernel struct {
	train *SequenceSet
	cache map[string][]float64
}

func newDotKernel() *dotKernel {
	return &dotKernel{cache: make(map[string][]float64)}
}

func (k *dotKernel) Hypers() []string { return []string{"var_p"} }

func (k *dotKernel) SetX(X *SequenceSet) error {
	k.train = X
	return k.Train(X)
}

func (k *dotKernel) Train(X *SequenceSet) error {
	for _, id := range X.IDs() {
		seq, _ := X.Get(id)
		vec, ok := seq.([]float64)
		if !ok {
			return errors.NewValueError("dotKernel.Train", "payload must be []float64")
		}
		k.cache[id] = vec
	}
	return nil
}

func (k *dotKernel) Delete(X *SequenceSet) error {
	for _, id := range X.IDs() {
		delete(k.cache, id)
	}
	return nil
}

func (k *dotKernel) MakeK(X *SequenceSet, hypers []float64) (*mat.SymDense, error) {
	if X == nil {
		X = k.train
	}
	if X == nil {
		return nil, errors.NewValueError("dotKernel.MakeK", "no cached training set")
	}
	n := X.Len()
	out := mat.NewSymDense(n, nil)
	ids := X.IDs()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v, err := k.Calc(ids[i], ids[j], hypers, false)
			if err != nil {
				return nil, err
			}
			out.SetSym(i, j, v)
		}
	}
	return out, nil
}

func (k *dotKernel) Calc(a, b string, hypers []float64, _ bool) (float64, error) {
	va, ok := k.cache[a]
	if !ok {
		return 0, errors.NewValueError("dotKernel.Calc", "unknown identifier "+a)
	}
	vb, ok := k.cache[b]
	if !ok {
		return 0, errors.NewValueError("dotKernel.Calc", "unknown identifier "+b)
	}
	var s float64
	for i := range va {
		s += va[i] * vb[i]
	}
	return hypers[0] * s, nil
}

// cached reports whether an identifier is currently resolvable.
func (k *dotKernel) cached(id string) bool {
	_, ok := k.cache[id]
	return ok
}

func seqSet(t *testing.T, ids []string, vecs [][]float64) *SequenceSet {
	t.Helper()
	s := NewSequenceSet()
	for i, id := range ids {
		if err := s.Add(id, vecs[i]); err != nil {
			t.Fatalf("Add(%q) error: %v", id, err)
		}
	}
	return s
}

// regressionFixture returns a small well-conditioned regression problem.
func regressionFixture(t *testing.T) (*dotKernel, *SequenceSet, *mat.VecDense) {
	t.Helper()
	kern := newDotKernel()
	X := seqSet(t,
		[]string{"A", "B", "C", "D", "E"},
		[][]float64{
			{1, 0, 0, 0, 0},
			{0, 1, 0, 0, 0},
			{0, 0, 1, 0, 0},
			{0.3, 0.3, 0, 1, 0},
			{0, 0.3, 0.3, 0, 1},
		})
	y := mat.NewVecDense(5, []float64{0.3, 1.1, -0.4, 1.5, 0.9})
	return kern, X, y
}

// classificationFixture returns a linearly separable labelling.
func classificationFixture(t *testing.T) (*dotKernel, *SequenceSet, *mat.VecDense) {
	t.Helper()
	kern := newDotKernel()
	X := seqSet(t,
		[]string{"p1", "p2", "p3", "n1", "n2", "n3"},
		[][]float64{
			{2, 0.5},
			{1.5, 1},
			{2.5, 0.8},
			{-2, -0.5},
			{-1.5, -1},
			{-2.5, -0.8},
		})
	y := mat.NewVecDense(6, []float64{1, 1, 1, -1, -1, -1})
	return kern, X, y
}
