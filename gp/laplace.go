package gp

import (
	"math"

	"github.com/YuminosukeSato/gpseq/pkg/errors"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Relative-change threshold for declaring a Newton step converged, and the
// number of consecutive passing steps required before stopping.
const (
	modeFindTolerance = 1e-4
	modeFindStableFor = 10
)

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// logLogisticLikelihood is the sum over samples of log p(y_i | f_i) for the
// logistic link with labels in {-1, +1}.
func logLogisticLikelihood(y, f *mat.VecDense) float64 {
	var s float64
	for i := 0; i < y.Len(); i++ {
		s += math.Log(sigmoid(y.AtVec(i) * f.AtVec(i)))
	}
	return s
}

// gradLogLogisticLikelihood is the gradient of the log likelihood with
// respect to the latent values: (y+1)/2 - sigmoid(f).
func gradLogLogisticLikelihood(y, f *mat.VecDense) *mat.VecDense {
	g := mat.NewVecDense(y.Len(), nil)
	for i := 0; i < y.Len(); i++ {
		g.SetVec(i, (y.AtVec(i)+1)/2-sigmoid(f.AtVec(i)))
	}
	return g
}

// bernoulliVariance is the diagonal of the negative Hessian of the log
// likelihood: pi*(1-pi) per sample.
func bernoulliVariance(f *mat.VecDense) []float64 {
	w := make([]float64, f.Len())
	for i := range w {
		p := sigmoid(f.AtVec(i))
		w[i] = p * (1 - p)
	}
	return w
}

func sqrtDiag(w []float64) []float64 {
	r := make([]float64, len(w))
	for i, v := range w {
		r[i] = math.Sqrt(v)
	}
	return r
}

// laplaceSystem builds B = I + W_root * K * W_root, the well-conditioned
// matrix factored in place of K during classification.
func laplaceSystem(covK *mat.SymDense, wRoot []float64) *mat.SymDense {
	n := len(wRoot)
	b := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := wRoot[i] * covK.At(i, j) * wRoot[j]
			if i == j {
				v++
			}
			b.SetSym(i, j, v)
		}
	}
	return b
}

// laplaceStep performs one Newton update of the latent values. It returns the
// dual vector a with f_new = K a, along with the Cholesky factor of the
// Laplace system at f.
func laplaceStep(covK *mat.SymDense, y, f *mat.VecDense) (*mat.VecDense, *mat.TriDense, error) {
	n := y.Len()
	w := bernoulliVariance(f)
	wRoot := sqrtDiag(w)
	grad := gradLogLogisticLikelihood(y, f)

	_, l, err := factorize("laplaceStep", laplaceSystem(covK, wRoot))
	if err != nil {
		return nil, nil, err
	}

	// b = W f + grad
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, w[i]*f.AtVec(i)+grad.AtVec(i))
	}

	// a = b - W_root B^{-1} W_root K b
	kb := mat.NewVecDense(n, nil)
	kb.MulVec(covK, b)
	for i := 0; i < n; i++ {
		kb.SetVec(i, wRoot[i]*kb.AtVec(i))
	}
	sol, err := cholSolveVec(l, kb)
	if err != nil {
		return nil, nil, err
	}
	a := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		a.SetVec(i, b.AtVec(i)-wRoot[i]*sol.AtVec(i))
	}
	return a, l, nil
}

// findMode locates the posterior mode of the latent values by iterated Newton
// steps. The iteration stops once the relative change of the latent vector
// stays below tolerance for several consecutive steps; hitting the iteration
// cap without that is a fatal convergence error.
//
// guess optionally seeds the latent values and must then match the training
// size; nil starts from zero.
func (m *Model) findMode(hypers []float64, guess *mat.VecDense) (*mat.VecDense, error) {
	covK, err := m.kern.MakeK(nil, hypers)
	if err != nil {
		return nil, errors.Wrap(err, "gpseq: building covariance")
	}

	f := mat.NewVecDense(m.ell, nil)
	if guess != nil {
		if guess.Len() != m.ell {
			return nil, errors.NewDimensionError("GPModel.findMode", m.ell, guess.Len(), 0)
		}
		f.CopyVec(guess)
	}

	nBelow := 0
	for iter := 0; iter < m.maxIter; iter++ {
		a, _, err := laplaceStep(covK, m.y, f)
		if err != nil {
			return nil, err
		}
		fNew := mat.NewVecDense(m.ell, nil)
		fNew.MulVec(covK, a)

		// Relative step size ||f - f_new||^2 / ||f_new||^2. The squared
		// denominator keeps the ratio well defined when the latent values
		// sum to zero or are predominantly negative.
		var num, den float64
		for i := 0; i < m.ell; i++ {
			d := f.AtVec(i) - fNew.AtVec(i)
			num += d * d
			den += fNew.AtVec(i) * fNew.AtVec(i)
		}
		f = fNew
		if num/den < modeFindTolerance {
			nBelow++
		} else {
			nBelow = 0
		}
		if nBelow >= modeFindStableFor {
			return f, nil
		}
	}
	return nil, errors.NewConvergenceError("newton mode finding", m.maxIter)
}

// logq is the negative Laplace-approximated log marginal likelihood at the
// latent mode fHat.
func (m *Model) logq(fHat *mat.VecDense, hypers []float64) (float64, error) {
	covK, err := m.kern.MakeK(nil, hypers)
	if err != nil {
		return 0, errors.Wrap(err, "gpseq: building covariance")
	}
	a, l, err := laplaceStep(covK, m.y, fHat)
	if err != nil {
		return 0, err
	}
	return 0.5*mat.Dot(a, fHat) - logLogisticLikelihood(m.y, fHat) + logDetFromChol(l), nil
}

// classProbability integrates the logistic link against the latent Gaussian
// predictive distribution with fixed-order Legendre quadrature. The window
// spans ten predictive variances either side of the latent mean.
func classProbability(fBar, variance float64) float64 {
	if variance <= 0 {
		return sigmoid(fBar)
	}
	span := 10 * variance
	dist := distuv.Normal{Mu: fBar, Sigma: math.Sqrt(variance)}
	integrand := func(z float64) float64 {
		return sigmoid(z) * dist.Prob(z)
	}
	return quad.Fixed(integrand, fBar-span, fBar+span, 100, nil, 0)
}
