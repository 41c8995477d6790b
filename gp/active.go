package gp

import (
	"math"
	"time"

	"github.com/YuminosukeSato/gpseq/pkg/errors"
	"github.com/YuminosukeSato/gpseq/pkg/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Selection is the result of a batch active-learning round: the chosen
// sequences in selection order.
type Selection struct {
	Sequences *SequenceSet
	IDs       []string
}

// ubCandidate tracks one pool member during batch selection. Its covariance
// vector against the observed set grows by one entry per round.
type ubCandidate struct {
	id    string
	k     []float64
	kStar float64
	mean  float64
	vari  float64
}

// SelectBatch picks n sequences from the pool by sequential maximization of
// the upper confidence bound mean + 2*sqrt(variance) on the normalized scale.
//
// After each pick the chosen sequence is absorbed into the observed set with
// its own predicted mean standing in for the unknown measurement: the noisy
// covariance is extended by one row, its Cholesky factor updated
// incrementally, and the remaining candidates rescored against the grown set.
// The model itself is left untouched.
//
// Batch selection requires a fitted regression model with an estimated global
// noise term.
func (m *Model) SelectBatch(pool *SequenceSet, n int) (*Selection, error) {
	const op = "GPModel.SelectBatch"
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("GPModel", "SelectBatch")
	}
	if m.mode != ModeRegression {
		return nil, errors.NewValidationError("mode",
			"batch selection requires a regression model", m.mode.String())
	}
	varN, ok := m.noiseVariance()
	if !ok {
		return nil, errors.NewValidationError("variances",
			"batch selection requires an estimated global noise term", hyperVarN)
	}
	if pool == nil || pool.Len() == 0 {
		return nil, errors.NewModelError(op, "empty candidate pool", errors.ErrEmptyData)
	}
	if n < 1 || n > pool.Len() {
		return nil, errors.NewValidationError("n",
			"batch size must be between 1 and the pool size", n)
	}
	start := time.Now()

	cleanup, err := m.enterQueries(pool, nil)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	kh := m.kernelHypers()

	// Observed set: training sequences, then each pick in order. y carries
	// the normalized residuals, then each pick's predicted mean.
	obsIDs := append([]string(nil), m.xSeqs.ids...)
	y := make([]float64, m.ell)
	for i := 0; i < m.ell; i++ {
		y[i] = m.normedY.AtVec(i)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(m.covKy); !ok {
		return nil, errors.NewNumericalError(op, "covariance matrix is not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)

	cands := make([]*ubCandidate, 0, pool.Len())
	for _, id := range pool.ids {
		k := make([]float64, m.ell)
		for i, tid := range obsIDs {
			v, err := m.kern.Calc(id, tid, kh, false)
			if err != nil {
				return nil, errors.Wrap(err, "gpseq: evaluating cross covariance")
			}
			k[i] = v
		}
		kStar, err := m.kern.Calc(id, id, kh, false)
		if err != nil {
			return nil, errors.Wrap(err, "gpseq: evaluating self covariance")
		}
		cands = append(cands, &ubCandidate{id: id, k: k, kStar: kStar})
	}

	alpha := mat.NewVecDense(len(y), nil)
	if err := chol.SolveVecTo(alpha, mat.NewVecDense(len(y), y)); err != nil {
		return nil, errors.NewNumericalError(op, "covariance solve failed")
	}
	if err := scoreCandidates(cands, alpha, &l); err != nil {
		return nil, err
	}

	selected := make([]string, 0, n)
	for round := 0; round < n; round++ {
		// First-encountered maximum wins on ties.
		bounds := make([]float64, len(cands))
		for i, c := range cands {
			bounds[i] = c.mean + 2*math.Sqrt(c.vari)
		}
		best := floats.MaxIdx(bounds)
		pick := cands[best]
		selected = append(selected, pick.id)
		cands = append(cands[:best], cands[best+1:]...)
		if len(selected) == n {
			break
		}

		// Extend the noisy covariance by the pick's row and absorb its
		// predicted mean as the observation.
		cur := len(obsIDs)
		row := make([]float64, cur+1)
		copy(row, pick.k)
		row[cur] = pick.kStar + varN
		var ext mat.Cholesky
		if ok := ext.ExtendVecSym(&chol, mat.NewVecDense(cur+1, row)); !ok {
			return nil, errors.NewNumericalError(op, "extended covariance is not positive definite")
		}
		chol = ext
		// LTo requires an empty or exactly-sized dst; the factor grew a row.
		l.Reset()
		chol.LTo(&l)
		obsIDs = append(obsIDs, pick.id)
		y = append(y, pick.mean)

		alpha = mat.NewVecDense(len(y), nil)
		if err := chol.SolveVecTo(alpha, mat.NewVecDense(len(y), y)); err != nil {
			return nil, errors.NewNumericalError(op, "covariance solve failed")
		}
		for _, c := range cands {
			v, err := m.kern.Calc(c.id, pick.id, kh, false)
			if err != nil {
				return nil, errors.Wrap(err, "gpseq: evaluating cross covariance")
			}
			c.k = append(c.k, v)
		}
		if err := scoreCandidates(cands, alpha, &l); err != nil {
			return nil, err
		}
	}

	seqs, err := pool.Subset(selected)
	if err != nil {
		return nil, err
	}
	log.GetLoggerWithName("gp.active").Info("batch selected",
		log.OperationKey, "select_batch",
		log.CandidatesKey, pool.Len(),
		log.QueriesKey, n,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &Selection{Sequences: seqs, IDs: selected}, nil
}

// scoreCandidates refreshes each candidate's predictive mean and variance
// against the current observed set.
func scoreCandidates(cands []*ubCandidate, alpha *mat.VecDense, l *mat.TriDense) error {
	cur := alpha.Len()
	for _, c := range cands {
		kv := mat.NewVecDense(cur, c.k)
		c.mean = mat.Dot(kv, alpha)
		v, err := triSolveVec(l, false, kv)
		if err != nil {
			return err
		}
		c.vari = c.kStar - mat.Dot(v, v)
	}
	return nil
}
