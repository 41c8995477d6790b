package gp

import (
	"io"

	"github.com/YuminosukeSato/gpseq/core/model"
	"github.com/YuminosukeSato/gpseq/pkg/errors"
	"github.com/YuminosukeSato/gpseq/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// modelSnapshot is the gob payload for a fitted model. Matrices are stored as
// flat row-major slices. The kernel and the mean function are not part of the
// snapshot; Load receives a fresh kernel from the caller and rewires it to the
// restored training set, and for regression the fit-time mean baseline travels
// along so the mean function is refit on the original outputs rather than on
// the residuals.
type modelSnapshot struct {
	Mode       string
	Objective  string
	Guesses    []float64
	MaxIter    int
	HyperNames []string
	Hypers     []float64

	IDs  []string
	Seqs []interface{}

	Y         []float64
	NormedY   []float64
	Means     []float64
	Mean      float64
	Std       float64
	Variances []float64

	K     []float64
	Ky    []float64
	L     []float64
	Alpha []float64

	FHat  []float64
	W     []float64
	WRoot []float64
	Grad  []float64

	ML   float64
	LogP float64
	N    int
}

// Save writes the fitted model to path. Sequence payloads travel through gob
// as interface values, so callers with custom payload types must register
// them with gob.Register before saving.
func (m *Model) Save(path string) error {
	snap, err := m.snapshot()
	if err != nil {
		return err
	}
	return model.SaveModel(snap, path)
}

// SaveTo writes the fitted model to w.
func (m *Model) SaveTo(w io.Writer) error {
	snap, err := m.snapshot()
	if err != nil {
		return err
	}
	return model.SaveModelToWriter(snap, w)
}

// Load reads a model saved by Save, backed by the given kernel. The kernel
// must be of the same kind as the one the model was fitted with; it is
// rewired to the restored training sequences. Options are applied before
// restoring; a mean function supplied via WithMeanFunction is refit on the
// original training outputs reconstructed from the snapshot.
func Load(kern Kernel, path string, opts ...Option) (*Model, error) {
	var snap modelSnapshot
	if err := model.LoadModel(&snap, path); err != nil {
		return nil, err
	}
	return restore(kern, &snap, opts)
}

// LoadFrom reads a model saved by SaveTo from r.
func LoadFrom(kern Kernel, r io.Reader, opts ...Option) (*Model, error) {
	var snap modelSnapshot
	if err := model.LoadModelFromReader(&snap, r); err != nil {
		return nil, err
	}
	return restore(kern, &snap, opts)
}

func (m *Model) snapshot() (*modelSnapshot, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("GPModel", "Save")
	}
	snap := &modelSnapshot{
		Mode:       m.mode.String(),
		Objective:  m.objective.String(),
		Guesses:    append([]float64(nil), m.guesses...),
		MaxIter:    m.maxIter,
		HyperNames: append([]string(nil), m.hyperNames...),
		Hypers:     append([]float64(nil), m.hypers...),
		IDs:        append([]string(nil), m.xSeqs.ids...),
		Seqs:       make([]interface{}, 0, m.ell),
		Y:          vecToSlice(m.y),
		NormedY:    vecToSlice(m.normedY),
		Means:      vecToSlice(m.meanFunc.Means()),
		Variances:  append([]float64(nil), m.variances...),
		K:          matToSlice(m.covK),
		Ky:         matToSlice(m.covKy),
		L:          matToSlice(m.cholL),
		Alpha:      vecToSlice(m.alpha),
		FHat:       vecToSlice(m.fHat),
		W:          append([]float64(nil), m.wDiag...),
		WRoot:      append([]float64(nil), m.wRoot...),
		Grad:       vecToSlice(m.grad),
		ML:         m.ml,
		LogP:       m.logP,
		N:          m.ell,
	}
	for _, id := range m.xSeqs.ids {
		seq, _ := m.xSeqs.Get(id)
		snap.Seqs = append(snap.Seqs, seq)
	}
	if m.norm != nil {
		snap.Mean = m.norm.Mean
		snap.Std = m.norm.Std
	}
	return snap, nil
}

func restore(kern Kernel, snap *modelSnapshot, opts []Option) (*Model, error) {
	const op = "gp.Load"
	if len(snap.IDs) != snap.N || len(snap.Seqs) != snap.N {
		return nil, errors.NewModelError(op, "corrupt snapshot", errors.ErrEmptyData)
	}
	m, err := New(kern, opts...)
	if err != nil {
		return nil, err
	}
	if obj, err := ParseObjective(snap.Objective); err == nil {
		m.objective = obj
	}
	m.maxIter = snap.MaxIter
	if m.guesses == nil {
		m.guesses = snap.Guesses
	}
	m.hyperNames = snap.HyperNames
	m.hypers = snap.Hypers
	m.ell = snap.N
	m.ml = snap.ML
	m.logP = snap.LogP

	seqs := NewSequenceSet()
	for i, id := range snap.IDs {
		if err := seqs.Add(id, snap.Seqs[i]); err != nil {
			return nil, err
		}
	}
	m.xSeqs = seqs
	if err := kern.SetX(seqs); err != nil {
		return nil, errors.Wrap(err, "gpseq: caching training covariance")
	}
	if err := kern.Train(seqs); err != nil {
		return nil, errors.Wrap(err, "gpseq: caching training sequences")
	}

	m.y = sliceToVec(snap.Y)
	m.covK = sliceToSym(snap.N, snap.K)
	m.covKy = sliceToSym(snap.N, snap.Ky)
	m.cholL = sliceToTri(snap.N, snap.L)

	switch snap.Mode {
	case ModeClassification.String():
		m.mode = ModeClassification
		m.fHat = sliceToVec(snap.FHat)
		m.wDiag = snap.W
		m.wRoot = snap.WRoot
		m.grad = sliceToVec(snap.Grad)
	default:
		m.mode = ModeRegression
		m.normedY = sliceToVec(snap.NormedY)
		m.alpha = sliceToVec(snap.Alpha)
		m.norm = preprocessing.NewNormalizer()
		m.norm.Mean = snap.Mean
		m.norm.Std = snap.Std
		m.norm.SetFitted()
		if len(snap.Variances) > 0 {
			m.variances = snap.Variances
		}
		// m.y holds mean-subtracted residuals; the mean function must be
		// refit on the outputs it originally saw.
		fitY := m.y
		if means := sliceToVec(snap.Means); means != nil && means.Len() == snap.N {
			orig := mat.NewVecDense(snap.N, nil)
			orig.AddVec(m.y, means)
			fitY = orig
		}
		if err := m.meanFunc.Fit(seqs, fitY); err != nil {
			return nil, errors.Wrap(err, "gpseq: refitting mean function")
		}
	}
	m.SetFitted()
	return m, nil
}

func vecToSlice(v *mat.VecDense) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

func sliceToVec(s []float64) *mat.VecDense {
	if s == nil {
		return nil
	}
	return mat.NewVecDense(len(s), append([]float64(nil), s...))
}

func matToSlice(a mat.Matrix) []float64 {
	if a == nil {
		return nil
	}
	r, c := a.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, a.At(i, j))
		}
	}
	return out
}

func sliceToSym(n int, s []float64) *mat.SymDense {
	if s == nil {
		return nil
	}
	return mat.NewSymDense(n, append([]float64(nil), s...))
}

func sliceToTri(n int, s []float64) *mat.TriDense {
	if s == nil {
		return nil
	}
	return mat.NewTriDense(n, mat.Lower, append([]float64(nil), s...))
}
