package preprocessing

import (
	"math"

	"github.com/YuminosukeSato/gpseq/core/model"
	"github.com/YuminosukeSato/gpseq/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Normalizer は1次元の出力系列を平均0、標準偏差1に変換する
// ガウス過程回帰では平均関数の残差に対して学習ごとに一度だけ適用される
type Normalizer struct {
	model.BaseEstimator

	// Mean は学習データの平均値
	Mean float64

	// Std は学習データの標本標準偏差（ddof=1）
	Std float64
}

// NewNormalizer は新しいNormalizerを作成する
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Fit は学習データから統計情報（平均、標準偏差）を計算する
//
// 標準偏差には標本標準偏差（n-1で割る）を使用する。
// 分散がゼロの学習データは未定義のためエラーを返す。
func (n *Normalizer) Fit(y *mat.VecDense) error {
	ell := y.Len()
	if ell == 0 {
		return errors.NewModelError("Normalizer.Fit", "empty data", errors.ErrEmptyData)
	}
	if ell < 2 {
		return errors.NewValueError("Normalizer.Fit", "at least two samples are required to estimate a standard deviation")
	}

	var sum float64
	for i := 0; i < ell; i++ {
		sum += y.AtVec(i)
	}
	mean := sum / float64(ell)

	var sumSquares float64
	for i := 0; i < ell; i++ {
		diff := y.AtVec(i) - mean
		sumSquares += diff * diff
	}
	std := math.Sqrt(sumSquares / float64(ell-1))

	if std == 0 {
		return errors.NewModelError("Normalizer.Fit", "zero variance", errors.ErrZeroVariance)
	}

	n.Mean = mean
	n.Std = std
	n.SetFitted()
	return nil
}

// Transform は学習済みの統計情報を使ってデータを正規化する
func (n *Normalizer) Transform(y *mat.VecDense) (*mat.VecDense, error) {
	if !n.IsFitted() {
		return nil, errors.NewNotFittedError("Normalizer", "Transform")
	}
	out := mat.NewVecDense(y.Len(), nil)
	for i := 0; i < y.Len(); i++ {
		out.SetVec(i, (y.AtVec(i)-n.Mean)/n.Std)
	}
	return out, nil
}

// InverseTransform は正規化されたデータを元のスケールに戻す
func (n *Normalizer) InverseTransform(y *mat.VecDense) (*mat.VecDense, error) {
	if !n.IsFitted() {
		return nil, errors.NewNotFittedError("Normalizer", "InverseTransform")
	}
	out := mat.NewVecDense(y.Len(), nil)
	for i := 0; i < y.Len(); i++ {
		out.SetVec(i, y.AtVec(i)*n.Std+n.Mean)
	}
	return out, nil
}

// TransformValue は単一の値を正規化する
func (n *Normalizer) TransformValue(v float64) float64 {
	return (v - n.Mean) / n.Std
}

// InverseValue は正規化された単一の値を元のスケールに戻す
func (n *Normalizer) InverseValue(v float64) float64 {
	return v*n.Std + n.Mean
}

// ScaleVariance は測定分散を正規化後のスケールに変換する（1/std²倍）
func (n *Normalizer) ScaleVariance(v float64) float64 {
	return v / (n.Std * n.Std)
}

// UnscaleVariance は正規化スケールの分散を元のスケールに戻す（std²倍）
func (n *Normalizer) UnscaleVariance(v float64) float64 {
	return v * n.Std * n.Std
}
