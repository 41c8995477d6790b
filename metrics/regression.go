package metrics

import (
	"github.com/YuminosukeSato/gpseq/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// R2Score は決定係数（R²）を計算する
//
// R² = 1 - SS_res / SS_tot
// 完璧な予測で1.0、平均値予測で0.0、それ以下は負の値になる
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	// 入力検証
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("R2Score", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("R2Score", n, yPred.Len(), 0)
	}

	// yTrueの平均を計算
	var mean float64
	for i := 0; i < n; i++ {
		mean += yTrue.AtVec(i)
	}
	mean /= float64(n)

	// SS_res = Σ(yTrue - yPred)², SS_tot = Σ(yTrue - mean)²
	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		resDiff := yTrue.AtVec(i) - yPred.AtVec(i)
		totDiff := yTrue.AtVec(i) - mean
		ssRes += resDiff * resDiff
		ssTot += totDiff * totDiff
	}

	if ssTot == 0 {
		return 0, errors.NewValueError("R2Score", "yTrue has zero variance; R2 is undefined")
	}

	return 1 - ssRes/ssTot, nil
}

// PearsonR はピアソンの積率相関係数を計算する
func PearsonR(yTrue, yPred *mat.VecDense) (float64, error) {
	// 入力検証
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("PearsonR", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("PearsonR", n, yPred.Len(), 0)
	}

	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = yTrue.AtVec(i)
		y[i] = yPred.AtVec(i)
	}

	return stat.Correlation(x, y, nil), nil
}
