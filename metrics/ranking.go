package metrics

import (
	"math"

	"github.com/YuminosukeSato/gpseq/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// KendallTau はケンドールの順位相関係数（tau-b）を計算する
//
// 全てのペア (i, j) について順位の一致・不一致を数え、同順位を補正する:
//
//	tau-b = (C - D) / sqrt((n0 - n1) * (n0 - n2))
//
// ここで n0 = n(n-1)/2、n1, n2 はそれぞれ x, y 内の同順位ペア数。
// 完全に順位が保存されていれば1.0、完全に逆順であれば-1.0になる
func KendallTau(yTrue, yPred *mat.VecDense) (float64, error) {
	// 入力検証
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("KendallTau", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("KendallTau", n, yPred.Len(), 0)
	}

	if n < 2 {
		return 0, errors.NewValueError("KendallTau", "at least two samples are required")
	}

	var concordant, discordant float64
	var tiesX, tiesY float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := yTrue.AtVec(i) - yTrue.AtVec(j)
			dy := yPred.AtVec(i) - yPred.AtVec(j)
			switch {
			case dx == 0 && dy == 0:
				tiesX++
				tiesY++
			case dx == 0:
				tiesX++
			case dy == 0:
				tiesY++
			case dx*dy > 0:
				concordant++
			default:
				discordant++
			}
		}
	}

	n0 := float64(n*(n-1)) / 2
	denom := math.Sqrt((n0 - tiesX) * (n0 - tiesY))
	if denom == 0 {
		return 0, errors.NewValueError("KendallTau", "all pairs are tied; tau is undefined")
	}

	return (concordant - discordant) / denom, nil
}
