package metrics

import (
	"sort"

	"github.com/YuminosukeSato/gpseq/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// AUC はROC曲線の下側面積（ROC-AUC）を計算する
//
// Mann-Whitney統計量による順位ベースの計算を行う:
//
//	AUC = (Σ rank(positive) - n_pos(n_pos+1)/2) / (n_pos * n_neg)
//
// 同順位のスコアには平均順位を割り当てる。
// ラベルは {-1, +1} または {0, 1} を受け付ける
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	// 入力検証
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("AUC", "empty vector")
	}

	if yScore.Len() != n {
		return 0, errors.NewDimensionError("AUC", n, yScore.Len(), 0)
	}

	// ラベルを正例/負例に分類する
	positive := make([]bool, n)
	var nPos, nNeg int
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 1:
			positive[i] = true
			nPos++
		case -1, 0:
			nNeg++
		default:
			return 0, errors.NewValueError("AUC", "labels must be -1/+1 or 0/1")
		}
	}

	if nPos == 0 || nNeg == 0 {
		return 0, errors.NewValueError("AUC", "both classes must be present")
	}

	// スコアの昇順で順位を割り当てる（同順位は平均順位）
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return yScore.AtVec(idx[a]) < yScore.AtVec(idx[b])
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && yScore.AtVec(idx[j]) == yScore.AtVec(idx[i]) {
			j++
		}
		// [i, j) は同一スコア。平均順位を割り当てる（順位は1始まり）
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avgRank
		}
		i = j
	}

	var rankSum float64
	for i := 0; i < n; i++ {
		if positive[i] {
			rankSum += ranks[i]
		}
	}

	auc := (rankSum - float64(nPos*(nPos+1))/2) / float64(nPos*nNeg)
	return auc, nil
}
