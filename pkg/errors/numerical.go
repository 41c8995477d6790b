package errors

import (
	"fmt"
	"math"
)

// CheckValues は値にNaNまたはInfが含まれていないか検査し、
// 数値不安定性が検出された場合はNumericalErrorを返します。
func CheckValues(operation string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalError(operation, fmt.Sprintf("non-finite value %g at index %d", v, i))
		}
	}
	return nil
}

// CheckScalar は単一のスカラー値の数値不安定性を検査します。
func CheckScalar(operation string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalError(operation, fmt.Sprintf("non-finite value %g", value))
	}
	return nil
}
