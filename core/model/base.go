package model

// EstimatorState は推定器の学習状態を表す
type EstimatorState int

const (
	// NotFitted は Fit がまだ呼ばれていない状態
	NotFitted EstimatorState = iota
	// Fitted は Fit が完了し予測可能な状態
	Fitted
)

// BaseEstimator は GP モデルなど学習状態を持つ推定器に埋め込む基底構造体。
// 予測や保存の前に IsFitted で学習済みかを判定できる。
type BaseEstimator struct {
	state EstimatorState
}

// IsFitted は推定器が学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted は学習完了を記録する。Fit の成功時に呼ぶ
func (e *BaseEstimator) SetFitted() {
	e.state = Fitted
}

// Reset は学習状態を破棄し未学習に戻す
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
}
