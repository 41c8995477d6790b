// Package gp implements Gaussian process regression and binary classification
// models over protein sequence data.
//
// A Model is fitted on a SequenceSet and its measured outputs. Covariances are
// supplied by a Kernel implementation and an optional deterministic prior mean
// by a MeanFunction implementation; both are consumed through interfaces so
// that any implementation is substitutable.
//
// Regression models subtract the mean function, normalize the residual to zero
// mean and unit standard deviation, and maximize either the log marginal
// likelihood or the leave-one-out log probability over the kernel
// hyperparameters (plus a global noise term when per-sample measurement
// variances are not supplied). Classification models expect outputs coded as
// -1/+1, use a logistic observation likelihood, and approximate the
// non-Gaussian posterior with a Laplace approximation centered at the mode
// found by Newton iteration.
//
// Fitted models predict posterior means and variances for new sequences,
// compute closed-form leave-one-out residuals, score themselves with ranking
// and correlation metrics, select informative batches of sequences with an
// upper-confidence-bound bandit, and round-trip through gob persistence with
// the kernel excluded.
package gp
