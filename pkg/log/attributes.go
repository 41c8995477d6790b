// Package log defines standard attribute keys for Gaussian process operations.
//
// Using these standard keys enables consistent log analysis, monitoring, and
// debugging across model fitting, prediction, and active-learning workflows.
// The keys follow a hierarchical naming convention (e.g., "model.name",
// "data.samples") to enable structured log filtering.

package log

// Model and Operation Context
// These attributes identify the model type, instance, and operation being performed.
const (
	// ModelNameKey identifies the type of model.
	// Examples: "GPRegression", "GPClassification"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "score", "select"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	// Examples: "gp.model", "gp.selector", "metrics"
	ComponentKey = "ml.component"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of training samples.
	SamplesKey = "data.samples"

	// QueriesKey indicates the number of query sequences in a prediction batch.
	QueriesKey = "data.queries"

	// CandidatesKey indicates the size of an active-learning candidate pool.
	CandidatesKey = "data.candidates"
)

// Model fitting
const (
	// ObjectiveKey names the training objective in use.
	// Values: "log_ML", "LOO_log_p"
	ObjectiveKey = "gp.objective"

	// HypersKey carries the current hyperparameter vector.
	HypersKey = "gp.hypers"

	// MarginalLikelihoodKey carries the negative log marginal likelihood at the optimum.
	MarginalLikelihoodKey = "gp.neg_log_ml"

	// IterationsKey carries the iteration count of an iterative routine.
	IterationsKey = "opt.iterations"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
