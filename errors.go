package ipv

import "fmt"

// ConfigurationError reports an engine configuration that can never
// produce valid results, such as a gapful interval table or an empty
// scale list. It is fatal at startup and never silently corrected.
type ConfigurationError struct {
	// Field names the offending configuration item
	Field string
	// Reason describes what is wrong with it
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// LabelingError reports a computed distance or bearing that falls outside
// every interval of the table meant to classify it. Partial label sets are
// not valid training or inference data, so the current run must abort.
type LabelingError struct {
	// Table is the name of the table that failed to classify the value
	Table string
	// Value is the offending value
	Value float64
}

func (e *LabelingError) Error() string {
	return fmt.Sprintf("labeling error: value %g outside all intervals of %s table",
		e.Value, e.Table)
}

// InferenceError reports malformed classifier output, such as a score
// vector of the wrong length or one containing NaN. It aborts the current
// image's localization only; other images in a batch continue.
type InferenceError struct {
	// Head is the index of the offending head in classifier output order
	Head int
	// Reason describes the malformation
	Reason string
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference error: head %d: %s", e.Head, e.Reason)
}
