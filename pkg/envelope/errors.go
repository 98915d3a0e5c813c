package envelope

import "fmt"

// ConfigurationError reports a solve request that references nodes unknown to
// the graph or is missing mandatory parameters. It fires before any
// constraint building starts.
type ConfigurationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// ModelError reports an inconsistency found while emitting constraints, such
// as a line edge without a derivable susceptance. It aborts the current solve
// only; the graph itself remains usable.
type ModelError struct {
	Edge    string `json:"edge,omitempty"`
	Message string `json:"message"`
}

func (e *ModelError) Error() string {
	if e.Edge != "" {
		return fmt.Sprintf("model error on %s: %s", e.Edge, e.Message)
	}
	return fmt.Sprintf("model error: %s", e.Message)
}
