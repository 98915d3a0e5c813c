package network

import "fmt"

// DataError reports missing or invalid node/edge attributes detected while
// constructing the graph. It always fires before any optimization model is
// built.
type DataError struct {
	Element string `json:"element"` // e.g. "node 4", "line (1,2)"
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *DataError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("network data error on %s: field %s: %s", e.Element, e.Field, e.Message)
	}
	return fmt.Sprintf("network data error on %s: %s", e.Element, e.Message)
}
