package legacy

import (
	"fmt"
)

// ErrUnexpectedShape indicates a value of the object graph that does not have
// the structure the adapter accepts.
type ErrUnexpectedShape struct {
	Path   string // Location in the graph, e.g. "tracts[3].vertices[1]"
	Reason string
}

func (e *ErrUnexpectedShape) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// ErrInvalidVertex indicates a vertex that is not a point on the unit sphere.
type ErrInvalidVertex struct {
	Tract  int
	Vertex int
	Reason string
}

func (e *ErrInvalidVertex) Error() string {
	return fmt.Sprintf("tract %d vertex %d: %s", e.Tract, e.Vertex, e.Reason)
}

// ErrRingPartition indicates tracts that cannot be partitioned into rings.
type ErrRingPartition struct {
	Reason string
}

func (e *ErrRingPartition) Error() string {
	return fmt.Sprintf("ring partition: %s", e.Reason)
}
