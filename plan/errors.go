package plan

import (
	"fmt"
	"strings"
)

// GraphErrorKind classifies a dependency-graph error.
type GraphErrorKind int

const (
	// KindCycle indicates a dependency cycle among the named operations.
	KindCycle GraphErrorKind = iota
	// KindMissingDependency indicates a dependency naming an undeclared operation.
	KindMissingDependency
	// KindDuplicate indicates two descriptors declaring the same type.
	KindDuplicate
	// KindRequiredOnOptional indicates a required operation depending,
	// directly or transitively, on a non-required one.
	KindRequiredOnOptional
)

// String returns the kind name.
func (k GraphErrorKind) String() string {
	switch k {
	case KindCycle:
		return "cycle"
	case KindMissingDependency:
		return "missing dependency"
	case KindDuplicate:
		return "duplicate operation"
	case KindRequiredOnOptional:
		return "required depends on optional"
	default:
		return "unknown"
	}
}

// GraphError is a fatal resolution error. It aborts planning before any
// operation executes.
type GraphError struct {
	Kind GraphErrorKind
	// Operations names the offending operations: the members of a cycle,
	// the operation with the unresolvable edge, or the duplicate type.
	Operations []string
	// Missing names the undeclared dependency for KindMissingDependency.
	Missing string
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	switch e.Kind {
	case KindCycle:
		return fmt.Sprintf("plan: dependency cycle involving [%s]", strings.Join(e.Operations, ", "))
	case KindMissingDependency:
		return fmt.Sprintf("plan: operation %q depends on undeclared operation %q", e.Operations[0], e.Missing)
	case KindDuplicate:
		return fmt.Sprintf("plan: operation %q declared more than once", e.Operations[0])
	case KindRequiredOnOptional:
		return fmt.Sprintf("plan: required operation %q depends on non-required operation %q", e.Operations[0], e.Operations[1])
	default:
		return "plan: invalid dependency graph"
	}
}
