package compose

import (
	"errors"
	"fmt"
	"strings"
)

// Cycle kinds reported by CycleError.
const (
	// CycleAnchor marks a cycle among document anchors.
	CycleAnchor = "anchor"

	// CycleDependency marks a cycle in the service dependency graph.
	CycleDependency = "dependency"
)

// ParseError reports a malformed input document.
type ParseError struct {
	// Source is the name of the offending document.
	Source string

	// Err is the underlying parser error.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// CycleError reports an anchor or dependency cycle. Names holds the
// participants in reference order; the first name repeats at the end
// when a concrete cycle path is known.
type CycleError struct {
	Kind  string
	Names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s cycle: %s", e.Kind, strings.Join(e.Names, " -> "))
}

// MergeTypeError reports a scalar merging over a mapping in strict mode.
type MergeTypeError struct {
	// Path is the dotted key path where the conflict occurred.
	Path string

	// Base and Override describe the conflicting value kinds.
	Base     string
	Override string
}

func (e *MergeTypeError) Error() string {
	return fmt.Sprintf("merge %s: %s overrides %s", e.Path, e.Override, e.Base)
}

// UnknownDependencyError reports a depends_on entry with no matching
// service definition.
type UnknownDependencyError struct {
	Service    string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("service %s depends on undefined service %s", e.Service, e.Dependency)
}

// ExitCode maps a composition error to its CLI exit code.
// A nil error maps to ExitOK; unrecognized errors map to ExitParse.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		parseErr *ParseError
		mergeErr *MergeTypeError
		cycleErr *CycleError
		refErr   *UnknownDependencyError
	)

	switch {
	case errors.As(err, &cycleErr):
		return ExitCycle
	case errors.As(err, &mergeErr):
		return ExitMerge
	case errors.As(err, &refErr):
		return ExitUnknownRef
	case errors.As(err, &parseErr):
		return ExitParse
	default:
		return ExitParse
	}
}
