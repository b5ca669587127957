// Package compose implements the layered topology engine: loading YAML
// documents, expanding anchors and merge keys, deep-merging override
// layers, and producing a dependency-ordered topology for a runtime to
// execute.
package compose

// Exit codes for the CLI wrapper, one per error kind.
const (
	// ExitOK indicates successful composition.
	ExitOK = 0

	// ExitParse indicates malformed input.
	ExitParse = 1

	// ExitMerge indicates an incompatible merge in strict mode.
	ExitMerge = 2

	// ExitCycle indicates an anchor or dependency cycle.
	ExitCycle = 3

	// ExitUnknownRef indicates a dangling dependency reference.
	ExitUnknownRef = 4
)
