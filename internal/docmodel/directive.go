package docmodel

// Directive is the declared verification intent of a fragment. It is a
// closed enumeration; unrecognized fence tags degrade to DirectiveSkip with
// a warning at extraction time rather than failing the run.
type Directive string

const (
	// DirectiveDefault means the fragment must compile, run and exit cleanly.
	DirectiveDefault Directive = "default"
	// DirectiveSkip excludes the fragment from verification entirely.
	DirectiveSkip Directive = "skip"
	// DirectiveBuildOnly means the fragment must compile and is never executed.
	DirectiveBuildOnly Directive = "build-only"
	// DirectiveExpectPanic means the compiled fragment must terminate via panic.
	DirectiveExpectPanic Directive = "expect-panic"
	// DirectiveExpectCompileError means the fragment must fail to compile.
	DirectiveExpectCompileError Directive = "expect-compile-error"
)

func (d Directive) String() string { return string(d) }

// Runnable reports whether the directive requires executing the compiled
// fragment (as opposed to compiling only, or skipping).
func (d Directive) Runnable() bool {
	return d == DirectiveDefault || d == DirectiveExpectPanic
}

// Expected returns the outcome the directive requires for a pass.
func (d Directive) Expected() Outcome {
	switch d {
	case DirectiveBuildOnly:
		return OutcomeCompiles
	case DirectiveExpectPanic:
		return OutcomePanic
	case DirectiveExpectCompileError:
		return OutcomeCompileError
	case DirectiveSkip:
		return OutcomeSkipped
	default:
		return OutcomeCleanRun
	}
}
