package docmodel

// Outcome labels what actually happened (or is expected to happen) to a
// fragment during verification.
type Outcome string

const (
	OutcomeCleanRun     Outcome = "clean run"
	OutcomeCompiles     Outcome = "compiles"
	OutcomePanic        Outcome = "panic"
	OutcomeCompileError Outcome = "compile error"
	OutcomeRuntimeError Outcome = "runtime failure"
	OutcomeSkipped      Outcome = "skipped"
)

// VerdictKind enumerates terminal per-fragment classifications.
type VerdictKind string

const (
	VerdictPassed        VerdictKind = "passed"
	VerdictFailedCompile VerdictKind = "failed_compile"
	VerdictFailedRuntime VerdictKind = "failed_runtime"
	VerdictSkipped       VerdictKind = "skipped"
	VerdictMismatch      VerdictKind = "mismatched_expectation"
)

// Verdict is the single per-run result attached to a fragment.
type Verdict struct {
	Kind VerdictKind `json:"kind"`

	// Diagnostic carries compiler output for failed_compile verdicts, already
	// rewritten to document coordinates where attribution succeeded.
	Diagnostic string `json:"diagnostic,omitempty"`
	// Reason explains failed_runtime verdicts, e.g. "panic" or "timeout".
	Reason string `json:"reason,omitempty"`
	// Expected/Actual are populated for mismatched_expectation verdicts.
	Expected Outcome `json:"expected,omitempty"`
	Actual   Outcome `json:"actual,omitempty"`
	// Cached marks a skipped verdict that came from the content cache rather
	// than a skip directive.
	Cached bool `json:"cached,omitempty"`
}

// Passed is the verdict for a fragment whose actual outcome matched its
// directive.
func Passed() Verdict { return Verdict{Kind: VerdictPassed} }

// FailedCompile records an unexpected compilation failure.
func FailedCompile(diagnostic string) Verdict {
	return Verdict{Kind: VerdictFailedCompile, Diagnostic: diagnostic}
}

// FailedRuntime records an unexpected runtime failure (panic, timeout,
// non-zero exit).
func FailedRuntime(reason string) Verdict {
	return Verdict{Kind: VerdictFailedRuntime, Reason: reason}
}

// SkippedByDirective marks a fragment excluded by its skip directive.
func SkippedByDirective() Verdict { return Verdict{Kind: VerdictSkipped} }

// SkippedByCache marks a fragment whose fingerprint was already verified.
func SkippedByCache() Verdict { return Verdict{Kind: VerdictSkipped, Cached: true} }

// Mismatched records an inverted expectation: the fragment behaved well by
// ordinary standards but contradicted its directive (or vice versa).
func Mismatched(expected, actual Outcome) Verdict {
	return Verdict{Kind: VerdictMismatch, Expected: expected, Actual: actual}
}

// Passing reports whether the verdict counts toward a clean exit status.
// Skipped fragments never affect the exit status.
func (v Verdict) Passing() bool {
	return v.Kind == VerdictPassed || v.Kind == VerdictSkipped
}

func (v Verdict) String() string {
	switch v.Kind {
	case VerdictMismatch:
		return "expected " + string(v.Expected) + ", got " + string(v.Actual)
	case VerdictFailedRuntime:
		if v.Reason != "" {
			return string(v.Kind) + " (" + v.Reason + ")"
		}
	case VerdictSkipped:
		if v.Cached {
			return "skipped (cached)"
		}
	}
	return string(v.Kind)
}
