package docmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVisibleLine_SkipsHiddenLines(t *testing.T) {
	frag := Fragment{
		StartLine: 10,
		Lines: []LineOrigin{
			{DocLine: 11, Hidden: true},
			{DocLine: 12, Hidden: false},
			{DocLine: 13, Hidden: false},
			{DocLine: 14, Hidden: true},
		},
	}

	// Diagnostic on a hidden line points at the nearest following visible line.
	require.Equal(t, 12, frag.VisibleLine(1))
	require.Equal(t, 12, frag.VisibleLine(2))
	require.Equal(t, 13, frag.VisibleLine(3))
	// Trailing hidden line falls back to the last visible one.
	require.Equal(t, 13, frag.VisibleLine(4))
}

func TestVisibleLine_OutOfRangeClamps(t *testing.T) {
	frag := Fragment{
		StartLine: 3,
		Lines:     []LineOrigin{{DocLine: 4}, {DocLine: 5}},
	}
	require.Equal(t, 4, frag.VisibleLine(0))
	require.Equal(t, 5, frag.VisibleLine(99))
}

func TestVisibleLine_EmptyFragment(t *testing.T) {
	frag := Fragment{StartLine: 7}
	require.Equal(t, 7, frag.VisibleLine(1))
}

func TestDirectiveExpectations(t *testing.T) {
	cases := []struct {
		directive Directive
		expected  Outcome
		runnable  bool
	}{
		{DirectiveDefault, OutcomeCleanRun, true},
		{DirectiveBuildOnly, OutcomeCompiles, false},
		{DirectiveExpectPanic, OutcomePanic, true},
		{DirectiveExpectCompileError, OutcomeCompileError, false},
		{DirectiveSkip, OutcomeSkipped, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.expected, tc.directive.Expected(), "directive %s", tc.directive)
		require.Equal(t, tc.runnable, tc.directive.Runnable(), "directive %s", tc.directive)
	}
}

func TestVerdictPassing(t *testing.T) {
	require.True(t, Passed().Passing())
	require.True(t, SkippedByDirective().Passing())
	require.True(t, SkippedByCache().Passing())
	require.False(t, FailedCompile("x.go:1:1: undefined: y").Passing())
	require.False(t, FailedRuntime("timeout").Passing())
	require.False(t, Mismatched(OutcomePanic, OutcomeCleanRun).Passing())
}

func TestVerdictString(t *testing.T) {
	require.Equal(t, "expected panic, got clean run", Mismatched(OutcomePanic, OutcomeCleanRun).String())
	require.Equal(t, "failed_runtime (timeout)", FailedRuntime("timeout").String())
	require.Equal(t, "skipped (cached)", SkippedByCache().String())
	require.Equal(t, "passed", Passed().String())
}
