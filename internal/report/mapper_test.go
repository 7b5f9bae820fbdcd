package report

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
	"git.home.luguber.info/inful/dockeeper/internal/harness"
	"git.home.luguber.info/inful/dockeeper/internal/toolchain"
)

func frag(id string, d docmodel.Directive) docmodel.Fragment {
	return docmodel.Fragment{
		ID: id, DocPath: "guide.md", StartLine: 5, EndLine: 9,
		Code:      "x := 1\nprintln(y)\n",
		Lines:     []docmodel.LineOrigin{{DocLine: 6}, {DocLine: 7}},
		Directive: d,
	}
}

// sharedTable synthesizes the fragments for real so the location table
// matches what the toolchain would have seen.
func sharedTable(t *testing.T, frags ...docmodel.Fragment) *harness.LocationTable {
	t.Helper()
	s := harness.NewSynthesizer(harness.Inputs{WorkDir: t.TempDir(), GoVersion: "1.24"})
	projects, err := s.Synthesize(frags)
	require.NoError(t, err)
	require.NotEmpty(t, projects)
	return projects[0].Locations
}

func events(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

const pkgPrefix = "dockeeper.harness/shared/s/"

func TestMapShared_PassFailSkip(t *testing.T) {
	ok := frag("guide_aaaa_000", docmodel.DirectiveDefault)
	buildOnly := frag("guide_aaaa_001", docmodel.DirectiveBuildOnly)
	panics := frag("guide_aaaa_002", docmodel.DirectiveExpectPanic)
	m := NewMapper(sharedTable(t, ok, buildOnly, panics))

	stdout := events(
		`{"Action":"run","Package":"`+pkgPrefix+`guide_aaaa_000","Test":"TestEntry"}`,
		`{"Action":"pass","Package":"`+pkgPrefix+`guide_aaaa_000","Test":"TestEntry"}`,
		`{"Action":"pass","Package":"`+pkgPrefix+`guide_aaaa_000"}`,
		`{"Action":"output","Package":"`+pkgPrefix+`guide_aaaa_001","Output":"?   \t`+pkgPrefix+`guide_aaaa_001\t[no test files]\n"}`,
		`{"Action":"skip","Package":"`+pkgPrefix+`guide_aaaa_001"}`,
		`{"Action":"run","Package":"`+pkgPrefix+`guide_aaaa_002","Test":"TestEntry"}`,
		`{"Action":"output","Package":"`+pkgPrefix+`guide_aaaa_002","Output":"panic: boom\n"}`,
		`{"Action":"fail","Package":"`+pkgPrefix+`guide_aaaa_002","Test":"TestEntry"}`,
		`{"Action":"fail","Package":"`+pkgPrefix+`guide_aaaa_002"}`,
	)

	verdicts := m.MapShared(toolchain.Result{Stdout: stdout, ExitCode: 1},
		[]docmodel.Fragment{ok, buildOnly, panics})

	require.Equal(t, docmodel.VerdictPassed, verdicts["guide_aaaa_000"].Kind)
	require.Equal(t, docmodel.VerdictPassed, verdicts["guide_aaaa_001"].Kind)
	// Expected panic happened: that is a pass.
	require.Equal(t, docmodel.VerdictPassed, verdicts["guide_aaaa_002"].Kind)
}

func TestMapShared_UnexpectedPanicIsRuntimeFailure(t *testing.T) {
	f := frag("guide_aaaa_000", docmodel.DirectiveDefault)
	m := NewMapper(sharedTable(t, f))

	stdout := events(
		`{"Action":"run","Package":"`+pkgPrefix+`guide_aaaa_000","Test":"TestEntry"}`,
		`{"Action":"output","Package":"`+pkgPrefix+`guide_aaaa_000","Output":"panic: boom\n"}`,
		`{"Action":"fail","Package":"`+pkgPrefix+`guide_aaaa_000"}`,
	)

	verdicts := m.MapShared(toolchain.Result{Stdout: stdout, ExitCode: 1}, []docmodel.Fragment{f})
	v := verdicts["guide_aaaa_000"]
	require.Equal(t, docmodel.VerdictFailedRuntime, v.Kind)
	require.Equal(t, "panic", v.Reason)
}

func TestMapShared_CompileErrorRewritesDiagnostic(t *testing.T) {
	f := frag("guide_aaaa_000", docmodel.DirectiveDefault)
	m := NewMapper(sharedTable(t, f))

	// No run events: the package never built. Generated line 5 is code line 2.
	stdout := events(
		`{"Action":"output","Package":"`+pkgPrefix+`guide_aaaa_000","Output":"# `+pkgPrefix+`guide_aaaa_000\n"}`,
		`{"Action":"output","Package":"`+pkgPrefix+`guide_aaaa_000","Output":"s/guide_aaaa_000/main.go:5:10: undefined: y\n"}`,
		`{"Action":"fail","Package":"`+pkgPrefix+`guide_aaaa_000"}`,
	)

	verdicts := m.MapShared(toolchain.Result{Stdout: stdout, ExitCode: 1}, []docmodel.Fragment{f})
	v := verdicts["guide_aaaa_000"]
	require.Equal(t, docmodel.VerdictFailedCompile, v.Kind)
	require.Equal(t, "guide.md:7: undefined: y", v.Diagnostic)
}

func TestMapShared_CleanRunButPanicExpected(t *testing.T) {
	f := frag("guide_aaaa_000", docmodel.DirectiveExpectPanic)
	m := NewMapper(sharedTable(t, f))

	stdout := events(
		`{"Action":"run","Package":"`+pkgPrefix+`guide_aaaa_000","Test":"TestEntry"}`,
		`{"Action":"pass","Package":"`+pkgPrefix+`guide_aaaa_000"}`,
	)

	verdicts := m.MapShared(toolchain.Result{Stdout: stdout}, []docmodel.Fragment{f})
	v := verdicts["guide_aaaa_000"]
	require.Equal(t, docmodel.VerdictMismatch, v.Kind)
	require.Equal(t, docmodel.OutcomePanic, v.Expected)
	require.Equal(t, docmodel.OutcomeCleanRun, v.Actual)
}

func TestMapShared_UnattributableModuleFailure(t *testing.T) {
	a := frag("guide_aaaa_000", docmodel.DirectiveDefault)
	b := frag("guide_aaaa_001", docmodel.DirectiveBuildOnly)
	m := NewMapper(sharedTable(t, a, b))

	res := toolchain.Result{
		Stderr:   []byte("go: updates to go.mod needed; to update it:\n\tgo mod tidy\n"),
		ExitCode: 1,
	}
	verdicts := m.MapShared(res, []docmodel.Fragment{a, b})
	require.Equal(t, docmodel.VerdictFailedCompile, verdicts["guide_aaaa_000"].Kind)
	require.Equal(t, docmodel.VerdictFailedCompile, verdicts["guide_aaaa_001"].Kind)
}

func TestMapShared_TimeoutWithoutTerminalEvent(t *testing.T) {
	f := frag("guide_aaaa_000", docmodel.DirectiveDefault)
	m := NewMapper(sharedTable(t, f))

	stdout := events(
		`{"Action":"run","Package":"` + pkgPrefix + `guide_aaaa_000","Test":"TestEntry"}`,
	)
	verdicts := m.MapShared(toolchain.Result{Stdout: stdout, ExitCode: -1, TimedOut: true},
		[]docmodel.Fragment{f})
	v := verdicts["guide_aaaa_000"]
	require.Equal(t, docmodel.VerdictFailedRuntime, v.Kind)
	require.Equal(t, "timeout", v.Reason)
}

func TestMapIsolated(t *testing.T) {
	f := frag("guide_aaaa_000", docmodel.DirectiveExpectCompileError)
	m := NewMapper(harness.NewLocationTable())

	v := m.MapIsolated(f, toolchain.IsolatedOutcome{Result: toolchain.Result{ExitCode: 1}})
	require.Equal(t, docmodel.VerdictPassed, v.Kind)

	v = m.MapIsolated(f, toolchain.IsolatedOutcome{Result: toolchain.Result{ExitCode: 0}})
	require.Equal(t, docmodel.VerdictMismatch, v.Kind)
	require.Equal(t, docmodel.OutcomeCompileError, v.Expected)
	require.Equal(t, docmodel.OutcomeCompiles, v.Actual)

	v = m.MapIsolated(f, toolchain.IsolatedOutcome{Result: toolchain.Result{TimedOut: true, ExitCode: -1}})
	require.Equal(t, docmodel.VerdictFailedRuntime, v.Kind)

	v = m.MapIsolated(f, toolchain.IsolatedOutcome{Err: errors.New("download failed")})
	require.Equal(t, docmodel.VerdictFailedRuntime, v.Kind)
}

func TestDecodeEvents_SkipsNoise(t *testing.T) {
	stream := []byte("go: warning something\n" +
		`{"Action":"pass","Package":"p"}` + "\n" +
		"{not json}\n")
	evs := decodeEvents(stream)
	require.Len(t, evs, 1)
	require.Equal(t, "pass", evs[0].Action)
}
