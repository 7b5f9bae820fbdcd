package report

import (
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
	"git.home.luguber.info/inful/dockeeper/internal/harness"
	"git.home.luguber.info/inful/dockeeper/internal/toolchain"
)

// Mapper correlates toolchain results with fragments through the location
// table built at synthesis time. No heuristic path guessing happens here;
// every generated file was registered before the toolchain ran.
type Mapper struct {
	table  *harness.LocationTable
	logger *slog.Logger
}

// NewMapper creates a mapper over one project's location table.
func NewMapper(table *harness.LocationTable) *Mapper {
	return &Mapper{table: table, logger: slog.Default()}
}

// WithLogger sets a custom logger.
func (m *Mapper) WithLogger(logger *slog.Logger) *Mapper {
	m.logger = logger
	return m
}

// pkgState accumulates the -json events of one generated package.
type pkgState struct {
	terminal string // pass|fail|skip, package-level
	sawRun   bool
	output   strings.Builder
}

// MapShared classifies every shared-project fragment from one test
// invocation. Each fragment owns one package, so package-level events
// attribute directly. A failure that produced no per-package events at all
// (broken module, unloadable package set) cannot be attributed and marks
// every fragment as failed to compile.
func (m *Mapper) MapShared(res toolchain.Result, frags []docmodel.Fragment) map[string]docmodel.Verdict {
	events := decodeEvents(res.Stdout)
	states := make(map[string]*pkgState)
	for _, ev := range events {
		if ev.Package == "" {
			continue
		}
		id := path.Base(ev.Package)
		st := states[id]
		if st == nil {
			st = &pkgState{}
			states[id] = st
		}
		switch ev.Action {
		case "run":
			st.sawRun = true
		case "output":
			st.output.WriteString(ev.Output)
		case "pass", "fail", "skip":
			if ev.Test == "" {
				st.terminal = ev.Action
			}
		}
	}

	unattributable := len(events) == 0 && res.ExitCode != 0 && !res.TimedOut
	sharedDiag := m.rewriteDiagnostics(string(res.Stderr) + string(res.Stdout))

	verdicts := make(map[string]docmodel.Verdict, len(frags))
	for _, frag := range frags {
		st := states[frag.ID]
		switch {
		case unattributable:
			verdicts[frag.ID] = docmodel.FailedCompile(sharedDiag)
		case st == nil || st.terminal == "":
			if res.TimedOut {
				verdicts[frag.ID] = docmodel.FailedRuntime("timeout")
			} else {
				m.logger.Warn("No terminal event for fragment", "fragment", frag.ID)
				verdicts[frag.ID] = docmodel.FailedCompile(sharedDiag)
			}
		default:
			verdicts[frag.ID] = m.reconcile(frag, st)
		}
	}
	return verdicts
}

// reconcile compares one package's observed outcome against the fragment's
// directive. Genuine failures of well-behaved fragments become
// failed_compile/failed_runtime; inverted expectations become mismatches.
func (m *Mapper) reconcile(frag docmodel.Fragment, st *pkgState) docmodel.Verdict {
	out := st.output.String()

	var actual docmodel.Outcome
	switch st.terminal {
	case "pass":
		actual = docmodel.OutcomeCleanRun
	case "skip":
		// No test files in the package: it compiled, nothing was executed.
		actual = docmodel.OutcomeCompiles
	case "fail":
		switch {
		case strings.Contains(out, "panic:"):
			actual = docmodel.OutcomePanic
		case !st.sawRun:
			actual = docmodel.OutcomeCompileError
		default:
			actual = docmodel.OutcomeRuntimeError
		}
	}

	expected := frag.Directive.Expected()
	if actual == expected {
		return docmodel.Passed()
	}
	// A clean test run subsumes "compiles".
	if expected == docmodel.OutcomeCompiles && actual == docmodel.OutcomeCleanRun {
		return docmodel.Passed()
	}

	switch {
	case actual == docmodel.OutcomeCompileError:
		return docmodel.FailedCompile(m.rewriteDiagnostics(out))
	case expected == docmodel.OutcomeCleanRun && actual == docmodel.OutcomePanic:
		return docmodel.FailedRuntime("panic")
	case expected == docmodel.OutcomeCleanRun && actual == docmodel.OutcomeRuntimeError:
		return docmodel.FailedRuntime("test failure")
	default:
		return docmodel.Mismatched(expected, actual)
	}
}

// MapIsolated classifies one expect-compile-error fragment from its build
// invocation: a non-zero exit is the pass, a clean build is the mismatch.
func (m *Mapper) MapIsolated(frag docmodel.Fragment, out toolchain.IsolatedOutcome) docmodel.Verdict {
	switch {
	case out.Err != nil:
		return docmodel.FailedRuntime(out.Err.Error())
	case out.Result.TimedOut:
		return docmodel.FailedRuntime("timeout")
	case out.Result.ExitCode != 0:
		return docmodel.Passed()
	default:
		return docmodel.Mismatched(docmodel.OutcomeCompileError, docmodel.OutcomeCompiles)
	}
}

// diagRE matches compiler diagnostics of the form file.go:line[:col]: message.
var diagRE = regexp.MustCompile(`(?m)^\s*(?:\./)?([\w./\-]+\.go):(\d+)(?::(\d+))?: (.+)$`)

// rewriteDiagnostics rewrites generated-file coordinates in compiler output
// to document coordinates. Lines that match no registered file are kept
// verbatim; anything else in the output is dropped.
func (m *Mapper) rewriteDiagnostics(raw string) string {
	matches := diagRE.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(raw)
	}
	var b strings.Builder
	for _, match := range matches {
		file, msg := match[1], match[4]
		line, _ := strconv.Atoi(match[2])
		if frag, docLine, ok := m.table.Resolve(file, line); ok {
			fmt.Fprintf(&b, "%s:%d: %s\n", frag.DocPath, docLine, msg)
		} else {
			fmt.Fprintf(&b, "%s:%d: %s\n", file, line, msg)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
