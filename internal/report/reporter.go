package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
)

// Entry pairs a fragment with its verdict.
type Entry struct {
	Fragment docmodel.Fragment
	Verdict  docmodel.Verdict
}

// Summary aggregates verdict counts for one run.
type Summary struct {
	Total      int
	Passed     int
	Failed     int
	Mismatched int
	Skipped    int
	Cached     int
}

// Report collects every fragment verdict of one verification run.
type Report struct {
	RunID   string
	Started time.Time
	entries []Entry
}

// NewReport creates an empty report with a fresh run id.
func NewReport() *Report {
	return &Report{RunID: uuid.NewString(), Started: time.Now()}
}

// Add records one fragment verdict.
func (r *Report) Add(frag docmodel.Fragment, v docmodel.Verdict) {
	r.entries = append(r.entries, Entry{Fragment: frag, Verdict: v})
}

// Entries returns all recorded entries ordered by document and position.
func (r *Report) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Fragment.DocPath != out[j].Fragment.DocPath {
			return out[i].Fragment.DocPath < out[j].Fragment.DocPath
		}
		return out[i].Fragment.StartLine < out[j].Fragment.StartLine
	})
	return out
}

// Failures returns the non-passing entries in document order.
func (r *Report) Failures() []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if !e.Verdict.Passing() {
			out = append(out, e)
		}
	}
	return out
}

// Summary tallies the verdicts.
func (r *Report) Summary() Summary {
	s := Summary{Total: len(r.entries)}
	for _, e := range r.entries {
		switch e.Verdict.Kind {
		case docmodel.VerdictPassed:
			s.Passed++
		case docmodel.VerdictMismatch:
			s.Mismatched++
		case docmodel.VerdictSkipped:
			s.Skipped++
			if e.Verdict.Cached {
				s.Cached++
			}
		default:
			s.Failed++
		}
	}
	return s
}

// ExitCode is 0 when every fragment passed or was skipped, 1 otherwise.
// Every mismatch is enumerated by Render before the process exits.
func (r *Report) ExitCode() int {
	for _, e := range r.entries {
		if !e.Verdict.Passing() {
			return 1
		}
	}
	return 0
}

// Render writes the human-readable run report.
func (r *Report) Render(w io.Writer) error {
	failures := r.Failures()
	for _, e := range failures {
		frag := e.Fragment
		fmt.Fprintf(w, "FAIL %s:%d-%d [%s]: %s\n", frag.DocPath, frag.StartLine, frag.EndLine, frag.ID, e.Verdict)
		if e.Verdict.Diagnostic != "" {
			for _, line := range strings.Split(e.Verdict.Diagnostic, "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
	if len(failures) > 0 {
		fmt.Fprintln(w)
	}

	s := r.Summary()
	fmt.Fprintf(w, "run %s: %d fragments, %d passed, %d failed, %d mismatched, %d skipped",
		r.RunID, s.Total, s.Passed, s.Failed, s.Mismatched, s.Skipped)
	if s.Cached > 0 {
		fmt.Fprintf(w, " (%d cached)", s.Cached)
	}
	fmt.Fprintln(w)
	return nil
}

const annotationPrefix = "<!-- dockeeper: "

// AnnotateDocuments injects a failure comment after the closing fence of
// every failing fragment, so rendered documentation surfaces stale samples.
// Existing annotations are removed first, making the operation idempotent.
func (r *Report) AnnotateDocuments(root string) error {
	byDoc := make(map[string][]Entry)
	for _, e := range r.Failures() {
		byDoc[e.Fragment.DocPath] = append(byDoc[e.Fragment.DocPath], e)
	}

	for docPath, entries := range byDoc {
		full := docPath
		if root != "" {
			full = filepath.Join(root, docPath)
		}
		raw, err := os.ReadFile(full)
		if err != nil {
			return fmt.Errorf("annotate %s: %w", docPath, err)
		}
		lines := dropAnnotations(strings.Split(string(raw), "\n"))

		// Insert bottom-up so earlier line numbers stay valid.
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Fragment.EndLine > entries[j].Fragment.EndLine
		})
		for _, e := range entries {
			at := e.Fragment.EndLine
			if at > len(lines) {
				at = len(lines)
			}
			comment := annotationPrefix + "FAILED " + e.Verdict.String() + " -->"
			lines = append(lines[:at], append([]string{comment}, lines[at:]...)...)
		}

		if err := os.WriteFile(full, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
			return fmt.Errorf("annotate %s: %w", docPath, err)
		}
	}
	return nil
}

func dropAnnotations(lines []string) []string {
	out := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), annotationPrefix) {
			continue
		}
		out = append(out, l)
	}
	return out
}
