// Package docmodel defines the data model shared across the verification
// pipeline: host-supplied documents, extracted code fragments, their
// directives and the verdicts produced for them.
package docmodel

// Document is one host-supplied documentation file. Documents are immutable
// for the lifetime of a run; annotated copies are produced separately.
type Document struct {
	Path string
	Raw  []byte
}

// Requirement is a single module requirement applied to a synthesized
// project, e.g. path "github.com/google/uuid", version "v1.6.0".
type Requirement struct {
	Path    string `json:"path"`
	Version string `json:"version"`
}

// LineOrigin ties one line of compiled fragment code back to its document.
type LineOrigin struct {
	DocLine int  `json:"doc_line"` // 1-based line in the owning document
	Hidden  bool `json:"hidden"`   // carried a hide marker; not shown to readers
}

// Fragment is one fenced code sample extracted from documentation, with a
// declared directive. Fragments are read-only after extraction.
//
// ID is deterministic from (document path, ordinal position) so cache
// lookups survive unrelated edits elsewhere in the document.
type Fragment struct {
	ID        string
	DocPath   string
	StartLine int // 1-based line of the opening fence
	EndLine   int // 1-based line of the closing fence

	// Code is the compiled text with hide markers stripped; Display is the
	// reader-facing excerpt with hidden lines removed entirely.
	Code    string
	Display string
	Lines   []LineOrigin // one entry per line of Code

	Directive Directive
	Deps      []Requirement // per-fragment dependency overrides
	GoVersion string        // optional language-version override, e.g. "1.24"
}

// VisibleLine maps a 1-based line of the compiled code back to the document
// line a reader can see. Hidden lines resolve to the nearest following
// visible line, falling back to the last visible one, so diagnostics always
// point at text that is actually rendered.
func (f *Fragment) VisibleLine(codeLine int) int {
	if len(f.Lines) == 0 {
		return f.StartLine
	}
	idx := codeLine - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(f.Lines) {
		idx = len(f.Lines) - 1
	}
	for i := idx; i < len(f.Lines); i++ {
		if !f.Lines[i].Hidden {
			return f.Lines[i].DocLine
		}
	}
	for i := idx; i >= 0; i-- {
		if !f.Lines[i].Hidden {
			return f.Lines[i].DocLine
		}
	}
	return f.Lines[idx].DocLine
}
