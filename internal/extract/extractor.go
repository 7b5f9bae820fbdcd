// Package extract scans documentation text for fenced code samples and
// turns them into addressable fragments with source positions.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
)

// Extractor parses Markdown documents and emits ordered fragments for every
// fenced block tagged with the configured language. Extraction never fails a
// run; malformed directives degrade to skip with a warning.
type Extractor struct {
	md       goldmark.Markdown
	language string
	logger   *slog.Logger
}

// New creates an extractor for ```go fenced blocks.
func New() *Extractor {
	return &Extractor{
		md:       goldmark.New(),
		language: "go",
		logger:   slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (e *Extractor) WithLogger(logger *slog.Logger) *Extractor {
	e.logger = logger
	return e
}

// Extract returns the ordered fragments of one document. Fenced blocks with
// a different (or missing) language tag are not extracted.
func (e *Extractor) Extract(doc docmodel.Document) []docmodel.Fragment {
	source := doc.Raw
	root := e.md.Parser().Parse(text.NewReader(source))
	starts := lineStarts(source)

	ordinal := 0
	var frags []docmodel.Fragment
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		fcb, ok := n.(*gmast.FencedCodeBlock)
		if !ok || fcb.Info == nil {
			return gmast.WalkContinue, nil
		}
		info := parseFenceInfo(string(fcb.Info.Segment.Value(source)))
		if info.Language != e.language {
			return gmast.WalkContinue, nil
		}

		frag := e.buildFragment(doc, fcb, info, starts, ordinal)
		ordinal++
		frags = append(frags, frag)
		return gmast.WalkContinue, nil
	})
	return frags
}

func (e *Extractor) buildFragment(doc docmodel.Document, fcb *gmast.FencedCodeBlock, info fenceInfo, starts []int, ordinal int) docmodel.Fragment {
	source := doc.Raw
	startLine := lineOf(starts, fcb.Info.Segment.Start)

	var (
		codeLines    []string
		displayLines []string
		origins      []docmodel.LineOrigin
		endLine      = startLine + 1
	)
	segs := fcb.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		raw := strings.TrimRight(string(seg.Value(source)), "\r\n")
		docLine := lineOf(starts, seg.Start)
		endLine = docLine + 1

		code, hidden := stripHideMarker(raw)
		codeLines = append(codeLines, code)
		origins = append(origins, docmodel.LineOrigin{DocLine: docLine, Hidden: hidden})
		if !hidden {
			displayLines = append(displayLines, raw)
		}
	}

	frag := docmodel.Fragment{
		ID:        fragmentID(doc.Path, ordinal),
		DocPath:   doc.Path,
		StartLine: startLine,
		EndLine:   endLine,
		Code:      joinLines(codeLines),
		Display:   joinLines(displayLines),
		Lines:     origins,
		Directive: info.Directive,
		Deps:      info.Deps,
		GoVersion: info.GoVersion,
	}

	if len(info.Bad) > 0 {
		e.logger.Warn("Malformed fence directive, fragment degraded to skip",
			"doc", doc.Path,
			"line", startLine,
			"tokens", strings.Join(info.Bad, ","))
		frag.Directive = docmodel.DirectiveSkip
	}
	return frag
}

// fragmentID derives a stable identifier from the document path and the
// fragment's ordinal position among extracted fragments of that document.
func fragmentID(docPath string, ordinal int) string {
	sum := sha256.Sum256([]byte(docPath))
	stem := sanitizeName(strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath)))
	return fmt.Sprintf("%s_%s_%03d", stem, hex.EncodeToString(sum[:4]), ordinal)
}

// sanitizeName lowercases and collapses non-alphanumeric runs to single
// underscores so the id is usable as a directory and identifier component.
func sanitizeName(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, s)
	parts := strings.FieldsFunc(mapped, func(r rune) bool { return r == '_' })
	if len(parts) == 0 {
		return "doc"
	}
	return strings.Join(parts, "_")
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// lineStarts returns the byte offset of every line start, for translating
// AST segment offsets into 1-based line numbers.
func lineStarts(source []byte) []int {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func lineOf(starts []int, offset int) int {
	return sort.Search(len(starts), func(i int) bool { return starts[i] > offset })
}
