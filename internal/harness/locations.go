package harness

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
)

// LocationTable is the bidirectional index between generated project files
// and source fragments. It is built once at synthesis time; diagnostics are
// never correlated heuristically afterwards.
type LocationTable struct {
	files     map[string]*fileMapping // slash-separated project-relative path
	byFrag    map[string]string       // fragment id → relative file
	fragments map[string]docmodel.Fragment
}

type fileMapping struct {
	fragmentID string
	// lineToCode[i] is the 1-based fragment code line behind generated line
	// i+1, or 0 for synthesized prelude/wrapper lines.
	lineToCode []int
}

// NewLocationTable creates an empty table.
func NewLocationTable() *LocationTable {
	return &LocationTable{
		files:     make(map[string]*fileMapping),
		byFrag:    make(map[string]string),
		fragments: make(map[string]docmodel.Fragment),
	}
}

func (t *LocationTable) addFile(relFile string, frag docmodel.Fragment, lineToCode []int) {
	rel := path.Clean(strings.ReplaceAll(relFile, "\\", "/"))
	t.files[rel] = &fileMapping{fragmentID: frag.ID, lineToCode: lineToCode}
	t.byFrag[frag.ID] = rel
	t.fragments[frag.ID] = frag
}

// Resolve maps a generated file path and line (as printed by the toolchain)
// back to the owning fragment and the visible document line. The file path
// may be project-relative or any longer path ending in a registered file.
func (t *LocationTable) Resolve(file string, genLine int) (docmodel.Fragment, int, bool) {
	rel := path.Clean(strings.ReplaceAll(file, "\\", "/"))
	rel = strings.TrimPrefix(rel, "./")

	m, ok := t.files[rel]
	if !ok {
		for registered, fm := range t.files {
			if strings.HasSuffix(rel, "/"+registered) {
				m, ok = fm, true
				break
			}
		}
	}
	if !ok {
		return docmodel.Fragment{}, 0, false
	}

	frag := t.fragments[m.fragmentID]
	if genLine < 1 || genLine > len(m.lineToCode) || m.lineToCode[genLine-1] == 0 {
		return frag, frag.StartLine, true
	}
	return frag, frag.VisibleLine(m.lineToCode[genLine-1]), true
}

// FragmentByID returns the fragment registered under id.
func (t *LocationTable) FragmentByID(id string) (docmodel.Fragment, bool) {
	frag, ok := t.fragments[id]
	return frag, ok
}

// FileFor returns the generated file that embeds the fragment.
func (t *LocationTable) FileFor(fragID string) (string, bool) {
	rel, ok := t.byFrag[fragID]
	return rel, ok
}
