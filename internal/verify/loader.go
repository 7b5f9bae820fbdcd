package verify

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
)

// LoadDocuments resolves the configured globs and reads every matching file
// once, in sorted path order so runs are deterministic.
func LoadDocuments(globs []string) ([]docmodel.Document, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, glob := range globs {
		matches, err := filepath.Glob(glob)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", glob, err)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)

	docs := make([]docmodel.Document, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", p, err)
		}
		docs = append(docs, docmodel.Document{Path: filepath.ToSlash(p), Raw: raw})
	}
	return docs, nil
}
