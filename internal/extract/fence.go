package extract

import (
	"regexp"
	"strings"
	"unicode"

	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
)

// fenceInfo is the parsed form of a fenced code block's info string, e.g.
// "go,expect-panic" or "go, dep=github.com/google/uuid@v1.6.0".
type fenceInfo struct {
	Language  string
	Directive docmodel.Directive
	Deps      []docmodel.Requirement
	GoVersion string
	// Bad collects unrecognized or conflicting tokens. A non-empty Bad list
	// degrades the fragment to a skip directive with a warning.
	Bad []string
}

var goVersionRe = regexp.MustCompile(`^[0-9]+\.[0-9]+(\.[0-9]+)?$`)

// parseFenceInfo splits the info string on commas and whitespace. The first
// token is the language identifier; the rest are directive tokens. At most
// one outcome directive is allowed per fragment.
func parseFenceInfo(info string) fenceInfo {
	fields := strings.FieldsFunc(info, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	parsed := fenceInfo{Directive: docmodel.DirectiveDefault}
	if len(fields) == 0 {
		return parsed
	}
	parsed.Language = fields[0]

	seenOutcome := false
	setOutcome := func(d docmodel.Directive, token string) {
		if seenOutcome {
			parsed.Bad = append(parsed.Bad, token)
			return
		}
		parsed.Directive = d
		seenOutcome = true
	}

	for _, token := range fields[1:] {
		switch token {
		case "skip":
			setOutcome(docmodel.DirectiveSkip, token)
		case "build-only":
			setOutcome(docmodel.DirectiveBuildOnly, token)
		case "expect-panic":
			setOutcome(docmodel.DirectiveExpectPanic, token)
		case "expect-compile-error":
			setOutcome(docmodel.DirectiveExpectCompileError, token)
		default:
			if v, ok := strings.CutPrefix(token, "goversion="); ok {
				if goVersionRe.MatchString(v) {
					parsed.GoVersion = v
				} else {
					parsed.Bad = append(parsed.Bad, token)
				}
				continue
			}
			if v, ok := strings.CutPrefix(token, "dep="); ok {
				path, version, found := strings.Cut(v, "@")
				if found && path != "" && version != "" {
					parsed.Deps = append(parsed.Deps, docmodel.Requirement{Path: path, Version: version})
				} else {
					parsed.Bad = append(parsed.Bad, token)
				}
				continue
			}
			parsed.Bad = append(parsed.Bad, token)
		}
	}
	return parsed
}

// stripHideMarker handles hidden lines: a "# " prefix (after indentation)
// marks a line the compiler sees but readers do not. A line consisting of a
// lone "#" becomes an empty hidden line.
func stripHideMarker(line string) (code string, hidden bool) {
	idx := strings.IndexFunc(line, func(r rune) bool { return !unicode.IsSpace(r) })
	if idx < 0 {
		return line, false
	}
	rest := line[idx:]
	switch {
	case rest == "#":
		return line[:idx], true
	case strings.HasPrefix(rest, "# "):
		return line[:idx] + rest[2:], true
	default:
		return line, false
	}
}
