package harness

import (
	"strings"

	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
)

// completedSource is a synthesized single-file main package for one
// fragment, with the per-line index back into the fragment's code.
type completedSource struct {
	text        string
	packageName string
	lineToCode  []int
}

// completeSource turns fragment code into a compilable file. Documentation
// samples are often excerpts: a missing package clause is prepended, leading
// import declarations are hoisted, and a missing main function is
// synthesized around the remaining body.
func completeSource(frag docmodel.Fragment) completedSource {
	var lines []string
	if frag.Code != "" {
		lines = strings.Split(strings.TrimSuffix(frag.Code, "\n"), "\n")
	}

	out := completedSource{packageName: "main"}
	emit := func(text string, codeLine int) {
		out.lineToCode = append(out.lineToCode, codeLine)
		out.text += text + "\n"
	}

	hasPackage := false
	for _, line := range lines {
		if name, ok := strings.CutPrefix(strings.TrimSpace(line), "package "); ok {
			hasPackage = true
			out.packageName = strings.TrimSpace(name)
			break
		}
	}
	hasMain := strings.Contains(frag.Code, "func main(")

	if hasPackage {
		for i, line := range lines {
			emit(line, i+1)
		}
		if !hasMain && out.packageName == "main" {
			emit("", 0)
			emit("func main() {}", 0)
		}
		return out
	}

	emit("package main", 0)
	emit("", 0)

	// Hoist the leading import declarations so they stay at top level when
	// the body is wrapped.
	i := 0
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "//"):
			emit(lines[i], i+1)
		case strings.HasPrefix(trimmed, "import ("):
			for ; i < len(lines); i++ {
				emit(lines[i], i+1)
				if strings.TrimSpace(lines[i]) == ")" {
					break
				}
			}
		case strings.HasPrefix(trimmed, "import "):
			emit(lines[i], i+1)
		default:
			goto body
		}
	}
body:
	rest := lines[i:]

	if hasMain {
		for j, line := range rest {
			emit(line, i+j+1)
		}
		return out
	}

	// Named functions cannot nest, so top-level declarations must stay at
	// file scope and only bare statements get wrapped.
	decls, stmts := splitTopLevel(rest, i)
	for _, d := range decls {
		emit(d.text, d.code)
	}
	if len(stmts) == 0 {
		emit("", 0)
		emit("func main() {}", 0)
		return out
	}
	if len(decls) > 0 {
		emit("", 0)
	}
	emit("func main() {", 0)
	for _, st := range stmts {
		emit("\t"+st.text, st.code)
	}
	emit("}", 0)
	return out
}

// numbered pairs a source line with its 1-based position in the fragment.
type numbered struct {
	text string
	code int
}

// splitTopLevel separates top-level declarations from bare statements. A
// column-zero line opening with a declaration keyword starts a declaration
// chunk that runs until the next column-zero statement line; indented
// lines, closing braces, blanks and comments stick to the current chunk.
func splitTopLevel(lines []string, offset int) (decls, stmts []numbered) {
	inDecl := false
	for j, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "//"):
		case line[0] == ' ' || line[0] == '\t':
		case trimmed[0] == '}' || trimmed[0] == ')':
		default:
			inDecl = startsDeclaration(trimmed)
		}
		n := numbered{text: line, code: offset + j + 1}
		if inDecl {
			decls = append(decls, n)
		} else {
			stmts = append(stmts, n)
		}
	}
	return decls, stmts
}

func startsDeclaration(line string) bool {
	for _, kw := range []string{"func", "type", "const", "var", "import"} {
		rest, ok := strings.CutPrefix(line, kw)
		if !ok {
			continue
		}
		if rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '(' {
			return true
		}
	}
	return false
}
