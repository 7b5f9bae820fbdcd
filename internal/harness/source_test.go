package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
)

func TestCompleteSource_FullProgramUnchanged(t *testing.T) {
	code := "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n"
	comp := completeSource(docmodel.Fragment{Code: code})

	require.Equal(t, code, comp.text)
	require.Equal(t, "main", comp.packageName)
	require.Equal(t, []int{1, 2, 3, 4, 5}, comp.lineToCode)
}

func TestCompleteSource_WrapsBareStatements(t *testing.T) {
	comp := completeSource(docmodel.Fragment{Code: "x := 1\nprintln(x)\n"})

	require.Equal(t, strings.Join([]string{
		"package main",
		"",
		"func main() {",
		"\tx := 1",
		"\tprintln(x)",
		"}",
		"",
	}, "\n"), comp.text)
	// Synthesized lines map to 0; wrapped lines keep their code line.
	require.Equal(t, []int{0, 0, 0, 1, 2, 0}, comp.lineToCode)
}

func TestCompleteSource_HoistsImports(t *testing.T) {
	code := strings.Join([]string{
		"import (",
		"\t\"fmt\"",
		")",
		"fmt.Println(\"hi\")",
		"",
	}, "\n")
	comp := completeSource(docmodel.Fragment{Code: code})

	require.Equal(t, strings.Join([]string{
		"package main",
		"",
		"import (",
		"\t\"fmt\"",
		")",
		"func main() {",
		"\tfmt.Println(\"hi\")",
		"}",
		"",
	}, "\n"), comp.text)
	require.Equal(t, []int{0, 0, 1, 2, 3, 0, 4, 0}, comp.lineToCode)
}

func TestCompleteSource_SingleImportAndExistingMain(t *testing.T) {
	code := "import \"fmt\"\n\nfunc main() {\n\tfmt.Println(1)\n}\n"
	comp := completeSource(docmodel.Fragment{Code: code})

	require.True(t, strings.HasPrefix(comp.text, "package main\n"))
	require.Contains(t, comp.text, "import \"fmt\"\n")
	// Existing main is not wrapped again.
	require.Equal(t, 1, strings.Count(comp.text, "func main("))
}

func TestCompleteSource_TopLevelDeclarationsStayAtFileScope(t *testing.T) {
	code := strings.Join([]string{
		"func add(a, b int) int {",
		"\treturn a + b",
		"}",
		"println(add(1, 2))",
		"",
	}, "\n")
	comp := completeSource(docmodel.Fragment{Code: code})

	require.Equal(t, strings.Join([]string{
		"package main",
		"",
		"func add(a, b int) int {",
		"\treturn a + b",
		"}",
		"",
		"func main() {",
		"\tprintln(add(1, 2))",
		"}",
		"",
	}, "\n"), comp.text)
	require.Equal(t, []int{0, 0, 1, 2, 3, 0, 0, 4, 0}, comp.lineToCode)
}

func TestCompleteSource_DeclarationOnlyFragmentGetsEmptyMain(t *testing.T) {
	code := "type point struct {\n\tX, Y int\n}\n\nvar origin point\n"
	comp := completeSource(docmodel.Fragment{Code: code})

	require.Contains(t, comp.text, "type point struct {")
	require.Contains(t, comp.text, "var origin point")
	require.Contains(t, comp.text, "func main() {}")
	require.NotContains(t, comp.text, "\ttype point")
}

func TestSplitTopLevel_StatementsAroundDeclarations(t *testing.T) {
	decls, stmts := splitTopLevel([]string{
		"n := double(2)",
		"func double(x int) int {",
		"\treturn 2 * x",
		"}",
		"println(n)",
	}, 0)

	require.Len(t, decls, 3)
	require.Equal(t, "func double(x int) int {", decls[0].text)
	require.Equal(t, 2, decls[0].code)
	require.Len(t, stmts, 2)
	require.Equal(t, "n := double(2)", stmts[0].text)
	require.Equal(t, "println(n)", stmts[1].text)
	require.Equal(t, 5, stmts[1].code)
}

func TestCompleteSource_PackageWithoutMainGetsEmptyMain(t *testing.T) {
	code := "package main\n\nfunc helper() int { return 1 }\n"
	comp := completeSource(docmodel.Fragment{Code: code})

	require.Contains(t, comp.text, "func main() {}")
}

func TestCompleteSource_NonMainPackageKeptAsIs(t *testing.T) {
	code := "package mathutil\n\nfunc Add(a, b int) int { return a + b }\n"
	comp := completeSource(docmodel.Fragment{Code: code})

	require.Equal(t, "mathutil", comp.packageName)
	require.NotContains(t, comp.text, "func main()")
}

func TestCompleteSource_EmptyFragment(t *testing.T) {
	comp := completeSource(docmodel.Fragment{})
	require.Contains(t, comp.text, "package main")
	require.Contains(t, comp.text, "func main() {")
}
