// Package harness synthesizes compilable Go projects that embed extracted
// documentation fragments as individually addressable test entries.
//
// Isolation rule: fragments whose expectation is a successful compile share
// one project (one invocation, per-entry outcomes); every fragment that must
// fail to compile gets its own isolated project so its expected failure
// cannot abort anyone else's build.
package harness

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
)

// ProjectKind distinguishes the shared group from isolated projects.
type ProjectKind string

const (
	ProjectShared   ProjectKind = "shared"
	ProjectIsolated ProjectKind = "isolated"
)

// Project is one synthesized, compilable module. Shared projects embed many
// fragments; isolated projects exactly one.
type Project struct {
	Kind      ProjectKind
	Dir       string
	Fragments []docmodel.Fragment
	Locations *LocationTable
}

// Inputs is the run-wide context every synthesized project inherits.
type Inputs struct {
	WorkDir    string
	GoVersion  string // default language version; per-fragment flags override
	HostModule []byte // host go.mod bytes, optional
	HostDir    string
	HostSum    []byte // host go.sum bytes, optional
	Extra      []docmodel.Requirement
}

// Synthesizer writes harness projects under <WorkDir>/harness.
type Synthesizer struct {
	in     Inputs
	logger *slog.Logger
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(in Inputs) *Synthesizer {
	return &Synthesizer{in: in, logger: slog.Default()}
}

// WithLogger sets a custom logger.
func (s *Synthesizer) WithLogger(logger *slog.Logger) *Synthesizer {
	s.logger = logger
	return s
}

// Synthesize partitions the fragments and writes fresh project trees for
// them. Skip-directed fragments are ignored. The returned slice has the
// shared project first (when non-empty) followed by isolated projects in
// fragment order.
func (s *Synthesizer) Synthesize(frags []docmodel.Fragment) ([]Project, error) {
	root := filepath.Join(s.in.WorkDir, "harness")
	if err := os.RemoveAll(root); err != nil {
		return nil, fmt.Errorf("clean harness dir: %w", err)
	}

	var shared, isolated []docmodel.Fragment
	for _, f := range frags {
		switch f.Directive {
		case docmodel.DirectiveSkip:
			continue
		case docmodel.DirectiveExpectCompileError:
			isolated = append(isolated, f)
		default:
			shared = append(shared, f)
		}
	}

	var projects []Project
	if len(shared) > 0 {
		p, err := s.writeShared(filepath.Join(root, "shared"), shared)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	for _, f := range isolated {
		p, err := s.writeIsolated(filepath.Join(root, "iso", f.ID), f)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	s.logger.Debug("Synthesized harness projects",
		"shared_fragments", len(shared),
		"isolated_projects", len(isolated),
		"dir", root)
	return projects, nil
}

func (s *Synthesizer) writeShared(dir string, frags []docmodel.Fragment) (Project, error) {
	goVersion := s.in.GoVersion
	var overrides []docmodel.Requirement
	for _, f := range frags {
		goVersion = maxGoVersion(goVersion, f.GoVersion)
		overrides = append(overrides, f.Deps...)
	}

	if err := s.writeModule(dir, "dockeeper.harness/shared", goVersion, overrides); err != nil {
		return Project{}, err
	}

	table := NewLocationTable()
	for idx := range frags {
		f := frags[idx]
		comp := completeSource(f)
		rel := filepath.Join("s", f.ID, "main.go")
		if err := writeFile(filepath.Join(dir, rel), []byte(comp.text)); err != nil {
			return Project{}, err
		}
		table.addFile(rel, f, comp.lineToCode)

		if f.Directive.Runnable() {
			if comp.packageName != "main" {
				// There is no main to drive in a library package; verify
				// the compile only.
				s.logger.Warn("Fragment declares a non-main package, verifying compile only",
					"fragment", f.ID, "package", comp.packageName)
				frags[idx].Directive = docmodel.DirectiveBuildOnly
				continue
			}
			entry := entryTest(comp.packageName)
			if err := writeFile(filepath.Join(dir, "s", f.ID, "entry_test.go"), []byte(entry)); err != nil {
				return Project{}, err
			}
		}
	}

	return Project{Kind: ProjectShared, Dir: dir, Fragments: frags, Locations: table}, nil
}

func (s *Synthesizer) writeIsolated(dir string, frag docmodel.Fragment) (Project, error) {
	goVersion := maxGoVersion(s.in.GoVersion, frag.GoVersion)
	if err := s.writeModule(dir, "dockeeper.harness/"+frag.ID, goVersion, frag.Deps); err != nil {
		return Project{}, err
	}

	comp := completeSource(frag)
	if err := writeFile(filepath.Join(dir, "main.go"), []byte(comp.text)); err != nil {
		return Project{}, err
	}

	table := NewLocationTable()
	table.addFile("main.go", frag, comp.lineToCode)
	return Project{Kind: ProjectIsolated, Dir: dir, Fragments: []docmodel.Fragment{frag}, Locations: table}, nil
}

func (s *Synthesizer) writeModule(dir, modulePath, goVersion string, overrides []docmodel.Requirement) error {
	gomod, err := renderGoMod(moduleInputs{
		ModulePath: modulePath,
		GoVersion:  goVersion,
		HostModule: s.in.HostModule,
		HostDir:    s.in.HostDir,
		Extra:      s.in.Extra,
		Overrides:  overrides,
	})
	if err != nil {
		return fmt.Errorf("render go.mod for %s: %w", modulePath, err)
	}
	if err := writeFile(filepath.Join(dir, "go.mod"), gomod); err != nil {
		return err
	}
	if len(s.in.HostSum) > 0 {
		if err := writeFile(filepath.Join(dir, "go.sum"), s.in.HostSum); err != nil {
			return err
		}
	}
	return nil
}

// entryTest is the generated per-entry driver. The build tool reports its
// outcome per package, which makes runtime results attributable without
// ambiguity as long as the compile itself succeeds.
func entryTest(packageName string) string {
	return "package " + packageName + "\n\nimport \"testing\"\n\nfunc TestEntry(t *testing.T) {\n\tmain()\n}\n"
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
