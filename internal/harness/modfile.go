package harness

import (
	"fmt"
	"path/filepath"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"

	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
)

// moduleInputs carries everything merged into one generated go.mod:
// host-configured dependencies, run-wide extras, per-fragment overrides and
// the language-version flag.
type moduleInputs struct {
	ModulePath string
	GoVersion  string
	HostModule []byte // raw host go.mod, optional
	HostDir    string // directory of the host go.mod, for relative replace targets
	Extra      []docmodel.Requirement
	Overrides  []docmodel.Requirement
}

// renderGoMod produces the merged manifest for a synthesized project.
func renderGoMod(in moduleInputs) ([]byte, error) {
	f := new(modfile.File)
	if err := f.AddModuleStmt(in.ModulePath); err != nil {
		return nil, fmt.Errorf("module statement: %w", err)
	}
	if in.GoVersion != "" {
		if err := f.AddGoStmt(in.GoVersion); err != nil {
			return nil, fmt.Errorf("go statement: %w", err)
		}
	}

	if len(in.HostModule) > 0 {
		host, err := modfile.Parse("go.mod", in.HostModule, nil)
		if err != nil {
			return nil, fmt.Errorf("parse host manifest: %w", err)
		}
		for _, r := range host.Require {
			if err := f.AddRequire(r.Mod.Path, r.Mod.Version); err != nil {
				return nil, fmt.Errorf("require %s: %w", r.Mod.Path, err)
			}
		}
		for _, rep := range host.Replace {
			newPath := rep.New.Path
			// Relative filesystem replace targets are anchored at the host
			// manifest; the generated project lives elsewhere.
			if modfile.IsDirectoryPath(newPath) && !filepath.IsAbs(newPath) {
				newPath = filepath.Join(in.HostDir, newPath)
			}
			if err := f.AddReplace(rep.Old.Path, rep.Old.Version, newPath, rep.New.Version); err != nil {
				return nil, fmt.Errorf("replace %s: %w", rep.Old.Path, err)
			}
		}
	}

	for _, req := range in.Extra {
		if err := f.AddRequire(req.Path, req.Version); err != nil {
			return nil, fmt.Errorf("require %s: %w", req.Path, err)
		}
	}
	for _, req := range in.Overrides {
		if err := f.AddRequire(req.Path, req.Version); err != nil {
			return nil, fmt.Errorf("require %s: %w", req.Path, err)
		}
	}

	f.Cleanup()
	return f.Format()
}

// maxGoVersion returns the higher of two "1.xx" style language versions;
// empty strings lose to anything.
func maxGoVersion(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case semver.Compare("v"+a, "v"+b) >= 0:
		return a
	default:
		return b
	}
}
