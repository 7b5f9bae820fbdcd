// Package cache provides fingerprint-based verdict reuse across runs.
//
// A fingerprint digests every input that can change a fragment's verdict:
// the compiled text, the directive, the effective dependency set and the
// toolchain identity. Equal fingerprints therefore mean interchangeable
// verdicts, and no separate staleness check is needed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
)

// DepsInputs captures the run-wide dependency surface shared by every
// fragment: the host manifest and lock file bytes, configured extra
// requirements, and the default language version.
type DepsInputs struct {
	HostModule []byte
	HostSum    []byte
	Extra      []docmodel.Requirement
	GoVersion  string
}

// DepsFingerprint computes a deterministic digest of the run-wide
// dependency inputs. Changing any of them invalidates every cached verdict.
func DepsFingerprint(in DepsInputs) string {
	extra := append([]docmodel.Requirement(nil), in.Extra...)
	sort.Slice(extra, func(i, j int) bool {
		if extra[i].Path != extra[j].Path {
			return extra[i].Path < extra[j].Path
		}
		return extra[i].Version < extra[j].Version
	})

	record := struct {
		HostModule string                 `json:"host_module"`
		HostSum    string                 `json:"host_sum"`
		Extra      []docmodel.Requirement `json:"extra"`
		GoVersion  string                 `json:"go_version"`
	}{
		HostModule: digest(in.HostModule),
		HostSum:    digest(in.HostSum),
		Extra:      extra,
		GoVersion:  in.GoVersion,
	}
	return digestJSON(record)
}

// Fingerprint computes the cache key for one fragment. The fragment id is
// deliberately not part of the key: unchanged code keeps its verdict even
// when the surrounding document moves.
func Fingerprint(frag docmodel.Fragment, depsFP, toolchainID string) string {
	record := struct {
		Code      string                 `json:"code"`
		Directive string                 `json:"directive"`
		Deps      []docmodel.Requirement `json:"deps,omitempty"`
		GoVersion string                 `json:"go_version,omitempty"`
		DepsFP    string                 `json:"deps_fp"`
		Toolchain string                 `json:"toolchain"`
	}{
		Code:      strings.ReplaceAll(frag.Code, "\r\n", "\n"),
		Directive: string(frag.Directive),
		Deps:      frag.Deps,
		GoVersion: frag.GoVersion,
		DepsFP:    depsFP,
		Toolchain: toolchainID,
	}
	return digestJSON(record)
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func digestJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// All inputs are plain structs of strings; Marshal cannot fail on them.
		panic(err)
	}
	return digest(data)
}
