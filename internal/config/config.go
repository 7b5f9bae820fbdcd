// Package config loads and validates the dockeeper configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
)

// Config represents the application configuration.
type Config struct {
	Docs      DocsConfig      `yaml:"docs"`
	Toolchain ToolchainConfig `yaml:"toolchain"`
	Cache     CacheConfig     `yaml:"cache"`
	Verify    VerifyConfig    `yaml:"verify"`

	// WorkDir holds harness projects, artifact caches and the verdict
	// manifest unless those are configured elsewhere.
	WorkDir string `yaml:"work_dir"`
}

// DocsConfig selects the documents to verify.
type DocsConfig struct {
	// Globs are matched relative to the working directory; the union of all
	// matches is processed in sorted order.
	Globs []string `yaml:"globs"`
	// Annotate injects failure comments into the documents after a run.
	Annotate bool `yaml:"annotate"`
}

// ToolchainConfig describes the external build tool and the dependency
// universe shared by all fragments.
type ToolchainConfig struct {
	Binary    string `yaml:"binary"`
	GoVersion string `yaml:"go_version"`
	// Manifest/Lockfile point at a host project's go.mod/go.sum whose
	// requirements seed every harness project.
	Manifest string `yaml:"manifest,omitempty"`
	Lockfile string `yaml:"lockfile,omitempty"`
	// ExtraRequires lists additional module requirements as path@version.
	ExtraRequires []string `yaml:"extra_requires,omitempty"`
	// ArtifactDir overrides the build/module cache location.
	ArtifactDir string `yaml:"artifact_dir,omitempty"`
}

// CacheConfig controls the verdict cache.
type CacheConfig struct {
	Path     string `yaml:"path,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// VerifyConfig tunes run execution.
type VerifyConfig struct {
	Concurrency int      `yaml:"concurrency,omitempty"`
	Timeout     Duration `yaml:"timeout,omitempty"`
	// KeepFailed retains harness projects of failing fragments for
	// inspection; passing projects are always pruned.
	KeepFailed bool `yaml:"keep_failed,omitempty"`
}

// Load loads configuration from the specified file. Environment variables
// referenced as ${VAR} in the file are expanded after .env/.env.local are
// loaded (existing process env always wins).
func Load(configPath string) (*Config, error) {
	// godotenv never overrides variables that are already set, so loading
	// .env.local first gives it precedence over .env.
	for _, env := range []string{".env.local", ".env"} {
		if _, err := os.Stat(env); err == nil {
			_ = godotenv.Load(env)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.WorkDir == "" {
		c.WorkDir = ".dockeeper"
	}
	if len(c.Docs.Globs) == 0 {
		c.Docs.Globs = []string{"*.md"}
	}
	if c.Toolchain.Binary == "" {
		c.Toolchain.Binary = "go"
	}
	if c.Toolchain.ArtifactDir == "" {
		c.Toolchain.ArtifactDir = filepath.Join(c.WorkDir, "artifacts")
	}
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(c.WorkDir, "verify-cache.json")
	}
}

// Validate rejects configurations that cannot produce a meaningful run.
func (c *Config) Validate() error {
	if c.Verify.Concurrency < 0 {
		return fmt.Errorf("verify.concurrency must not be negative")
	}
	if c.Verify.Timeout < 0 {
		return fmt.Errorf("verify.timeout must not be negative")
	}
	if c.Toolchain.Lockfile != "" && c.Toolchain.Manifest == "" {
		return fmt.Errorf("toolchain.lockfile requires toolchain.manifest")
	}
	if _, err := c.ExtraRequirements(); err != nil {
		return err
	}
	return nil
}

// ExtraRequirements parses the configured path@version requirements.
func (c *Config) ExtraRequirements() ([]docmodel.Requirement, error) {
	reqs := make([]docmodel.Requirement, 0, len(c.Toolchain.ExtraRequires))
	for _, raw := range c.Toolchain.ExtraRequires {
		path, version, ok := strings.Cut(raw, "@")
		if !ok || path == "" || version == "" {
			return nil, fmt.Errorf("toolchain.extra_requires: %q is not path@version", raw)
		}
		reqs = append(reqs, docmodel.Requirement{Path: path, Version: version})
	}
	return reqs, nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Docs: DocsConfig{Globs: []string{"docs/**.md", "README.md"}},
		Toolchain: ToolchainConfig{
			Binary:        "go",
			GoVersion:     "1.24",
			ExtraRequires: []string{"github.com/google/uuid@v1.6.0"},
		},
		Verify:  VerifyConfig{Concurrency: 4, Timeout: Duration(2 * time.Minute)},
		WorkDir: ".dockeeper",
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
