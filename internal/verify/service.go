// Package verify runs the documentation verification pipeline: extract
// fragments, reuse cached verdicts, synthesize harness projects, drive the
// toolchain and map results back to document positions.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/dockeeper/internal/cache"
	"git.home.luguber.info/inful/dockeeper/internal/config"
	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
	"git.home.luguber.info/inful/dockeeper/internal/extract"
	"git.home.luguber.info/inful/dockeeper/internal/harness"
	"git.home.luguber.info/inful/dockeeper/internal/metrics"
	"git.home.luguber.info/inful/dockeeper/internal/report"
	"git.home.luguber.info/inful/dockeeper/internal/toolchain"
)

// Toolchain is the slice of the orchestrator the service consumes; tests
// inject fakes so no external tool runs.
type Toolchain interface {
	Identity() toolchain.Identity
	Download(ctx context.Context, dir string) (toolchain.Result, error)
	TestShared(ctx context.Context, dir string) (toolchain.Result, error)
	BuildAllIsolated(ctx context.Context, dirs []string) []toolchain.IsolatedOutcome
}

// Service executes verification runs.
type Service struct {
	cfg       *config.Config
	tc        Toolchain
	extractor *extract.Extractor
	logger    *slog.Logger
	recorder  metrics.Recorder
}

// NewService creates a service around a probed toolchain.
func NewService(cfg *config.Config, tc Toolchain) *Service {
	return &Service{
		cfg:       cfg,
		tc:        tc,
		extractor: extract.New(),
		logger:    slog.Default(),
		recorder:  metrics.NoopRecorder{},
	}
}

// WithLogger sets a custom logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	s.extractor = s.extractor.WithLogger(logger)
	return s
}

// WithRecorder sets a metrics recorder.
func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

// Run verifies every fragment of the given documents and returns the run
// report. Only environment-level failures (unreadable manifest, harness I/O)
// return an error; per-fragment failures are verdicts in the report.
func (s *Service) Run(ctx context.Context, docs []docmodel.Document) (*report.Report, error) {
	runStart := time.Now()
	defer func() { s.recorder.ObserveRunDuration(time.Since(runStart)) }()

	frags := s.extractAll(docs)

	deps, err := s.loadDepsInputs()
	if err != nil {
		return nil, err
	}
	depsFP := cache.DepsFingerprint(deps)
	toolchainID := s.tc.Identity().String()

	var verdictCache *cache.ContentCache
	if !s.cfg.Cache.Disabled {
		verdictCache = cache.Open(s.cfg.Cache.Path).WithLogger(s.logger)
	}

	rep := report.NewReport()
	s.logger.Info("Starting verification run",
		"run_id", rep.RunID, "documents", len(docs), "fragments", len(frags))

	fingerprints := make(map[string]string, len(frags))
	var pending []docmodel.Fragment
	for _, frag := range frags {
		if frag.Directive == docmodel.DirectiveSkip {
			s.record(rep, frag, docmodel.SkippedByDirective())
			continue
		}
		fp := cache.Fingerprint(frag, depsFP, toolchainID)
		fingerprints[frag.ID] = fp
		if verdictCache != nil {
			if _, ok := verdictCache.Lookup(fp); ok {
				s.record(rep, frag, docmodel.SkippedByCache())
				continue
			}
		}
		pending = append(pending, frag)
	}

	projects, err := s.synthesize(deps, pending)
	if err != nil {
		return nil, err
	}

	verdicts := make(map[string]docmodel.Verdict)
	s.runShared(ctx, projects, verdicts)
	s.runIsolated(ctx, projects, verdicts)

	for _, frag := range pending {
		v, ok := verdicts[frag.ID]
		if !ok {
			// Canceled before this fragment's project ran.
			v = docmodel.FailedRuntime("canceled")
		}
		s.record(rep, frag, v)
		if verdictCache != nil {
			verdictCache.Record(fingerprints[frag.ID], v)
		}
	}

	if verdictCache != nil {
		if err := verdictCache.Flush(); err != nil {
			s.logger.Warn("Could not persist verdict cache", "error", err)
		}
	}

	s.prune(projects, verdicts)

	if s.cfg.Docs.Annotate {
		if err := rep.AnnotateDocuments(""); err != nil {
			s.logger.Warn("Could not annotate documents", "error", err)
		}
	}
	return rep, nil
}

func (s *Service) record(rep *report.Report, frag docmodel.Fragment, v docmodel.Verdict) {
	rep.Add(frag, v)
	s.recorder.IncVerdict(string(v.Kind))
	if !v.Passing() {
		s.logger.Warn("Fragment failed verification",
			"fragment", frag.ID, "doc", frag.DocPath, "line", frag.StartLine, "verdict", v.String())
	}
}

func (s *Service) extractAll(docs []docmodel.Document) []docmodel.Fragment {
	defer s.stage("extract")()
	var frags []docmodel.Fragment
	for _, doc := range docs {
		frags = append(frags, s.extractor.Extract(doc)...)
	}
	return frags
}

func (s *Service) loadDepsInputs() (cache.DepsInputs, error) {
	in := cache.DepsInputs{GoVersion: s.cfg.Toolchain.GoVersion}
	var err error
	if in.Extra, err = s.cfg.ExtraRequirements(); err != nil {
		return in, err
	}
	if s.cfg.Toolchain.Manifest != "" {
		if in.HostModule, err = os.ReadFile(s.cfg.Toolchain.Manifest); err != nil {
			return in, fmt.Errorf("read host manifest: %w", err)
		}
	}
	if s.cfg.Toolchain.Lockfile != "" {
		if in.HostSum, err = os.ReadFile(s.cfg.Toolchain.Lockfile); err != nil {
			return in, fmt.Errorf("read host lockfile: %w", err)
		}
	}
	return in, nil
}

func (s *Service) synthesize(deps cache.DepsInputs, pending []docmodel.Fragment) ([]harness.Project, error) {
	defer s.stage("synthesize")()
	hostDir := ""
	if s.cfg.Toolchain.Manifest != "" {
		hostDir = filepath.Dir(s.cfg.Toolchain.Manifest)
	}
	synth := harness.NewSynthesizer(harness.Inputs{
		WorkDir:    s.cfg.WorkDir,
		GoVersion:  deps.GoVersion,
		HostModule: deps.HostModule,
		HostDir:    hostDir,
		HostSum:    deps.HostSum,
		Extra:      deps.Extra,
	}).WithLogger(s.logger)
	return synth.Synthesize(pending)
}

func (s *Service) runShared(ctx context.Context, projects []harness.Project, verdicts map[string]docmodel.Verdict) {
	for _, proj := range projects {
		if proj.Kind != harness.ProjectShared {
			continue
		}
		done := s.stage("shared")
		s.sharedProject(ctx, proj, verdicts)
		done()
	}
}

func (s *Service) sharedProject(ctx context.Context, proj harness.Project, verdicts map[string]docmodel.Verdict) {
	if dl, err := s.tc.Download(ctx, proj.Dir); err != nil || dl.ExitCode != 0 {
		diag := downloadDiag(dl, err)
		for _, frag := range proj.Fragments {
			verdicts[frag.ID] = docmodel.FailedCompile(diag)
		}
		return
	}
	res, err := s.tc.TestShared(ctx, proj.Dir)
	if err != nil {
		for _, frag := range proj.Fragments {
			verdicts[frag.ID] = docmodel.FailedRuntime(err.Error())
		}
		return
	}
	mapped := report.NewMapper(proj.Locations).WithLogger(s.logger).MapShared(res, proj.Fragments)
	for id, v := range mapped {
		verdicts[id] = v
	}
}

func (s *Service) runIsolated(ctx context.Context, projects []harness.Project, verdicts map[string]docmodel.Verdict) {
	var isolated []harness.Project
	for _, proj := range projects {
		if proj.Kind == harness.ProjectIsolated {
			isolated = append(isolated, proj)
		}
	}
	if len(isolated) == 0 {
		return
	}
	defer s.stage("isolated")()

	dirs := make([]string, len(isolated))
	for i, proj := range isolated {
		dirs[i] = proj.Dir
	}
	outs := s.tc.BuildAllIsolated(ctx, dirs)
	for i, proj := range isolated {
		frag := proj.Fragments[0]
		verdicts[frag.ID] = report.NewMapper(proj.Locations).WithLogger(s.logger).MapIsolated(frag, outs[i])
	}
}

// prune removes harness projects after mapping. Failing projects are kept
// for inspection when configured; everything else goes.
func (s *Service) prune(projects []harness.Project, verdicts map[string]docmodel.Verdict) {
	for _, proj := range projects {
		keep := false
		if s.cfg.Verify.KeepFailed {
			for _, frag := range proj.Fragments {
				if v, ok := verdicts[frag.ID]; ok && !v.Passing() {
					keep = true
					break
				}
			}
		}
		if !keep {
			if err := os.RemoveAll(proj.Dir); err != nil {
				s.logger.Warn("Could not prune harness project", "dir", proj.Dir, "error", err)
			}
		}
	}
}

func (s *Service) stage(name string) func() {
	start := time.Now()
	return func() { s.recorder.ObserveStageDuration(name, time.Since(start)) }
}

func downloadDiag(res toolchain.Result, err error) string {
	if err != nil {
		return err.Error()
	}
	return strings.TrimSpace(string(res.Stderr))
}

