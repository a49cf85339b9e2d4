package emergence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"emergence/internal/evo"
	"emergence/internal/model"
	"emergence/internal/provider"
	"emergence/internal/stats"
	"emergence/internal/storage"
)

const (
	defaultDBPath   = "emergence.db"
	defaultTopLimit = 10
	defaultRunLimit = 20

	defaultExportsDir = "exports"
)

type (
	MonitorConfig         = evo.MonitorConfig
	Counters              = model.Counters
	GenerationDiagnostics = model.GenerationDiagnostics
	LineageRecord         = model.LineageRecord
	TopEntityRecord       = model.TopEntityRecord
	RunRecord             = model.RunRecord
	Summary               = stats.Summary
)

func DefaultMonitorConfig() MonitorConfig {
	return evo.DefaultMonitorConfig()
}

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *slog.Logger
	// Now stamps run records; defaults to time.Now.
	Now func() time.Time
}

type Client struct {
	store       storage.Store
	log         *slog.Logger
	now         func() time.Time
	initialized bool
}

type RunRequest struct {
	// Config selects DefaultMonitorConfig when entirely zero. Otherwise
	// zero sizes, counts and an empty taxonomy take their defaults, while
	// rates, Seed, MaxCycles and CycleDelay are used as given.
	Config    MonitorConfig
	Selection string
	// ConsultProvider wires a seeded Stub provider into the loop.
	ConsultProvider     bool
	ProviderSuccessRate float64
	TopLimit            int
	// OnGeneration receives a formatted report line per closed generation.
	OnGeneration func(report string)
}

type RunSummary struct {
	RunID       string
	Cycles      int
	Generation  int
	Counters    Counters
	Summary     Summary
	BestScore   float64
	Diagnostics int
}

type RunsRequest struct {
	Limit int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type RecordRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, log: logger, now: now}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) ensureInit(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

// Run drives one monitor until ctx is done or the configured cycle limit is
// reached, then archives the run. A cancelled run is still archived.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg := req.Config
	if isZeroConfig(cfg) {
		cfg = evo.DefaultMonitorConfig()
	} else {
		fillStructuralDefaults(&cfg)
	}
	if req.Selection != "" {
		selector, err := evo.SelectorFromName(req.Selection)
		if err != nil {
			return RunSummary{}, err
		}
		cfg.Selector = selector
	}
	if req.ConsultProvider {
		ids := []string{"oracle", "archive", "peer"}
		rate := req.ProviderSuccessRate
		if rate == 0 {
			rate = 0.5
		}
		stub, err := provider.NewStub(provider.StubConfig{Seed: cfg.Seed, SuccessRate: rate, IDs: ids})
		if err != nil {
			return RunSummary{}, err
		}
		cfg.Provider = stub
		cfg.ProviderIDs = ids
	}
	if cfg.Logger == nil {
		cfg.Logger = c.log
	}
	if req.OnGeneration != nil {
		cfg.OnGeneration = func(diag model.GenerationDiagnostics, summary stats.Summary, counters model.Counters) {
			req.OnGeneration(stats.Format(diag.Generation, summary, counters))
		}
	}
	topLimit := req.TopLimit
	if topLimit <= 0 {
		topLimit = defaultTopLimit
	}

	// The archive is opened even when ctx is already done, so an
	// interrupted run can still be recorded.
	if err := c.ensureInit(context.WithoutCancel(ctx)); err != nil {
		return RunSummary{}, err
	}
	monitor, err := evo.NewPopulationMonitor(cfg)
	if err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	c.log.Info("run starting", "run_id", runID, "seed", cfg.Seed)
	result, err := monitor.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	// Archive with a fresh context so a cancelled run is still recorded.
	if err := c.archive(context.WithoutCancel(ctx), runID, cfg, result, topLimit); err != nil {
		return RunSummary{}, err
	}

	best := 0.0
	if len(result.Final) > 0 {
		best = result.Final[0].Score
	}
	return RunSummary{
		RunID:       runID,
		Cycles:      result.Cycles,
		Generation:  result.Generation,
		Counters:    result.Counters,
		Summary:     result.Summary,
		BestScore:   best,
		Diagnostics: len(result.Diagnostics),
	}, nil
}

func (c *Client) archive(ctx context.Context, runID string, cfg MonitorConfig, result evo.RunResult, topLimit int) error {
	version := storage.CurrentVersion()

	lineage := make([]model.LineageRecord, len(result.Lineage))
	for i, rec := range result.Lineage {
		rec.VersionedRecord = version
		lineage[i] = rec
	}
	top := make([]model.TopEntityRecord, 0, topLimit)
	for i, item := range result.Final {
		if i == topLimit {
			break
		}
		top = append(top, model.TopEntityRecord{Rank: i + 1, Score: item.Score, Entity: item.Entity.Clone()})
	}
	best := 0.0
	if len(top) > 0 {
		best = top[0].Score
	}

	run := model.RunRecord{
		VersionedRecord:   version,
		ID:                runID,
		CreatedAtUTC:      c.now().UTC().Format(time.RFC3339Nano),
		Seed:              cfg.Seed,
		InitialPopulation: cfg.InitialPopulation,
		Cycles:            result.Cycles,
		Generation:        result.Generation,
		Attempts:          result.Counters.Attempts,
		Solved:            result.Counters.Solved,
		Created:           result.Counters.Created,
		Pruned:            result.Counters.Pruned,
		FinalPopulation:   result.Summary.Population,
		BestScore:         best,
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, result.Diagnostics); err != nil {
		return fmt.Errorf("save diagnostics: %w", err)
	}
	if err := c.store.SaveLineage(ctx, runID, lineage); err != nil {
		return fmt.Errorf("save lineage: %w", err)
	}
	if err := c.store.SaveTopEntities(ctx, runID, top); err != nil {
		return fmt.Errorf("save top entities: %w", err)
	}
	c.log.Info("run archived", "run_id", runID, "generations", len(result.Diagnostics), "lineage", len(lineage))
	return nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunRecord, error) {
	if req.Limit <= 0 {
		req.Limit = defaultRunLimit
	}
	if err := c.ensureInit(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}
	return runs, nil
}

func (c *Client) Diagnostics(ctx context.Context, req RecordRequest) ([]GenerationDiagnostics, error) {
	runID, err := c.resolveRunID(ctx, req, "diagnostics")
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	return limit(diagnostics, req.Limit), nil
}

func (c *Client) Lineage(ctx context.Context, req RecordRequest) ([]LineageRecord, error) {
	runID, err := c.resolveRunID(ctx, req, "lineage")
	if err != nil {
		return nil, err
	}
	lineage, ok, err := c.store.GetLineage(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("lineage not found for run id: %s", runID)
	}
	return limit(lineage, req.Limit), nil
}

func (c *Client) TopEntities(ctx context.Context, req RecordRequest) ([]TopEntityRecord, error) {
	runID, err := c.resolveRunID(ctx, req, "top entities")
	if err != nil {
		return nil, err
	}
	top, ok, err := c.store.GetTopEntities(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("top entities not found for run id: %s", runID)
	}
	return limit(top, req.Limit), nil
}

// Export writes every archived record of a run as files under OutDir.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = defaultExportsDir
	}
	runID, err := c.resolveRunID(ctx, RecordRequest{RunID: req.RunID, Latest: req.Latest}, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return ExportSummary{}, err
	}
	if !ok {
		return ExportSummary{}, fmt.Errorf("run not found: %s", runID)
	}
	artifacts := stats.RunArtifacts{Run: run}
	if artifacts.Diagnostics, err = c.Diagnostics(ctx, RecordRequest{RunID: runID}); err != nil {
		return ExportSummary{}, err
	}
	if artifacts.Lineage, err = c.Lineage(ctx, RecordRequest{RunID: runID}); err != nil {
		return ExportSummary{}, err
	}
	if artifacts.Top, err = c.TopEntities(ctx, RecordRequest{RunID: runID}); err != nil {
		return ExportSummary{}, err
	}
	dir, err := stats.WriteRunArtifacts(req.OutDir, artifacts)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(dir)}, nil
}

func (c *Client) resolveRunID(ctx context.Context, req RecordRequest, what string) (string, error) {
	if req.RunID != "" && req.Latest {
		return "", errors.New("use either run id or latest")
	}
	if req.Limit < 0 {
		return "", errors.New("limit must be >= 0")
	}
	if err := c.ensureInit(ctx); err != nil {
		return "", err
	}
	if !req.Latest {
		if req.RunID == "" {
			return "", fmt.Errorf("%s requires run id or latest", what)
		}
		return req.RunID, nil
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no runs available")
	}
	return runs[0].ID, nil
}

func isZeroConfig(cfg MonitorConfig) bool {
	return cfg.InitialPopulation == 0 && cfg.MaxPopulation == 0 &&
		cfg.ProblemsMin == 0 && cfg.ProblemsMax == 0 &&
		cfg.GenerationInterval == 0 && cfg.EliteCount == 0 &&
		cfg.Seed == 0 && cfg.MaxCycles == 0 && cfg.CycleDelay == 0 &&
		cfg.MutationRate == 0 && cfg.MutationStrength == 0 &&
		cfg.CrossoverRate == 0 && cfg.FreshInjectionRate == 0 &&
		cfg.PruneThreshold == 0 && cfg.CrossDomainChance == 0 &&
		cfg.ConsultRate == 0 && len(cfg.Taxonomy.Domains) == 0 &&
		cfg.Problems == nil && cfg.Selector == nil && cfg.Provider == nil
}

// fillStructuralDefaults sets fields for which zero is never valid.
func fillStructuralDefaults(cfg *MonitorConfig) {
	d := evo.DefaultMonitorConfig()
	ints := []struct{ dst, def *int }{
		{&cfg.InitialPopulation, &d.InitialPopulation},
		{&cfg.MaxPopulation, &d.MaxPopulation},
		{&cfg.ProblemsMin, &d.ProblemsMin},
		{&cfg.ProblemsMax, &d.ProblemsMax},
		{&cfg.GenerationInterval, &d.GenerationInterval},
		{&cfg.EliteCount, &d.EliteCount},
	}
	for _, v := range ints {
		if *v.dst == 0 {
			*v.dst = *v.def
		}
	}
	if cfg.Problems == nil && len(cfg.Taxonomy.Domains) == 0 {
		cfg.Taxonomy = d.Taxonomy
	}
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
