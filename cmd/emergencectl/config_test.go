package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"emergence/pkg/emergence"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func parseRunRequest(t *testing.T, args ...string) emergence.RunRequest {
	t.Helper()
	opts := &runOptions{}
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	opts.register(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	req, err := opts.request(fs)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return req
}

func TestRunRequestUsesConfigFile(t *testing.T) {
	path := writeConfig(t, `
seed = 77
initial_population = 8
max_cycles = 30
cycle_delay = "25ms"
mutation_rate = 0.5
selection = "tournament"
consult_provider = true

[[domains]]
name = "chess"
sub_topics = ["openings", "endgames"]
complexity = 0.6
abstraction = 0.5
cognitive_load = 0.7
novelty = 0.3
`)
	req := parseRunRequest(t, "--config", path)
	cfg := req.Config
	if cfg.Seed != 77 || cfg.InitialPopulation != 8 || cfg.MaxCycles != 30 {
		t.Fatalf("unexpected config values: seed=%d pop=%d cycles=%d", cfg.Seed, cfg.InitialPopulation, cfg.MaxCycles)
	}
	if cfg.CycleDelay != 25*time.Millisecond {
		t.Fatalf("expected 25ms delay, got %s", cfg.CycleDelay)
	}
	if cfg.MutationRate != 0.5 || cfg.CrossoverRate != 0.2 {
		t.Fatalf("unexpected rates: mutation=%f crossover=%f", cfg.MutationRate, cfg.CrossoverRate)
	}
	if req.Selection != "tournament" || !req.ConsultProvider {
		t.Fatalf("unexpected request options: %+v", req)
	}
	if len(cfg.Taxonomy.Domains) != 1 || cfg.Taxonomy.Domains[0].Name != "chess" {
		t.Fatalf("expected custom taxonomy, got %+v", cfg.Taxonomy.Domains)
	}
}

func TestRunRequestFlagsOverrideConfigFile(t *testing.T) {
	path := writeConfig(t, "seed = 77\nmutation_rate = 0.5\n")
	req := parseRunRequest(t, "--config", path, "--seed", "9", "--delay", "0s")
	if req.Config.Seed != 9 {
		t.Fatalf("expected flag seed 9, got %d", req.Config.Seed)
	}
	if req.Config.MutationRate != 0.5 {
		t.Fatalf("expected file mutation rate 0.5, got %f", req.Config.MutationRate)
	}
	if req.Config.CycleDelay != 0 {
		t.Fatalf("expected zero delay, got %s", req.Config.CycleDelay)
	}
}

func TestRunRequestDefaultsWithoutConfig(t *testing.T) {
	req := parseRunRequest(t)
	if req.Config.InitialPopulation != 5 || req.Config.CycleDelay != 500*time.Millisecond || req.Config.MaxCycles != 0 {
		t.Fatalf("unexpected defaults: %+v", req.Config)
	}
}

func TestLoadFileConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "seed = 1\ngenerations = 4\n")
	if _, err := loadFileConfig(path); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestLoadFileConfigRejectsMalformedFile(t *testing.T) {
	path := writeConfig(t, "seed = \n")
	if _, err := loadFileConfig(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRunRequestRejectsZeroPopulation(t *testing.T) {
	opts := &runOptions{}
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	opts.register(fs)
	if err := fs.Parse([]string{"--population", "0"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := opts.request(fs); err == nil {
		t.Fatal("expected population error")
	}
}
