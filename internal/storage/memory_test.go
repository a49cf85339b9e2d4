package storage

import (
	"context"
	"testing"

	"emergence/internal/model"
)

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveRun(context.Background(), model.RunRecord{ID: "r"}); err == nil {
		t.Fatal("expected error before init")
	}
}

func TestMemoryStoreLineageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.LineageRecord{{
		VersionedRecord: CurrentVersion(),
		EntityID:        "e1",
		ParentIDs:       []string{"e0"},
		Generation:      1,
		Operation:       "clone",
	}}
	if err := store.SaveLineage(ctx, "run-1", input); err != nil {
		t.Fatalf("save lineage: %v", err)
	}

	output, ok, err := store.GetLineage(ctx, "run-1")
	if err != nil {
		t.Fatalf("get lineage: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted lineage")
	}
	if len(output) != 1 || output[0].EntityID != "e1" {
		t.Fatalf("unexpected lineage: %+v", output)
	}
	if _, ok, _ := store.GetLineage(ctx, "missing"); ok {
		t.Fatal("expected missing lineage")
	}
}

func TestMemoryStoreDiagnosticsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.GenerationDiagnostics{{Generation: 1, BestScore: 0.5}, {Generation: 2, BestScore: 0.6}}
	if err := store.SaveGenerationDiagnostics(ctx, "run-1", input); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	input[0].BestScore = 99
	output, ok, err := store.GetGenerationDiagnostics(ctx, "run-1")
	if err != nil {
		t.Fatalf("get diagnostics: %v", err)
	}
	if !ok || len(output) != 2 || output[0].BestScore != 0.5 {
		t.Fatalf("unexpected diagnostics: %+v", output)
	}
}

func TestMemoryStoreTopEntitiesAreCopied(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	entity := model.Entity{ID: "e1", Domains: map[string]float64{"art": 0.5}}
	if err := store.SaveTopEntities(ctx, "run-1", []model.TopEntityRecord{{Rank: 1, Entity: entity}}); err != nil {
		t.Fatalf("save top: %v", err)
	}
	entity.Domains["art"] = 2
	top, ok, err := store.GetTopEntities(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get top: ok=%t err=%v", ok, err)
	}
	if top[0].Entity.Domains["art"] != 0.5 {
		t.Fatalf("stored entity aliases caller state: %+v", top[0].Entity)
	}
}

func TestMemoryStoreListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, run := range []model.RunRecord{
		{ID: "old", CreatedAtUTC: "2026-01-01T00:00:00Z"},
		{ID: "new", CreatedAtUTC: "2026-02-01T00:00:00Z"},
	} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run: %v", err)
		}
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" {
		t.Fatalf("unexpected run order: %+v", runs)
	}
}
