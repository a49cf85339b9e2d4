package storage

import (
	"errors"
	"testing"

	"emergence/internal/model"
)

func TestRunCodecRoundTrip(t *testing.T) {
	input := model.RunRecord{
		VersionedRecord: CurrentVersion(),
		ID:              "run-1",
		CreatedAtUTC:    "2026-01-01T00:00:00Z",
		Seed:            7,
		Attempts:        40,
		Solved:          12,
		BestScore:       0.91,
	}
	data, err := EncodeRun(input)
	if err != nil {
		t.Fatalf("encode run: %v", err)
	}
	output, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if output != input {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", output, input)
	}
}

func TestDecodeRunRejectsVersionMismatch(t *testing.T) {
	data, err := EncodeRun(model.RunRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion + 1, CodecVersion: CurrentCodecVersion},
		ID:              "run-future",
	})
	if err != nil {
		t.Fatalf("encode run: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestDecodeLineageRejectsVersionMismatch(t *testing.T) {
	data, err := EncodeLineage([]model.LineageRecord{
		{VersionedRecord: CurrentVersion(), EntityID: "a"},
		{EntityID: "b"},
	})
	if err != nil {
		t.Fatalf("encode lineage: %v", err)
	}
	if _, err := DecodeLineage(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestTopEntitiesCodecKeepsDomains(t *testing.T) {
	top := []model.TopEntityRecord{{
		Rank:  1,
		Score: 0.8,
		Entity: model.Entity{
			ID:      "e1",
			Domains: map[string]float64{"physics": 1.25},
		},
	}}
	data, err := EncodeTopEntities(top)
	if err != nil {
		t.Fatalf("encode top: %v", err)
	}
	decoded, err := DecodeTopEntities(data)
	if err != nil {
		t.Fatalf("decode top: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Entity.Domains["physics"] != 1.25 {
		t.Fatalf("unexpected decoded top entities: %+v", decoded)
	}
}
