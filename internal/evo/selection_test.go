package evo

import (
	"math/rand"
	"testing"

	"emergence/internal/model"
)

func rankedFixture() []ScoredEntity {
	return []ScoredEntity{
		{Entity: &model.Entity{ID: "a"}, Score: 0.9},
		{Entity: &model.Entity{ID: "b"}, Score: 0.8},
		{Entity: &model.Entity{ID: "c"}, Score: 0.4},
		{Entity: &model.Entity{ID: "d"}, Score: 0.2},
	}
}

func TestEliteSelectorStaysInElite(t *testing.T) {
	ranked := rankedFixture()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		parent, err := EliteSelector{}.PickParent(rng, ranked, 2)
		if err != nil {
			t.Fatalf("pick parent: %v", err)
		}
		if parent.ID != "a" && parent.ID != "b" {
			t.Fatalf("elite selector escaped elite set: %s", parent.ID)
		}
	}
}

func TestSelectorsRejectInvalidElite(t *testing.T) {
	ranked := rankedFixture()
	rng := rand.New(rand.NewSource(1))
	for _, selector := range []Selector{EliteSelector{}, TournamentSelector{}} {
		if _, err := selector.PickParent(rng, ranked, 0); err == nil {
			t.Fatalf("%s: expected invalid elite error", selector.Name())
		}
		if _, err := selector.PickParent(rng, ranked, 5); err == nil {
			t.Fatalf("%s: expected oversized elite error", selector.Name())
		}
		if _, err := selector.PickParent(nil, ranked, 1); err == nil {
			t.Fatalf("%s: expected missing rng error", selector.Name())
		}
	}
}

func TestTournamentSelectorFavorsHigherScores(t *testing.T) {
	ranked := rankedFixture()
	rng := rand.New(rand.NewSource(7))
	selector := TournamentSelector{PoolSize: len(ranked), TournamentSize: 3}
	counts := map[string]int{}
	for i := 0; i < 1000; i++ {
		parent, err := selector.PickParent(rng, ranked, 2)
		if err != nil {
			t.Fatalf("pick parent: %v", err)
		}
		counts[parent.ID]++
	}
	if counts["a"] <= counts["d"] {
		t.Fatalf("expected top entity to win more tournaments: %+v", counts)
	}
}

func TestSelectorFromName(t *testing.T) {
	for _, name := range []string{"", "elite", "tournament"} {
		if _, err := SelectorFromName(name); err != nil {
			t.Fatalf("selector %q: %v", name, err)
		}
	}
	if _, err := SelectorFromName("roulette"); err == nil {
		t.Fatal("expected unsupported selector error")
	}
}
