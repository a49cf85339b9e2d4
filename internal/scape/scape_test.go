package scape

import (
	"math/rand"
	"testing"

	"emergence/internal/model"
)

func TestFixedSourceReturnsSameProblem(t *testing.T) {
	want := model.Problem{Domain: "chess", SubTopic: "endgames", Complexity: 0.4}
	var src Source = Fixed(want)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 3; i++ {
		if got := src.Generate(rng, 1); got != want {
			t.Fatalf("unexpected problem: %+v", got)
		}
	}
}

func TestTaxonomyIsASource(t *testing.T) {
	var src Source = DefaultTaxonomy()
	p := src.Generate(rand.New(rand.NewSource(2)), 0)
	if p.Domain == "" || p.CrossDomain() {
		t.Fatalf("unexpected problem: %+v", p)
	}
}
