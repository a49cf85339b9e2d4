package stats

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"emergence/internal/model"
	"emergence/internal/population"
)

// Summary aggregates one population snapshot. All fields are zero for an
// empty population.
type Summary struct {
	Population         int     `json:"population"`
	MeanCapability     float64 `json:"mean_capability"`
	MaxCapability      float64 `json:"max_capability"`
	StdCapability      float64 `json:"std_capability"`
	MeanReflection     float64 `json:"mean_reflection"`
	MeanMetaReflection float64 `json:"mean_meta_reflection"`
	MeanScore          float64 `json:"mean_score"`
	BestScore          float64 `json:"best_score"`
	MinScore           float64 `json:"min_score"`
	StdScore           float64 `json:"std_score"`
	ProblemsSolved     int     `json:"problems_solved"`
	Insights           int     `json:"insights"`
	KnownDomains       int     `json:"known_domains"`
}

func Summarize(entities []*model.Entity) Summary {
	if len(entities) == 0 {
		return Summary{}
	}
	capability := make([]float64, len(entities))
	reflection := make([]float64, len(entities))
	meta := make([]float64, len(entities))
	scores := make([]float64, len(entities))
	domains := map[string]struct{}{}

	s := Summary{Population: len(entities)}
	for i, e := range entities {
		capability[i] = e.Capability
		reflection[i] = e.Reflection
		meta[i] = e.MetaReflection
		scores[i] = population.TotalScore(e)
		s.ProblemsSolved += e.ProblemsSolved
		s.Insights += len(e.Insights)
		for d := range e.Domains {
			domains[d] = struct{}{}
		}
	}

	s.MeanCapability = stat.Mean(capability, nil)
	s.MaxCapability = floats.Max(capability)
	s.MeanReflection = stat.Mean(reflection, nil)
	s.MeanMetaReflection = stat.Mean(meta, nil)
	s.MeanScore = stat.Mean(scores, nil)
	s.BestScore = floats.Max(scores)
	s.MinScore = floats.Min(scores)
	if len(entities) > 1 {
		s.StdCapability = stat.StdDev(capability, nil)
		s.StdScore = stat.StdDev(scores, nil)
	}
	s.KnownDomains = len(domains)
	return s
}

// Format renders an advisory, human-readable status block.
func Format(generation int, s Summary, c model.Counters) string {
	var b strings.Builder
	fmt.Fprintf(&b, "generation %s: population=%s cycles=%s\n",
		humanize.Comma(int64(generation)), humanize.Comma(int64(s.Population)), humanize.Comma(int64(c.Cycles)))
	fmt.Fprintf(&b, "  capability mean=%s max=%s std=%s reflection=%s meta=%s\n",
		ftoa(s.MeanCapability), ftoa(s.MaxCapability), ftoa(s.StdCapability), ftoa(s.MeanReflection), ftoa(s.MeanMetaReflection))
	fmt.Fprintf(&b, "  score best=%s mean=%s min=%s\n", ftoa(s.BestScore), ftoa(s.MeanScore), ftoa(s.MinScore))
	fmt.Fprintf(&b, "  attempts=%s solved=%s (%s) cross_domain=%s insights=%s domains=%d\n",
		humanize.Comma(int64(c.Attempts)), humanize.Comma(int64(c.Solved)), percent(c.Solved, c.Attempts),
		humanize.Comma(int64(c.CrossDomain)), humanize.Comma(int64(s.Insights)), s.KnownDomains)
	fmt.Fprintf(&b, "  created=%s spawned=%s pruned=%s breakthroughs=%s transitions=%s",
		humanize.Comma(int64(c.Created)), humanize.Comma(int64(c.Spawned)), humanize.Comma(int64(c.Pruned)),
		humanize.Comma(int64(c.Breakthroughs)), humanize.Comma(int64(c.PhaseTransitions)))
	return b.String()
}

func ftoa(v float64) string {
	return humanize.FtoaWithDigits(v, 3)
}

func percent(n, d int) string {
	if d == 0 {
		return "0%"
	}
	return humanize.FtoaWithDigits(100*float64(n)/float64(d), 1) + "%"
}
