// Package baseline implements the Baseline Comparator (C7): pairwise
// and three-way diffs of CompositeResults across runtimes.
//
// No teacher file computes this exact kind of diff; the shape is
// grounded on spec §4.9's own antisymmetry and division-guard
// invariants, kept consistent in style with
// station/pkg/benchmark/analyzer.go's plain-arithmetic, no-library
// approach to scoring computations (see DESIGN.md).
package baseline

import (
	"fmt"
	"math"

	"judge/pkg/judge/model"
)

// Compare produces a structured diff between a and b, labeled labelA
// and labelB respectively. metric_deltas[m] = a[m] - b[m] for metrics
// present on both sides (§4.9); swapping a and b negates every delta.
func Compare(a, b model.CompositeResult, labelA, labelB string) model.BaselineComparison {
	metricDeltas := make(map[string]float64)
	for m, va := range a.MetricScores {
		if vb, ok := b.MetricScores[m]; ok {
			metricDeltas[m] = va - vb
		}
	}

	tierDeltas := map[string]*float64{
		"tier1": deltaPtr(a.Tier1Score, b.Tier1Score, true, true),
		"tier2": deltaPtr(valueOr(a.Tier2Score), valueOr(b.Tier2Score), a.Tier2Score != nil, b.Tier2Score != nil),
		"tier3": deltaPtr(a.Tier3Score, b.Tier3Score, true, true),
	}

	return model.BaselineComparison{
		LabelA:       labelA,
		LabelB:       labelB,
		ResultA:      a,
		ResultB:      b,
		MetricDeltas: metricDeltas,
		TierDeltas:   tierDeltas,
		Summary:      summarize(metricDeltas, labelA, labelB),
	}
}

func valueOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func deltaPtr(a, b float64, aPresent, bPresent bool) *float64 {
	if !aPresent || !bPresent {
		return nil
	}
	d := a - b
	return &d
}

func summarize(deltas map[string]float64, labelA, labelB string) string {
	if len(deltas) == 0 {
		return fmt.Sprintf("%s and %s have no comparable metrics.", labelA, labelB)
	}
	var sum float64
	var maxAbs float64
	var maxMetric string
	for m, d := range deltas {
		sum += d
		if math.Abs(d) > maxAbs {
			maxAbs = math.Abs(d)
			maxMetric = m
		}
	}
	avg := sum / float64(len(deltas))
	return fmt.Sprintf("%s vs %s: average metric delta %.3f, largest delta on %q (%.3f).",
		labelA, labelB, avg, maxMetric, deltas[maxMetric])
}

// Labeled pairs a CompositeResult with the runtime label it came from,
// so CompareAll can identify which side of each comparison is missing.
type Labeled struct {
	Label  string
	Result *model.CompositeResult
}

// CompareAll produces the pairwise comparisons among pydanticAI, ccSolo,
// and ccTeams that have both sides present, matching §4.9's three-way
// comparison contract (0 to 3 comparisons).
func CompareAll(pydanticAI, ccSolo, ccTeams *Labeled) []model.BaselineComparison {
	candidates := []*Labeled{pydanticAI, ccSolo, ccTeams}
	var out []model.BaselineComparison
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			if a == nil || b == nil || a.Result == nil || b.Result == nil {
				continue
			}
			out = append(out, Compare(*a.Result, *b.Result, a.Label, b.Label))
		}
	}
	return out
}
