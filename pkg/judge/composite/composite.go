// Package composite implements the Composite Scorer (C6): it
// normalizes the three tiers' outputs into six canonical metrics,
// applies dynamic weight redistribution when Tier 2 is absent or the
// trace indicates a single-agent run, and maps the weighted composite
// to a recommendation.
//
// The aggregate-then-recommend shape is grounded on
// station/pkg/benchmark/analyzer.go's calculateAggregateScores; the
// weight and threshold constants, and the AgentMetrics/ScoringSummary
// helpers, are grounded on the original implementation's
// composite_scorer module (see SPEC_FULL.md SUPPLEMENTED FEATURES).
// The dynamic redistribution algebra itself has no Python analogue —
// it is this implementation's reading of spec §4.8.
package composite

import (
	"fmt"
	"math"
	"sort"

	"judge/internal/config"
	"judge/internal/logging"
	"judge/pkg/judge/model"
	"judge/pkg/judge/orchestrator"
)

const epsilon = 1e-2

var defaultWeights = map[string]float64{
	model.MetricTimeTaken:           1.0 / 6.0,
	model.MetricTaskSuccess:         1.0 / 6.0,
	model.MetricOutputSimilarity:    1.0 / 6.0,
	model.MetricPlanningRationality: 1.0 / 6.0,
	model.MetricCoordinationQuality: 1.0 / 6.0,
	model.MetricToolEfficiency:      1.0 / 6.0,
}

// Scorer computes CompositeResults from tier results.
type Scorer struct {
	cfg     config.CompositeConfig
	weights map[string]float64
}

// NewScorer constructs a Scorer using the Judge's configured
// recommendation thresholds and the default equal metric weights.
func NewScorer(cfg *config.Config) *Scorer {
	weights := make(map[string]float64, len(defaultWeights))
	for k, v := range defaultWeights {
		weights[k] = v
	}
	c := config.CompositeConfig{AcceptThreshold: 0.8, WeakAcceptThreshold: 0.6, WeakRejectThreshold: 0.4}
	if cfg != nil {
		c = cfg.Composite
	}
	return &Scorer{cfg: c, weights: weights}
}

// Evaluate composes results (with no trace available, so single-agent
// detection is skipped) into a CompositeResult.
func (s *Scorer) Evaluate(results *orchestrator.Results) (model.CompositeResult, error) {
	return s.EvaluateWithTrace(results, nil)
}

// EvaluateWithTrace composes results into a CompositeResult, using
// trace to detect single-agent runs for weight redistribution (§4.8).
func (s *Scorer) EvaluateWithTrace(results *orchestrator.Results, trace *model.TraceRecord) (model.CompositeResult, error) {
	if results == nil || results.Tier1 == nil {
		return model.CompositeResult{}, fmt.Errorf("composite: no tier 1 result available, cannot score")
	}

	metricValues := s.rawMetricValues(results)

	singleAgent := trace != nil && trace.IsSingleAgent()
	activeWeights := redistribute(s.weights, results.Tier2 == nil, singleAgent)

	var compositeScore float64
	metricScores := make(map[string]float64, len(activeWeights))
	for metric, weight := range activeWeights {
		v := clampWithWarn(metric, metricValues[metric])
		metricScores[metric] = v
		compositeScore += v * weight
	}
	compositeScore = clampWithWarn("composite_score", compositeScore)

	recommendation, recWeight := s.recommend(compositeScore)

	var tier2Score *float64
	if results.Tier2 != nil {
		v := results.Tier2.OverallScore
		tier2Score = &v
	}

	tiersEnabled := []int{1}
	if results.Tier2 != nil {
		tiersEnabled = append(tiersEnabled, 2)
	}
	if results.Tier3 != nil {
		tiersEnabled = append(tiersEnabled, 3)
	}

	return model.CompositeResult{
		CompositeScore:       compositeScore,
		Recommendation:       recommendation,
		RecommendationWeight: recWeight,
		MetricScores:         metricScores,
		Tier1Score:           results.Tier1.OverallScore,
		Tier2Score:           tier2Score,
		Tier3Score:           tier3Score(results),
		EvaluationComplete:   results.Tier1 != nil && results.Tier2 != nil && results.Tier3 != nil,
		SingleAgentMode:      singleAgent,
		WeightsUsed:          activeWeights,
		TiersEnabled:         tiersEnabled,
	}, nil
}

func tier3Score(results *orchestrator.Results) float64 {
	if results.Tier3 == nil {
		return 0
	}
	return results.Tier3.OverallScore
}

// rawMetricValues computes each of the six canonical metrics from
// whichever tiers succeeded (§4.8's source table). Metrics whose
// source tier is missing are left at zero. redistribute() drops
// planning_rationality when Tier 2 is missing; when Tier 3 is missing,
// coordination_quality and tool_efficiency keep their weight at a
// value of zero (coordination_quality is dropped only for a
// single-agent trace).
func (s *Scorer) rawMetricValues(results *orchestrator.Results) map[string]float64 {
	values := make(map[string]float64, 6)
	if results.Tier1 != nil {
		values[model.MetricTimeTaken] = logTimeNormalize(results.Tier1.TimeScore)
		values[model.MetricTaskSuccess] = results.Tier1.TaskSuccess
		values[model.MetricOutputSimilarity] = results.Tier1.OverallScore
	}
	if results.Tier2 != nil {
		values[model.MetricPlanningRationality] = results.Tier2.PlanningRationality
	}
	if results.Tier3 != nil {
		values[model.MetricCoordinationQuality] = results.Tier3.CoordinationCentrality
		values[model.MetricToolEfficiency] = results.Tier3.ToolSelectionAccuracy
	}
	return values
}

// logTimeNormalize maps a Tier 1 time_score (already in [0,1], an
// exp(-duration) decay) through the logarithmic normalization named in
// §4.8: 1 / (1 + ln(1 + t)), where t is read back out of time_score as
// an effective duration proxy.
func logTimeNormalize(timeScore float64) float64 {
	// time_score = exp(-duration) => duration = -ln(time_score), guarded
	// against timeScore == 0 (duration -> +inf collapses cleanly to 0).
	if timeScore <= 0 {
		return 0
	}
	duration := -math.Log(timeScore)
	if duration < 0 {
		duration = 0
	}
	return clampWithWarn(model.MetricTimeTaken, 1.0/(1.0+math.Log(1.0+duration)))
}

func clampWithWarn(label string, v float64) float64 {
	if v < -epsilon || v > 1+epsilon {
		logging.Warn("composite: metric %q out of range (%.4f), clamping", label, v)
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// redistribute drops planning_rationality when tier2Missing and
// coordination_quality when singleAgent, spreading each dropped
// weight equally across the metrics that remain (§4.8).
func redistribute(base map[string]float64, tier2Missing, singleAgent bool) map[string]float64 {
	active := make(map[string]float64, len(base))
	for k, v := range base {
		active[k] = v
	}

	drop := func(metric string) {
		w, ok := active[metric]
		if !ok {
			return
		}
		delete(active, metric)
		if len(active) == 0 {
			return
		}
		share := w / float64(len(active))
		keys := make([]string, 0, len(active))
		for k := range active {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			active[k] += share
		}
	}

	if tier2Missing {
		drop(model.MetricPlanningRationality)
	}
	if singleAgent {
		drop(model.MetricCoordinationQuality)
	}
	return active
}

func (s *Scorer) recommend(score float64) (model.Recommendation, float64) {
	switch {
	case score >= s.cfg.AcceptThreshold:
		return model.RecommendationAccept, 1.0
	case score >= s.cfg.WeakAcceptThreshold:
		return model.RecommendationWeakAccept, 0.7
	case score >= s.cfg.WeakRejectThreshold:
		return model.RecommendationWeakReject, -0.7
	default:
		return model.RecommendationReject, -1.0
	}
}

// ScoringSummary is a diagnostic dump of the active weight and
// threshold configuration, restored from the original implementation's
// get_scoring_summary (see SPEC_FULL.md SUPPLEMENTED FEATURES).
func (s *Scorer) ScoringSummary() map[string]any {
	return map[string]any{
		"weights":               s.weights,
		"accept_threshold":      s.cfg.AcceptThreshold,
		"weak_accept_threshold": s.cfg.WeakAcceptThreshold,
		"weak_reject_threshold": s.cfg.WeakRejectThreshold,
	}
}

// AgentMetrics is a lightweight, rule-based assessment of agent quality
// independent of the three tiers — restored from the original
// implementation's assess_agent_performance for quick triage when a
// full tiered evaluation isn't warranted (see SPEC_FULL.md SUPPLEMENTED
// FEATURES). It is not one of the six canonical composite metrics.
type AgentMetrics struct {
	ToolDiversity      float64
	CoordinationEvents int
	OverallAssessment  float64
}

// AssessAgentPerformance computes a rough, trace-only quality signal:
// how many distinct tools an agent reached for, and how much
// coordination occurred, without running any tier.
func AssessAgentPerformance(trace *model.TraceRecord) AgentMetrics {
	if trace == nil {
		return AgentMetrics{}
	}
	tools := make(map[string]struct{})
	for _, tc := range trace.ToolCalls {
		tools[tc.ToolName] = struct{}{}
	}
	diversity := 0.0
	if len(trace.ToolCalls) > 0 {
		diversity = float64(len(tools)) / float64(len(trace.ToolCalls))
	}
	overall := diversity*0.5 + clampWithWarn("coordination_presence", boolToFloat(len(trace.CoordinationEvents) > 0))*0.5
	return AgentMetrics{
		ToolDiversity:      diversity,
		CoordinationEvents: len(trace.CoordinationEvents),
		OverallAssessment:  overall,
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
