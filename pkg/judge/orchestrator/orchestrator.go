// Package orchestrator implements the Plugin Registry & Orchestrator
// (C5): it registers tier plugins, runs them in ascending tier order
// under per-tier timeouts and a global budget, passes each tier's
// result forward as context to the next, and isolates tier failures
// so one tier's timeout never aborts the others.
//
// The fan-out-then-collect shape is grounded on
// station/pkg/benchmark/analyzer.go's evaluateMetrics (WaitGroup plus
// buffered error channel), adapted here to sequential per-tier
// dispatch since spec-level ordering requires tier N to see tier N-1's
// result before tier N+1 runs.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"judge/internal/config"
	"judge/internal/logging"
	"judge/pkg/judge/model"
)

// Input is the validated input to a full evaluation run (§4.7).
type Input struct {
	AgentOutput     string
	ReferenceTexts  []string
	Paper           string
	Review          string
	Trace           *model.TraceRecord
	StartTime       float64
	EndTime         float64
}

// Validate enforces the size bounds from §4.7 (DoS defence).
func (in *Input) Validate(limits config.OrchestratorConfig) error {
	if len(in.AgentOutput) > limits.MaxAgentOutputBytes {
		return fmt.Errorf("orchestrator: agent output exceeds %d bytes", limits.MaxAgentOutputBytes)
	}
	if len(in.ReferenceTexts) > limits.MaxReferenceTexts {
		return fmt.Errorf("orchestrator: reference texts exceed %d items", limits.MaxReferenceTexts)
	}
	if len(in.Paper) > limits.MaxPaperExcerptBytes {
		return fmt.Errorf("orchestrator: paper excerpt exceeds %d bytes", limits.MaxPaperExcerptBytes)
	}
	if len(in.Review) > limits.MaxReviewBytes {
		return fmt.Errorf("orchestrator: review exceeds %d bytes", limits.MaxReviewBytes)
	}
	return nil
}

// Plugin is a tier evaluator: a name, a declared tier number, and an
// Evaluate callable that may read prior tiers' results via context.
type Plugin interface {
	Name() string
	TierNumber() int
	Evaluate(ctx context.Context, in Input, priorResults map[int]any) (any, error)
}

// Results holds whatever each tier produced; a nil entry means that
// tier produced no result and no fallback placeholder was synthesized
// for it (see EvaluateComprehensive).
type Results struct {
	Tier1 *model.Tier1Result
	Tier2 *model.Tier2Result
	Tier3 *model.Tier3Result
}

// Orchestrator runs registered plugins in ascending tier order.
type Orchestrator struct {
	cfg     config.OrchestratorConfig
	plugins map[int]Plugin
}

// New constructs an Orchestrator from the Judge's configuration.
func New(cfg *config.Config) *Orchestrator {
	return &Orchestrator{cfg: cfg.Orchestrator, plugins: make(map[int]Plugin)}
}

// Register adds plugin to the registry, keyed by its declared tier.
func (o *Orchestrator) Register(p Plugin) {
	o.plugins[p.TierNumber()] = p
}

func (o *Orchestrator) enabled(tier int) bool {
	for _, t := range o.cfg.EnabledTiers {
		if t == tier {
			return true
		}
	}
	return false
}

func (o *Orchestrator) tierTimeout(tier int) time.Duration {
	switch tier {
	case 1:
		return secondsOrDefault(o.cfg.Tier1MaxSeconds, 10)
	case 2:
		return secondsOrDefault(o.cfg.Tier2MaxSeconds, 45)
	case 3:
		return secondsOrDefault(o.cfg.Tier3MaxSeconds, 10)
	default:
		return 10 * time.Second
	}
}

func secondsOrDefault(s, def float64) time.Duration {
	if s <= 0 {
		s = def
	}
	return time.Duration(s * float64(time.Second))
}

// EvaluateComprehensive runs every enabled, registered tier in
// ascending order and returns their results. A tier's failure or
// timeout never stops the later tiers from running; it leaves that
// tier's entry nil unless the tier1_only fallback strategy fills it
// with a neutral placeholder. If Tier 1 produces no result, the run
// ends with a cannot-score error.
func (o *Orchestrator) EvaluateComprehensive(ctx context.Context, in Input) (*Results, error) {
	if err := in.Validate(o.cfg); err != nil {
		return nil, err
	}

	budget := secondsOrDefault(o.cfg.TotalMaxSeconds, 90)
	deadline := time.Now().Add(budget)

	results := &Results{}
	prior := make(map[int]any)
	unavailable := make(map[int]bool)

	for tier := 1; tier <= 3; tier++ {
		if !o.enabled(tier) {
			unavailable[tier] = true
			continue
		}
		plugin, ok := o.plugins[tier]
		if !ok {
			unavailable[tier] = true
			continue
		}

		tctx, cancel := context.WithTimeout(ctx, o.tierTimeout(tier))
		out, err := runTier(tctx, plugin, in, prior)
		cancel()

		if err != nil {
			logging.Warn("orchestrator: tier %d (%s) failed or timed out: %v", tier, plugin.Name(), err)
			if errors.Is(err, ErrTierUnavailable) {
				unavailable[tier] = true
			}
			continue
		}

		prior[tier] = out
		switch tier {
		case 1:
			if r, ok := out.(model.Tier1Result); ok {
				results.Tier1 = &r
			}
		case 2:
			if r, ok := out.(model.Tier2Result); ok {
				results.Tier2 = &r
			}
		case 3:
			if r, ok := out.(model.Tier3Result); ok {
				results.Tier3 = &r
			}
		}

		if time.Now().After(deadline) {
			logging.Warn("orchestrator: global budget of %s exceeded after tier %d", budget, tier)
		}
	}

	if results.Tier1 == nil {
		return nil, fmt.Errorf("orchestrator: cannot score, tier 1 did not produce a result")
	}

	// §4.7 fallback strategy: once Tier 1 has succeeded, "tier1_only"
	// synthesizes neutral placeholders for any tier that was attempted
	// but failed or timed out, so composite scoring can still proceed.
	// A tier reporting ErrTierUnavailable was never attempted at all
	// (no provider configured, no trace to analyze); that stays absent
	// so composite's weight redistribution handles it instead (§4.8).
	if o.cfg.FallbackStrategy == "tier1_only" {
		if results.Tier2 == nil && !unavailable[2] {
			logging.Warn("orchestrator: tier1_only fallback strategy synthesizing neutral tier 2 result")
			results.Tier2 = synthesizeTier2Fallback()
		}
		if results.Tier3 == nil && !unavailable[3] {
			logging.Warn("orchestrator: tier1_only fallback strategy synthesizing neutral tier 3 result")
			results.Tier3 = synthesizeTier3Fallback()
		}
	}

	return results, nil
}

// synthesizeTier2Fallback builds the neutral Tier2Result placeholder
// the "tier1_only" fallback strategy substitutes for a tier that was
// attempted but produced nothing (§4.7).
func synthesizeTier2Fallback() *model.Tier2Result {
	return &model.Tier2Result{
		TechnicalAccuracy:   0.5,
		Constructiveness:    0.5,
		PlanningRationality: 0.5,
		OverallScore:        0.5,
		ModelUsed:           "fallback_traditional",
		FallbackUsed:        true,
	}
}

// synthesizeTier3Fallback builds the neutral Tier3Result placeholder
// the "tier1_only" fallback strategy substitutes for a tier that was
// attempted but produced nothing (§4.7). Tier3Result carries no
// fallback_used field, matching its original Python counterpart.
func synthesizeTier3Fallback() *model.Tier3Result {
	return &model.Tier3Result{
		PathConvergence:         0.5,
		ToolSelectionAccuracy:   0.5,
		CoordinationCentrality:  0.5,
		TaskDistributionBalance: 0.5,
		OverallScore:            0.5,
		GraphComplexity:         1,
	}
}

// runTier invokes plugin and recovers from a panic so one misbehaving
// plugin cannot bring down the orchestrator loop.
func runTier(ctx context.Context, plugin Plugin, in Input, prior map[int]any) (out any, err error) {
	done := make(chan struct{})
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("tier %s panicked: %v", plugin.Name(), r)
			}
			close(done)
		}()
		out, err = plugin.Evaluate(ctx, in, prior)
	}()

	select {
	case <-done:
		return out, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
