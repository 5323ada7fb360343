package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"judge/internal/config"
	"judge/pkg/aiclient"
	"judge/pkg/judge/tier1"
	"judge/pkg/judge/tier2"
	"judge/pkg/judge/tier3"
)

// ErrTierUnavailable marks a tier that could not be attempted at all
// because a structural prerequisite is missing (no LLM provider
// configured, no trace available) — as opposed to a tier that was
// attempted and then failed or timed out. EvaluateComprehensive's
// tier1_only fallback-strategy synthesis (§4.7) only fills in tiers of
// the latter kind; a tier reporting this error is left absent so
// composite scoring's weight redistribution applies instead.
var ErrTierUnavailable = errors.New("orchestrator: tier unavailable")

// Tier1Plugin wires the lexical/semantic similarity engine into the
// orchestrator's plugin contract.
type Tier1Plugin struct{ engine *tier1.Engine }

func NewTier1Plugin(cfg *config.Config) *Tier1Plugin {
	return &Tier1Plugin{engine: tier1.NewEngine(cfg)}
}

func (p *Tier1Plugin) Name() string    { return "tier1-lexical-semantic" }
func (p *Tier1Plugin) TierNumber() int { return 1 }

func (p *Tier1Plugin) Evaluate(_ context.Context, in Input, _ map[int]any) (any, error) {
	return p.engine.Evaluate(in.AgentOutput, in.ReferenceTexts, in.StartTime, in.EndTime), nil
}

// Tier2Plugin wires the LLM-judge engine into the orchestrator's
// plugin contract. It does not read prior tiers' results; the
// technical-accuracy fallback computes its own Tier 1 similarity
// between paper and review.
type Tier2Plugin struct {
	cfg    *config.Config
	engine *tier2.Engine
}

func NewTier2Plugin(cfg *config.Config) *Tier2Plugin {
	return &Tier2Plugin{cfg: cfg, engine: tier2.NewEngine(cfg)}
}

func (p *Tier2Plugin) Name() string    { return "tier2-llm-judge" }
func (p *Tier2Plugin) TierNumber() int { return 2 }

// Evaluate reports ErrTierUnavailable rather than calling the engine
// when no LLM provider is configured at all: the engine's own neutral
// fallback (§8.3) is a legitimate in-band result for a provider that
// was reached but whose assessments failed, not for a provider that
// was never available to try.
func (p *Tier2Plugin) Evaluate(ctx context.Context, in Input, _ map[int]any) (any, error) {
	if aiclient.Select(p.cfg) == "" {
		return nil, fmt.Errorf("%w: tier2 has no LLM provider configured", ErrTierUnavailable)
	}
	return p.engine.Evaluate(ctx, in.Paper, in.Review, in.Trace), nil
}

// Tier3Plugin wires the graph analysis engine into the orchestrator's
// plugin contract. It is self-contained (reads only the trace).
type Tier3Plugin struct{ engine *tier3.Engine }

func NewTier3Plugin(cfg *config.Config) *Tier3Plugin {
	return &Tier3Plugin{engine: tier3.NewEngine(cfg)}
}

func (p *Tier3Plugin) Name() string    { return "tier3-graph-analysis" }
func (p *Tier3Plugin) TierNumber() int { return 3 }

func (p *Tier3Plugin) Evaluate(_ context.Context, in Input, _ map[int]any) (any, error) {
	if in.Trace == nil {
		return nil, fmt.Errorf("%w: tier3 has no trace available", ErrTierUnavailable)
	}
	return p.engine.Evaluate(in.Trace), nil
}

// NewDefault builds an Orchestrator with all three tiers registered,
// the common composition used by the CLI and by tests.
func NewDefault(cfg *config.Config) *Orchestrator {
	o := New(cfg)
	o.Register(NewTier1Plugin(cfg))
	o.Register(NewTier2Plugin(cfg))
	o.Register(NewTier3Plugin(cfg))
	return o
}
