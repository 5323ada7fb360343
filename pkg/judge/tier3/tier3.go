// Package tier3 implements the graph analysis engine (C4, Tier 3): four
// scalars derived from the interaction graph (C3) — coordination
// centrality, tool selection accuracy, path convergence, and task
// distribution balance — composed into a Tier3Result.
package tier3

import (
	"math"

	"judge/internal/config"
	"judge/pkg/judge/graph"
	"judge/pkg/judge/model"
)

// Engine computes Tier 3 scores from a trace's interaction graph.
type Engine struct {
	cfg config.Tier3Config
}

// NewEngine constructs a Tier 3 engine from the Judge's configuration.
func NewEngine(cfg *config.Config) *Engine {
	if cfg == nil {
		return &Engine{cfg: config.Tier3Config{CentralityWeight: 0.25, ToolAccuracyWeight: 0.25, PathConvergenceWeight: 0.25, DistributionWeight: 0.25}}
	}
	return &Engine{cfg: cfg.Tier3}
}

// Evaluate builds the interaction graph for trace and scores it.
func (e *Engine) Evaluate(trace *model.TraceRecord) model.Tier3Result {
	g := graph.Build(trace)

	centrality := coordinationCentrality(g)
	toolAccuracy := toolSelectionAccuracy(g)
	convergence := pathConvergence(trace)
	balance := taskDistributionBalance(trace)

	overall := centrality*weightOr(e.cfg.CentralityWeight, 0.25) +
		toolAccuracy*weightOr(e.cfg.ToolAccuracyWeight, 0.25) +
		convergence*weightOr(e.cfg.PathConvergenceWeight, 0.25) +
		balance*weightOr(e.cfg.DistributionWeight, 0.25)

	return model.Tier3Result{
		PathConvergence:         convergence,
		ToolSelectionAccuracy:   toolAccuracy,
		CoordinationCentrality:  centrality,
		TaskDistributionBalance: balance,
		OverallScore:            clamp01(overall),
		GraphComplexity:         g.NodeCount(),
	}
}

func weightOr(w, def float64) float64 {
	if w == 0 {
		return def
	}
	return w
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// coordinationCentrality approximates betweenness centrality of the
// highest-degree agent node by its share of total edge endpoints,
// which is cheap to compute and monotonic with true betweenness for
// the small interaction graphs the Judge evaluates. A graph with fewer
// than two nodes is neutral (§4.6).
func coordinationCentrality(g *graph.Graph) float64 {
	nodes := g.Nodes()
	if len(nodes) < 2 {
		return 0.5
	}
	degree := make(map[string]int)
	totalEndpoints := 0
	for _, e := range g.Edges() {
		degree[e.Source]++
		degree[e.Target]++
		totalEndpoints += 2
	}
	if totalEndpoints == 0 {
		return 0.5
	}
	maxDegree := 0
	for _, n := range nodes {
		if n.Type != graph.NodeAgent {
			continue
		}
		if degree[n.ID] > maxDegree {
			maxDegree = degree[n.ID]
		}
	}
	return clamp01(float64(maxDegree) / float64(totalEndpoints))
}

// toolSelectionAccuracy is the ratio of successful tool-call edges to
// total tool-call edges; no tool calls is neutral (§4.6).
func toolSelectionAccuracy(g *graph.Graph) float64 {
	total, success := 0, 0
	for _, e := range g.Edges() {
		if e.Label != "tool_call" {
			continue
		}
		total++
		if e.Success {
			success++
		}
	}
	if total == 0 {
		return 0.5
	}
	return clamp01(float64(success) / float64(total))
}

// pathConvergence rewards fewer unique (agent, tool) call paths per
// unit of tool-call work: many distinct paths for few calls is
// divergent; few distinct paths across many calls converges.
func pathConvergence(trace *model.TraceRecord) float64 {
	if trace == nil || len(trace.ToolCalls) == 0 {
		return 0.5
	}
	paths := make(map[string]struct{})
	for _, tc := range trace.ToolCalls {
		paths[tc.AgentID+"->"+tc.ToolName] = struct{}{}
	}
	ratio := 1.0 - (float64(len(paths))-1.0)/float64(len(trace.ToolCalls))
	return clamp01(ratio)
}

// taskDistributionBalance is the normalized Shannon entropy of tool
// calls per agent: perfectly balanced work across agents scores
// 1.0, all work by a single agent scores 0.0 (§4.6).
func taskDistributionBalance(trace *model.TraceRecord) float64 {
	if trace == nil || len(trace.ToolCalls) == 0 {
		return 0.5
	}
	counts := make(map[string]int)
	for _, tc := range trace.ToolCalls {
		agentID := tc.AgentID
		if agentID == "" {
			agentID = "unknown"
		}
		counts[agentID]++
	}
	if len(counts) <= 1 {
		return 0.0
	}
	total := float64(len(trace.ToolCalls))
	var entropy float64
	for _, c := range counts {
		p := float64(c) / total
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	maxEntropy := math.Log2(float64(len(counts)))
	if maxEntropy == 0 {
		return 1.0
	}
	return clamp01(entropy / maxEntropy)
}
