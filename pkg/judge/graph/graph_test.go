package graph

import (
	"testing"

	"judge/pkg/judge/model"
)

func TestBuildNodeAndEdgeBounds(t *testing.T) {
	trace := &model.TraceRecord{
		AgentInteractions: []model.AgentInteraction{
			{From: "a1", To: "a2", Type: "message"},
			{From: "a1", To: "a2", Type: "message"}, // repeated pair
		},
		ToolCalls: []model.ToolCall{
			{AgentID: "a1", ToolName: "search", Success: true},
		},
	}
	g := Build(trace)

	if g.NodeCount() > 2*len(trace.AgentInteractions)+2*len(trace.ToolCalls) {
		t.Errorf("node count %d exceeds bound", g.NodeCount())
	}
	if g.EdgeCount() > len(trace.AgentInteractions)+len(trace.ToolCalls) {
		t.Errorf("edge count %d exceeds bound", g.EdgeCount())
	}
	for _, n := range g.Nodes() {
		if n.ID == "search" && n.Type != NodeTool {
			t.Errorf("tool node %q has type %q, want %q", n.ID, n.Type, NodeTool)
		}
	}
}

func TestRepeatedEdgeOverwritesAttributes(t *testing.T) {
	trace := &model.TraceRecord{
		ToolCalls: []model.ToolCall{
			{AgentID: "a1", ToolName: "search", Success: true},
			{AgentID: "a1", ToolName: "search", Success: false},
		},
	}
	g := Build(trace)
	if g.EdgeCount() != 1 {
		t.Fatalf("expected repeated (agent,tool) pair to merge into one edge, got %d", g.EdgeCount())
	}
	edges := g.Edges()
	if edges[0].Success {
		t.Error("expected the most recent call's Success to win (last-write-wins merge semantics)")
	}
}

func TestMissingKeysDefaultToUnknown(t *testing.T) {
	trace := &model.TraceRecord{
		ToolCalls: []model.ToolCall{{}},
	}
	g := Build(trace)
	found := false
	for _, n := range g.Nodes() {
		if n.ID == "unknown_tool" && n.Type == NodeTool {
			found = true
		}
	}
	if !found {
		t.Error("expected a missing tool name to default to unknown_tool")
	}
}

func TestAgentNodeTypeNeverDowngraded(t *testing.T) {
	trace := &model.TraceRecord{
		AgentInteractions: []model.AgentInteraction{{From: "a1", To: "a2", Type: "message"}},
		ToolCalls:         []model.ToolCall{{AgentID: "a1", ToolName: "a1"}},
	}
	g := Build(trace)
	for _, n := range g.Nodes() {
		if n.ID == "a1" && n.Type != NodeAgent {
			t.Errorf("a1 should remain an agent node even though a tool node shares its id space, got %q", n.Type)
		}
	}
}
