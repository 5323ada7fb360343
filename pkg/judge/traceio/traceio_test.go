package traceio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestDetectModeSoloWhenNoConfig(t *testing.T) {
	dir := t.TempDir()
	if mode := DetectMode(dir); mode != "solo" {
		t.Errorf("DetectMode with no config.json = %q, want solo", mode)
	}
}

func TestDetectModeTeamsWhenMembersPresent(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "config.json"), map[string]any{
		"team_name": "paper-review-team",
		"members":   []map[string]string{{"name": "a1", "agentId": "a1"}},
	})
	if mode := DetectMode(dir); mode != "teams" {
		t.Errorf("DetectMode with members = %q, want teams", mode)
	}
}

func TestDetectModeMalformedConfigIsTeams(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if mode := DetectMode(dir); mode != "teams" {
		t.Errorf("DetectMode with malformed config.json = %q, want teams (attempted teams mode)", mode)
	}
}

func TestSoloAdapterMissingMetadataIsMalformed(t *testing.T) {
	dir := t.TempDir()
	a := &SoloAdapter{Dir: dir}
	_, err := a.Parse()
	if _, ok := err.(*MalformedArtifactError); !ok {
		t.Errorf("expected a MalformedArtifactError, got %v (%T)", err, err)
	}
}

func TestSoloAdapterParsesMetadataAndToolCalls(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "metadata.json"), map[string]any{
		"session_id": "sess-1", "start_time": 0.0, "end_time": 5.0,
	})
	lines := `{"tool_name":"search","agent_id":"a1","success":true,"duration":1.2,"timestamp":1.0}
{"tool_name":"write","agent_id":"a1","success":false,"duration":0.8,"timestamp":2.0}
`
	if err := os.WriteFile(filepath.Join(dir, "tool_calls.jsonl"), []byte(lines), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	a := &SoloAdapter{Dir: dir}
	rec, err := a.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ExecutionID != "sess-1" {
		t.Errorf("execution_id = %q, want sess-1", rec.ExecutionID)
	}
	if len(rec.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(rec.ToolCalls))
	}
	if len(rec.AgentInteractions) != 0 || len(rec.CoordinationEvents) != 0 {
		t.Error("solo adapter should produce empty agent_interactions and coordination_events")
	}
}

func TestSoloAdapterSkipsMalformedJSONLLines(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "metadata.json"), map[string]any{"session_id": "sess-1"})
	lines := `{"tool_name":"search","agent_id":"a1","success":true}
not valid json
{"tool_name":"write","agent_id":"a1","success":true}
`
	if err := os.WriteFile(filepath.Join(dir, "tool_calls.jsonl"), []byte(lines), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	a := &SoloAdapter{Dir: dir}
	rec, err := a.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.ToolCalls) != 2 {
		t.Errorf("expected malformed line to be skipped, leaving 2 calls, got %d", len(rec.ToolCalls))
	}
}

func TestTeamsAdapterEndToEndScenario(t *testing.T) {
	root := t.TempDir()
	teamDir := filepath.Join(root, "sessions", "paper-review-team")
	writeJSON(t, filepath.Join(teamDir, "config.json"), map[string]any{
		"team_name": "paper-review-team",
		"members": []map[string]string{
			{"name": "reviewer", "agentId": "a1"},
			{"name": "coordinator", "agentId": "a2"},
		},
	})
	writeJSON(t, filepath.Join(teamDir, "inboxes", "001.json"), map[string]any{
		"from": "a2", "to": "a1", "type": "assign", "content": "review section 1", "timestamp": 1.0,
	})
	writeJSON(t, filepath.Join(teamDir, "inboxes", "002.json"), map[string]any{
		"from": "a1", "to": "a2", "type": "report", "content": "done", "timestamp": 4.0,
	})

	// sibling layout: <root>/tasks/paper-review-team/
	writeJSON(t, filepath.Join(root, "tasks", "paper-review-team", "t1.json"), map[string]any{
		"id": "t1", "owner": "a1", "status": "completed", "created_at": 1.5, "completed_at": 3.5, "title": "review section 1",
	})

	a := &TeamsAdapter{Dir: teamDir}
	rec, err := a.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ExecutionID != "paper-review-team" {
		t.Errorf("execution_id = %q, want paper-review-team", rec.ExecutionID)
	}
	if len(rec.AgentInteractions) != 2 {
		t.Errorf("expected 2 agent interactions, got %d", len(rec.AgentInteractions))
	}
	if len(rec.CoordinationEvents) != 2 {
		t.Errorf("expected 2 coordination events (one per message), got %d", len(rec.CoordinationEvents))
	}
	if len(rec.ToolCalls) != 1 {
		t.Fatalf("expected 1 completed task to surface as a tool call, got %d", len(rec.ToolCalls))
	}
	if rec.TimingData.StartTime != 1.0 || rec.TimingData.EndTime != 4.0 {
		t.Errorf("timing_data = %+v, want start=1.0 end=4.0", rec.TimingData)
	}
}

func TestResolveTasksDirPrefersExplicitOverride(t *testing.T) {
	root := t.TempDir()
	teamDir := filepath.Join(root, "team")
	writeJSON(t, filepath.Join(teamDir, "config.json"), map[string]any{"team_name": "t"})
	explicit := filepath.Join(root, "explicit-tasks")
	if err := os.MkdirAll(explicit, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	a := &TeamsAdapter{Dir: teamDir, TasksDir: explicit}
	if got := a.resolveTasksDir(); got != explicit {
		t.Errorf("resolveTasksDir() = %q, want explicit override %q", got, explicit)
	}
}

func TestResolveTasksDirFallsBackToChildLayout(t *testing.T) {
	root := t.TempDir()
	teamDir := filepath.Join(root, "team")
	if err := os.MkdirAll(filepath.Join(teamDir, "tasks"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	a := &TeamsAdapter{Dir: teamDir}
	want := filepath.Join(teamDir, "tasks")
	if got := a.resolveTasksDir(); got != want {
		t.Errorf("resolveTasksDir() = %q, want child layout %q", got, want)
	}
}

func TestNewAdapterDetectsModeAndReturnsMatchingType(t *testing.T) {
	solo := t.TempDir()
	if _, ok := NewAdapter(solo, "").(*SoloAdapter); !ok {
		t.Error("expected NewAdapter to return a SoloAdapter for a directory with no config.json")
	}

	teams := t.TempDir()
	writeJSON(t, filepath.Join(teams, "config.json"), map[string]any{"team_name": "t"})
	if _, ok := NewAdapter(teams, "").(*TeamsAdapter); !ok {
		t.Error("expected NewAdapter to return a TeamsAdapter for a directory with team_name in config.json")
	}
}
