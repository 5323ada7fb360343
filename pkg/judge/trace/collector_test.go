package trace

import (
	"sync"
	"testing"
)

func TestStoreSaveLoadClear(t *testing.T) {
	s := NewStore()
	c := NewCollector(s)
	c.StartExecution("exec-1")
	c.LogToolCall("a1", "search", true, 0.5)
	rec := c.EndExecution()

	if got := s.Load("exec-1"); got != rec {
		t.Error("expected Load to return the exact record saved by EndExecution")
	}
	s.Clear()
	if got := s.Load("exec-1"); got != nil {
		t.Error("expected Clear to remove all records")
	}
}

func TestStartExecutionGeneratesIDWhenEmpty(t *testing.T) {
	c := NewCollector(nil)
	c.StartExecution("")
	rec := c.EndExecution()
	if rec.ExecutionID == "" {
		t.Error("expected a generated execution id when none is supplied")
	}
}

func TestAtMostOneActiveExecution(t *testing.T) {
	c := NewCollector(nil)
	c.StartExecution("first")
	c.LogToolCall("a1", "search", true, 1.0)
	c.StartExecution("second")
	c.LogToolCall("a2", "write", true, 1.0)
	rec := c.EndExecution()

	if rec.ExecutionID != "second" {
		t.Errorf("expected the second StartExecution to win, got %q", rec.ExecutionID)
	}
	if len(rec.ToolCalls) != 1 {
		t.Errorf("expected only the second execution's tool call to be recorded, got %d", len(rec.ToolCalls))
	}
}

func TestEndExecutionWithNoActiveExecutionReturnsNil(t *testing.T) {
	c := NewCollector(nil)
	if rec := c.EndExecution(); rec != nil {
		t.Errorf("expected nil when ending with no active execution, got %+v", rec)
	}
}

func TestEventsDroppedWithoutActiveExecution(t *testing.T) {
	c := NewCollector(nil)
	c.LogAgentInteraction("a1", "a2", "message")
	c.LogToolCall("a1", "search", true, 1.0)
	c.LogCoordinationEvent("a1", "assign", []string{"a2"})

	c.StartExecution("exec")
	rec := c.EndExecution()
	if len(rec.AgentInteractions) != 0 || len(rec.ToolCalls) != 0 || len(rec.CoordinationEvents) != 0 {
		t.Error("expected events logged before StartExecution to be silently dropped")
	}
}

func TestConcurrentWritersDoNotCorruptTheBuffer(t *testing.T) {
	c := NewCollector(nil)
	c.StartExecution("concurrent")

	var wg sync.WaitGroup
	const n = 50
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.LogToolCall("a1", "search", true, 0.1)
		}(i)
	}
	wg.Wait()

	rec := c.EndExecution()
	if len(rec.ToolCalls) != n {
		t.Errorf("expected %d tool calls from concurrent writers, got %d", n, len(rec.ToolCalls))
	}
}
