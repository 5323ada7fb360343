// Package trace implements the Judge's Trace Collector & Store (C1): an
// in-memory capture of agent interactions, tool calls, and coordination
// events during a run, with a store keyed by execution id.
//
// The span lifecycle mirrors station's pkg/harness/trace tracer: a
// Start*/log*/End shape wrapping OpenTelemetry spans, generalized here
// from single-purpose execution spans to the Judge's multi-sequence
// trace record.
package trace

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"judge/internal/logging"
	"judge/pkg/judge/model"
)

var tracer = otel.Tracer("judge/trace")

// Store is a thread-safe mapping of execution id to finalized
// TraceRecord. The package keeps no package-level Store: collectors
// share records only when they are given the same Store through
// NewCollector, and NewCollector(nil) gives each collector its own.
type Store struct {
	mu      sync.RWMutex
	records map[string]*model.TraceRecord
}

// NewStore constructs an empty, ready-to-use Store.
func NewStore() *Store {
	return &Store{records: make(map[string]*model.TraceRecord)}
}

// Save persists a finalized TraceRecord under its execution id.
func (s *Store) Save(rec *model.TraceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ExecutionID] = rec
}

// Load returns the TraceRecord for id, or nil if absent.
func (s *Store) Load(id string) *model.TraceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id]
}

// Clear removes every persisted record. Intended for test isolation.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*model.TraceRecord)
}

// Collector captures a single active execution's events and, on
// End, finalizes and persists it to a Store. At most one execution can
// be active per Collector at a time.
type Collector struct {
	mu     sync.Mutex
	store  *Store
	active *activeExecution
	seq    float64
}

type activeExecution struct {
	record *model.TraceRecord
	span   trace.Span
}

// NewCollector constructs a Collector backed by store. If store is nil,
// a fresh Store is created.
func NewCollector(store *Store) *Collector {
	if store == nil {
		store = NewStore()
	}
	return &Collector{store: store}
}

// Store returns the collector's backing Store.
func (c *Collector) Store() *Store { return c.store }

// StartExecution begins a new active execution under id. If an
// execution is already active, it is abandoned (not persisted) with a
// warning — starting a new execution always wins.
func (c *Collector) StartExecution(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	if c.active != nil {
		logging.Warn("trace: execution %q replaced active execution %q before it ended", id, c.active.record.ExecutionID)
	}
	_, span := tracer.Start(context.Background(), "judge.execution", trace.WithAttributes(attribute.String("execution_id", id)))
	c.active = &activeExecution{
		record: &model.TraceRecord{ExecutionID: id},
		span:   span,
	}
	c.seq = 0
}

func (c *Collector) nextTimestamp() float64 {
	c.seq++
	return c.seq
}

// LogAgentInteraction appends an interaction to the active execution.
// Silently dropped (logged) if no execution is active.
func (c *Collector) LogAgentInteraction(from, to, typ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		logging.Debug("trace: dropped agent interaction, no active execution")
		return
	}
	c.active.record.AgentInteractions = append(c.active.record.AgentInteractions, model.AgentInteraction{
		From: from, To: to, Type: typ, Timestamp: c.nextTimestamp(),
	})
}

// LogToolCall appends a tool call to the active execution.
func (c *Collector) LogToolCall(agentID, toolName string, success bool, duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		logging.Debug("trace: dropped tool call, no active execution")
		return
	}
	c.active.record.ToolCalls = append(c.active.record.ToolCalls, model.ToolCall{
		AgentID: agentID, ToolName: toolName, Success: success, Duration: duration, Timestamp: c.nextTimestamp(),
	})
}

// LogCoordinationEvent appends a coordination event to the active execution.
func (c *Collector) LogCoordinationEvent(manager, typ string, targets []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		logging.Debug("trace: dropped coordination event, no active execution")
		return
	}
	c.active.record.CoordinationEvents = append(c.active.record.CoordinationEvents, model.CoordinationEvent{
		Manager: manager, Type: typ, Targets: targets, Timestamp: c.nextTimestamp(),
	})
}

// EndExecution finalizes timing on the active execution, persists it to
// the Store, and returns it. Returns nil if no execution is active.
func (c *Collector) EndExecution() *model.TraceRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		logging.Info("trace: EndExecution called with no active execution")
		return nil
	}
	rec := c.active.record
	rec.TimingData = model.TimingData{StartTime: 0, EndTime: c.seq}
	c.active.span.End()
	c.store.Save(rec)
	c.active = nil
	return rec
}
