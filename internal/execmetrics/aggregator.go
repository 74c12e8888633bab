// Package execmetrics keeps running execution counters per rule and per
// action, shared by every concurrent pass of the engine.
package execmetrics

import (
	"sort"
	"sync"
	"time"
)

const DefaultSmoothing = 0.2

// Snapshot is a read-only copy of one entry's counters.
type Snapshot struct {
	ID                string     `json:"id"`
	Executions        int64      `json:"executions"`
	Successes         int64      `json:"successes"`
	Failures          int64      `json:"failures"`
	NotMatched        int64      `json:"not_matched"`
	SuccessRate       float64    `json:"success_rate"`
	AvgResponseTimeMs float64    `json:"avg_response_time_ms"`
	LastExecutedAt    *time.Time `json:"last_executed_at,omitempty"`
}

type entry struct {
	mu         sync.Mutex
	executions int64
	successes  int64
	notMatched int64
	avgMs      float64
	lastAt     time.Time
	dirty      bool
}

// record counts one execution. A not-matched evaluation is an execution
// that is neither a success nor a failure.
func (e *entry) record(success, matched bool, d time.Duration, at time.Time, alpha float64) {
	ms := float64(d) / float64(time.Millisecond)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.executions == 0 {
		e.avgMs = ms
	} else {
		e.avgMs = alpha*ms + (1-alpha)*e.avgMs
	}
	e.executions++
	switch {
	case !matched:
		e.notMatched++
	case success:
		e.successes++
	}
	if at.After(e.lastAt) {
		e.lastAt = at
	}
	e.dirty = true
}

func (e *entry) snapshot(id string, clearDirty bool) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		ID:                id,
		Executions:        e.executions,
		Successes:         e.successes,
		Failures:          e.executions - e.successes - e.notMatched,
		NotMatched:        e.notMatched,
		AvgResponseTimeMs: e.avgMs,
	}
	if e.executions > 0 {
		s.SuccessRate = float64(e.successes) / float64(e.executions) * 100
		last := e.lastAt
		s.LastExecutedAt = &last
	}
	wasDirty := e.dirty
	if clearDirty {
		e.dirty = false
	}
	return s, wasDirty
}

type table struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func newTable() *table {
	return &table{entries: make(map[string]*entry)}
}

func (t *table) get(id string) *entry {
	t.mu.RLock()
	e, ok := t.entries[id]
	t.mu.RUnlock()
	if ok {
		return e
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok = t.entries[id]; !ok {
		e = &entry{}
		t.entries[id] = e
	}
	return e
}

func (t *table) lookup(id string) (*entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	return e, ok
}

func (t *table) all(clearDirty, onlyDirty bool) []Snapshot {
	t.mu.RLock()
	ids := make([]string, 0, len(t.entries))
	entries := make([]*entry, 0, len(t.entries))
	for id, e := range t.entries {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	t.mu.RUnlock()

	out := make([]Snapshot, 0, len(ids))
	for i, e := range entries {
		s, dirty := e.snapshot(ids[i], clearDirty)
		if onlyDirty && !dirty {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *table) reset() {
	t.mu.Lock()
	t.entries = make(map[string]*entry)
	t.mu.Unlock()
}

// Aggregator updates are O(1) under a per-entry mutex, so concurrent passes
// touching different rules never contend.
type Aggregator struct {
	alpha   float64
	rules   *table
	actions *table
}

// New returns an aggregator smoothing response times with an exponentially
// weighted moving average of factor alpha. Out-of-range values fall back
// to DefaultSmoothing.
func New(alpha float64) *Aggregator {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultSmoothing
	}
	return &Aggregator{alpha: alpha, rules: newTable(), actions: newTable()}
}

func (a *Aggregator) RecordRule(id string, success bool, d time.Duration, at time.Time) {
	a.rules.get(id).record(success, true, d, at, a.alpha)
}

// RecordRuleNotMatched counts a pass that evaluated the rule without a
// match. It lowers the success rate but is not a failure.
func (a *Aggregator) RecordRuleNotMatched(id string, d time.Duration, at time.Time) {
	a.rules.get(id).record(false, false, d, at, a.alpha)
}

func (a *Aggregator) RecordAction(id string, success bool, d time.Duration, at time.Time) {
	a.actions.get(id).record(success, true, d, at, a.alpha)
}

func (a *Aggregator) Rule(id string) (Snapshot, bool) {
	e, ok := a.rules.lookup(id)
	if !ok {
		return Snapshot{ID: id}, false
	}
	s, _ := e.snapshot(id, false)
	return s, true
}

func (a *Aggregator) Action(id string) (Snapshot, bool) {
	e, ok := a.actions.lookup(id)
	if !ok {
		return Snapshot{ID: id}, false
	}
	s, _ := e.snapshot(id, false)
	return s, true
}

// Rules returns every rule's counters ordered by id.
func (a *Aggregator) Rules() []Snapshot {
	return a.rules.all(false, false)
}

func (a *Aggregator) Actions() []Snapshot {
	return a.actions.all(false, false)
}

// Reset drops every counter. Updates racing with a reset may land in the
// discarded generation.
func (a *Aggregator) Reset() {
	a.rules.reset()
	a.actions.reset()
}

// drainDirty returns entries changed since the previous drain.
func (a *Aggregator) drainDirty() (rules, actions []Snapshot) {
	return a.rules.all(true, true), a.actions.all(true, true)
}
