package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"ruleflow/internal/condition"
	"ruleflow/internal/config"
	"ruleflow/internal/logger"
	"ruleflow/pkg/cel"
	"ruleflow/pkg/metrics"
)

// ActionRef is one entry of a rule branch. Action is nil when the id does
// not resolve in the current catalog.
type ActionRef struct {
	ID     string
	Action *Action
}

// CompiledRule is a rule with its condition parsed and its action lists
// resolved. ParseErr is set instead of Program when the source is malformed;
// such rules stay selectable so the failure is reported per execution.
type CompiledRule struct {
	Rule
	Program  *condition.Program
	ParseErr error
	Then     []ActionRef
	Else     []ActionRef
}

func (r *CompiledRule) Active() bool { return r.Status == StatusActive }

type snapshot struct {
	rules    []*CompiledRule
	byID     map[string]*CompiledRule
	actions  map[string]*Action
	loadedAt time.Time
}

type Service struct {
	source    Source
	cfg       config.CatalogConfig
	evaluator *cel.Evaluator
	logger    logger.Logger

	mu   sync.RWMutex
	snap *snapshot
}

func NewService(source Source, cfg config.CatalogConfig, log logger.Logger) (*Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	return &Service{
		source:    source,
		cfg:       cfg,
		evaluator: evaluator,
		logger:    log,
		snap:      compile(&Document{}, time.Time{}),
	}, nil
}

func (s *Service) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Rules returns every loaded rule ordered by priority then id.
func (s *Service) Rules() []*CompiledRule {
	snap := s.current()
	out := make([]*CompiledRule, len(snap.rules))
	copy(out, snap.rules)
	return out
}

func (s *Service) Rule(id string) (*CompiledRule, bool) {
	r, ok := s.current().byID[id]
	return r, ok
}

func (s *Service) Action(id string) (*Action, bool) {
	a, ok := s.current().actions[id]
	return a, ok
}

// Actions resolves ids in order; missing ids yield nil entries.
func (s *Service) Actions(ids []string) []*Action {
	snap := s.current()
	out := make([]*Action, len(ids))
	for i, id := range ids {
		out[i] = snap.actions[id]
	}
	return out
}

func (s *Service) LoadedAt() time.Time {
	return s.current().loadedAt
}

func (s *Service) ReloadRules(ctx context.Context, skipJitter ...bool) error {
	shouldSkipJitter := len(skipJitter) > 0 && skipJitter[0]

	if err := s.applyJitter(ctx, shouldSkipJitter); err != nil {
		return err
	}

	s.logger.DebugwCtx(ctx, "Loading catalog", "source", s.source.Name())
	doc, err := s.source.Load(ctx)
	if err != nil {
		metrics.IncCatalogReload(s.source.Name(), "error")
		return err
	}

	s.Apply(ctx, doc)
	metrics.IncCatalogReload(s.source.Name(), "success")
	return nil
}

// Apply compiles doc and swaps it in as the current catalog.
func (s *Service) Apply(ctx context.Context, doc *Document) {
	snap := compile(doc, time.Now())

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	active, broken := 0, 0
	for _, r := range snap.rules {
		if r.Active() {
			active++
		}
		if r.ParseErr != nil {
			broken++
			s.logger.WarnwCtx(ctx, "Rule condition does not parse",
				"rule_id", r.ID,
				"error", r.ParseErr,
			)
		}
	}

	invalid := 0
	for _, id := range sortedActionIDs(snap.actions) {
		a := snap.actions[id]
		if err := a.ConfigErr(); err != nil {
			invalid++
			s.logger.WarnwCtx(ctx, "Action config is invalid",
				"action_id", a.ID,
				"action_type", a.Type,
				"error", err,
			)
		}
	}

	metrics.SetActiveRules(active)
	s.logger.InfowCtx(ctx, "Successfully reloaded catalog",
		"rules_count", len(snap.rules),
		"active_rules", active,
		"broken_rules", broken,
		"actions_count", len(snap.actions),
		"invalid_actions", invalid,
	)
}

func (s *Service) applyJitter(ctx context.Context, skipJitter bool) error {
	if skipJitter || s.cfg.Reload.JitterMaxMilliseconds <= 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(s.cfg.Reload.JitterMaxMilliseconds)) * time.Millisecond
	s.logger.DebugwCtx(ctx, "Reload scheduled with jitter",
		"jitter_ms", jitter.Milliseconds(),
	)

	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartReloader loads the catalog immediately and then on every reload
// interval until ctx is done. With no interval configured it only performs
// the initial load.
func (s *Service) StartReloader(ctx context.Context) error {
	if err := s.ReloadRules(ctx, true); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to reload catalog", "error", err)
	}

	if s.cfg.Reload.IntervalSeconds <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(time.Duration(s.cfg.Reload.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.ReloadRules(ctx); err != nil {
				s.logger.ErrorwCtx(ctx, "Failed to reload catalog", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func compile(doc *Document, loadedAt time.Time) *snapshot {
	snap := &snapshot{
		byID:     make(map[string]*CompiledRule, len(doc.Rules)),
		actions:  make(map[string]*Action, len(doc.Actions)),
		loadedAt: loadedAt,
	}

	for i := range doc.Actions {
		a := doc.Actions[i]
		// Errors stay on the action and are reported by Apply and at dispatch.
		_ = a.Compile()
		snap.actions[a.ID] = &a
	}

	for i := range doc.Rules {
		if doc.Rules[i].Status == StatusDraft {
			continue
		}
		r := &CompiledRule{Rule: doc.Rules[i]}

		for _, id := range r.ActionIDs {
			r.Then = append(r.Then, ActionRef{ID: id, Action: snap.actions[id]})
		}

		prog, err := condition.Parse(r.Condition)
		if err != nil {
			r.ParseErr = err
		} else {
			r.Program = prog
			r.Then = append(r.Then, inlineRefs(r.ID, BranchThen, prog.Then)...)
			r.Else = inlineRefs(r.ID, BranchElse, prog.Else)
		}

		snap.rules = append(snap.rules, r)
		snap.byID[r.ID] = r
	}

	sortRules(snap.rules)
	return snap
}

func sortedActionIDs(actions map[string]*Action) []string {
	ids := make([]string, 0, len(actions))
	for id := range actions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func inlineRefs(ruleID, branch string, calls []condition.ActionCall) []ActionRef {
	refs := make([]ActionRef, 0, len(calls))
	for i, call := range calls {
		action, err := InlineAction(ruleID, branch, i, call)
		if err != nil {
			action = &Action{
				ID:        InlineActionID(ruleID, branch, i),
				Name:      call.Name,
				Status:    StatusActive,
				decodeErr: err,
			}
		}
		refs = append(refs, ActionRef{ID: action.ID, Action: action})
	}
	return refs
}

// sortRules orders by ascending priority, breaking ties by id.
func sortRules(rules []*CompiledRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}
