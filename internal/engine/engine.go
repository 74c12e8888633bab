// Package engine runs orchestration passes: for one trigger it selects the
// applicable rules, evaluates each against a shared context, dispatches the
// matching rules' actions and records the outcome.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ruleflow/internal/catalog"
	"ruleflow/internal/condition"
	"ruleflow/internal/config"
	"ruleflow/internal/dispatch"
	"ruleflow/internal/execmetrics"
	"ruleflow/internal/logger"
	"ruleflow/internal/rulecontext"
	"ruleflow/internal/sink"
	apperrors "ruleflow/pkg/errors"
	"ruleflow/pkg/logging"
	"ruleflow/pkg/metrics"
	"ruleflow/pkg/models"
	"ruleflow/pkg/tracing"
)

const (
	tracerName = "ruleflow-engine"

	defaultMaxConcurrentActions = 4
)

type Selector interface {
	Select(ctx context.Context, trigger *models.Trigger) ([]*catalog.CompiledRule, error)
}

type ContextBuilder interface {
	Build(ctx context.Context, trigger *models.Trigger) *rulecontext.Context
}

type ActionDispatcher interface {
	Dispatch(ctx context.Context, ref catalog.ActionRef, rc *rulecontext.Context) models.ActionResult
}

// Engine is safe for concurrent passes. Passes share nothing but the
// metrics aggregator.
type Engine struct {
	selector   Selector
	contexts   ContextBuilder
	dispatcher ActionDispatcher
	sink       sink.ExecutionSink
	stats      *execmetrics.Aggregator
	cfg        config.EngineConfig
	logger     logger.Logger
	now        func() time.Time
}

// New wires an engine. sink may be nil.
func New(
	selector Selector,
	contexts ContextBuilder,
	dispatcher ActionDispatcher,
	executionSink sink.ExecutionSink,
	stats *execmetrics.Aggregator,
	cfg config.EngineConfig,
	log logger.Logger,
) *Engine {
	if cfg.MaxConcurrentActions <= 0 {
		cfg.MaxConcurrentActions = defaultMaxConcurrentActions
	}
	if stats == nil {
		stats = execmetrics.New(cfg.MetricsSmoothing)
	}
	return &Engine{
		selector:   selector,
		contexts:   contexts,
		dispatcher: dispatcher,
		sink:       executionSink,
		stats:      stats,
		cfg:        cfg,
		logger:     log,
		now:        time.Now,
	}
}

// Stats exposes the shared execution counters.
func (e *Engine) Stats() *execmetrics.Aggregator {
	return e.stats
}

// PassContext bounds a pass by timeout, or by engine.pass_timeout when
// timeout is zero. Without either the caller's context is used as is.
func (e *Engine) PassContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = e.cfg.PassTimeout
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Execute runs one orchestration pass. Invalid triggers and selection
// failures (unknown rule, foreign rule, malformed filter) are returned as
// errors; once selection succeeded a summary is always returned and
// per-rule failures live in its records.
func (e *Engine) Execute(ctx context.Context, trigger models.Trigger) (*models.Summary, error) {
	start := e.now()
	if trigger.ReceivedAt.IsZero() {
		trigger.ReceivedAt = start
	}

	if err := models.ValidateTrigger(&trigger); err != nil {
		metrics.IncTrigger(string(trigger.Type), "rejected")
		return nil, apperrors.ErrBadTrigger.WithDetail("message", err.Error()).WithCause(err)
	}

	ctx = logging.WithTriggerID(ctx, trigger.ID)
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "engine.execute",
		tracing.TriggerAttributes(trigger.ID, string(trigger.Type)))
	defer span.End()

	rules, err := e.selector.Select(ctx, &trigger)
	if err != nil {
		tracing.RecordError(span, err)
		metrics.IncTrigger(string(trigger.Type), "rejected")
		e.logger.InfowCtx(ctx, "Trigger rejected during rule selection", "error", err)
		return nil, err
	}

	rc := e.contexts.Build(ctx, &trigger)

	summary := &models.Summary{
		TriggerID: trigger.ID,
		Records:   make([]models.ExecutionRecord, 0, len(rules)),
	}
	fullySuccessful := 0
	for _, rule := range rules {
		rec := e.runRule(ctx, rule, trigger, rc)

		summary.RulesEvaluated++
		if rec.Matched {
			summary.RulesMatched++
			if rec.Status == models.StatusSuccess {
				fullySuccessful++
			}
		}
		for _, a := range rec.Actions {
			if a.Outcome != models.OutcomeSkipped {
				summary.ActionsExecuted++
			}
		}
		summary.Records = append(summary.Records, rec)
	}
	summary.SuccessRate = SuccessRate(fullySuccessful, summary.RulesMatched)

	metrics.IncTrigger(string(trigger.Type), "processed")
	metrics.ObservePassDuration(string(trigger.Type), e.now().Sub(start))
	e.logger.InfowCtx(ctx, "Trigger processed",
		"trigger_type", trigger.Type,
		"rules_evaluated", summary.RulesEvaluated,
		"rules_matched", summary.RulesMatched,
		"actions_executed", summary.ActionsExecuted,
		"success_rate", summary.SuccessRate,
	)
	return summary, nil
}

// SuccessRate is the share of matched rules whose actions all succeeded, in
// percent. With nothing matched nothing failed, so it is 100.
func SuccessRate(fullySuccessful, matched int) float64 {
	if matched == 0 {
		return 100
	}
	return float64(fullySuccessful) / float64(matched) * 100
}

func (e *Engine) runRule(ctx context.Context, rule *catalog.CompiledRule, trigger models.Trigger, rc *rulecontext.Context) (rec models.ExecutionRecord) {
	ctx = logging.WithRuleID(ctx, rule.ID)
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "engine.rule")
	defer span.End()

	rec = models.ExecutionRecord{
		ID:        uuid.NewString(),
		RuleID:    rule.ID,
		RuleName:  rule.Name,
		Trigger:   trigger,
		StartedAt: e.now(),
	}

	defer func() {
		if r := recover(); r != nil {
			err := apperrors.RecoverPanic(r)
			tracing.RecordError(span, err)
			e.logger.ErrorwCtx(ctx, "Rule execution panicked", "error", err)
			rec.Status = models.StatusFailed
			rec.Error = &models.ErrorDetail{Class: models.ClassInternal, Message: fmt.Sprint(r)}
		}
		rec.FinishedAt = e.now()
		e.record(ctx, rule, rec)
	}()

	if rule.ParseErr != nil || rule.Program == nil {
		msg := "rule has no condition"
		if rule.ParseErr != nil {
			msg = rule.ParseErr.Error()
		}
		rec.Status = models.StatusFailed
		rec.Error = &models.ErrorDetail{Class: models.ClassSyntaxError, Message: msg}
		return rec
	}

	matched, traces := condition.Evaluate(rule.Program.Condition, rc)
	rec.Matched = matched
	rec.Traces = traces

	if matched {
		rec.Actions = e.dispatchAll(ctx, rule.Then, rc)
		rec.Status = Classify(rec.Actions)
		return rec
	}

	rec.Status = models.StatusNotMatched
	if len(rule.Else) > 0 {
		rec.Actions = e.dispatchAll(ctx, rule.Else, rc)
	}
	return rec
}

// dispatchAll runs refs with bounded concurrency. Results keep the declared
// order regardless of completion order. Actions that have not started when
// ctx expires are skipped.
func (e *Engine) dispatchAll(ctx context.Context, refs []catalog.ActionRef, rc *rulecontext.Context) []models.ActionResult {
	results := make([]models.ActionResult, len(refs))
	if len(refs) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.MaxConcurrentActions)

	for i, ref := range refs {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					e.logger.ErrorwCtx(ctx, "Action dispatch panicked", "action_id", ref.ID, "panic", r)
					results[i] = models.ActionResult{
						ActionID: ref.ID,
						Outcome:  models.OutcomeFailed,
						Error:    &models.ErrorDetail{Class: models.ClassPanic, Message: fmt.Sprint(r)},
					}
				}
			}()

			if e.deadlinePassed(ctx) {
				results[i] = dispatch.Skipped(ref, models.ClassDeadlineExceeded, "pass deadline passed before the action started")
				return nil
			}
			results[i] = e.dispatcher.Dispatch(ctx, ref, rc)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// deadlinePassed reports whether the pass may no longer start actions:
// ctx is done, or its deadline is behind the engine clock.
func (e *Engine) deadlinePassed(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	deadline, ok := ctx.Deadline()
	return ok && !e.now().Before(deadline)
}

// Classify derives a matched rule's status from its action results.
// Actions skipped as inactive do not count; a rule left with no counted
// actions succeeded.
func Classify(results []models.ActionResult) models.ExecutionStatus {
	counted, succeeded := 0, 0
	for _, r := range results {
		if r.Outcome == models.OutcomeSkipped && r.Error != nil && r.Error.Class == models.ClassInactive {
			continue
		}
		counted++
		if r.Outcome == models.OutcomeSuccess {
			succeeded++
		}
	}

	switch {
	case succeeded == counted:
		return models.StatusSuccess
	case succeeded > 0:
		return models.StatusPartialSuccess
	default:
		return models.StatusFailed
	}
}

// record finalizes rec: counters, metrics and the sink. The sink write
// outlives the pass deadline so late records are not lost.
func (e *Engine) record(ctx context.Context, rule *catalog.CompiledRule, rec models.ExecutionRecord) {
	metrics.IncRuleEvaluation(rule.ID, string(rec.Status))

	if rec.Status == models.StatusNotMatched {
		e.stats.RecordRuleNotMatched(rule.ID, rec.Duration(), rec.FinishedAt)
	} else {
		success := rec.Status == models.StatusSuccess ||
			(rec.Status == models.StatusPartialSuccess && rec.Succeeded() > 0)
		e.stats.RecordRule(rule.ID, success, rec.Duration(), rec.FinishedAt)
	}
	for _, a := range rec.Actions {
		if a.Outcome == models.OutcomeSkipped {
			continue
		}
		e.stats.RecordAction(a.ActionID, a.Outcome == models.OutcomeSuccess, a.Duration, rec.FinishedAt)
	}

	if e.sink == nil {
		return
	}
	if err := e.sink.Write(context.WithoutCancel(ctx), rec); err != nil {
		e.logger.WarnwCtx(ctx, "Failed to write execution record",
			"execution_id", rec.ID,
			"error", err,
		)
	}
}
