package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ruleflow/internal/catalog"
	"ruleflow/internal/delivery"
	"ruleflow/internal/logger"
	"ruleflow/internal/rulecontext"
	"ruleflow/pkg/circuitbreaker"
	apperrors "ruleflow/pkg/errors"
	"ruleflow/pkg/metrics"
	"ruleflow/pkg/models"
)

type Capabilities interface {
	Lookup(t catalog.ActionType) (delivery.Capability, bool)
}

type Dispatcher struct {
	caps    Capabilities
	timeout time.Duration
	logger  logger.Logger
}

// NewDispatcher builds a dispatcher giving each action at most timeout; a
// zero timeout leaves actions bounded only by the caller's context.
func NewDispatcher(caps Capabilities, timeout time.Duration, log logger.Logger) *Dispatcher {
	return &Dispatcher{caps: caps, timeout: timeout, logger: log}
}

type panicError struct {
	err error
}

func (e *panicError) Error() string { return e.err.Error() }
func (e *panicError) Unwrap() error { return e.err }

// Dispatch runs one action and always returns its result. Failures of any
// kind, including panics in the capability, are recorded on the result
// with a stable class; the raw error only survives as the message.
func (d *Dispatcher) Dispatch(ctx context.Context, ref catalog.ActionRef, rc *rulecontext.Context) (result models.ActionResult) {
	start := time.Now()
	result.ActionID = ref.ID

	defer func() {
		result.Duration = time.Since(start)
		class := ""
		if result.Error != nil {
			class = result.Error.Class
		}
		metrics.ObserveActionDispatch(result.Type, string(result.Outcome), class, result.Duration)
	}()

	action := ref.Action
	if action == nil {
		return failed(result, models.ClassActionNotFound, fmt.Sprintf("action %s does not exist", ref.ID))
	}
	result.Type = string(action.Type)

	if action.Status != catalog.StatusActive {
		result.Outcome = models.OutcomeSkipped
		result.Error = &models.ErrorDetail{Class: models.ClassInactive, Message: fmt.Sprintf("action status is %s", action.Status)}
		return result
	}

	cfg, err := action.TypedConfig()
	if err != nil {
		return failed(result, models.ClassInvalidConfig, err.Error())
	}

	capability, ok := d.caps.Lookup(action.Type)
	if !ok {
		return failed(result, models.ClassCapabilityMissing, fmt.Sprintf("no capability for %s actions", action.Type))
	}

	resolved := cfg.Interpolate(Expander(rc))
	if err := resolved.Validate(); err != nil {
		return failed(result, models.ClassInvalidConfig, "after interpolation: "+err.Error())
	}

	actionCtx, cancel := d.withTimeout(ctx)
	defer cancel()

	out, err := d.invoke(actionCtx, capability, resolved)
	if err != nil {
		class := classify(actionCtx, err)
		d.logger.WarnwCtx(ctx, "Action failed",
			"action_id", ref.ID,
			"action_type", action.Type,
			"class", class,
			"error", err,
		)
		return failed(result, class, err.Error())
	}

	result.Outcome = models.OutcomeSuccess
	result.Result = out
	d.logger.DebugwCtx(ctx, "Action delivered",
		"action_id", ref.ID,
		"action_type", action.Type,
		"duration", time.Since(start),
	)
	return result
}

func (d *Dispatcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}

// invoke runs the capability on its own goroutine so a capability that
// ignores its context still cannot hold the action past its timeout.
func (d *Dispatcher) invoke(ctx context.Context, capability delivery.Capability, cfg catalog.ActionConfig) (map[string]interface{}, error) {
	type outcome struct {
		out map[string]interface{}
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &panicError{err: apperrors.RecoverPanic(r)}}
			}
		}()
		out, err := capability.Deliver(ctx, cfg)
		done <- outcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		return o.out, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func classify(ctx context.Context, err error) string {
	var pe *panicError
	switch {
	case errors.As(err, &pe):
		return models.ClassPanic
	case circuitbreaker.IsBreakerError(err):
		return models.ClassCircuitOpen
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), ctx.Err() != nil:
		return models.ClassTimeout
	default:
		return models.ClassDeliveryFailed
	}
}

func failed(result models.ActionResult, class, message string) models.ActionResult {
	result.Outcome = models.OutcomeFailed
	result.Error = &models.ErrorDetail{Class: class, Message: message}
	return result
}

// Skipped records an action that was never started.
func Skipped(ref catalog.ActionRef, class, message string) models.ActionResult {
	result := models.ActionResult{
		ActionID: ref.ID,
		Outcome:  models.OutcomeSkipped,
		Error:    &models.ErrorDetail{Class: class, Message: message},
	}
	if ref.Action != nil {
		result.Type = string(ref.Action.Type)
	}
	return result
}
