package engine

import (
	"context"
	"time"

	"ruleflow/internal/idempotency"
	"ruleflow/pkg/models"
)

// Intake is the single entry point every trigger source goes through:
// HTTP requests, broker events, the scheduler and storage change watches.
type Intake struct {
	engine *Engine
	guard  *idempotency.Guard
}

// NewIntake accepts a nil guard, which admits every trigger.
func NewIntake(engine *Engine, guard *idempotency.Guard) *Intake {
	return &Intake{engine: engine, guard: guard}
}

func (in *Intake) Engine() *Engine {
	return in.engine
}

// Submit runs trigger under the pass deadline. A trigger id seen within the
// idempotency window returns a duplicate summary without executing. A pass
// rejected before any rule ran releases its claim so a corrected redelivery
// is not mistaken for a duplicate.
func (in *Intake) Submit(ctx context.Context, trigger models.Trigger, timeout time.Duration) (*models.Summary, error) {
	first, err := in.guard.Claim(ctx, trigger.ID)
	if err != nil {
		return nil, err
	}
	if !first {
		return &models.Summary{
			TriggerID:   trigger.ID,
			SuccessRate: 100,
			Duplicate:   true,
			Records:     []models.ExecutionRecord{},
		}, nil
	}

	passCtx, cancel := in.engine.PassContext(ctx, timeout)
	defer cancel()

	summary, err := in.engine.Execute(passCtx, trigger)
	if err != nil {
		in.guard.Release(context.WithoutCancel(ctx), trigger.ID)
		return nil, err
	}
	return summary, nil
}

// Fire adapts Submit to sources that only care about failure, such as the
// scheduler.
func (in *Intake) Fire(ctx context.Context, trigger models.Trigger) error {
	_, err := in.Submit(ctx, trigger, 0)
	return err
}
