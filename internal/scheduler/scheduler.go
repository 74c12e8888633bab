// Package scheduler turns configured cron entries into timer triggers.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ruleflow/internal/config"
	"ruleflow/internal/logger"
	"ruleflow/pkg/metrics"
	"ruleflow/pkg/models"
)

// FireFunc receives every trigger the scheduler produces.
type FireFunc func(ctx context.Context, trigger models.Trigger) error

type Scheduler struct {
	jobs   []config.ScheduledTrigger
	fire   FireFunc
	logger logger.Logger
	now    func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// New validates every job up front. Schedules use the standard five-field
// syntax or descriptors such as "@every 5m".
func New(jobs []config.ScheduledTrigger, fire FireFunc, log logger.Logger) (*Scheduler, error) {
	seen := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		if job.Name == "" {
			return nil, fmt.Errorf("scheduled trigger requires a name")
		}
		if _, dup := seen[job.Name]; dup {
			return nil, fmt.Errorf("duplicate scheduled trigger %q", job.Name)
		}
		seen[job.Name] = struct{}{}

		if _, err := cron.ParseStandard(job.Schedule); err != nil {
			return nil, fmt.Errorf("invalid cron schedule %q for %s: %w", job.Schedule, job.Name, err)
		}
		probe := buildTrigger(job, time.Now())
		if err := models.ValidateTrigger(&probe); err != nil {
			return nil, fmt.Errorf("scheduled trigger %s: %w", job.Name, err)
		}
	}

	return &Scheduler{
		jobs:   jobs,
		fire:   fire,
		logger: log,
		now:    time.Now,
		cron:   cron.New(),
	}, nil
}

// Run blocks until ctx is done, then waits for in-flight jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		s.logger.Infow("No scheduled triggers configured")
		<-ctx.Done()
		return ctx.Err()
	}

	s.mu.Lock()
	for _, job := range s.jobs {
		job := job
		if _, err := s.cron.AddFunc(job.Schedule, func() { s.Fire(ctx, job) }); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
	}
	s.cron.Start()
	s.mu.Unlock()

	s.logger.Infow("Scheduler started", "jobs", len(s.jobs))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Infow("Scheduler stopped")
	return ctx.Err()
}

// Fire produces one trigger for job.
func (s *Scheduler) Fire(ctx context.Context, job config.ScheduledTrigger) {
	trigger := buildTrigger(job, s.now())

	if err := s.fire(ctx, trigger); err != nil {
		metrics.IncSchedulerRun(job.Name, "error")
		s.logger.ErrorwCtx(ctx, "Scheduled trigger failed",
			"job", job.Name,
			"trigger_id", trigger.ID,
			"error", err,
		)
		return
	}
	metrics.IncSchedulerRun(job.Name, "success")
	s.logger.DebugwCtx(ctx, "Scheduled trigger fired", "job", job.Name, "trigger_id", trigger.ID)
}

// NextRuns lists the next activation per job name. Empty before Run.
func (s *Scheduler) NextRuns() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time)
	for i, entry := range s.cron.Entries() {
		if i < len(s.jobs) {
			out[s.jobs[i].Name] = entry.Next
		}
	}
	return out
}

// buildTrigger derives the id from the job name and the activation second, so
// two replicas firing the same tick produce the same trigger id.
func buildTrigger(job config.ScheduledTrigger, at time.Time) models.Trigger {
	at = at.UTC().Truncate(time.Second)

	payload := make(map[string]interface{}, len(job.Payload)+2)
	for k, v := range job.Payload {
		payload[k] = v
	}
	payload["job"] = job.Name
	payload["scheduled_at"] = at.Format(time.RFC3339)

	return models.Trigger{
		ID:         "timer:" + job.Name + ":" + strconv.FormatInt(at.Unix(), 10),
		Type:       models.TriggerTimer,
		CustomerID: job.CustomerID,
		EventType:  job.EventType,
		RuleID:     job.RuleID,
		Filter:     job.Filter,
		Entities:   models.EntityIDs{CustomerID: job.CustomerID},
		Payload:    payload,
		ReceivedAt: at,
	}
}
