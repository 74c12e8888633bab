package management

import (
	"context"
	"fmt"

	"ruleflow/internal/catalog"
	"ruleflow/internal/constants"
	"ruleflow/internal/logger"
	apperrors "ruleflow/pkg/errors"
	"ruleflow/pkg/logging"
	"ruleflow/pkg/models"
)

type service struct {
	repo     Repository
	versions VersionStore
	audit    AuditStore
	events   EventPublisher
	filters  FilterValidator
	logger   logger.Logger
}

type ServiceOption func(*service)

func WithVersioning(store VersionStore) ServiceOption {
	return func(s *service) {
		s.versions = store
	}
}

func WithAudit(store AuditStore) ServiceOption {
	return func(s *service) {
		s.audit = store
	}
}

func WithConfigEvents(events EventPublisher) ServiceOption {
	return func(s *service) {
		s.events = events
	}
}

func WithFilterValidator(v FilterValidator) ServiceOption {
	return func(s *service) {
		s.filters = v
	}
}

func NewService(repo Repository, log logger.Logger, opts ...ServiceOption) Service {
	s := &service{
		repo:   repo,
		logger: log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateRule(ctx context.Context, req CreateRuleRequest) (*catalog.Rule, error) {
	rule := &catalog.Rule{
		ID:          req.ID,
		CustomerID:  req.CustomerID,
		Name:        req.Name,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      statusOrDefault(req.Status),
		EventTypes:  req.EventTypes,
		Tags:        req.Tags,
		Condition:   req.Condition,
		ActionIDs:   req.ActionIDs,
	}

	if err := ValidateRule(rule); err != nil {
		return nil, err
	}
	if err := s.checkActionRefs(ctx, rule); err != nil {
		return nil, err
	}

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}

	s.recordChange(ctx, EntityRule, rule.ID, models.ActionCreate, nil, rule)
	return rule, nil
}

func (s *service) ListRules(ctx context.Context, q RuleQuery) ([]catalog.Rule, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, invalid("invalid status %q", q.Status)
	}
	return s.repo.ListRules(ctx, q)
}

func (s *service) GetRule(ctx context.Context, id string) (*catalog.Rule, error) {
	return s.repo.GetRule(ctx, id)
}

func (s *service) UpdateRule(ctx context.Context, id string, req UpdateRuleRequest) (*catalog.Rule, error) {
	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *rule

	applyRuleUpdate(rule, req)
	if err := ValidateRule(rule); err != nil {
		return nil, err
	}
	if req.ActionIDs != nil {
		if err := s.checkActionRefs(ctx, rule); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, err
	}

	s.recordChange(ctx, EntityRule, rule.ID, models.ActionUpdate, &before, rule)
	return rule, nil
}

// DeleteRule deactivates the rule. Its history stays addressable by id.
func (s *service) DeleteRule(ctx context.Context, id string) error {
	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return err
	}
	if rule.Status == catalog.StatusInactive {
		return nil
	}
	before := *rule

	rule.Status = catalog.StatusInactive
	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return err
	}

	s.recordChange(ctx, EntityRule, id, models.ActionDelete, &before, rule)
	return nil
}

func (s *service) CreateAction(ctx context.Context, req CreateActionRequest) (*catalog.Action, error) {
	action := &catalog.Action{
		ID:         req.ID,
		CustomerID: req.CustomerID,
		Name:       req.Name,
		Type:       req.Type,
		Status:     statusOrDefault(req.Status),
		Config:     req.Config,
	}

	if err := ValidateAction(action); err != nil {
		return nil, err
	}

	if err := s.repo.CreateAction(ctx, action); err != nil {
		return nil, err
	}

	s.recordChange(ctx, EntityAction, action.ID, models.ActionCreate, nil, action)
	return action, nil
}

func (s *service) ListActions(ctx context.Context, q ActionQuery) ([]catalog.Action, error) {
	if q.Type != "" && !q.Type.Valid() {
		return nil, invalid("invalid type %q", q.Type)
	}
	return s.repo.ListActions(ctx, q)
}

func (s *service) GetAction(ctx context.Context, id string) (*catalog.Action, error) {
	return s.repo.GetAction(ctx, id)
}

func (s *service) UpdateAction(ctx context.Context, id string, req UpdateActionRequest) (*catalog.Action, error) {
	action, err := s.repo.GetAction(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *action

	if req.Name != nil {
		action.Name = *req.Name
	}
	if req.Status != nil {
		action.Status = *req.Status
	}
	if req.Config != nil {
		action.Config = *req.Config
	}

	if err := ValidateAction(action); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateAction(ctx, action); err != nil {
		return nil, err
	}

	s.recordChange(ctx, EntityAction, id, models.ActionUpdate, &before, action)
	return action, nil
}

// DeleteAction deactivates the action. Rules still referencing it skip it
// at dispatch.
func (s *service) DeleteAction(ctx context.Context, id string) error {
	action, err := s.repo.GetAction(ctx, id)
	if err != nil {
		return err
	}
	if action.Status == catalog.StatusInactive {
		return nil
	}
	before := *action

	action.Status = catalog.StatusInactive
	if err := s.repo.UpdateAction(ctx, action); err != nil {
		return err
	}

	s.recordChange(ctx, EntityAction, id, models.ActionDelete, &before, action)
	return nil
}

func (s *service) ValidateCondition(ctx context.Context, source string) (*ConditionReport, error) {
	program, err := ParseCondition(source)
	if err != nil {
		return nil, err
	}
	if err := validateCalls("", catalog.BranchThen, program.Then); err != nil {
		return nil, err
	}
	if err := validateCalls("", catalog.BranchElse, program.Else); err != nil {
		return nil, err
	}

	report := &ConditionReport{Valid: true, Paths: program.Paths()}
	for _, call := range program.Then {
		report.ThenActions = append(report.ThenActions, call.String())
	}
	for _, call := range program.Else {
		report.ElseActions = append(report.ElseActions, call.String())
	}
	return report, nil
}

func (s *service) ValidateFilter(ctx context.Context, filter string) error {
	if s.filters == nil {
		return apperrors.ErrServiceUnavailable.WithDetail("message", "filter validation not configured")
	}
	if err := s.filters.ValidateFilterExpression(filter); err != nil {
		return apperrors.ErrValidation.WithCause(err).WithDetail("message", err.Error())
	}
	return nil
}

func (s *service) GetVersions(ctx context.Context, entityType, id string) ([]Version, error) {
	if s.versions == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("message", "versioning not enabled")
	}
	versions, err := s.versions.Versions(ctx, entityType, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal)
	}
	return versions, nil
}

func (s *service) GetVersion(ctx context.Context, entityType, id string, version int) (*Version, error) {
	if s.versions == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("message", "versioning not enabled")
	}
	v, err := s.versions.Version(ctx, entityType, id, version)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal)
	}
	if v == nil {
		return nil, apperrors.ErrNotFound.
			WithDetail("message", fmt.Sprintf("version %d of %s %q not found", version, entityType, id))
	}
	return v, nil
}

func (s *service) GetAuditLogs(ctx context.Context, entityType, id string, limit int) ([]AuditLog, error) {
	if s.audit == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("message", "audit logging not enabled")
	}
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}
	logs, err := s.audit.List(ctx, entityType, id, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal)
	}
	return logs, nil
}

func (s *service) RequestReload(ctx context.Context) error {
	if s.events == nil {
		return apperrors.ErrServiceUnavailable.WithDetail("message", "config events not enabled")
	}
	if err := s.events.PublishReload(ctx, ChangedBy(ctx)); err != nil {
		return apperrors.Wrap(err, apperrors.ErrServiceUnavailable)
	}
	return nil
}

// checkActionRefs requires every referenced action to exist and to be
// either shared or owned by the rule's customer.
func (s *service) checkActionRefs(ctx context.Context, rule *catalog.Rule) error {
	for _, id := range rule.ActionIDs {
		action, err := s.repo.GetAction(ctx, id)
		if apperrors.IsNotFound(err) {
			return invalid("action %q does not exist", id)
		}
		if err != nil {
			return err
		}
		if action.CustomerID != "" && action.CustomerID != rule.CustomerID {
			return apperrors.ErrForbidden.
				WithDetail("message", fmt.Sprintf("action %q belongs to another customer", id))
		}
	}
	return nil
}

// recordChange versions, audits and announces a stored change. These are
// side records; their failures are logged and do not fail the request.
func (s *service) recordChange(ctx context.Context, entityType, id, action string, before, after interface{}) {
	who := ChangedBy(ctx)

	if s.versions != nil && after != nil {
		if _, err := s.versions.SaveVersion(ctx, entityType, id, who, after); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to save catalog version", "entity_type", entityType, "entity_id", id, "error", err)
		}
	}

	if s.audit != nil {
		entry := AuditEntry{
			EntityType: entityType,
			EntityID:   id,
			Operation:  action,
			TraceID:    logging.GetTraceID(ctx),
			Before:     before,
			After:      after,
		}
		if err := s.audit.Log(ctx, entry); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to write audit log", "entity_type", entityType, "entity_id", id, "error", err)
		}
	}

	if s.events != nil {
		var err error
		if entityType == EntityRule {
			err = s.events.PublishRuleEvent(ctx, action, id, who)
		} else {
			err = s.events.PublishActionEvent(ctx, action, id, who)
		}
		if err != nil {
			s.logger.WarnwCtx(ctx, "Failed to publish config update event", "entity_type", entityType, "entity_id", id, "error", err)
		}
	}
}

func applyRuleUpdate(rule *catalog.Rule, req UpdateRuleRequest) {
	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Status != nil {
		rule.Status = *req.Status
	}
	if req.EventTypes != nil {
		rule.EventTypes = *req.EventTypes
	}
	if req.Tags != nil {
		rule.Tags = *req.Tags
	}
	if req.Condition != nil {
		rule.Condition = *req.Condition
	}
	if req.ActionIDs != nil {
		rule.ActionIDs = *req.ActionIDs
	}
}

func statusOrDefault(s catalog.Status) catalog.Status {
	if s == "" {
		return catalog.StatusActive
	}
	return s
}

type changedByKey struct{}

// WithChangedBy records who is making catalog changes on ctx.
func WithChangedBy(ctx context.Context, who string) context.Context {
	if who == "" {
		return ctx
	}
	return context.WithValue(ctx, changedByKey{}, who)
}

func ChangedBy(ctx context.Context) string {
	if who, ok := ctx.Value(changedByKey{}).(string); ok {
		return who
	}
	return "system"
}
