package management

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruleflow/internal/catalog"
	"ruleflow/internal/logger"
	apperrors "ruleflow/pkg/errors"
	"ruleflow/pkg/models"
)

type memoryRepo struct {
	rules   map[string]catalog.Rule
	actions map[string]catalog.Action
	nextID  int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rules: map[string]catalog.Rule{}, actions: map[string]catalog.Action{}}
}

func (m *memoryRepo) id(prefix string) string {
	m.nextID++
	return prefix + "-" + string(rune('0'+m.nextID))
}

func (m *memoryRepo) CreateRule(ctx context.Context, rule *catalog.Rule) error {
	if rule.ID == "" {
		rule.ID = m.id("rule")
	}
	if _, ok := m.rules[rule.ID]; ok {
		return apperrors.ErrConflict
	}
	m.rules[rule.ID] = *rule
	return nil
}

func (m *memoryRepo) GetRule(ctx context.Context, id string) (*catalog.Rule, error) {
	r, ok := m.rules[id]
	if !ok {
		return nil, notFound(EntityRule, id)
	}
	return &r, nil
}

func (m *memoryRepo) ListRules(ctx context.Context, q RuleQuery) ([]catalog.Rule, error) {
	out := []catalog.Rule{}
	for _, r := range m.rules {
		if q.CustomerID != "" && r.CustomerID != q.CustomerID {
			continue
		}
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepo) UpdateRule(ctx context.Context, rule *catalog.Rule) error {
	if _, ok := m.rules[rule.ID]; !ok {
		return notFound(EntityRule, rule.ID)
	}
	m.rules[rule.ID] = *rule
	return nil
}

func (m *memoryRepo) CreateAction(ctx context.Context, action *catalog.Action) error {
	if action.ID == "" {
		action.ID = m.id("action")
	}
	if _, ok := m.actions[action.ID]; ok {
		return apperrors.ErrConflict
	}
	m.actions[action.ID] = *action
	return nil
}

func (m *memoryRepo) GetAction(ctx context.Context, id string) (*catalog.Action, error) {
	a, ok := m.actions[id]
	if !ok {
		return nil, notFound(EntityAction, id)
	}
	return &a, nil
}

func (m *memoryRepo) ListActions(ctx context.Context, q ActionQuery) ([]catalog.Action, error) {
	out := []catalog.Action{}
	for _, a := range m.actions {
		if q.Type != "" && a.Type != q.Type {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memoryRepo) UpdateAction(ctx context.Context, action *catalog.Action) error {
	if _, ok := m.actions[action.ID]; !ok {
		return notFound(EntityAction, action.ID)
	}
	m.actions[action.ID] = *action
	return nil
}

type publishedEvent struct {
	kind, action, id, by string
}

type recordingEvents struct {
	events []publishedEvent
	err    error
}

func (r *recordingEvents) PublishRuleEvent(ctx context.Context, action, ruleID, changedBy string) error {
	r.events = append(r.events, publishedEvent{models.EventTypeRuleUpdated, action, ruleID, changedBy})
	return r.err
}

func (r *recordingEvents) PublishActionEvent(ctx context.Context, action, actionID, changedBy string) error {
	r.events = append(r.events, publishedEvent{models.EventTypeActionUpdated, action, actionID, changedBy})
	return r.err
}

func (r *recordingEvents) PublishReload(ctx context.Context, changedBy string) error {
	r.events = append(r.events, publishedEvent{models.EventTypeCatalogReloaded, models.ActionReload, "", changedBy})
	return r.err
}

type recordingAudit struct {
	entries []AuditEntry
}

func (r *recordingAudit) Log(ctx context.Context, entry AuditEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAudit) List(ctx context.Context, entityType, entityID string, limit int) ([]AuditLog, error) {
	out := []AuditLog{}
	for i, e := range r.entries {
		if (entityType == "" || e.EntityType == entityType) && (entityID == "" || e.EntityID == entityID) {
			out = append(out, AuditLog{ID: int64(i + 1), EntityType: e.EntityType, EntityID: e.EntityID, Operation: e.Operation})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryVersions struct {
	saved []Version
}

func (m *memoryVersions) SaveVersion(ctx context.Context, entityType, entityID, changedBy string, data interface{}) (*Version, error) {
	n := 1
	for _, v := range m.saved {
		if v.EntityType == entityType && v.EntityID == entityID {
			n++
		}
	}
	v := Version{EntityType: entityType, EntityID: entityID, Version: n, ChangedBy: changedBy}
	m.saved = append(m.saved, v)
	return &v, nil
}

func (m *memoryVersions) Versions(ctx context.Context, entityType, entityID string) ([]Version, error) {
	out := []Version{}
	for _, v := range m.saved {
		if v.EntityType == entityType && v.EntityID == entityID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memoryVersions) Version(ctx context.Context, entityType, entityID string, version int) (*Version, error) {
	for _, v := range m.saved {
		if v.EntityType == entityType && v.EntityID == entityID && v.Version == version {
			return &v, nil
		}
	}
	return nil, nil
}

type stubFilters struct{ err error }

func (s stubFilters) ValidateFilterExpression(string) error { return s.err }

type fixture struct {
	svc      Service
	repo     *memoryRepo
	events   *recordingEvents
	audit    *recordingAudit
	versions *memoryVersions
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMemoryRepo(),
		events:   &recordingEvents{},
		audit:    &recordingAudit{},
		versions: &memoryVersions{},
	}
	f.svc = NewService(f.repo, logger.NopLogger(),
		WithConfigEvents(f.events),
		WithAudit(f.audit),
		WithVersioning(f.versions),
		WithFilterValidator(stubFilters{}),
	)
	return f
}

const validCondition = `WHEN customer.tier == "premium" AND order.total > 100 THEN send_email("{customer.email}", "Thanks") ELSE notify("standard order")`

func validRule() CreateRuleRequest {
	return CreateRuleRequest{
		ID:         "r1",
		CustomerID: "acme",
		Name:       "premium thanks",
		Priority:   1,
		EventTypes: []string{"order.created"},
		Condition:  validCondition,
	}
}

func webhookAction(id, customer string) CreateActionRequest {
	return CreateActionRequest{
		ID:         id,
		CustomerID: customer,
		Name:       "crm hook",
		Type:       catalog.ActionWebhook,
		Config:     map[string]interface{}{"url": "https://crm.example.com/hook", "method": "POST"},
	}
}

func TestService_CreateRule(t *testing.T) {
	f := newFixture()
	ctx := WithChangedBy(context.Background(), "alice")

	rule, err := f.svc.CreateRule(ctx, validRule())
	require.NoError(t, err)

	assert.Equal(t, catalog.StatusActive, rule.Status)
	assert.Contains(t, f.repo.rules, "r1")
	require.Len(t, f.events.events, 1)
	assert.Equal(t, publishedEvent{models.EventTypeRuleUpdated, models.ActionCreate, "r1", "alice"}, f.events.events[0])
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, models.ActionCreate, f.audit.entries[0].Operation)
	assert.Nil(t, f.audit.entries[0].Before)
	require.Len(t, f.versions.saved, 1)
	assert.Equal(t, "alice", f.versions.saved[0].ChangedBy)
}

func TestService_CreateRuleSyntaxError(t *testing.T) {
	f := newFixture()
	req := validRule()
	req.Condition = `WHEN order.total > THEN notify("x")`

	_, err := f.svc.CreateRule(context.Background(), req)
	require.Error(t, err)

	assert.True(t, apperrors.IsSyntax(err))
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 1, appErr.Details["line"])
	assert.Contains(t, appErr.Details, "column")
	assert.Contains(t, appErr.Details, "token")
	assert.Empty(t, f.repo.rules)
	assert.Empty(t, f.events.events)
}

func TestService_CreateRuleValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRuleRequest)
	}{
		{"missing name", func(r *CreateRuleRequest) { r.Name = " " }},
		{"missing customer", func(r *CreateRuleRequest) { r.CustomerID = "" }},
		{"negative priority", func(r *CreateRuleRequest) { r.Priority = -1 }},
		{"bad status", func(r *CreateRuleRequest) { r.Status = "paused" }},
		{"empty event type", func(r *CreateRuleRequest) { r.EventTypes = []string{""} }},
		{"duplicate action ids", func(r *CreateRuleRequest) { r.ActionIDs = []string{"a", "a"} }},
		{"unknown inline action", func(r *CreateRuleRequest) { r.Condition = `WHEN order.total > 1 THEN launch_rocket("now")` }},
		{"unknown else action", func(r *CreateRuleRequest) {
			r.Condition = `WHEN order.total > 1 THEN notify("a") ELSE launch_rocket("now")`
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := validRule()
			tt.mutate(&req)

			_, err := f.svc.CreateRule(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err), "got %v", err)
		})
	}
}

func TestService_CreateRuleActionRefs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.CreateAction(ctx, webhookAction("shared", ""))
	require.NoError(t, err)
	_, err = f.svc.CreateAction(ctx, webhookAction("other", "globex"))
	require.NoError(t, err)

	req := validRule()
	req.ActionIDs = []string{"shared"}
	_, err = f.svc.CreateRule(ctx, req)
	require.NoError(t, err)

	req.ID = "r2"
	req.ActionIDs = []string{"missing"}
	_, err = f.svc.CreateRule(ctx, req)
	assert.True(t, apperrors.IsValidation(err))

	req.ID = "r3"
	req.ActionIDs = []string{"other"}
	_, err = f.svc.CreateRule(ctx, req)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestService_UpdateRule(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.CreateRule(ctx, validRule())
	require.NoError(t, err)

	priority := 7
	cond := `WHEN order.total > 500 THEN notify("big order")`
	rule, err := f.svc.UpdateRule(ctx, "r1", UpdateRuleRequest{Priority: &priority, Condition: &cond})
	require.NoError(t, err)

	assert.Equal(t, 7, rule.Priority)
	assert.Equal(t, cond, f.repo.rules["r1"].Condition)
	require.Len(t, f.audit.entries, 2)
	before, ok := f.audit.entries[1].Before.(*catalog.Rule)
	require.True(t, ok)
	assert.Equal(t, 1, before.Priority)
	assert.Len(t, f.versions.saved, 2)
	assert.Equal(t, 2, f.versions.saved[1].Version)

	bad := `WHEN THEN`
	_, err = f.svc.UpdateRule(ctx, "r1", UpdateRuleRequest{Condition: &bad})
	assert.True(t, apperrors.IsSyntax(err))
	assert.Equal(t, cond, f.repo.rules["r1"].Condition)

	_, err = f.svc.UpdateRule(ctx, "nope", UpdateRuleRequest{Priority: &priority})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestService_DeleteRuleIsSoft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.CreateRule(ctx, validRule())
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteRule(ctx, "r1"))
	assert.Equal(t, catalog.StatusInactive, f.repo.rules["r1"].Status)
	assert.Equal(t, models.ActionDelete, f.events.events[len(f.events.events)-1].action)

	events := len(f.events.events)
	require.NoError(t, f.svc.DeleteRule(ctx, "r1"))
	assert.Len(t, f.events.events, events, "deleting an inactive rule is a no-op")

	assert.True(t, apperrors.IsNotFound(f.svc.DeleteRule(ctx, "missing")))
}

func TestService_Actions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	action, err := f.svc.CreateAction(ctx, webhookAction("hook", "acme"))
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusActive, action.Status)

	badConfig := map[string]interface{}{"url": "ftp://example.com"}
	_, err = f.svc.UpdateAction(ctx, "hook", UpdateActionRequest{Config: &badConfig})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "https://crm.example.com/hook", f.repo.actions["hook"].Config["url"])

	name := "renamed"
	updated, err := f.svc.UpdateAction(ctx, "hook", UpdateActionRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	require.NoError(t, f.svc.DeleteAction(ctx, "hook"))
	assert.Equal(t, catalog.StatusInactive, f.repo.actions["hook"].Status)

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, models.EventTypeActionUpdated, last.kind)
	assert.Equal(t, "system", last.by)
}

func TestService_CreateActionValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateActionRequest
	}{
		{"unknown type", CreateActionRequest{Name: "x", Type: "fax", Config: map[string]interface{}{}}},
		{"unknown field", CreateActionRequest{Name: "x", Type: catalog.ActionSMS, Config: map[string]interface{}{"to": "+1", "message": "m", "extra": 1}}},
		{"missing recipient", CreateActionRequest{Name: "x", Type: catalog.ActionEmail, Config: map[string]interface{}{"subject": "s"}}},
		{"reserved id", CreateActionRequest{ID: "r1#then[0]", Name: "x", Type: catalog.ActionSMS, Config: map[string]interface{}{"to": "+1", "message": "m"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.CreateAction(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err), "got %v", err)
		})
	}
}

func TestService_ValidateCondition(t *testing.T) {
	f := newFixture()

	report, err := f.svc.ValidateCondition(context.Background(), validCondition)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, []string{"customer.tier", "order.total"}, report.Paths)
	assert.Len(t, report.ThenActions, 1)
	assert.Len(t, report.ElseActions, 1)

	_, err = f.svc.ValidateCondition(context.Background(), `WHEN (a == 1) THEN notify("x")`)
	assert.True(t, apperrors.IsSyntax(err))
}

func TestService_ValidateFilter(t *testing.T) {
	f := newFixture()
	assert.NoError(t, f.svc.ValidateFilter(context.Background(), `rule.priority > 1`))

	failing := NewService(f.repo, logger.NopLogger(), WithFilterValidator(stubFilters{err: errors.New("undeclared reference")}))
	err := failing.ValidateFilter(context.Background(), `bogus`)
	assert.True(t, apperrors.IsValidation(err))

	unconfigured := NewService(f.repo, logger.NopLogger())
	err = unconfigured.ValidateFilter(context.Background(), `rule.priority > 1`)
	assert.Equal(t, apperrors.ErrServiceUnavailable.Code, apperrors.CodeOf(err))
}

func TestService_SideRecordFailuresDoNotFailWrites(t *testing.T) {
	f := newFixture()
	f.events.err = errors.New("broker down")

	_, err := f.svc.CreateRule(context.Background(), validRule())
	require.NoError(t, err)
	assert.Contains(t, f.repo.rules, "r1")
}

func TestService_VersionsAndAudit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.CreateRule(ctx, validRule())
	require.NoError(t, err)

	versions, err := f.svc.GetVersions(ctx, EntityRule, "r1")
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	_, err = f.svc.GetVersion(ctx, EntityRule, "r1", 9)
	assert.True(t, apperrors.IsNotFound(err))

	logs, err := f.svc.GetAuditLogs(ctx, EntityRule, "r1", 0)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	bare := NewService(f.repo, logger.NopLogger())
	_, err = bare.GetVersions(ctx, EntityRule, "r1")
	assert.Equal(t, apperrors.ErrServiceUnavailable.Code, apperrors.CodeOf(err))
	_, err = bare.GetAuditLogs(ctx, "", "", 10)
	assert.Equal(t, apperrors.ErrServiceUnavailable.Code, apperrors.CodeOf(err))
}

func TestService_RequestReload(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.svc.RequestReload(WithChangedBy(context.Background(), "ops")))
	assert.Equal(t, publishedEvent{models.EventTypeCatalogReloaded, models.ActionReload, "", "ops"}, f.events.events[0])
}
