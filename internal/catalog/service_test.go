package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"ruleflow/internal/config"
	"ruleflow/internal/logger"
)

type staticSource struct {
	doc   *Document
	err   error
	loads int
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Load(ctx context.Context) (*Document, error) {
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return s.doc, nil
}

func newTestService(t *testing.T, doc *Document) *Service {
	t.Helper()
	svc, err := NewService(&staticSource{doc: doc}, config.CatalogConfig{}, logger.NopLogger())
	require.NoError(t, err)
	require.NoError(t, svc.ReloadRules(context.Background(), true))
	return svc
}

func rule(id string, priority int, condition string) Rule {
	return Rule{
		ID:         id,
		CustomerID: "c1",
		Name:       "rule " + id,
		Priority:   priority,
		Status:     StatusActive,
		EventTypes: []string{"order.created"},
		Condition:  condition,
	}
}

const alwaysTrue = `WHEN order.total >= 0 THEN notify("x")`

func TestService_OrdersByPriorityThenID(t *testing.T) {
	svc := newTestService(t, &Document{Rules: []Rule{
		rule("c", 3, alwaysTrue),
		rule("b", 1, alwaysTrue),
		rule("z", 2, alwaysTrue),
		rule("a", 2, alwaysTrue),
	}})

	var ids []string
	for _, r := range svc.Rules() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"b", "a", "z", "c"}, ids)
}

func TestService_ResolvesActions(t *testing.T) {
	r := rule("r1", 1, `WHEN order.total > 10 THEN notify("inline") ELSE send_sms("+15550100", "low")`)
	r.ActionIDs = []string{"email-ops", "missing"}

	svc := newTestService(t, &Document{
		Rules: []Rule{r},
		Actions: []Action{{
			ID:     "email-ops",
			Type:   ActionEmail,
			Status: StatusActive,
			Config: map[string]interface{}{"to": "ops@acme.io", "subject": "big"},
		}},
	})

	compiled, ok := svc.Rule("r1")
	require.True(t, ok)
	require.NotNil(t, compiled.Program)

	require.Len(t, compiled.Then, 3)
	assert.Equal(t, "email-ops", compiled.Then[0].ID)
	require.NotNil(t, compiled.Then[0].Action)
	cfg, err := compiled.Then[0].Action.TypedConfig()
	require.NoError(t, err)
	assert.IsType(t, &EmailConfig{}, cfg)

	assert.Equal(t, "missing", compiled.Then[1].ID)
	assert.Nil(t, compiled.Then[1].Action)

	assert.Equal(t, "r1#then[0]", compiled.Then[2].ID)
	require.Len(t, compiled.Else, 1)
	assert.Equal(t, ActionSMS, compiled.Else[0].Action.Type)

	actions := svc.Actions([]string{"missing", "email-ops"})
	assert.Nil(t, actions[0])
	assert.Equal(t, "email-ops", actions[1].ID)
}

func TestService_KeepsBrokenRulesAndSkipsDrafts(t *testing.T) {
	draft := rule("d", 1, alwaysTrue)
	draft.Status = StatusDraft

	svc := newTestService(t, &Document{Rules: []Rule{
		rule("broken", 1, `WHEN order.total > THEN notify()`),
		rule("unknown-action", 2, `WHEN a == 1 THEN teleport()`),
		draft,
	}})

	broken, ok := svc.Rule("broken")
	require.True(t, ok)
	assert.Error(t, broken.ParseErr)
	assert.Nil(t, broken.Program)

	unknown, ok := svc.Rule("unknown-action")
	require.True(t, ok)
	require.Len(t, unknown.Then, 1)
	_, err := unknown.Then[0].Action.TypedConfig()
	assert.Error(t, err)

	_, ok = svc.Rule("d")
	assert.False(t, ok)
}

func TestService_LogsInvalidActionsOnLoad(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	doc := &Document{Actions: []Action{
		{ID: "hook", Type: ActionWebhook, Status: StatusActive, Config: map[string]interface{}{"method": "POST"}},
		{ID: "mail", Type: ActionEmail, Status: StatusActive, Config: map[string]interface{}{"to": "ops@acme.io", "subject": "hi"}},
	}}
	svc, err := NewService(&staticSource{doc: doc}, config.CatalogConfig{}, logger.NewWithCore(core, "engine-service"))
	require.NoError(t, err)
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	warned := logs.FilterMessage("Action config is invalid").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "hook", warned[0].ContextMap()["action_id"])
	assert.Contains(t, warned[0].ContextMap()["error"], "url")

	reloaded := logs.FilterMessage("Successfully reloaded catalog").All()
	require.Len(t, reloaded, 1)
	assert.EqualValues(t, 1, reloaded[0].ContextMap()["invalid_actions"])

	hook, ok := svc.Action("hook")
	require.True(t, ok)
	assert.Error(t, hook.ConfigErr(), "the error stays on the action for dispatch")
}

func TestService_ReloadFailureKeepsPreviousCatalog(t *testing.T) {
	src := &staticSource{doc: &Document{Rules: []Rule{rule("r1", 1, alwaysTrue)}}}
	svc, err := NewService(src, config.CatalogConfig{}, logger.NopLogger())
	require.NoError(t, err)

	require.NoError(t, svc.ReloadRules(context.Background(), true))
	loadedAt := svc.LoadedAt()
	assert.False(t, loadedAt.IsZero())

	src.err = errors.New("mongo down")
	require.Error(t, svc.ReloadRules(context.Background(), true))

	_, ok := svc.Rule("r1")
	assert.True(t, ok)
	assert.Equal(t, loadedAt, svc.LoadedAt())
}

func TestService_StartReloaderStopsOnCancel(t *testing.T) {
	src := &staticSource{doc: &Document{}}
	svc, err := NewService(src, config.CatalogConfig{}, logger.NopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.StartReloader(ctx) }()

	require.Eventually(t, func() bool { return !svc.LoadedAt().IsZero() }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reloader did not stop")
	}
}

const catalogYAML = `
rules:
  - id: big-orders
    customer_id: c1
    name: Big orders
    priority: 1
    event_types: [order.created]
    condition: WHEN order.total > 1000 THEN notify("big order {order.id}")
    action_ids: [ops-email]
actions:
  - id: ops-email
    name: Ops email
    type: email
    config:
      to: ops@acme.io
      subject: Order {order.id}
`

func TestFileSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	doc, err := NewFileSource(path, logger.NopLogger()).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, doc.Rules, 1)
	assert.Equal(t, "big-orders", doc.Rules[0].ID)
	assert.Equal(t, StatusActive, doc.Rules[0].Status)
	assert.Equal(t, []string{"ops-email"}, doc.Rules[0].ActionIDs)

	require.Len(t, doc.Actions, 1)
	assert.Equal(t, ActionEmail, doc.Actions[0].Type)
	assert.Equal(t, "Order {order.id}", doc.Actions[0].Config["subject"])
}

func TestFileSource_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileSource(filepath.Join(dir, "absent.yaml"), logger.NopLogger()).Load(context.Background())
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("rules: [unterminated"), 0o600))
	_, err = NewFileSource(bad, logger.NopLogger()).Load(context.Background())
	assert.Error(t, err)
}

func TestFileSource_WatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	src := NewFileSource(path, logger.NopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	go func() {
		_ = src.Watch(ctx, func(context.Context) error {
			reloads.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(catalogYAML), 0o600)
		return reloads.Load() > 0
	}, 5*time.Second, 300*time.Millisecond)
}
