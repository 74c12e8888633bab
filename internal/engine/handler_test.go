package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruleflow/internal/catalog"
	"ruleflow/internal/config"
	"ruleflow/internal/idempotency"
	"ruleflow/internal/logger"
	"ruleflow/pkg/models"
)

type memoryClaims struct {
	keys map[string]bool
}

func (m *memoryClaims) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryClaims) Del(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type fakeHistory struct {
	ruleID string
	limit  int
}

func (f *fakeHistory) Recent(ctx context.Context, ruleID string, limit int) ([]models.ExecutionRecord, error) {
	f.ruleID, f.limit = ruleID, limit
	return []models.ExecutionRecord{{ID: "e1", RuleID: ruleID}}, nil
}

func newTestRouter(t *testing.T, history History) (*gin.Engine, *harness) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := newHarness(t,
		&catalog.Document{Rules: []catalog.Rule{rule("r1", 1, `WHEN event.total > 100 THEN notify("big {event.total}")`)}},
		staticContext{},
		config.EngineConfig{},
	)
	guard := idempotency.NewGuard(&memoryClaims{keys: map[string]bool{}}, config.IdempotencyConfig{Enabled: true}, logger.NopLogger())

	router := gin.New()
	NewHandler(NewIntake(h.engine, guard), history, logger.NopLogger()).RegisterRoutes(router)
	return router, h
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_SubmitTrigger(t *testing.T) {
	router, h := newTestRouter(t, nil)

	w := doJSON(router, http.MethodPost, "/api/v1/triggers?timeout_ms=2000", TriggerRequest{
		TriggerID:  "req-1",
		CustomerID: "c1",
		EventType:  "order.created",
		Payload:    map[string]interface{}{"total": 250},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary models.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "req-1", summary.TriggerID)
	assert.Equal(t, 1, summary.RulesMatched)
	assert.Equal(t, models.TriggerRequest, summary.Records[0].Trigger.Type)
	assert.Equal(t, "big 250", h.notify.calls[0].(*catalog.NotificationConfig).Message)

	w = doJSON(router, http.MethodPost, "/api/v1/triggers", TriggerRequest{
		TriggerID:  "req-1",
		CustomerID: "c1",
		EventType:  "order.created",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.True(t, summary.Duplicate)
	assert.Equal(t, 1, h.notify.count(), "duplicate trigger must not execute")
}

func TestHandler_SubmitTriggerErrors(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(router, http.MethodPost, "/api/v1/triggers", TriggerRequest{CustomerID: "c1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/triggers", TriggerRequest{CustomerID: "c1", RuleID: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/triggers", TriggerRequest{CustomerID: "c9", RuleID: "r1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/triggers?timeout_ms=abc", TriggerRequest{CustomerID: "c1", RuleID: "r1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/triggers", TriggerRequest{RuleID: "r1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/triggers", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_SubmitTriggerRequiresCustomer(t *testing.T) {
	router, h := newTestRouter(t, nil)

	for _, triggerType := range []models.TriggerType{"", models.TriggerTimer, models.TriggerEvent} {
		w := doJSON(router, http.MethodPost, "/api/v1/triggers", TriggerRequest{
			TriggerType: triggerType,
			RuleID:      "r1",
			Payload:     map[string]interface{}{"total": 500},
		})
		require.Equal(t, http.StatusBadRequest, w.Code, "type %q", triggerType)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "VALIDATION_ERROR", body["error_code"])
	}
	assert.Zero(t, h.notify.count(), "an unscoped request must not reach the rule")

	w := doJSON(router, http.MethodPost, "/api/v1/triggers", TriggerRequest{CustomerID: "c2", RuleID: "r1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_RejectedTriggerReleasesClaim(t *testing.T) {
	router, h := newTestRouter(t, nil)

	w := doJSON(router, http.MethodPost, "/api/v1/triggers", TriggerRequest{TriggerID: "retry-me", CustomerID: "c1", RuleID: "missing"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/triggers", TriggerRequest{
		TriggerID:  "retry-me",
		CustomerID: "c1",
		RuleID:     "r1",
		Payload:    map[string]interface{}{"total": 500},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, h.notify.count())
}

func TestHandler_Metrics(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/metrics/rules/r1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/triggers", TriggerRequest{
		CustomerID: "c1",
		RuleID:     "r1",
		Payload:    map[string]interface{}{"total": 500},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/metrics/rules/r1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, float64(1), snap["executions"])
	assert.Equal(t, float64(100), snap["success_rate"])

	w = doJSON(router, http.MethodGet, "/api/v1/metrics/actions/r1%23then%5B0%5D", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/metrics/rules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = doJSON(router, http.MethodPost, "/api/v1/metrics/reset", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/metrics/rules/r1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Executions(t *testing.T) {
	history := &fakeHistory{}
	router, _ := newTestRouter(t, history)

	w := doJSON(router, http.MethodGet, "/api/v1/rules/r1/executions?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r1", history.ruleID)
	assert.Equal(t, 5, history.limit)

	router, _ = newTestRouter(t, nil)
	w = doJSON(router, http.MethodGet, "/api/v1/rules/r1/executions", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
