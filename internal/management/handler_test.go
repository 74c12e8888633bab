package management

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruleflow/internal/catalog"
	"ruleflow/internal/logger"
)

func newTestRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newFixture()
	router := gin.New()
	NewHandler(f.svc, logger.NopLogger()).RegisterRoutes(router)
	return router, f
}

func doJSON(router *gin.Engine, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHandler_RuleLifecycle(t *testing.T) {
	router, f := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/rules", validRule(), HeaderChangedBy, "bob")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "r1", decode(t, w)["id"])
	assert.Equal(t, "bob", f.events.events[0].by)

	w = doJSON(router, http.MethodGet, "/api/v1/rules/r1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "premium thanks", decode(t, w)["name"])

	w = doJSON(router, http.MethodPut, "/api/v1/rules/r1", map[string]interface{}{"priority": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["priority"])

	w = doJSON(router, http.MethodGet, "/api/v1/rules?customer_id=acme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rules []catalog.Rule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rules))
	assert.Len(t, rules, 1)

	w = doJSON(router, http.MethodDelete, "/api/v1/rules/r1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, catalog.StatusInactive, f.repo.rules["r1"].Status)

	w = doJSON(router, http.MethodGet, "/api/v1/rules/r1/versions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var versions []Version
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &versions))
	assert.Len(t, versions, 3)

	w = doJSON(router, http.MethodGet, "/api/v1/rules/r1/versions/2", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/rules/r1/versions/zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/rules/r1/audit?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []AuditLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	assert.Len(t, logs, 2)
}

func TestHandler_SyntaxErrorResponse(t *testing.T) {
	router, _ := newTestRouter(t)

	req := validRule()
	req.Condition = "WHEN order.total >\n  THEN notify(\"x\")"
	w := doJSON(router, http.MethodPost, "/api/v1/rules", req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "SYNTAX_ERROR", body["error_code"])
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), details["line"])
	assert.Equal(t, "THEN", details["token"])
}

func TestHandler_Errors(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"missing required fields", http.MethodPost, "/api/v1/rules", map[string]interface{}{"name": "x"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown rule", http.MethodGet, "/api/v1/rules/ghost", nil, http.StatusNotFound, "NOT_FOUND"},
		{"unknown action", http.MethodDelete, "/api/v1/actions/ghost", nil, http.StatusNotFound, "NOT_FOUND"},
		{"bad action config", http.MethodPost, "/api/v1/actions", map[string]interface{}{
			"name": "x", "type": "webhook", "config": map[string]interface{}{"url": "not a url"},
		}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad status filter", http.MethodGet, "/api/v1/rules?status=paused", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode(t, w)["error_code"])
		})
	}
}

func TestHandler_Actions(t *testing.T) {
	router, f := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/actions", webhookAction("hook", "acme"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(router, http.MethodPost, "/api/v1/actions", webhookAction("hook", "acme"))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(router, http.MethodPut, "/api/v1/actions/hook", map[string]interface{}{"name": "renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "renamed", f.repo.actions["hook"].Name)

	w = doJSON(router, http.MethodGet, "/api/v1/actions?type=webhook", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var actions []catalog.Action
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &actions))
	assert.Len(t, actions, 1)
}

func TestHandler_ValidateEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/rules/validate", ValidateConditionRequest{Condition: validCondition})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["valid"])

	w = doJSON(router, http.MethodPost, "/api/v1/filters/validate", ValidateFilterRequest{Filter: "rule.priority > 1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/filters/examples", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "by_tag")
}

func TestHandler_Reload(t *testing.T) {
	router, f := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/catalog/reload", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, f.events.events, 1)
}
