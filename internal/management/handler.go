package management

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ruleflow/internal/catalog"
	"ruleflow/internal/constants"
	"ruleflow/internal/logger"
	"ruleflow/pkg/cel"
	"ruleflow/pkg/errors"
)

// HeaderChangedBy names the caller recorded in versions and events.
const HeaderChangedBy = "X-Changed-By"

type Handler struct {
	Service Service
	Logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  log,
	}
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	} else {
		h.Logger.WarnwCtx(c.Request.Context(), "Request rejected", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, errors.ToErrorResponse(err))
}

func (h *Handler) bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
		errors.ErrValidation.WithCause(err).WithDetail("message", err.Error())))
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	v1 := router.Group("/api/v1")
	v1.Use(changedByMiddleware())
	{
		rules := v1.Group("/rules")
		{
			rules.GET("", h.ListRules)
			rules.POST("", h.CreateRule)
			rules.POST("/validate", h.ValidateCondition)
			rules.GET("/:id", h.GetRule)
			rules.PUT("/:id", h.UpdateRule)
			rules.DELETE("/:id", h.DeleteRule)
			rules.GET("/:id/versions", h.entityVersions(EntityRule))
			rules.GET("/:id/versions/:version", h.entityVersion(EntityRule))
			rules.GET("/:id/audit", h.entityAudit(EntityRule))
		}

		actions := v1.Group("/actions")
		{
			actions.GET("", h.ListActions)
			actions.POST("", h.CreateAction)
			actions.GET("/:id", h.GetAction)
			actions.PUT("/:id", h.UpdateAction)
			actions.DELETE("/:id", h.DeleteAction)
			actions.GET("/:id/versions", h.entityVersions(EntityAction))
			actions.GET("/:id/versions/:version", h.entityVersion(EntityAction))
			actions.GET("/:id/audit", h.entityAudit(EntityAction))
		}

		filters := v1.Group("/filters")
		{
			filters.GET("/examples", h.FilterExamples)
			filters.POST("/validate", h.ValidateFilter)
		}

		v1.GET("/audit/logs", h.GetAuditLogs)
		v1.POST("/catalog/reload", h.RequestReload)
	}
}

func changedByMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if who := c.GetHeader(HeaderChangedBy); who != "" {
			c.Request = c.Request.WithContext(WithChangedBy(c.Request.Context(), who))
		}
		c.Next()
	}
}

// ListRules godoc
// @Summary      List rules
// @Description  List rules, optionally narrowed by customer, status, event type or tag
// @Tags         rules
// @Produce      json
// @Param        customer_id  query     string  false  "Owning customer"
// @Param        status       query     string  false  "active, inactive or draft"
// @Param        event_type   query     string  false  "Event type the rule applies to"
// @Param        tag          query     string  false  "Tag"
// @Success      200  {array}   catalog.Rule
// @Failure      400  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /rules [get]
func (h *Handler) ListRules(c *gin.Context) {
	q := RuleQuery{
		CustomerID: c.Query("customer_id"),
		Status:     catalog.Status(c.Query("status")),
		EventType:  c.Query("event_type"),
		Tag:        c.Query("tag"),
	}
	rules, err := h.Service.ListRules(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// CreateRule godoc
// @Summary      Create a rule
// @Description  Create a rule. The condition is parsed; a malformed one is rejected with its token, line and column
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        rule  body      CreateRuleRequest  true  "Rule"
// @Success      201   {object}  catalog.Rule
// @Failure      400   {object}  map[string]interface{}
// @Failure      403   {object}  map[string]interface{}
// @Failure      409   {object}  map[string]interface{}
// @Failure      500   {object}  map[string]interface{}
// @Router       /rules [post]
func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	rule, err := h.Service.CreateRule(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// GetRule godoc
// @Summary      Get a rule
// @Tags         rules
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  catalog.Rule
// @Failure      404  {object}  map[string]interface{}
// @Router       /rules/{id} [get]
func (h *Handler) GetRule(c *gin.Context) {
	rule, err := h.Service.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// UpdateRule godoc
// @Summary      Update a rule
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Rule ID"
// @Param        rule  body      UpdateRuleRequest  true  "Fields to change"
// @Success      200   {object}  catalog.Rule
// @Failure      400   {object}  map[string]interface{}
// @Failure      404   {object}  map[string]interface{}
// @Router       /rules/{id} [put]
func (h *Handler) UpdateRule(c *gin.Context) {
	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	rule, err := h.Service.UpdateRule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule godoc
// @Summary      Deactivate a rule
// @Description  Rules are never removed; delete sets the status to inactive
// @Tags         rules
// @Param        id   path  string  true  "Rule ID"
// @Success      204  "No Content"
// @Failure      404  {object}  map[string]interface{}
// @Router       /rules/{id} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	if err := h.Service.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ValidateCondition godoc
// @Summary      Parse a rule condition
// @Description  Parse condition source without storing it and report the paths and actions it uses
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        body  body      ValidateConditionRequest  true  "Condition source"
// @Success      200   {object}  ConditionReport
// @Failure      400   {object}  map[string]interface{}
// @Router       /rules/validate [post]
func (h *Handler) ValidateCondition(c *gin.Context) {
	var req ValidateConditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	report, err := h.Service.ValidateCondition(c.Request.Context(), req.Condition)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListActions godoc
// @Summary      List actions
// @Tags         actions
// @Produce      json
// @Param        customer_id  query     string  false  "Owning customer"
// @Param        type         query     string  false  "email, sms, webhook, database or notification"
// @Success      200  {array}   catalog.Action
// @Failure      400  {object}  map[string]interface{}
// @Router       /actions [get]
func (h *Handler) ListActions(c *gin.Context) {
	q := ActionQuery{
		CustomerID: c.Query("customer_id"),
		Type:       catalog.ActionType(c.Query("type")),
	}
	actions, err := h.Service.ListActions(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, actions)
}

// CreateAction godoc
// @Summary      Create an action
// @Description  Create an action. The config must match the schema of the action type
// @Tags         actions
// @Accept       json
// @Produce      json
// @Param        action  body      CreateActionRequest  true  "Action"
// @Success      201     {object}  catalog.Action
// @Failure      400     {object}  map[string]interface{}
// @Failure      409     {object}  map[string]interface{}
// @Router       /actions [post]
func (h *Handler) CreateAction(c *gin.Context) {
	var req CreateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	action, err := h.Service.CreateAction(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, action)
}

// GetAction godoc
// @Summary      Get an action
// @Tags         actions
// @Produce      json
// @Param        id   path      string  true  "Action ID"
// @Success      200  {object}  catalog.Action
// @Failure      404  {object}  map[string]interface{}
// @Router       /actions/{id} [get]
func (h *Handler) GetAction(c *gin.Context) {
	action, err := h.Service.GetAction(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, action)
}

// UpdateAction godoc
// @Summary      Update an action
// @Tags         actions
// @Accept       json
// @Produce      json
// @Param        id      path      string               true  "Action ID"
// @Param        action  body      UpdateActionRequest  true  "Fields to change"
// @Success      200     {object}  catalog.Action
// @Failure      400     {object}  map[string]interface{}
// @Failure      404     {object}  map[string]interface{}
// @Router       /actions/{id} [put]
func (h *Handler) UpdateAction(c *gin.Context) {
	var req UpdateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	action, err := h.Service.UpdateAction(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, action)
}

// DeleteAction godoc
// @Summary      Deactivate an action
// @Tags         actions
// @Param        id   path  string  true  "Action ID"
// @Success      204  "No Content"
// @Failure      404  {object}  map[string]interface{}
// @Router       /actions/{id} [delete]
func (h *Handler) DeleteAction(c *gin.Context) {
	if err := h.Service.DeleteAction(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// FilterExamples godoc
// @Summary      Trigger filter examples
// @Description  Sample CEL expressions over rule attributes (id, name, customer_id, priority, tags, event_types, status)
// @Tags         filters
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /filters/examples [get]
func (h *Handler) FilterExamples(c *gin.Context) {
	c.JSON(http.StatusOK, cel.FilterExpressionExamples)
}

// ValidateFilter godoc
// @Summary      Validate a trigger filter
// @Tags         filters
// @Accept       json
// @Produce      json
// @Param        body  body  ValidateFilterRequest  true  "Filter expression"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Router       /filters/validate [post]
func (h *Handler) ValidateFilter(c *gin.Context) {
	var req ValidateFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	if err := h.Service.ValidateFilter(c.Request.Context(), req.Filter); err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (h *Handler) entityVersions(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		versions, err := h.Service.GetVersions(c.Request.Context(), entityType, c.Param("id"))
		if err != nil {
			h.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, versions)
	}
}

func (h *Handler) entityVersion(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := strconv.Atoi(c.Param("version"))
		if err != nil || n <= 0 {
			h.HandleError(c, invalid("version must be a positive integer"))
			return
		}
		v, err := h.Service.GetVersion(c.Request.Context(), entityType, c.Param("id"), n)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

func (h *Handler) entityAudit(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logs, err := h.Service.GetAuditLogs(c.Request.Context(), entityType, c.Param("id"), parseLimit(c.Query("limit")))
		if err != nil {
			h.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, logs)
	}
}

// GetAuditLogs godoc
// @Summary      Get audit logs
// @Description  Catalog change history, newest first
// @Tags         audit
// @Produce      json
// @Param        entity_type  query     string  false  "rule or action"
// @Param        entity_id    query     string  false  "Entity ID"
// @Param        limit        query     int     false  "Maximum number of logs to return (1-1000)" default(100)
// @Success      200  {array}   AuditLog
// @Failure      503  {object}  map[string]interface{}
// @Router       /audit/logs [get]
func (h *Handler) GetAuditLogs(c *gin.Context) {
	logs, err := h.Service.GetAuditLogs(c.Request.Context(), c.Query("entity_type"), c.Query("entity_id"), parseLimit(c.Query("limit")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// RequestReload godoc
// @Summary      Ask engines to reload the catalog
// @Tags         catalog
// @Success      202  "Accepted"
// @Failure      503  {object}  map[string]interface{}
// @Router       /catalog/reload [post]
func (h *Handler) RequestReload(c *gin.Context) {
	if err := h.Service.RequestReload(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func parseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return parsed
}
