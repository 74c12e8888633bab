package engine

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ruleflow/internal/constants"
	"ruleflow/internal/execmetrics"
	"ruleflow/internal/logger"
	"ruleflow/pkg/errors"
	"ruleflow/pkg/models"
)

// History reads back persisted execution records.
type History interface {
	Recent(ctx context.Context, ruleID string, limit int) ([]models.ExecutionRecord, error)
}

type Handler struct {
	intake  *Intake
	history History
	logger  logger.Logger
}

// NewHandler accepts a nil history, which disables the executions endpoint.
func NewHandler(intake *Intake, history History, log logger.Logger) *Handler {
	return &Handler{intake: intake, history: history, logger: log}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.WarnwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/triggers", h.SubmitTrigger)

		stats := v1.Group("/metrics")
		{
			stats.GET("/rules", h.ListRuleMetrics)
			stats.GET("/rules/:id", h.GetRuleMetrics)
			stats.GET("/actions/:id", h.GetActionMetrics)
			stats.POST("/reset", h.ResetMetrics)
		}

		if h.history != nil {
			v1.GET("/rules/:id/executions", h.ListExecutions)
		}
	}
}

// TriggerRequest is the HTTP trigger descriptor. A missing trigger id is
// generated and the type defaults to request. The requesting customer is
// mandatory: only internal sources run unscoped system triggers.
type TriggerRequest struct {
	TriggerID   string                 `json:"trigger_id"`
	TriggerType models.TriggerType     `json:"trigger_type"`
	CustomerID  string                 `json:"customer_id" binding:"required"`
	EventType   string                 `json:"event_type"`
	RuleID      string                 `json:"rule_id"`
	Filter      string                 `json:"filter"`
	Entities    models.EntityIDs       `json:"entity_ids"`
	Payload     map[string]interface{} `json:"payload"`
}

func (r TriggerRequest) toTrigger(now time.Time) models.Trigger {
	t := models.Trigger{
		ID:         r.TriggerID,
		Type:       r.TriggerType,
		CustomerID: r.CustomerID,
		EventType:  r.EventType,
		RuleID:     r.RuleID,
		Filter:     r.Filter,
		Entities:   r.Entities,
		Payload:    r.Payload,
		ReceivedAt: now,
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Type == "" {
		t.Type = models.TriggerRequest
	}
	return t
}

// SubmitTrigger godoc
// @Summary      Execute a trigger
// @Description  Runs one orchestration pass synchronously and returns its summary
// @Tags         triggers
// @Accept       json
// @Produce      json
// @Param        trigger     body      TriggerRequest  true   "Trigger descriptor"
// @Param        timeout_ms  query     int             false  "Pass deadline in milliseconds"
// @Success      200         {object}  models.Summary
// @Failure      400         {object}  map[string]interface{}
// @Failure      403         {object}  map[string]interface{}
// @Failure      404         {object}  map[string]interface{}
// @Router       /triggers [post]
func (h *Handler) SubmitTrigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	var timeout time.Duration
	if raw := c.Query("timeout_ms"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
				errors.ErrValidation.WithDetail("message", "timeout_ms must be a positive integer")))
			return
		}
		timeout = time.Duration(ms) * time.Millisecond
	}

	summary, err := h.intake.Submit(c.Request.Context(), req.toTrigger(time.Now()), timeout)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ListRuleMetrics godoc
// @Summary      List rule execution metrics
// @Tags         metrics
// @Produce      json
// @Success      200  {array}  execmetrics.Snapshot
// @Router       /metrics/rules [get]
func (h *Handler) ListRuleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.intake.Engine().Stats().Rules())
}

// GetRuleMetrics godoc
// @Summary      Get one rule's execution metrics
// @Tags         metrics
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  execmetrics.Snapshot
// @Failure      404  {object}  map[string]interface{}
// @Router       /metrics/rules/{id} [get]
func (h *Handler) GetRuleMetrics(c *gin.Context) {
	h.snapshot(c, h.intake.Engine().Stats().Rule)
}

// GetActionMetrics godoc
// @Summary      Get one action's execution metrics
// @Tags         metrics
// @Produce      json
// @Param        id   path      string  true  "Action ID"
// @Success      200  {object}  execmetrics.Snapshot
// @Failure      404  {object}  map[string]interface{}
// @Router       /metrics/actions/{id} [get]
func (h *Handler) GetActionMetrics(c *gin.Context) {
	h.snapshot(c, h.intake.Engine().Stats().Action)
}

func (h *Handler) snapshot(c *gin.Context, get func(string) (execmetrics.Snapshot, bool)) {
	id := c.Param("id")
	s, ok := get(id)
	if !ok {
		h.handleError(c, errors.ErrNotFound.WithDetail("message", "no executions recorded for "+id))
		return
	}
	c.JSON(http.StatusOK, s)
}

// ResetMetrics godoc
// @Summary      Reset execution metrics
// @Description  Drops every in-memory rule and action counter
// @Tags         metrics
// @Success      204
// @Router       /metrics/reset [post]
func (h *Handler) ResetMetrics(c *gin.Context) {
	h.intake.Engine().Stats().Reset()
	h.logger.InfowCtx(c.Request.Context(), "Execution metrics reset")
	c.Status(http.StatusNoContent)
}

// ListExecutions godoc
// @Summary      List recent executions of a rule
// @Tags         executions
// @Produce      json
// @Param        id     path      string  true   "Rule ID"
// @Param        limit  query     int     false  "Maximum records"
// @Success      200    {array}   models.ExecutionRecord
// @Failure      500    {object}  map[string]interface{}
// @Router       /rules/{id}/executions [get]
func (h *Handler) ListExecutions(c *gin.Context) {
	limit := constants.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	records, err := h.history.Recent(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if records == nil {
		records = []models.ExecutionRecord{}
	}
	c.JSON(http.StatusOK, records)
}
