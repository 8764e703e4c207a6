// Package httpapi exposes the pipeline and its supporting repositories
// over HTTP, following the teacher's gin route-group + struct-handler
// pattern (cmd/notification_api/app/routes, .../internal/handler).
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jsndz/notifyengine/pkg/pipeline"
	"github.com/jsndz/notifyengine/pkg/repositories"
	"github.com/jsndz/notifyengine/pkg/types"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// NotificationHandler serves the evaluation endpoints and their
// read-side lookups (spec.md §6).
type NotificationHandler struct {
	pipeline *pipeline.Pipeline
	events   *repositories.EventRepository
	ailogs   *repositories.AILogRepository
	log      *zap.Logger
}

func NewNotificationHandler(p *pipeline.Pipeline, events *repositories.EventRepository, ailogs *repositories.AILogRepository, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{pipeline: p, events: events, ailogs: ailogs, log: log}
}

// Evaluate handles POST /v1/notifications/evaluate.
func (h *NotificationHandler) Evaluate(c *gin.Context) {
	var event types.NotificationEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := event.Validate(time.Now()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.pipeline.Evaluate(c.Request.Context(), &event)
	c.JSON(http.StatusOK, result)
}

// BatchEvaluate handles POST /v1/notifications/batch-evaluate. Per-item
// pipeline errors never fail the request — Pipeline.Evaluate always
// returns a decision (spec.md §7).
func (h *NotificationHandler) BatchEvaluate(c *gin.Context) {
	var req types.BatchNotificationEvent
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	for i := range req.Events {
		if err := req.Events[i].Validate(now); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result := h.pipeline.EvaluateBatch(c.Request.Context(), req.Events)
	c.JSON(http.StatusOK, result)
}

// GetAudit handles GET /v1/notifications/audit/{event_id}.
func (h *NotificationHandler) GetAudit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_id"})
		return
	}
	audit, err := h.events.GetAuditByEventID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit entry not found"})
		return
	}
	c.JSON(http.StatusOK, audit)
}

// GetHistory handles GET /v1/notifications/history/{user_id}?limit<=100.
func (h *NotificationHandler) GetHistory(c *gin.Context) {
	userID := c.Param("user_id")
	limit := parseLimit(c.Query("limit"), defaultHistoryLimit, maxHistoryLimit)

	events, err := h.events.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

// GetAILogs handles GET /v1/notifications/ai-logs?user_id?&limit<=100.
func (h *NotificationHandler) GetAILogs(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), defaultHistoryLimit, maxHistoryLimit)

	userID := c.Query("user_id")
	if userID != "" {
		rows, err := h.ailogs.ListByUser(c.Request.Context(), userID, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
		return
	}

	rows, err := h.ailogs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
