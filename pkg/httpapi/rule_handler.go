package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jsndz/notifyengine/pkg/models"
	"github.com/jsndz/notifyengine/pkg/repositories"
	"github.com/jsndz/notifyengine/pkg/rules"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// RuleHandler serves the operator-facing rule CRUD surface (spec.md
// §6, §4.2). Adapted from the teacher's TenantHandler.
type RuleHandler struct {
	repo   *repositories.RuleRepository
	engine *rules.Engine
	log    *zap.Logger
}

func NewRuleHandler(repo *repositories.RuleRepository, engine *rules.Engine, log *zap.Logger) *RuleHandler {
	return &RuleHandler{repo: repo, engine: engine, log: log}
}

var validRuleTypes = map[string]bool{
	rules.TypeForceNow:        true,
	rules.TypeForceNever:      true,
	rules.TypeQuietHours:      true,
	rules.TypeChannelOverride: true,
	rules.TypeCooldown:        true,
	rules.TypeCap:             true,
}

type ruleRequest struct {
	RuleName      string                 `json:"rule_name" binding:"required"`
	RuleType      string                 `json:"rule_type" binding:"required"`
	Conditions    map[string]interface{} `json:"conditions"`
	ActionParams  map[string]interface{} `json:"action_params"`
	PriorityOrder *int                   `json:"priority_order"`
	IsActive      *bool                  `json:"is_active"`
}

func (req ruleRequest) toModel() (*models.Rule, error) {
	if !validRuleTypes[req.RuleType] {
		return nil, errors.New("rule_type must be one of force_now, force_never, quiet_hours, channel_override, cooldown, cap")
	}
	conditions, err := marshalOrEmpty(req.Conditions)
	if err != nil {
		return nil, err
	}
	actionParams, err := marshalOrEmpty(req.ActionParams)
	if err != nil {
		return nil, err
	}
	priority := 100
	if req.PriorityOrder != nil {
		priority = *req.PriorityOrder
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &models.Rule{
		RuleName:      req.RuleName,
		RuleType:      req.RuleType,
		Conditions:    conditions,
		ActionParams:  actionParams,
		PriorityOrder: priority,
		IsActive:      active,
	}, nil
}

func marshalOrEmpty(m map[string]interface{}) (datatypes.JSON, error) {
	if m == nil {
		return datatypes.JSON([]byte("{}")), nil
	}
	raw, err := jsonMarshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// Create handles POST /v1/rules.
func (h *RuleHandler) Create(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.repo.FindByName(c.Request.Context(), req.RuleName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "a rule named " + req.RuleName + " already exists"})
		return
	}

	rule, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.repo.Create(c.Request.Context(), rule); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.engine.Invalidate()
	c.JSON(http.StatusCreated, rule)
}

// List handles GET /v1/rules.
func (h *RuleHandler) List(c *gin.Context) {
	rows, err := h.repo.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Get handles GET /v1/rules/:id.
func (h *RuleHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}
	rule, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// Update handles PUT /v1/rules/:id — a full replace.
func (h *RuleHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}
	existing, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}

	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.RuleName != existing.RuleName {
		collision, err := h.repo.FindByName(c.Request.Context(), req.RuleName)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if collision != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "a rule named " + req.RuleName + " already exists"})
			return
		}
	}

	updated, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	if err := h.repo.Update(c.Request.Context(), updated); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.engine.Invalidate()
	c.JSON(http.StatusOK, updated)
}

// Patch handles PATCH /v1/rules/:id — a partial update.
func (h *RuleHandler) Patch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}
	rule, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}

	var patch struct {
		RuleName      *string                `json:"rule_name"`
		RuleType      *string                `json:"rule_type"`
		Conditions    map[string]interface{} `json:"conditions"`
		ActionParams  map[string]interface{} `json:"action_params"`
		PriorityOrder *int                   `json:"priority_order"`
		IsActive      *bool                  `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if patch.RuleName != nil && *patch.RuleName != rule.RuleName {
		collision, err := h.repo.FindByName(c.Request.Context(), *patch.RuleName)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if collision != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "a rule named " + *patch.RuleName + " already exists"})
			return
		}
		rule.RuleName = *patch.RuleName
	}
	if patch.RuleType != nil {
		if !validRuleTypes[*patch.RuleType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule_type"})
			return
		}
		rule.RuleType = *patch.RuleType
	}
	if patch.Conditions != nil {
		raw, err := jsonMarshal(patch.Conditions)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		rule.Conditions = datatypes.JSON(raw)
	}
	if patch.ActionParams != nil {
		raw, err := jsonMarshal(patch.ActionParams)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		rule.ActionParams = datatypes.JSON(raw)
	}
	if patch.PriorityOrder != nil {
		rule.PriorityOrder = *patch.PriorityOrder
	}
	if patch.IsActive != nil {
		rule.IsActive = *patch.IsActive
	}

	if err := h.repo.Update(c.Request.Context(), rule); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.engine.Invalidate()
	c.JSON(http.StatusOK, rule)
}

// Delete handles DELETE /v1/rules/:id.
func (h *RuleHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.engine.Invalidate()
	c.Status(http.StatusNoContent)
}
