package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/jsndz/notifyengine/middlewares"
)

// Notifications registers the evaluation and read-side endpoints under
// the given group (spec.md §6). Mirrors the teacher's
// routes.Notifications(router, ...) group-function shape. The ingest
// endpoints are rate-limited per user_id — the only caller identity this
// surface has, absent the teacher's tenant/API-key model.
func Notifications(router *gin.RouterGroup, h *NotificationHandler, limiter *middlewares.RateLimiter) {
	router.POST("/evaluate", limiter.Middleware(), h.Evaluate)
	router.POST("/batch-evaluate", limiter.Middleware(), h.BatchEvaluate)
	router.GET("/audit/:event_id", h.GetAudit)
	router.GET("/history/:user_id", h.GetHistory)
	router.GET("/ai-logs", h.GetAILogs)
}

// Rules registers the rule CRUD surface under the given group.
func Rules(router *gin.RouterGroup, h *RuleHandler) {
	router.POST("/", h.Create)
	router.GET("/", h.List)
	router.GET("/:id", h.Get)
	router.PUT("/:id", h.Update)
	router.PATCH("/:id", h.Patch)
	router.DELETE("/:id", h.Delete)
}

// Users registers the per-user preference, opt-out, and feedback
// endpoints under the given group.
func Users(router *gin.RouterGroup, h *ProfileHandler) {
	router.GET("/:id/notification-profile", h.GetProfile)
	router.PATCH("/:id/preferences", h.PatchPreferences)
	router.POST("/:id/opt-out/:topic", h.OptOut)
	router.DELETE("/:id/opt-out/:topic", h.OptIn)
	router.POST("/:id/feedback", h.Feedback)
}
