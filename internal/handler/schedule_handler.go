package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskplanner/internal/model"
	"taskplanner/internal/service"
	"taskplanner/internal/store"
	"taskplanner/pkg/logger"
)

type ScheduleService interface {
	Generate(ctx context.Context, userID int, p service.GenerateParams) (store.Draft, error)
	Latest(ctx context.Context, userID int) (store.Draft, error)
	Save(ctx context.Context, userID int) (service.SaveResult, error)
}

type ScheduleHandler struct {
	schedules ScheduleService
	logger    *zap.Logger
}

func NewScheduleHandler(schedules ScheduleService, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, logger: logger}
}

type generateRequest struct {
	Strategy      string                `json:"strategy"`
	BudgetMinutes *int                  `json:"budget_minutes"`
	Mood          *model.MoodAssessment `json:"mood"`
	Preset        string                `json:"preset"`
}

// Generate handles POST /schedules
func (h *ScheduleHandler) Generate(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	params := service.GenerateParams{
		Strategy:      req.Strategy,
		BudgetMinutes: req.BudgetMinutes,
		Preset:        req.Preset,
	}
	if req.Mood != nil {
		if err := req.Mood.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		params.Mood = *req.Mood
	}

	draft, err := h.schedules.Generate(c.Request.Context(), userID, params)
	if errors.Is(err, service.ErrInvalidMood) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mood assessment is required for the energy strategy"})
		return
	}
	if errors.Is(err, service.ErrInvalidBudget) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("budget_minutes must not exceed %d", model.MaxBudgetMinutes)})
		return
	}
	if err != nil {
		h.fail(c, "Failed to generate schedule", userID, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

// Latest handles GET /schedules/latest
func (h *ScheduleHandler) Latest(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	draft, err := h.schedules.Latest(c.Request.Context(), userID)
	if errors.Is(err, store.ErrNoDraft) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no draft schedule"})
		return
	}
	if err != nil {
		h.fail(c, "Failed to load draft schedule", userID, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

// Save handles POST /schedules/latest/save
func (h *ScheduleHandler) Save(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	res, err := h.schedules.Save(c.Request.Context(), userID)
	if errors.Is(err, store.ErrNoDraft) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no draft schedule"})
		return
	}
	if err != nil {
		h.fail(c, "Failed to save schedule", userID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"updated":  res.Updated,
		"task_ids": res.TaskIDs,
		"status":   "saved",
	})
}

func (h *ScheduleHandler) fail(c *gin.Context, msg string, userID int, err error) {
	logger.WithTrace(c.Request.Context(), h.logger).Error(msg,
		zap.Int("user_id", userID),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
