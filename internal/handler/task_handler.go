package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskplanner/internal/model"
	"taskplanner/pkg/logger"
)

type TaskLister interface {
	ListUnfinished(ctx context.Context, userID int) ([]model.Task, error)
}

type TaskHandler struct {
	tasks  TaskLister
	logger *zap.Logger
}

func NewTaskHandler(tasks TaskLister, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// GetTasks handles GET /tasks
func (h *TaskHandler) GetTasks(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListUnfinished(c.Request.Context(), userID)
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to list tasks",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}
