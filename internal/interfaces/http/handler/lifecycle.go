package handler

import (
	"context"
	"errors"

	"github.com/donation/backend/internal/application/lifecycle"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/donation/backend/internal/infrastructure/scheduler"
	"github.com/gin-gonic/gin"
)

// SweepRunner runs one lifecycle sweep on demand
type SweepRunner interface {
	RunNow(ctx context.Context) (lifecycle.SweepResult, error)
}

// LifecycleHandler exposes the manual lifecycle sweep
type LifecycleHandler struct {
	BaseHandler
	runner SweepRunner
}

// NewLifecycleHandler creates a new LifecycleHandler
func NewLifecycleHandler(runner SweepRunner) *LifecycleHandler {
	return &LifecycleHandler{runner: runner}
}

// RunSweep godoc
// @Summary      Run the lifecycle sweep
// @Description  Completes funded campaigns and expires those past their end date. Superadmins only.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response{data=lifecycle.SweepResult}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/admin/lifecycle/sweep [post]
func (h *LifecycleHandler) RunSweep(c *gin.Context) {
	result, err := h.runner.RunNow(c.Request.Context())
	if errors.Is(err, scheduler.ErrSweepInProgress) {
		h.HandleError(c, shared.NewConflictError("A lifecycle sweep is already running"))
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, result, "Lifecycle sweep completed")
}
