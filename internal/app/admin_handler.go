package app

import (
	"context"
	"net/http"

	"shopback/internal/service"
	"shopback/internal/util"

	"github.com/gin-gonic/gin"
)

type orphanSweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

type AdminHandler struct {
	sweeper orphanSweeper
}

func NewAdminHandler(sweeper orphanSweeper) *AdminHandler {
	return &AdminHandler{sweeper: sweeper}
}

// Sweep removes comments and likes left behind by interrupted deletions
// POST /api/v1/admin/sweep
func (h *AdminHandler) Sweep(c *gin.Context) {
	result, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Sweep completed", result)
}
