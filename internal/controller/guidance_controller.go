package controller

import (
	"testhub_backend/internal/service"
	"testhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GuidanceController struct {
	History *service.HistoryService
}

func NewGuidanceController(history *service.HistoryService) *GuidanceController {
	return &GuidanceController{History: history}
}

// @Summary Topic score summary
// @Description Average score per topic across completed sessions, weakest topics first
// @Tags guidance
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /guidance/summary [get]
func (c *GuidanceController) GetSummary(ctx *gin.Context) {
	summary, err := c.History.TopicSummary()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, summary)
}
