package controller

import (
	"errors"

	"vidlearn_backend/internal/service"
	"vidlearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
}

func NewAnalyticsController(analyticsService *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{AnalyticsService: analyticsService}
}

// GetCourseSummary godoc
// @Summary 课程进度汇总
// @Description 单门课程内每个视频的观看情况与整体完成度
// @Tags 统计
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.CourseProgressSummary}
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/analytics/courses/{id} [get]
func (c *AnalyticsController) GetCourseSummary(ctx *gin.Context) {
	summary, err := c.AnalyticsService.GetCourseSummary(
		ctx.Request.Context(),
		currentUserID(ctx),
		util.MustParseUint(ctx.Param("id")),
	)
	if errors.Is(err, util.ErrCourseNotFound) {
		util.NotFound(ctx)
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// GetLibraryOverview godoc
// @Summary 学习总览
// @Description 跨全部课程的观看时长、完成数与总进度
// @Tags 统计
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.LibraryOverview}
// @Router /api/analytics/overview [get]
func (c *AnalyticsController) GetLibraryOverview(ctx *gin.Context) {
	overview, err := c.AnalyticsService.GetLibraryOverview(ctx.Request.Context(), currentUserID(ctx))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, overview)
}
