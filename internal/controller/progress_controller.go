package controller

import (
	"errors"

	"vidlearn_backend/internal/model"
	"vidlearn_backend/internal/service"
	"vidlearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
	WatchHub        *service.WatchHub
}

func NewProgressController(progressService *service.ProgressService, watchHub *service.WatchHub) *ProgressController {
	return &ProgressController{
		ProgressService: progressService,
		WatchHub:        watchHub,
	}
}

// GetProgress godoc
// @Summary 查询观看进度
// @Description 按后端降级读取：远端→本地缓存→空记录，永远返回 200
// @Tags 进度
// @Produce  json
// @Param   videoId path int true "视频ID"
// @Success 200 {object} util.Response{data=model.VideoProgress}
// @Router /api/videos/{videoId}/progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	videoID := util.MustParseUint(ctx.Param("videoId"))
	record := c.ProgressService.Load(ctx.Request.Context(), currentUserID(ctx), videoID)
	util.Success(ctx, record)
}

// RecordIntervalRequest 上报一个观看区间（左闭右开，单位秒）
// swagger:model RecordIntervalRequest
type RecordIntervalRequest struct {
	Start int `json:"start" binding:"min=0"`
	End   int `json:"end" binding:"required,min=1"`
}

// RecordInterval godoc
// @Summary 上报观看区间
// @Description 把区间合并进已有进度并重算完成百分比与续播位置
// @Tags 进度
// @Accept  json
// @Produce  json
// @Param   videoId path int true "视频ID"
// @Param   body body RecordIntervalRequest true "观看区间"
// @Success 200 {object} util.Response{data=model.VideoProgress}
// @Failure 400 {object} util.Response "区间非法"
// @Failure 500 {object} util.Response "存储失败"
// @Router /api/videos/{videoId}/progress [post]
func (c *ProgressController) RecordInterval(ctx *gin.Context) {
	var req RecordIntervalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	videoID := util.MustParseUint(ctx.Param("videoId"))
	record, err := c.ProgressService.RecordInterval(
		ctx.Request.Context(),
		currentUserID(ctx),
		videoID,
		model.WatchedInterval{Start: req.Start, End: req.End},
	)
	if errors.Is(err, util.ErrInvalidInterval) {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, record)
}

// WatchSocket godoc
// @Summary 实时观看会话
// @Description 升级为 WebSocket，接收播放器事件并周期性保存进度
// @Tags 进度
// @Param   videoId path int true "视频ID"
// @Router /api/videos/{videoId}/watch [get]
func (c *ProgressController) WatchSocket(ctx *gin.Context) {
	videoID := util.MustParseUint(ctx.Param("videoId"))
	if videoID == 0 {
		util.BadRequest(ctx, "invalid video id")
		return
	}
	service.ServeWatch(c.WatchHub, ctx.Writer, ctx.Request, currentUserID(ctx), videoID)
}
