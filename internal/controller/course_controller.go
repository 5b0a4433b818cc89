package controller

import (
	"errors"

	"vidlearn_backend/internal/service"
	"vidlearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CatalogService *service.CatalogService
}

func NewCourseController(catalogService *service.CatalogService) *CourseController {
	return &CourseController{CatalogService: catalogService}
}

func currentUserID(ctx *gin.Context) uint {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		return 0
	}
	return claims.UserID
}

// ListCourses godoc
// @Summary 课程列表
// @Description 返回全部课程，登录用户附带观看进度
// @Tags 课程
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Course}
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	courses, err := c.CatalogService.ListCourses(ctx.Request.Context(), currentUserID(ctx))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// GetCourse godoc
// @Summary 课程详情
// @Description 返回课程及其视频列表，登录用户附带每个视频的观看进度
// @Tags 课程
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("id"))
	course, err := c.CatalogService.GetCourse(ctx.Request.Context(), currentUserID(ctx), courseID)
	if errors.Is(err, util.ErrCourseNotFound) {
		util.NotFound(ctx)
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// SearchPlaylists godoc
// @Summary 搜索播放列表
// @Description 按关键词搜索可导入的播放列表
// @Tags 课程
// @Produce  json
// @Param   q query string true "搜索关键词"
// @Param   limit query int false "返回条数上限"
// @Success 200 {object} util.Response{data=[]service.PlaylistInfo}
// @Failure 400 {object} util.Response "缺少关键词"
// @Router /api/playlists/search [get]
func (c *CourseController) SearchPlaylists(ctx *gin.Context) {
	query := ctx.Query("q")
	if query == "" {
		util.BadRequest(ctx, "missing query parameter q")
		return
	}

	limit := int(util.MustParseUint(ctx.DefaultQuery("limit", "10")))
	results, err := c.CatalogService.SearchPlaylists(ctx.Request.Context(), query, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, results)
}

// ImportPlaylistRequest 播放列表导入请求
// swagger:model ImportPlaylistRequest
type ImportPlaylistRequest struct {
	PlaylistID string `json:"playlistId" binding:"required"`
}

// ImportPlaylist godoc
// @Summary 导入播放列表为课程
// @Description 按 playlistId 幂等导入，已导入过的列表返回既有课程
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body ImportPlaylistRequest true "播放列表信息"
// @Success 201 {object} util.Response{data=model.Course} "导入成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "播放列表不存在"
// @Failure 422 {object} util.Response "播放列表为空"
// @Router /api/courses/import [post]
func (c *CourseController) ImportPlaylist(ctx *gin.Context) {
	var req ImportPlaylistRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CatalogService.ImportPlaylist(ctx.Request.Context(), currentUserID(ctx), req.PlaylistID)
	if errors.Is(err, util.ErrPlaylistNotFound) {
		util.NotFound(ctx)
		return
	}
	if errors.Is(err, util.ErrPlaylistEmpty) {
		util.Error(ctx, 422, "播放列表没有可导入的视频")
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// CreateCourseRequest 手动建课请求
// swagger:model CreateCourseRequest
type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body CreateCourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course}
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req CreateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CatalogService.CreateCourse(ctx.Request.Context(), currentUserID(ctx), req.Title, req.Description)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// DeleteCourse godoc
// @Summary 删除课程
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	if err := c.CatalogService.DeleteCourse(ctx.Request.Context(), util.MustParseUint(ctx.Param("id"))); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// UploadVideo godoc
// @Summary 上传视频到课程
// @Description 接收视频文件，用 ffprobe 提取时长并生成缩略图
// @Tags 课程
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   title formData string true "视频标题"
// @Param   file formData file true "视频文件"
// @Success 201 {object} util.Response{data=model.Video}
// @Failure 400 {object} util.Response "文件缺失或格式不支持"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id}/videos [post]
func (c *CourseController) UploadVideo(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("id"))
	title := ctx.PostForm("title")
	if title == "" {
		util.BadRequest(ctx, "missing title")
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "missing video file")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	video, err := c.CatalogService.UploadVideo(ctx.Request.Context(), courseID, title, fileHeader.Filename, file, fileHeader.Size)
	if errors.Is(err, util.ErrCourseNotFound) {
		util.NotFound(ctx)
		return
	}
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, video)
}
