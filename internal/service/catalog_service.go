package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidlearn_backend/internal/model"
	"vidlearn_backend/internal/repository"
	"vidlearn_backend/internal/util"
	"vidlearn_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	courseListCacheKey = "courses:list"
	courseListCacheTTL = 5 * time.Minute
)

// CatalogService 课程目录：播放列表导入、本地上传、带观看进度的课程查询
type CatalogService struct {
	CourseRepo   *repository.CourseRepository
	VideoRepo    *repository.VideoRepository
	ProgressRepo *repository.ProgressRepository
	YouTube      *YouTubeService
	Storage      *StorageService
	Redis        *redis.Client
}

func NewCatalogService(
	courseRepo *repository.CourseRepository,
	videoRepo *repository.VideoRepository,
	progressRepo *repository.ProgressRepository,
	youtube *YouTubeService,
	storage *StorageService,
	rdb *redis.Client,
) *CatalogService {
	return &CatalogService{
		CourseRepo:   courseRepo,
		VideoRepo:    videoRepo,
		ProgressRepo: progressRepo,
		YouTube:      youtube,
		Storage:      storage,
		Redis:        rdb,
	}
}

// ListCourses 课程列表。目录本身走 Redis 缓存，观看进度按用户实时计算
func (s *CatalogService) ListCourses(ctx context.Context, userID uint) ([]model.Course, error) {
	courses, err := s.loadCourseList(ctx)
	if err != nil {
		return nil, err
	}

	if userID > 0 {
		s.attachProgress(courses, userID)
	}
	return courses, nil
}

func (s *CatalogService) loadCourseList(ctx context.Context) ([]model.Course, error) {
	if s.Redis != nil {
		val, err := s.Redis.Get(ctx, courseListCacheKey).Result()
		if err == nil {
			var cached []model.Course
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return cached, nil
			}
		}
	}

	courses, err := s.CourseRepo.FindAll()
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(courses); err == nil {
			s.Redis.Set(ctx, courseListCacheKey, data, courseListCacheTTL)
		}
	}
	return courses, nil
}

func (s *CatalogService) invalidateCourseList(ctx context.Context) {
	if s.Redis != nil {
		s.Redis.Del(ctx, courseListCacheKey)
	}
}

// attachProgress 给课程和视频填充当前用户的观看百分比。
// 课程进度为课程内全部视频百分比的平均值，没有记录的视频按 0 计。
func (s *CatalogService) attachProgress(courses []model.Course, userID uint) {
	var videoIDs []uint
	for _, course := range courses {
		for _, video := range course.Videos {
			videoIDs = append(videoIDs, video.ID)
		}
	}
	if len(videoIDs) == 0 {
		return
	}

	records, err := s.ProgressRepo.FindByUserAndVideos(userID, videoIDs)
	if err != nil {
		logger.Log.Warn("progress lookup failed", zap.Uint("userId", userID), zap.Error(err))
		return
	}
	byVideo := make(map[uint]float64, len(records))
	for _, record := range records {
		byVideo[record.VideoID] = record.ProgressPercentage
	}

	for i := range courses {
		var sum float64
		for j := range courses[i].Videos {
			pct := byVideo[courses[i].Videos[j].ID]
			courses[i].Videos[j].Progress = pct
			sum += pct
		}
		if n := len(courses[i].Videos); n > 0 {
			courses[i].Progress = sum / float64(n)
		}
	}
}

// GetCourse 课程详情（含视频与当前用户进度）
func (s *CatalogService) GetCourse(ctx context.Context, userID, courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	if userID > 0 {
		list := []model.Course{*course}
		s.attachProgress(list, userID)
		course = &list[0]
	}
	return course, nil
}

// SearchPlaylists 搜索可导入的播放列表
func (s *CatalogService) SearchPlaylists(ctx context.Context, query string, maxResults int) ([]PlaylistInfo, error) {
	return s.YouTube.SearchPlaylists(ctx, query, maxResults)
}

// ImportPlaylist 把一个播放列表导入为课程。按 playlistId 幂等：
// 已导入过的列表直接返回既有课程，不重复建课。
func (s *CatalogService) ImportPlaylist(ctx context.Context, userID uint, playlistID string) (*model.Course, error) {
	existing, err := s.CourseRepo.FindByPlaylistID(playlistID)
	if err == nil {
		return s.GetCourse(ctx, userID, existing.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	info, err := s.YouTube.FetchPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	items, err := s.YouTube.FetchPlaylistItems(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	course := &model.Course{
		Title:        info.Title,
		Description:  info.Description,
		ThumbnailURL: info.ThumbnailURL,
		PlaylistID:   playlistID,
		CreatedBy:    userID,
	}
	for _, item := range items {
		course.Videos = append(course.Videos, model.Video{
			Title:        item.Title,
			Description:  item.Description,
			ThumbnailURL: item.ThumbnailURL,
			VideoURL:     "https://www.youtube.com/watch?v=" + item.VideoID,
			Position:     item.Position,
			Duration:     item.Duration,
		})
	}

	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	s.invalidateCourseList(ctx)

	logger.Log.Info("playlist imported",
		zap.String("playlistId", playlistID),
		zap.Uint("courseId", course.ID),
		zap.Int("videos", len(course.Videos)))
	return course, nil
}

// CreateCourse 手动建一门空课程（后续通过上传补充视频）
func (s *CatalogService) CreateCourse(ctx context.Context, userID uint, title, description string) (*model.Course, error) {
	course := &model.Course{
		Title:       title,
		Description: description,
		CreatedBy:   userID,
	}
	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	s.invalidateCourseList(ctx)
	return course, nil
}

// DeleteCourse 删除课程及其视频
func (s *CatalogService) DeleteCourse(ctx context.Context, courseID uint) error {
	if err := s.CourseRepo.Delete(courseID); err != nil {
		return err
	}
	s.invalidateCourseList(ctx)
	return nil
}

// UploadVideo 上传本地视频到课程：先落临时文件用 ffprobe 取时长并截缩略图，
// 再推到存储后端，最后写视频记录
func (s *CatalogService) UploadVideo(ctx context.Context, courseID uint, title string, fileName string, reader io.Reader, size int64) (*model.Video, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !isAllowedVideoExt(ext) {
		return nil, fmt.Errorf("不支持的视频格式: %s", ext)
	}

	course, err := s.CourseRepo.FindByID(courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	tmpFile, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return nil, err
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmpFile, reader); err != nil {
		tmpFile.Close()
		return nil, err
	}
	tmpFile.Close()

	duration := 0
	if info, err := util.GetVideoInfo(tmpPath); err != nil {
		logger.Log.Warn("ffprobe failed", zap.String("file", fileName), zap.Error(err))
	} else {
		duration = int(info.Duration)
	}

	objectName := fmt.Sprintf("videos/%s%s", uuid.New().String(), ext)
	videoURL, err := s.Storage.UploadFile(ctx, objectName, tmpPath, util.MimeVideo+strings.TrimPrefix(ext, "."))
	if err != nil {
		return nil, err
	}

	thumbnailURL := ""
	thumbPath := tmpPath + ".jpg"
	if err := util.GenerateThumbnail(tmpPath, thumbPath, "00:00:01"); err != nil {
		logger.Log.Warn("thumbnail generation failed", zap.String("file", fileName), zap.Error(err))
	} else {
		defer os.Remove(thumbPath)
		thumbName := strings.TrimSuffix(objectName, ext) + ".jpg"
		if url, err := s.Storage.UploadFile(ctx, thumbName, thumbPath, "image/jpeg"); err == nil {
			thumbnailURL = url
		}
	}

	video := &model.Video{
		CourseID:     courseID,
		Title:        title,
		ThumbnailURL: thumbnailURL,
		VideoURL:     videoURL,
		Position:     len(course.Videos),
		Duration:     duration,
	}
	if err := s.VideoRepo.Create(video); err != nil {
		return nil, err
	}
	s.invalidateCourseList(ctx)
	return video, nil
}

func isAllowedVideoExt(ext string) bool {
	for _, allowed := range util.AllowedVideoExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
