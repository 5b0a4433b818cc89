package service

import (
	"context"
	"errors"
	"math"

	"vidlearn_backend/internal/model"
	"vidlearn_backend/internal/repository"
	"vidlearn_backend/internal/util"

	"gorm.io/gorm"
)

// AnalyticsService 观看进度聚合：按课程、按用户的汇总视图
type AnalyticsService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
}

func NewAnalyticsService(courseRepo *repository.CourseRepository, progressRepo *repository.ProgressRepository) *AnalyticsService {
	return &AnalyticsService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
	}
}

// GetCourseSummary 单个课程的进度汇总。
// 总进度 = 已观看秒数 / 课程总时长，课程没有任何视频时为 0。
func (s *AnalyticsService) GetCourseSummary(ctx context.Context, userID, courseID uint) (*model.CourseProgressSummary, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	records, err := s.progressByVideo(userID, course.Videos)
	if err != nil {
		return nil, err
	}
	summary := buildCourseSummary(course, records)
	return &summary, nil
}

// GetLibraryOverview 跨全部课程的总览
func (s *AnalyticsService) GetLibraryOverview(ctx context.Context, userID uint) (*model.LibraryOverview, error) {
	courses, err := s.CourseRepo.FindAll()
	if err != nil {
		return nil, err
	}

	records, err := s.allProgress(userID)
	if err != nil {
		return nil, err
	}

	overview := &model.LibraryOverview{
		TotalCourses: len(courses),
		Courses:      make([]model.CourseProgressSummary, 0, len(courses)),
	}
	for i := range courses {
		summary := buildCourseSummary(&courses[i], records)
		overview.Courses = append(overview.Courses, summary)
		overview.TotalVideos += summary.TotalVideos
		overview.CompletedVideos += summary.CompletedVideos
		overview.TotalDuration += summary.TotalDuration
		overview.TotalWatchTime += summary.WatchedDuration
	}
	overview.OverallProgress = ratioPercent(overview.TotalWatchTime, overview.TotalDuration)
	return overview, nil
}

func (s *AnalyticsService) progressByVideo(userID uint, videos []model.Video) (map[uint]model.VideoProgress, error) {
	ids := make([]uint, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	records, err := s.ProgressRepo.FindByUserAndVideos(userID, ids)
	if err != nil {
		return nil, err
	}
	return indexByVideo(records), nil
}

func (s *AnalyticsService) allProgress(userID uint) (map[uint]model.VideoProgress, error) {
	records, err := s.ProgressRepo.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	return indexByVideo(records), nil
}

func indexByVideo(records []model.VideoProgress) map[uint]model.VideoProgress {
	byVideo := make(map[uint]model.VideoProgress, len(records))
	for _, record := range records {
		byVideo[record.VideoID] = record
	}
	return byVideo
}

// buildCourseSummary 组装课程汇总行，没有进度记录的视频按零观看计入
func buildCourseSummary(course *model.Course, records map[uint]model.VideoProgress) model.CourseProgressSummary {
	summary := model.CourseProgressSummary{
		CourseID:    course.ID,
		Title:       course.Title,
		TotalVideos: len(course.Videos),
		Videos:      make([]model.VideoSummaryItem, 0, len(course.Videos)),
	}

	for _, video := range course.Videos {
		record := records[video.ID]
		item := model.VideoSummaryItem{
			VideoID:        video.ID,
			Title:          video.Title,
			Duration:       video.Duration,
			WatchedSeconds: record.TotalWatchedSeconds,
			Progress:       record.ProgressPercentage,
			Completed:      util.IsComplete(record.ProgressPercentage),
		}
		summary.Videos = append(summary.Videos, item)

		summary.TotalDuration += video.Duration
		summary.WatchedDuration += record.TotalWatchedSeconds
		if item.Completed {
			summary.CompletedVideos++
		}
	}

	summary.OverallProgress = ratioPercent(summary.WatchedDuration, summary.TotalDuration)
	return summary
}

// ratioPercent 百分比，保留两位小数，分母为 0 时返回 0
func ratioPercent(watched, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(watched) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return math.Round(pct*100) / 100
}
