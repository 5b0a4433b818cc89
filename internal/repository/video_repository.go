package repository

import (
	"vidlearn_backend/internal/model"

	"gorm.io/gorm"
)

type VideoRepository struct {
	DB *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{DB: db}
}

func (r *VideoRepository) Create(video *model.Video) error {
	return r.DB.Create(video).Error
}

func (r *VideoRepository) FindByID(id uint) (*model.Video, error) {
	var video model.Video
	err := r.DB.First(&video, id).Error
	if err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *VideoRepository) FindByCourseID(courseID uint) ([]model.Video, error) {
	var videos []model.Video
	err := r.DB.Where("course_id = ?", courseID).Order("position ASC").Find(&videos).Error
	return videos, err
}

// GetDuration 观看进度计算用的时长查询
func (r *VideoRepository) GetDuration(videoID uint) (int, error) {
	var duration int
	err := r.DB.Model(&model.Video{}).
		Where("id = ?", videoID).
		Select("duration").
		Scan(&duration).Error
	return duration, err
}

// UpdateDuration 上传完成后由 ffprobe 回填实际时长
func (r *VideoRepository) UpdateDuration(id uint, duration int) error {
	return r.DB.Model(&model.Video{}).
		Where("id = ?", id).
		Update("duration", duration).
		Error
}
