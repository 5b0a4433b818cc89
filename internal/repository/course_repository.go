package repository

import (
	"vidlearn_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// Create 在一个事务里写入课程及其全部视频
func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(course).Error
	})
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.Preload("Videos", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindByPlaylistID(playlistID string) (*model.Course, error) {
	var course model.Course
	err := r.DB.Where("playlist_id = ?", playlistID).First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindAll() ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Preload("Videos", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Order("id ASC").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", id).Delete(&model.Video{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Course{}, id).Error
	})
}
