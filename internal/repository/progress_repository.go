package repository

import (
	"vidlearn_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) FindByUserAndVideo(userID, videoID uint) (*model.VideoProgress, error) {
	var progress model.VideoProgress
	err := r.DB.Where("user_id = ? AND video_id = ?", userID, videoID).First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// Upsert 按 (user_id, video_id) 唯一键写入：存在则覆盖，不存在则插入。
// 并发写入方之间为 last-writer-wins，调用方须在写入前完成区间合并。
func (r *ProgressRepository) Upsert(progress *model.VideoProgress) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"watched_intervals",
			"total_watched_seconds",
			"progress_percentage",
			"last_position",
			"updated_at",
		}),
	}).Create(progress).Error
}

func (r *ProgressRepository) FindByUser(userID uint) ([]model.VideoProgress, error) {
	var records []model.VideoProgress
	err := r.DB.Where("user_id = ?", userID).Find(&records).Error
	return records, err
}

func (r *ProgressRepository) FindByUserAndVideos(userID uint, videoIDs []uint) ([]model.VideoProgress, error) {
	var records []model.VideoProgress
	if len(videoIDs) == 0 {
		return records, nil
	}
	err := r.DB.Where("user_id = ? AND video_id IN ?", userID, videoIDs).Find(&records).Error
	return records, err
}
