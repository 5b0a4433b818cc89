package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"vidlearn_backend/internal/model"
	"vidlearn_backend/internal/repository"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ProgressStore 进度存储后端的统一抽象。
// 远端后端按 (userID, videoID) 定位；本地后端只按 videoID 定位（单用户假设），
// 两者的 Load/Save 语义一致：记录不存在时 Load 返回 (nil, nil) 而非错误。
type ProgressStore interface {
	Load(ctx context.Context, userID, videoID uint) (*model.VideoProgress, error)
	Save(ctx context.Context, progress *model.VideoProgress) error
	Name() string
}

// RemoteProgressStore 权威后端：MySQL video_progress 表
type RemoteProgressStore struct {
	Repo *repository.ProgressRepository
}

func NewRemoteProgressStore(repo *repository.ProgressRepository) *RemoteProgressStore {
	return &RemoteProgressStore{Repo: repo}
}

func (s *RemoteProgressStore) Load(ctx context.Context, userID, videoID uint) (*model.VideoProgress, error) {
	progress, err := s.Repo.FindByUserAndVideo(userID, videoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return progress, nil
}

func (s *RemoteProgressStore) Save(ctx context.Context, progress *model.VideoProgress) error {
	return s.Repo.Upsert(progress)
}

func (s *RemoteProgressStore) Name() string {
	return "remote"
}

const localProgressKeyPrefix = "video-progress:"

// LocalProgressStore 本地回退缓存：Redis 中以 video-progress:{videoID} 为键的
// JSON 记录，对应原始前端的 localStorage 条目。用于断线续播和无登录态的观看。
type LocalProgressStore struct {
	Redis *redis.Client
}

func NewLocalProgressStore(rdb *redis.Client) *LocalProgressStore {
	return &LocalProgressStore{Redis: rdb}
}

func localProgressKey(videoID uint) string {
	return fmt.Sprintf("%s%d", localProgressKeyPrefix, videoID)
}

func (s *LocalProgressStore) Load(ctx context.Context, userID, videoID uint) (*model.VideoProgress, error) {
	val, err := s.Redis.Get(ctx, localProgressKey(videoID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var progress model.VideoProgress
	if err := json.Unmarshal([]byte(val), &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

func (s *LocalProgressStore) Save(ctx context.Context, progress *model.VideoProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	// 不设置过期时间：续播缓存与 localStorage 一样长期保留
	return s.Redis.Set(ctx, localProgressKey(progress.VideoID), data, 0).Err()
}

func (s *LocalProgressStore) Name() string {
	return "local"
}
