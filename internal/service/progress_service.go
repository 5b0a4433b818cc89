package service

import (
	"context"
	"vidlearn_backend/internal/model"
	"vidlearn_backend/internal/util"
	"vidlearn_backend/pkg/logger"
	"vidlearn_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// DurationProvider 视频时长查询，由 VideoRepository 实现
type DurationProvider interface {
	GetDuration(videoID uint) (int, error)
}

// ProgressService 双后端进度存储适配器。
// 选择策略：有登录态时优先远端，且每次远端写入都写穿到本地缓存；
// 远端不可达或无登录态时完全走本地。读路径按 远端→本地→空记录 降级，
// 任何一层失败都不会向调用方抛出加载错误。
type ProgressService struct {
	Remote    ProgressStore
	Local     ProgressStore
	Durations DurationProvider
}

func NewProgressService(remote, local ProgressStore, durations DurationProvider) *ProgressService {
	return &ProgressService{
		Remote:    remote,
		Local:     local,
		Durations: durations,
	}
}

// storeChain 按身份决定后端顺序，匿名用户只有本地后端
func (s *ProgressService) storeChain(userID uint) []ProgressStore {
	if userID > 0 {
		return []ProgressStore{s.Remote, s.Local}
	}
	return []ProgressStore{s.Local}
}

// Load 读取进度记录。后端逐级降级，全部失败或不存在时返回空记录，从不报错。
func (s *ProgressService) Load(ctx context.Context, userID, videoID uint) *model.VideoProgress {
	for _, store := range s.storeChain(userID) {
		progress, err := store.Load(ctx, userID, videoID)
		if err != nil {
			logger.Log.Warn("progress load failed, falling back",
				zap.String("backend", store.Name()),
				zap.Uint("userId", userID),
				zap.Uint("videoId", videoID),
				zap.Error(err))
			continue
		}
		if progress != nil {
			return progress
		}
	}

	// 首次播放：空区间集合、零进度
	return &model.VideoProgress{
		UserID:           userID,
		VideoID:          videoID,
		WatchedIntervals: model.WatchedIntervalList{},
	}
}

// SaveIntervals 合并区间集合、重算派生字段并持久化。
// 派生值一律重新计算，不信任调用方；远端写入成功与否都会镜像到本地缓存。
// 返回的记录反映本次合并后的内存状态；错误只代表远端（或唯一后端）写入失败，
// 内存状态仍然正确，下一次保存会携带超集区间自愈。
func (s *ProgressService) SaveIntervals(ctx context.Context, userID, videoID uint, intervals model.WatchedIntervalList, lastPosition int) (*model.VideoProgress, error) {
	merged := util.MergeIntervals(intervals)
	total := util.TotalWatchedSeconds(merged)

	duration := 0
	if s.Durations != nil {
		d, err := s.Durations.GetDuration(videoID)
		if err != nil {
			logger.Log.Warn("video duration lookup failed",
				zap.Uint("videoId", videoID), zap.Error(err))
		} else {
			duration = d
		}
	}

	progress := &model.VideoProgress{
		UserID:              userID,
		VideoID:             videoID,
		WatchedIntervals:    merged,
		TotalWatchedSeconds: total,
		ProgressPercentage:  util.ProgressPercentage(total, duration),
		LastPosition:        lastPosition,
	}

	var saveErr error
	if userID > 0 {
		saveErr = s.saveTo(ctx, s.Remote, progress)
		// 写穿本地缓存，远端失败也照常镜像，保证离线续播可用
		localCopy := *progress
		if err := s.saveTo(ctx, s.Local, &localCopy); err != nil && saveErr == nil {
			logger.Log.Warn("local mirror save failed", zap.Uint("videoId", videoID), zap.Error(err))
		}
	} else {
		saveErr = s.saveTo(ctx, s.Local, progress)
	}

	return progress, saveErr
}

func (s *ProgressService) saveTo(ctx context.Context, store ProgressStore, progress *model.VideoProgress) error {
	err := store.Save(ctx, progress)
	if err != nil {
		monitoring.ProgressSaveCounter.WithLabelValues(store.Name(), "error").Inc()
		logger.Log.Error("progress save failed",
			zap.String("backend", store.Name()),
			zap.Uint("userId", progress.UserID),
			zap.Uint("videoId", progress.VideoID),
			zap.Error(err))
		return err
	}
	monitoring.ProgressSaveCounter.WithLabelValues(store.Name(), "ok").Inc()
	return nil
}

// RecordInterval REST 路径：在已有记录上追加一个区间并保存。
// 退化区间（end <= start）在此被拒绝；续播位置更新为区间终点。
func (s *ProgressService) RecordInterval(ctx context.Context, userID, videoID uint, interval model.WatchedInterval) (*model.VideoProgress, error) {
	if !interval.Valid() {
		return nil, util.ErrInvalidInterval
	}

	existing := s.Load(ctx, userID, videoID)
	intervals := append(model.WatchedIntervalList{}, existing.WatchedIntervals...)
	intervals = append(intervals, interval)

	return s.SaveIntervals(ctx, userID, videoID, intervals, interval.End)
}
