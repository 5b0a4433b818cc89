package service

import (
	"context"
	"math"
	"sync"
	"time"

	"vidlearn_backend/internal/model"
	"vidlearn_backend/internal/util"
	"vidlearn_backend/pkg/logger"
	"vidlearn_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// PlayerState 播放会话状态
type PlayerState string

const (
	StateIdle    PlayerState = "idle"
	StateLoading PlayerState = "loading"
	StateReady   PlayerState = "ready"
	StatePlaying PlayerState = "playing"
	StatePaused  PlayerState = "paused"
)

// PlayerController 播放器控制面，会话用它下发续播跳转指令
type PlayerController interface {
	SeekTo(seconds int)
}

// ProgressSaver 会话持久化所需的最小接口，由 ProgressService 实现
type ProgressSaver interface {
	Load(ctx context.Context, userID, videoID uint) *model.VideoProgress
	SaveIntervals(ctx context.Context, userID, videoID uint, intervals model.WatchedIntervalList, lastPosition int) (*model.VideoProgress, error)
}

const defaultTickInterval = 5 * time.Second

// PlaybackSession 单个观看会话的进度采样状态机。
// 播放器以秒级回调上报播放位置，会话把相邻采样点折算成观看区间：
// 仅接受正向且不超过 MaxForwardJumpSeconds 的推进，拖动产生的大跳
// 只更新续播位置，不计入观看时长。
type PlaybackSession struct {
	UserID  uint
	VideoID uint

	saver  ProgressSaver
	player PlayerController

	mu           sync.Mutex
	state        PlayerState
	buffering    bool
	intervals    model.WatchedIntervalList
	lastPosition int
	stopped      bool

	tickInterval time.Duration
	ticker       *time.Ticker
	tickDone     chan struct{}

	// onSnapshot 每次保存后回调当前记录，WebSocket 层用它向客户端推送
	onSnapshot  func(*model.VideoProgress)
	onSaveError func(error)
}

type SessionOption func(*PlaybackSession)

// WithTickInterval 覆盖周期保存间隔，测试用
func WithTickInterval(d time.Duration) SessionOption {
	return func(s *PlaybackSession) { s.tickInterval = d }
}

func WithSnapshotHandler(fn func(*model.VideoProgress)) SessionOption {
	return func(s *PlaybackSession) { s.onSnapshot = fn }
}

func WithSaveErrorHandler(fn func(error)) SessionOption {
	return func(s *PlaybackSession) { s.onSaveError = fn }
}

func NewPlaybackSession(userID, videoID uint, saver ProgressSaver, player PlayerController, opts ...SessionOption) *PlaybackSession {
	session := &PlaybackSession{
		UserID:       userID,
		VideoID:      videoID,
		saver:        saver,
		player:       player,
		state:        StateIdle,
		tickInterval: defaultTickInterval,
	}
	for _, opt := range opts {
		opt(session)
	}
	return session
}

// Start 加载已有进度并进入 loading 态，随后启动周期保存
func (s *PlaybackSession) Start(ctx context.Context) {
	record := s.saver.Load(ctx, s.UserID, s.VideoID)

	s.mu.Lock()
	s.state = StateLoading
	s.intervals = append(model.WatchedIntervalList{}, record.WatchedIntervals...)
	s.lastPosition = record.LastPosition
	s.mu.Unlock()

	s.startTicker(ctx)
	monitoring.ActiveWatchSessions.Inc()
}

func (s *PlaybackSession) startTicker(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil || s.tickInterval <= 0 {
		return
	}
	s.ticker = time.NewTicker(s.tickInterval)
	s.tickDone = make(chan struct{})

	go func(ticker *time.Ticker, done chan struct{}) {
		for {
			select {
			case <-ticker.C:
				s.save(ctx)
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}(s.ticker, s.tickDone)
}

// OnReady 播放器就绪：跳到续播点并以其为采样基准，续播跳转本身不计入观看
func (s *PlaybackSession) OnReady(ctx context.Context) {
	s.mu.Lock()
	resume := util.ResumePosition(s.intervals, s.lastPosition)
	s.state = StateReady
	s.lastPosition = resume
	s.mu.Unlock()

	if resume > 0 && s.player != nil {
		s.player.SeekTo(resume)
	}
}

func (s *PlaybackSession) OnPlay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.state = StatePlaying
}

func (s *PlaybackSession) OnPause(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.state = StatePaused
	s.mu.Unlock()

	// 暂停立即落盘，不等下一个周期
	s.save(ctx)
}

func (s *PlaybackSession) OnBuffer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffering = true
}

func (s *PlaybackSession) OnBufferEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffering = false
}

// OnSeek 拖动进度条：只移动采样基准，不产生观看区间
func (s *PlaybackSession) OnSeek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.lastPosition = int(math.Floor(seconds))
}

// OnProgress 播放位置回调。相邻采样点构成候选区间 [lastPosition, cur)，
// 仅当推进为正且不超过 MaxForwardJumpSeconds 时计入；无论是否计入，
// 采样基准都推进到当前位置，保证拖动后首个回调不会吞掉整段跳跃。
func (s *PlaybackSession) OnProgress(ctx context.Context, playedSeconds float64) {
	s.mu.Lock()
	if s.stopped || s.state != StatePlaying || s.buffering {
		s.mu.Unlock()
		return
	}

	cur := int(math.Floor(playedSeconds))
	if cur == s.lastPosition {
		s.mu.Unlock()
		return
	}

	candidate := model.WatchedInterval{Start: s.lastPosition, End: cur}
	accepted := candidate.Valid() && candidate.Seconds() <= util.MaxForwardJumpSeconds
	if accepted {
		s.intervals = util.MergeIntervals(append(s.intervals, candidate))
	}
	s.lastPosition = cur
	s.mu.Unlock()

	if accepted {
		monitoring.PlaybackEventCounter.WithLabelValues("interval").Inc()
	} else {
		monitoring.PlaybackEventCounter.WithLabelValues("skip").Inc()
	}
}

// Snapshot 当前内存状态的副本，未必已落盘
func (s *PlaybackSession) Snapshot() (model.WatchedIntervalList, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(model.WatchedIntervalList{}, s.intervals...), s.lastPosition
}

func (s *PlaybackSession) save(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	intervals := append(model.WatchedIntervalList{}, s.intervals...)
	lastPosition := s.lastPosition
	s.mu.Unlock()

	record, err := s.saver.SaveIntervals(ctx, s.UserID, s.VideoID, intervals, lastPosition)
	if err != nil {
		logger.Log.Warn("playback session save failed",
			zap.Uint("userId", s.UserID),
			zap.Uint("videoId", s.VideoID),
			zap.Error(err))
		if s.onSaveError != nil {
			s.onSaveError(err)
		}
		return
	}
	if s.onSnapshot != nil {
		s.onSnapshot(record)
	}
}

// Stop 结束会话：最后保存一次并停掉周期任务，之后的事件全部忽略
func (s *PlaybackSession) Stop(ctx context.Context) {
	s.save(ctx)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.state = StateIdle
	if s.ticker != nil {
		s.ticker.Stop()
		close(s.tickDone)
		s.ticker = nil
	}
	s.mu.Unlock()

	monitoring.ActiveWatchSessions.Dec()
}
