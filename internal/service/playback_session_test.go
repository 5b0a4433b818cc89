package service

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"vidlearn_backend/internal/model"
	"vidlearn_backend/internal/util"
)

// fakeSaver 记录保存调用的内存实现
type fakeSaver struct {
	mu     sync.Mutex
	record *model.VideoProgress
	saves  int
}

func (f *fakeSaver) Load(ctx context.Context, userID, videoID uint) *model.VideoProgress {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.record != nil {
		copied := *f.record
		return &copied
	}
	return &model.VideoProgress{
		UserID:           userID,
		VideoID:          videoID,
		WatchedIntervals: model.WatchedIntervalList{},
	}
}

func (f *fakeSaver) SaveIntervals(ctx context.Context, userID, videoID uint, intervals model.WatchedIntervalList, lastPosition int) (*model.VideoProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	merged := util.MergeIntervals(intervals)
	f.record = &model.VideoProgress{
		UserID:              userID,
		VideoID:             videoID,
		WatchedIntervals:    merged,
		TotalWatchedSeconds: util.TotalWatchedSeconds(merged),
		LastPosition:        lastPosition,
	}
	copied := *f.record
	return &copied, nil
}

func (f *fakeSaver) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

type fakePlayer struct {
	seeks []int
}

func (p *fakePlayer) SeekTo(seconds int) {
	p.seeks = append(p.seeks, seconds)
}

func newTestSession(saver *fakeSaver, player *fakePlayer) *PlaybackSession {
	// 周期保存关闭，测试里只验证显式触发的保存
	return NewPlaybackSession(1, 7, saver, player, WithTickInterval(0))
}

func TestSessionAcceptsNormalPlayback(t *testing.T) {
	saver := &fakeSaver{}
	session := newTestSession(saver, &fakePlayer{})

	ctx := context.Background()
	session.Start(ctx)
	session.OnReady(ctx)
	session.OnPlay()
	session.OnProgress(ctx, 1)
	session.OnProgress(ctx, 2)
	session.OnProgress(ctx, 3)

	intervals, lastPosition := session.Snapshot()
	want := model.WatchedIntervalList{{Start: 0, End: 3}}
	if !reflect.DeepEqual(intervals, want) {
		t.Errorf("intervals = %v, want %v", intervals, want)
	}
	if lastPosition != 3 {
		t.Errorf("lastPosition = %d, want 3", lastPosition)
	}
}

func TestSessionSkipGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("两秒以内的推进计入", func(t *testing.T) {
		session := newTestSession(&fakeSaver{}, &fakePlayer{})
		session.Start(ctx)
		session.OnPlay()
		session.OnSeek(10)
		session.OnProgress(ctx, 12)

		intervals, _ := session.Snapshot()
		want := model.WatchedIntervalList{{Start: 10, End: 12}}
		if !reflect.DeepEqual(intervals, want) {
			t.Errorf("intervals = %v, want %v", intervals, want)
		}
	})

	t.Run("超过两秒的跳跃不计入", func(t *testing.T) {
		session := newTestSession(&fakeSaver{}, &fakePlayer{})
		session.Start(ctx)
		session.OnPlay()
		session.OnSeek(10)
		session.OnProgress(ctx, 13)

		intervals, lastPosition := session.Snapshot()
		if len(intervals) != 0 {
			t.Errorf("jump should not produce intervals, got %v", intervals)
		}
		// 采样基准仍然推进，后续正常播放从新位置计起
		if lastPosition != 13 {
			t.Errorf("lastPosition = %d, want 13", lastPosition)
		}
	})

	t.Run("回退采样不计入但推进基准", func(t *testing.T) {
		session := newTestSession(&fakeSaver{}, &fakePlayer{})
		session.Start(ctx)
		session.OnPlay()
		session.OnSeek(10)
		session.OnProgress(ctx, 8)

		intervals, lastPosition := session.Snapshot()
		if len(intervals) != 0 {
			t.Errorf("rewind should not produce intervals, got %v", intervals)
		}
		if lastPosition != 8 {
			t.Errorf("lastPosition = %d, want 8", lastPosition)
		}

		session.OnProgress(ctx, 9)
		intervals, _ = session.Snapshot()
		want := model.WatchedIntervalList{{Start: 8, End: 9}}
		if !reflect.DeepEqual(intervals, want) {
			t.Errorf("after rewind intervals = %v, want %v", intervals, want)
		}
	})
}

func TestSessionSeekDoesNotCreateInterval(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(&fakeSaver{}, &fakePlayer{})
	session.Start(ctx)
	session.OnPlay()
	session.OnProgress(ctx, 1)
	session.OnProgress(ctx, 2)
	session.OnProgress(ctx, 3)

	session.OnSeek(500)
	session.OnProgress(ctx, 501)

	intervals, lastPosition := session.Snapshot()
	want := model.WatchedIntervalList{{Start: 0, End: 3}, {Start: 500, End: 501}}
	if !reflect.DeepEqual(intervals, want) {
		t.Errorf("intervals = %v, want %v", intervals, want)
	}
	if lastPosition != 501 {
		t.Errorf("lastPosition = %d, want 501", lastPosition)
	}
}

func TestSessionIgnoresProgressWhilePausedOrBuffering(t *testing.T) {
	ctx := context.Background()
	saver := &fakeSaver{}
	session := newTestSession(saver, &fakePlayer{})
	session.Start(ctx)
	session.OnPlay()
	session.OnProgress(ctx, 1)

	session.OnPause(ctx)
	session.OnProgress(ctx, 2)

	intervals, _ := session.Snapshot()
	want := model.WatchedIntervalList{{Start: 0, End: 1}}
	if !reflect.DeepEqual(intervals, want) {
		t.Errorf("paused sampling leaked: %v", intervals)
	}
	if saver.saveCount() != 1 {
		t.Errorf("pause should flush once, got %d saves", saver.saveCount())
	}

	session.OnPlay()
	session.OnBuffer()
	session.OnProgress(ctx, 2)
	intervals, _ = session.Snapshot()
	if !reflect.DeepEqual(intervals, want) {
		t.Errorf("buffering sampling leaked: %v", intervals)
	}

	session.OnBufferEnd()
	session.OnProgress(ctx, 2)
	intervals, _ = session.Snapshot()
	if !reflect.DeepEqual(intervals, model.WatchedIntervalList{{Start: 0, End: 2}}) {
		t.Errorf("after buffer end intervals = %v", intervals)
	}
}

func TestSessionResumeSeekNotCounted(t *testing.T) {
	ctx := context.Background()
	saver := &fakeSaver{
		record: &model.VideoProgress{
			UserID:           1,
			VideoID:          7,
			WatchedIntervals: model.WatchedIntervalList{{Start: 0, End: 50}},
			LastPosition:     30,
		},
	}
	player := &fakePlayer{}
	session := newTestSession(saver, player)

	session.Start(ctx)
	session.OnReady(ctx)

	if !reflect.DeepEqual(player.seeks, []int{50}) {
		t.Fatalf("expected resume seek to 50, got %v", player.seeks)
	}

	// 续播跳转本身不产生观看区间
	session.OnPlay()
	session.OnProgress(ctx, 51)

	intervals, _ := session.Snapshot()
	want := model.WatchedIntervalList{{Start: 0, End: 51}}
	if !reflect.DeepEqual(intervals, want) {
		t.Errorf("intervals = %v, want %v", intervals, want)
	}
}

func TestSessionStopFlushesAndBlocksFurtherEvents(t *testing.T) {
	ctx := context.Background()
	saver := &fakeSaver{}
	session := newTestSession(saver, &fakePlayer{})
	session.Start(ctx)
	session.OnPlay()
	session.OnProgress(ctx, 1)

	session.Stop(ctx)
	if saver.saveCount() != 1 {
		t.Errorf("stop should flush once, got %d saves", saver.saveCount())
	}

	session.OnPlay()
	session.OnProgress(ctx, 2)
	intervals, _ := session.Snapshot()
	if !reflect.DeepEqual(intervals, model.WatchedIntervalList{{Start: 0, End: 1}}) {
		t.Errorf("events after stop must be ignored, got %v", intervals)
	}

	// 重复 Stop 不应重复落盘
	session.Stop(ctx)
	if saver.saveCount() != 1 {
		t.Errorf("second stop saved again, got %d saves", saver.saveCount())
	}
}
