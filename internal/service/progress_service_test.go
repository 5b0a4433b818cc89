package service

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"vidlearn_backend/internal/model"
	"vidlearn_backend/internal/util"
	"vidlearn_backend/pkg/logger"

	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// fakeStore 内存实现，记录调用次数并可注入故障
type fakeStore struct {
	name     string
	records  map[uint]*model.VideoProgress
	loadErr  error
	saveErr  error
	loads    int
	saves    int
}

func newFakeStore(name string) *fakeStore {
	return &fakeStore{name: name, records: make(map[uint]*model.VideoProgress)}
}

func (s *fakeStore) Load(ctx context.Context, userID, videoID uint) (*model.VideoProgress, error) {
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	record, ok := s.records[videoID]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *fakeStore) Save(ctx context.Context, progress *model.VideoProgress) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	copied := *progress
	s.records[progress.VideoID] = &copied
	return nil
}

func (s *fakeStore) Name() string { return s.name }

type fakeDurations struct {
	durations map[uint]int
	err       error
}

func (d *fakeDurations) GetDuration(videoID uint) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	return d.durations[videoID], nil
}

func newTestService(remote, local *fakeStore, durations map[uint]int) *ProgressService {
	return NewProgressService(remote, local, &fakeDurations{durations: durations})
}

func TestLoadPrefersRemote(t *testing.T) {
	remote := newFakeStore("remote")
	local := newFakeStore("local")
	remote.records[7] = &model.VideoProgress{UserID: 1, VideoID: 7, LastPosition: 42}
	local.records[7] = &model.VideoProgress{VideoID: 7, LastPosition: 5}

	s := newTestService(remote, local, nil)
	record := s.Load(context.Background(), 1, 7)

	if record.LastPosition != 42 {
		t.Errorf("expected remote record (lastPosition 42), got %d", record.LastPosition)
	}
	if local.loads != 0 {
		t.Errorf("local should not be consulted when remote hits, got %d loads", local.loads)
	}
}

func TestLoadFallsBackToLocal(t *testing.T) {
	remote := newFakeStore("remote")
	local := newFakeStore("local")
	remote.loadErr = errors.New("connection refused")
	local.records[7] = &model.VideoProgress{VideoID: 7, LastPosition: 19}

	s := newTestService(remote, local, nil)
	record := s.Load(context.Background(), 1, 7)

	if record.LastPosition != 19 {
		t.Errorf("expected local fallback record, got lastPosition %d", record.LastPosition)
	}
}

func TestLoadReturnsEmptyRecordOnTotalMiss(t *testing.T) {
	remote := newFakeStore("remote")
	local := newFakeStore("local")
	remote.loadErr = errors.New("down")
	local.loadErr = errors.New("down")

	s := newTestService(remote, local, nil)
	record := s.Load(context.Background(), 1, 7)

	if record == nil {
		t.Fatal("Load must never return nil")
	}
	if record.VideoID != 7 || record.UserID != 1 {
		t.Errorf("empty record has wrong identity: %+v", record)
	}
	if len(record.WatchedIntervals) != 0 || record.TotalWatchedSeconds != 0 {
		t.Errorf("empty record must have zero progress: %+v", record)
	}
}

func TestLoadAnonymousSkipsRemote(t *testing.T) {
	remote := newFakeStore("remote")
	local := newFakeStore("local")
	local.records[7] = &model.VideoProgress{VideoID: 7, LastPosition: 3}

	s := newTestService(remote, local, nil)
	record := s.Load(context.Background(), 0, 7)

	if remote.loads != 0 {
		t.Errorf("anonymous load must not touch remote, got %d loads", remote.loads)
	}
	if record.LastPosition != 3 {
		t.Errorf("expected local record, got lastPosition %d", record.LastPosition)
	}
}

func TestSaveIntervalsRecomputesDerivedFields(t *testing.T) {
	remote := newFakeStore("remote")
	local := newFakeStore("local")
	s := newTestService(remote, local, map[uint]int{7: 20})

	intervals := model.WatchedIntervalList{
		{Start: 0, End: 5}, {Start: 3, End: 8}, {Start: 10, End: 12},
	}
	record, err := s.SaveIntervals(context.Background(), 1, 7, intervals, 12)
	if err != nil {
		t.Fatalf("SaveIntervals: %v", err)
	}

	wantIntervals := model.WatchedIntervalList{{Start: 0, End: 8}, {Start: 10, End: 12}}
	if !reflect.DeepEqual(record.WatchedIntervals, wantIntervals) {
		t.Errorf("intervals = %v, want %v", record.WatchedIntervals, wantIntervals)
	}
	if record.TotalWatchedSeconds != 10 {
		t.Errorf("totalWatchedSeconds = %d, want 10", record.TotalWatchedSeconds)
	}
	if record.ProgressPercentage != 50 {
		t.Errorf("progressPercentage = %v, want 50", record.ProgressPercentage)
	}
	if record.LastPosition != 12 {
		t.Errorf("lastPosition = %d, want 12", record.LastPosition)
	}
}

func TestSaveIntervalsWritesThroughToLocal(t *testing.T) {
	remote := newFakeStore("remote")
	local := newFakeStore("local")
	s := newTestService(remote, local, map[uint]int{7: 100})

	_, err := s.SaveIntervals(context.Background(), 1, 7, model.WatchedIntervalList{{Start: 0, End: 10}}, 10)
	if err != nil {
		t.Fatalf("SaveIntervals: %v", err)
	}

	if remote.saves != 1 {
		t.Errorf("remote saves = %d, want 1", remote.saves)
	}
	if local.saves != 1 {
		t.Errorf("local mirror saves = %d, want 1", local.saves)
	}
}

func TestSaveIntervalsMirrorsLocalWhenRemoteFails(t *testing.T) {
	remote := newFakeStore("remote")
	local := newFakeStore("local")
	remote.saveErr = errors.New("deadlock")
	s := newTestService(remote, local, map[uint]int{7: 100})

	record, err := s.SaveIntervals(context.Background(), 1, 7, model.WatchedIntervalList{{Start: 0, End: 10}}, 10)
	if err == nil {
		t.Fatal("expected remote save error to surface")
	}

	// 远端失败不影响内存状态，本地镜像照常写入
	if record.TotalWatchedSeconds != 10 {
		t.Errorf("in-memory record corrupted: %+v", record)
	}
	if local.saves != 1 {
		t.Errorf("local mirror saves = %d, want 1", local.saves)
	}
}

func TestSaveIntervalsAnonymousOnlyLocal(t *testing.T) {
	remote := newFakeStore("remote")
	local := newFakeStore("local")
	s := newTestService(remote, local, map[uint]int{7: 100})

	_, err := s.SaveIntervals(context.Background(), 0, 7, model.WatchedIntervalList{{Start: 0, End: 4}}, 4)
	if err != nil {
		t.Fatalf("SaveIntervals: %v", err)
	}

	if remote.saves != 0 {
		t.Errorf("anonymous save must not touch remote, got %d saves", remote.saves)
	}
	if local.saves != 1 {
		t.Errorf("local saves = %d, want 1", local.saves)
	}
}

func TestRecordIntervalRejectsDegenerate(t *testing.T) {
	s := newTestService(newFakeStore("remote"), newFakeStore("local"), nil)

	for _, interval := range []model.WatchedInterval{
		{Start: 5, End: 5},
		{Start: 10, End: 3},
	} {
		_, err := s.RecordInterval(context.Background(), 1, 7, interval)
		if !errors.Is(err, util.ErrInvalidInterval) {
			t.Errorf("RecordInterval(%+v) err = %v, want ErrInvalidInterval", interval, err)
		}
	}
}

func TestRecordIntervalAppendsToExisting(t *testing.T) {
	remote := newFakeStore("remote")
	local := newFakeStore("local")
	remote.records[7] = &model.VideoProgress{
		UserID:           1,
		VideoID:          7,
		WatchedIntervals: model.WatchedIntervalList{{Start: 0, End: 5}},
	}
	s := newTestService(remote, local, map[uint]int{7: 20})

	record, err := s.RecordInterval(context.Background(), 1, 7, model.WatchedInterval{Start: 4, End: 9})
	if err != nil {
		t.Fatalf("RecordInterval: %v", err)
	}

	want := model.WatchedIntervalList{{Start: 0, End: 9}}
	if !reflect.DeepEqual(record.WatchedIntervals, want) {
		t.Errorf("intervals = %v, want %v", record.WatchedIntervals, want)
	}
	if record.LastPosition != 9 {
		t.Errorf("lastPosition = %d, want interval end 9", record.LastPosition)
	}
}

// 同一区间反复上报不应改变结果
func TestRecordIntervalIdempotent(t *testing.T) {
	remote := newFakeStore("remote")
	local := newFakeStore("local")
	s := newTestService(remote, local, map[uint]int{7: 20})

	var last *model.VideoProgress
	for i := 0; i < 3; i++ {
		record, err := s.RecordInterval(context.Background(), 1, 7, model.WatchedInterval{Start: 2, End: 6})
		if err != nil {
			t.Fatalf("RecordInterval: %v", err)
		}
		last = record
	}

	if last.TotalWatchedSeconds != 4 {
		t.Errorf("totalWatchedSeconds = %d, want 4 after repeated reports", last.TotalWatchedSeconds)
	}
	if len(last.WatchedIntervals) != 1 {
		t.Errorf("intervals = %v, want single merged interval", last.WatchedIntervals)
	}
}
