package util

import (
	"reflect"
	"testing"

	"vidlearn_backend/internal/model"
)

func TestMergeIntervals(t *testing.T) {
	tests := []struct {
		name  string
		input model.WatchedIntervalList
		want  model.WatchedIntervalList
	}{
		{
			name:  "空集合",
			input: model.WatchedIntervalList{},
			want:  model.WatchedIntervalList{},
		},
		{
			name:  "单个区间",
			input: model.WatchedIntervalList{{Start: 3, End: 7}},
			want:  model.WatchedIntervalList{{Start: 3, End: 7}},
		},
		{
			name:  "重叠区间合并",
			input: model.WatchedIntervalList{{Start: 0, End: 5}, {Start: 3, End: 8}, {Start: 10, End: 12}},
			want:  model.WatchedIntervalList{{Start: 0, End: 8}, {Start: 10, End: 12}},
		},
		{
			name:  "正好相邻也合并",
			input: model.WatchedIntervalList{{Start: 0, End: 5}, {Start: 5, End: 8}},
			want:  model.WatchedIntervalList{{Start: 0, End: 8}},
		},
		{
			name:  "乱序输入",
			input: model.WatchedIntervalList{{Start: 10, End: 12}, {Start: 0, End: 5}, {Start: 3, End: 8}},
			want:  model.WatchedIntervalList{{Start: 0, End: 8}, {Start: 10, End: 12}},
		},
		{
			name:  "完全包含",
			input: model.WatchedIntervalList{{Start: 0, End: 100}, {Start: 20, End: 30}},
			want:  model.WatchedIntervalList{{Start: 0, End: 100}},
		},
		{
			name:  "互不相邻保持分离",
			input: model.WatchedIntervalList{{Start: 0, End: 2}, {Start: 4, End: 6}, {Start: 8, End: 10}},
			want:  model.WatchedIntervalList{{Start: 0, End: 2}, {Start: 4, End: 6}, {Start: 8, End: 10}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeIntervals(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MergeIntervals(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMergeIntervalsIdempotent(t *testing.T) {
	input := model.WatchedIntervalList{{Start: 5, End: 9}, {Start: 0, End: 6}, {Start: 20, End: 25}}

	once := MergeIntervals(input)
	twice := MergeIntervals(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second merge changed result: %v -> %v", once, twice)
	}
}

func TestMergeIntervalsDoesNotMutateInput(t *testing.T) {
	input := model.WatchedIntervalList{{Start: 10, End: 12}, {Start: 0, End: 5}}
	want := model.WatchedIntervalList{{Start: 10, End: 12}, {Start: 0, End: 5}}

	MergeIntervals(input)

	if !reflect.DeepEqual(input, want) {
		t.Errorf("input mutated: %v", input)
	}
}

func TestTotalWatchedSeconds(t *testing.T) {
	merged := model.WatchedIntervalList{{Start: 0, End: 8}, {Start: 10, End: 12}}
	if got := TotalWatchedSeconds(merged); got != 10 {
		t.Errorf("TotalWatchedSeconds = %d, want 10", got)
	}
	if got := TotalWatchedSeconds(model.WatchedIntervalList{}); got != 0 {
		t.Errorf("TotalWatchedSeconds(empty) = %d, want 0", got)
	}
}

func TestProgressPercentage(t *testing.T) {
	tests := []struct {
		name     string
		watched  int
		duration int
		want     float64
	}{
		{"一半", 10, 20, 50},
		{"全部", 20, 20, 100},
		{"超出时长封顶100", 30, 20, 100},
		{"时长为零按最小时长计", 0, 0, 0},
		{"时长缺失但有观看", 5, 0, 100},
		{"零观看", 0, 300, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProgressPercentage(tt.watched, tt.duration); got != tt.want {
				t.Errorf("ProgressPercentage(%d, %d) = %v, want %v", tt.watched, tt.duration, got, tt.want)
			}
		})
	}
}

func TestIsComplete(t *testing.T) {
	if IsComplete(89.99) {
		t.Error("89.99 should not be complete")
	}
	if !IsComplete(90) {
		t.Error("90 should be complete")
	}
	if !IsComplete(100) {
		t.Error("100 should be complete")
	}
}

func TestResumePosition(t *testing.T) {
	merged := model.WatchedIntervalList{{Start: 0, End: 8}, {Start: 10, End: 12}}
	if got := ResumePosition(merged, 5); got != 12 {
		t.Errorf("ResumePosition = %d, want 12", got)
	}
	if got := ResumePosition(model.WatchedIntervalList{}, 37); got != 37 {
		t.Errorf("ResumePosition(empty) = %d, want lastPosition 37", got)
	}
	if got := ResumePosition(nil, 0); got != 0 {
		t.Errorf("ResumePosition(nil, 0) = %d, want 0", got)
	}
}
