package service

import (
	"testing"

	"vidlearn_backend/internal/model"
)

func TestBuildCourseSummary(t *testing.T) {
	course := &model.Course{
		BaseModel: model.BaseModel{ID: 1},
		Title:     "Go 入门",
		Videos: []model.Video{
			{BaseModel: model.BaseModel{ID: 10}, Title: "第一课", Duration: 100},
			{BaseModel: model.BaseModel{ID: 11}, Title: "第二课", Duration: 200},
		},
	}
	records := map[uint]model.VideoProgress{
		10: {VideoID: 10, TotalWatchedSeconds: 50, ProgressPercentage: 50},
		11: {VideoID: 11, TotalWatchedSeconds: 150, ProgressPercentage: 75},
	}

	summary := buildCourseSummary(course, records)

	if summary.TotalVideos != 2 {
		t.Errorf("totalVideos = %d, want 2", summary.TotalVideos)
	}
	if summary.TotalDuration != 300 {
		t.Errorf("totalDuration = %d, want 300", summary.TotalDuration)
	}
	if summary.WatchedDuration != 200 {
		t.Errorf("watchedDuration = %d, want 200", summary.WatchedDuration)
	}
	// 200/300 = 66.67%
	if summary.OverallProgress != 66.67 {
		t.Errorf("overallProgress = %v, want 66.67", summary.OverallProgress)
	}
	if summary.CompletedVideos != 0 {
		t.Errorf("completedVideos = %d, want 0", summary.CompletedVideos)
	}
}

func TestBuildCourseSummaryCountsCompleted(t *testing.T) {
	course := &model.Course{
		BaseModel: model.BaseModel{ID: 1},
		Videos: []model.Video{
			{BaseModel: model.BaseModel{ID: 10}, Duration: 100},
			{BaseModel: model.BaseModel{ID: 11}, Duration: 100},
			{BaseModel: model.BaseModel{ID: 12}, Duration: 100},
		},
	}
	records := map[uint]model.VideoProgress{
		10: {VideoID: 10, TotalWatchedSeconds: 95, ProgressPercentage: 95},
		11: {VideoID: 11, TotalWatchedSeconds: 89, ProgressPercentage: 89},
	}

	summary := buildCourseSummary(course, records)

	// 95% 达到完成阈值，89% 未达到，第三个视频没有记录
	if summary.CompletedVideos != 1 {
		t.Errorf("completedVideos = %d, want 1", summary.CompletedVideos)
	}
	if !summary.Videos[0].Completed {
		t.Error("video at 95%, expected completed")
	}
	if summary.Videos[1].Completed || summary.Videos[2].Completed {
		t.Error("videos below threshold marked completed")
	}
}

func TestBuildCourseSummaryMissingRecordsCountAsZero(t *testing.T) {
	course := &model.Course{
		BaseModel: model.BaseModel{ID: 1},
		Videos: []model.Video{
			{BaseModel: model.BaseModel{ID: 10}, Duration: 100},
			{BaseModel: model.BaseModel{ID: 11}, Duration: 100},
		},
	}
	records := map[uint]model.VideoProgress{
		10: {VideoID: 10, TotalWatchedSeconds: 100, ProgressPercentage: 100},
	}

	summary := buildCourseSummary(course, records)

	// 未观看的视频按零计入分母，而不是从汇总中剔除
	if summary.OverallProgress != 50 {
		t.Errorf("overallProgress = %v, want 50", summary.OverallProgress)
	}
	if summary.Videos[1].WatchedSeconds != 0 || summary.Videos[1].Progress != 0 {
		t.Errorf("missing record should be zero: %+v", summary.Videos[1])
	}
}

func TestBuildCourseSummaryEmptyCourse(t *testing.T) {
	course := &model.Course{BaseModel: model.BaseModel{ID: 1}}

	summary := buildCourseSummary(course, nil)

	if summary.OverallProgress != 0 {
		t.Errorf("empty course progress = %v, want 0", summary.OverallProgress)
	}
	if summary.TotalVideos != 0 || len(summary.Videos) != 0 {
		t.Errorf("empty course summary not empty: %+v", summary)
	}
}

func TestRatioPercent(t *testing.T) {
	tests := []struct {
		watched int
		total   int
		want    float64
	}{
		{0, 0, 0},
		{10, 0, 0},
		{50, 100, 50},
		{200, 300, 66.67},
		{400, 300, 100},
	}

	for _, tt := range tests {
		if got := ratioPercent(tt.watched, tt.total); got != tt.want {
			t.Errorf("ratioPercent(%d, %d) = %v, want %v", tt.watched, tt.total, got, tt.want)
		}
	}
}
