package model

// 观看进度汇总视图。全部为派生数据，只在内存中组装，从不落库。

// VideoSummaryItem 单个视频的进度行
type VideoSummaryItem struct {
	VideoID        uint    `json:"videoId"`
	Title          string  `json:"title"`
	Duration       int     `json:"duration"`
	WatchedSeconds int     `json:"watchedSeconds"`
	Progress       float64 `json:"progress"`
	Completed      bool    `json:"completed"`
}

// CourseProgressSummary 单个课程（播放列表）的汇总
type CourseProgressSummary struct {
	CourseID        uint               `json:"courseId"`
	Title           string             `json:"title"`
	TotalVideos     int                `json:"totalVideos"`
	CompletedVideos int                `json:"completedVideos"`
	TotalDuration   int                `json:"totalDuration"`
	WatchedDuration int                `json:"watchedDuration"`
	OverallProgress float64            `json:"overallProgress"`
	Videos          []VideoSummaryItem `json:"videos"`
}

// LibraryOverview 跨课程总览
type LibraryOverview struct {
	TotalCourses    int                     `json:"totalCourses"`
	TotalVideos     int                     `json:"totalVideos"`
	CompletedVideos int                     `json:"completedVideos"`
	TotalDuration   int                     `json:"totalDuration"`
	TotalWatchTime  int                     `json:"totalWatchTime"`
	OverallProgress float64                 `json:"overallProgress"`
	Courses         []CourseProgressSummary `json:"courses"`
}
