package model

// Course 课程（对应一个已导入的播放列表）
// swagger:model Course
type Course struct {
	BaseModel
	Title        string  `gorm:"size:255;not null" json:"title"`
	Description  string  `gorm:"type:text" json:"description"`
	ThumbnailURL string  `gorm:"size:512" json:"thumbnailUrl"`
	PlaylistID   string  `gorm:"size:100;index" json:"playlistId"` // 来源播放列表ID（本地创建的课程为空）
	CreatedBy    uint    `gorm:"index" json:"createdBy"`
	Videos       []Video `gorm:"foreignKey:CourseID" json:"videos,omitempty"`

	// Progress 当前用户的课程完成百分比，查询时计算，不落库
	Progress float64 `gorm:"-" json:"progress"`
}

func (Course) TableName() string {
	return "courses"
}

// Video 课程内的单个视频，时长由元数据接口或 ffprobe 得到
// swagger:model Video
type Video struct {
	BaseModel
	CourseID     uint   `gorm:"index;not null" json:"courseId"`
	Title        string `gorm:"size:255;not null" json:"title"`
	Description  string `gorm:"type:text" json:"description"`
	ThumbnailURL string `gorm:"size:512" json:"thumbnailUrl"`
	VideoURL     string `gorm:"size:512;not null" json:"videoUrl"`
	Position     int    `gorm:"default:0" json:"position"`  // 在课程中的顺序
	Duration     int    `gorm:"default:0" json:"duration"`  // 时长（秒）

	// Progress 当前用户的观看百分比，查询时计算，不落库
	Progress float64 `gorm:"-" json:"progress"`
}

func (Video) TableName() string {
	return "videos"
}
