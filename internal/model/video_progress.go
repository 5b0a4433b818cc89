package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// WatchedInterval 半开区间 [Start, End)，单位秒。
// 合法区间要求 End > Start；入库后不可变，只会被合并后的新集合整体替换。
// swagger:model WatchedInterval
type WatchedInterval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Valid 校验区间是否为正向非退化区间
func (w WatchedInterval) Valid() bool {
	return w.End > w.Start
}

// Seconds 区间覆盖的秒数
func (w WatchedInterval) Seconds() int {
	return w.End - w.Start
}

// WatchedIntervalList 以JSON列形式存储的区间集合。
// 不变式：按 Start 升序、互不重叠、相邻已合并（不存在 a.End >= b.Start）。
type WatchedIntervalList []WatchedInterval

func (l WatchedIntervalList) Value() (driver.Value, error) {
	if l == nil {
		l = WatchedIntervalList{}
	}
	return json.Marshal(l)
}

func (l *WatchedIntervalList) Scan(value interface{}) error {
	if value == nil {
		*l = WatchedIntervalList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type for WatchedIntervalList: %T", value)
	}
}

// VideoProgress 持久化后端中的进度记录，(user_id, video_id) 唯一。
// TotalWatchedSeconds 与 ProgressPercentage 为派生字段，每次写入前
// 必须根据区间集合重新计算，绝不信任调用方传入的值。
// swagger:model VideoProgress
type VideoProgress struct {
	BaseModel
	UserID              uint                `gorm:"index:idx_user_video,unique" json:"userId"`
	VideoID             uint                `gorm:"index:idx_user_video,unique;not null" json:"videoId"`
	WatchedIntervals    WatchedIntervalList `gorm:"type:json" json:"watchedIntervals"`
	TotalWatchedSeconds int                 `gorm:"default:0" json:"totalWatchedSeconds"`
	ProgressPercentage  float64             `gorm:"default:0" json:"progressPercentage"`
	LastPosition        int                 `gorm:"default:0" json:"lastPosition"` // 仅用于续播定位，不参与进度计算
}

func (VideoProgress) TableName() string {
	return "video_progress"
}
