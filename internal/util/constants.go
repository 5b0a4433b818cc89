package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 观看进度相关常量
const (
	// CompletionThreshold 视频计为"已完成"的百分比阈值
	CompletionThreshold = 90.0
	// MaxForwardJumpSeconds 采样防作弊上限：单步前进超过该秒数视为拖动，不计入观看
	MaxForwardJumpSeconds = 2
	// MinVideoDuration 计算百分比时的最小分母，防止时长缺失导致除零
	MinVideoDuration = 1
)

// 文件上传相关常量
const (
	MimeVideo       = "video/"
	MimeImage       = "image/"
	MimeOctetStream = "application/octet-stream"
)

var (
	AllowedVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".flv", ".webm"}
)
