package util

import (
	"fmt"
	"regexp"
	"strconv"
)

var isoDurationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISODuration 解析 YouTube 返回的 ISO-8601 时长（如 PT1H5M30S）为秒数。
// 无法解析时返回 0，由调用方按时长缺失处理。
func ParseISODuration(duration string) int {
	match := isoDurationPattern.FindStringSubmatch(duration)
	if match == nil {
		return 0
	}

	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	seconds, _ := strconv.Atoi(match[3])

	return hours*3600 + minutes*60 + seconds
}

// FormatSeconds 把秒数格式化为 h:mm:ss / m:ss，用于接口返回的展示字段
func FormatSeconds(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
