package util

import (
	"sort"
	"vidlearn_backend/internal/model"
)

// MergeIntervals 把无序区间集合规约为最小等价集合：
// 按 Start 升序、互不重叠、相邻（a.End >= b.Start）已合并。
// 幂等：对已合并集合再调用返回相同结果。不修改入参。
func MergeIntervals(intervals model.WatchedIntervalList) model.WatchedIntervalList {
	if len(intervals) <= 1 {
		return intervals
	}

	sorted := make(model.WatchedIntervalList, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	merged := model.WatchedIntervalList{}
	current := sorted[0]

	for _, next := range sorted[1:] {
		if current.End >= next.Start {
			// 重叠或正好相邻，延伸当前累积区间
			if next.End > current.End {
				current.End = next.End
			}
		} else {
			merged = append(merged, current)
			current = next
		}
	}

	return append(merged, current)
}

// TotalWatchedSeconds 合并后集合覆盖的去重秒数
func TotalWatchedSeconds(merged model.WatchedIntervalList) int {
	total := 0
	for _, iv := range merged {
		total += iv.Seconds()
	}
	return total
}

// ProgressPercentage 观看百分比，封顶100。
// duration 小于 MinVideoDuration 时按 MinVideoDuration 计算，避免元数据缺失导致除零。
func ProgressPercentage(totalWatchedSeconds, duration int) float64 {
	if duration < MinVideoDuration {
		duration = MinVideoDuration
	}
	pct := float64(totalWatchedSeconds) / float64(duration) * 100
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// IsComplete 是否达到完成阈值（90%）
func IsComplete(progressPercentage float64) bool {
	return progressPercentage >= CompletionThreshold
}

// ResumePosition 续播位置：已观看区间的最远 End；没有区间时退回 lastPosition
func ResumePosition(merged model.WatchedIntervalList, lastPosition int) int {
	maxEnd := 0
	for _, iv := range merged {
		if iv.End > maxEnd {
			maxEnd = iv.End
		}
	}
	if maxEnd > 0 {
		return maxEnd
	}
	return lastPosition
}
