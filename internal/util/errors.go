package util

import "errors"

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrPermissionDenied = errors.New("permission denied")
	ErrCourseNotFound   = errors.New("course not found")
	ErrVideoNotFound    = errors.New("video not found")
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrPlaylistEmpty    = errors.New("playlist has no videos")
	ErrInvalidInterval  = errors.New("invalid watched interval")
	ErrStoreUnavailable = errors.New("progress store unavailable")
)
