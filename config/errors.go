package config

import "errors"

// 配置错误
var (
	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("invalid config")
)
