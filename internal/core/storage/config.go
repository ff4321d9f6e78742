package storage

import (
	"path/filepath"
	"time"
)

// Config 存储配置
type Config struct {
	// Path BadgerDB 数据库目录（必需）
	Path string

	// SyncWrites 每次写入同步到磁盘
	SyncWrites bool

	// GCInterval 值日志垃圾回收间隔（0 禁用）
	GCInterval time.Duration

	// GCDiscardRatio 垃圾回收丢弃比例
	GCDiscardRatio float64
}

// DefaultConfig 返回数据目录下的默认配置
func DefaultConfig(dataDir string) Config {
	return Config{
		Path:           filepath.Join(dataDir, "pragmalink.db"),
		SyncWrites:     true,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Path == "" {
		return ErrInvalidConfig
	}
	if c.GCInterval > 0 && c.GCInterval < time.Minute {
		c.GCInterval = time.Minute
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio > 1 {
		c.GCDiscardRatio = 0.5
	}
	return nil
}
