package config

// StorageConfig 存储配置
type StorageConfig struct {
	// DataDir 数据目录；为空时不持久化种子簿
	DataDir string `json:"data_dir,omitempty"`
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{}
}

// Validate 验证存储配置
func (c StorageConfig) Validate() error {
	return nil
}
