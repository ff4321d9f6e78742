package identity

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/libp2p/go-libp2p/core/crypto"
)

// Generate 生成新的 Ed25519 私钥
func Generate() (crypto.PrivKey, error) {
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return priv, nil
}

// DecodePrivateKey 解码配置中的私钥材料
//
// 接受 libp2p protobuf 编码私钥的 base64 或 hex 形式。
func DecodePrivateKey(encoded string) (crypto.PrivKey, error) {
	return decodeKey(encoded, crypto.UnmarshalPrivateKey)
}

// EncodePrivateKey 编码私钥为 base64 字符串（DecodePrivateKey 的逆操作）
func EncodePrivateKey(priv crypto.PrivKey) (string, error) {
	if priv == nil {
		return "", ErrNilPrivateKey
	}
	raw, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodePublicKey 解码配置中的公钥材料（权威公钥）
//
// 格式与 DecodePrivateKey 相同：libp2p protobuf 编码的 base64 或 hex。
func DecodePublicKey(encoded string) (crypto.PubKey, error) {
	return decodeKey(encoded, crypto.UnmarshalPublicKey)
}

// EncodePublicKey 编码公钥为 base64 字符串
func EncodePublicKey(pub crypto.PubKey) (string, error) {
	if pub == nil {
		return "", ErrInvalidKeyMaterial
	}
	raw, err := crypto.MarshalPublicKey(pub)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func decodeKey[K any](encoded string, unmarshal func([]byte) (K, error)) (K, error) {
	var zero K
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return zero, ErrInvalidKeyMaterial
	}

	// 纯十六进制字符串同时也可能是合法 base64，两种解码都尝试
	var lastErr error = errors.New("neither hex nor base64")
	for _, decode := range []func(string) ([]byte, error){
		hex.DecodeString,
		base64.StdEncoding.DecodeString,
	} {
		raw, err := decode(encoded)
		if err != nil {
			continue
		}
		key, err := unmarshal(raw)
		if err != nil {
			lastErr = err
			continue
		}
		return key, nil
	}
	return zero, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, lastErr)
}

// ============================================================================
//                              密钥文件
// ============================================================================

// LoadOrCreate 从文件加载私钥，文件不存在时生成并保存
//
// 返回的 created 表示是否新生成了密钥。文件存在但无法解码时返回错误，
// 不会覆盖已有文件。
func LoadOrCreate(path string) (priv crypto.PrivKey, created bool, err error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		priv, err = crypto.UnmarshalPrivateKey(data)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %s: %v", ErrInvalidKeyMaterial, path, err)
		}
		return priv, false, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, false, fmt.Errorf("read key file: %w", err)
	}

	priv, err = Generate()
	if err != nil {
		return nil, false, err
	}
	if err := Save(priv, path); err != nil {
		return nil, false, err
	}
	return priv, true, nil
}

// Save 保存私钥到文件（libp2p protobuf 编码，权限 0600）
func Save(priv crypto.PrivKey, path string) error {
	raw, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	return atomicWriteFile(path, raw, 0o600)
}

// atomicWriteFile 原子写文件
//
// 临时文件 + rename，任何步骤失败时目标文件保持不变。
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("同步临时文件失败: %w", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("设置文件权限失败: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("原子 rename 失败: %w", err)
	}

	success = true
	return nil
}
