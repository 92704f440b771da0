package keys

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestManager_Generate 测试首次启动生成密钥
func TestManager_Generate(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "private_key.pem")
	manager := NewManager(keyPath)

	if err := manager.LoadOrGenerate(); err != nil {
		t.Fatalf("LoadOrGenerate() failed: %v", err)
	}

	if manager.PrivateKey() == nil || manager.PublicKey() == nil {
		t.Fatal("manager should hold a key pair after generation")
	}

	// 密钥文件已落盘且权限受限
	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("key file should exist: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("got key file mode = %v, want 0600", info.Mode().Perm())
	}
}

// TestManager_LoadRoundTrip 测试重启后加载同一份密钥
func TestManager_LoadRoundTrip(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "private_key.pem")

	first := NewManager(keyPath)
	if err := first.LoadOrGenerate(); err != nil {
		t.Fatalf("LoadOrGenerate() failed: %v", err)
	}

	second := NewManager(keyPath)
	if err := second.LoadOrGenerate(); err != nil {
		t.Fatalf("second LoadOrGenerate() failed: %v", err)
	}

	// 两次得到同一把密钥
	if first.PrivateKey().N.Cmp(second.PrivateKey().N) != 0 {
		t.Error("reload should return the same key, not regenerate")
	}
}

// TestManager_InvalidKeyFile 测试密钥文件损坏时中止
func TestManager_InvalidKeyFile(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "private_key.pem")
	if err := os.WriteFile(keyPath, []byte("not a pem file"), 0600); err != nil {
		t.Fatalf("failed to write corrupt key file: %v", err)
	}

	manager := NewManager(keyPath)
	err := manager.LoadOrGenerate()
	if !errors.Is(err, ErrInvalidKeyFile) {
		t.Errorf("corrupt key file should return ErrInvalidKeyFile, got %v", err)
	}

	// 损坏的文件不得被覆盖重建
	data, readErr := os.ReadFile(keyPath)
	if readErr != nil {
		t.Fatalf("failed to read key file: %v", readErr)
	}
	if string(data) != "not a pem file" {
		t.Error("corrupt key file must not be silently replaced")
	}
}

// TestManager_CreatesDirectory 测试密钥目录自动创建
func TestManager_CreatesDirectory(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "nested", "dir", "key.pem")
	manager := NewManager(keyPath)

	if err := manager.LoadOrGenerate(); err != nil {
		t.Fatalf("LoadOrGenerate() failed: %v", err)
	}
	if _, err := os.Stat(keyPath); err != nil {
		t.Errorf("key file should exist in nested directory: %v", err)
	}
}
