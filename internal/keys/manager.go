package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

const (
	// keySize RSA 密钥长度
	keySize = 2048
	// pemBlockType 私钥 PEM 块类型（PKCS#8，未加密）
	pemBlockType = "PRIVATE KEY"
)

var (
	// ErrInvalidKeyFile 密钥文件存在但无法解析
	// 此时必须中止启动：静默重新生成会使所有已签发的令牌失效
	ErrInvalidKeyFile = errors.New("invalid private key file")
)

// Manager 签名密钥管理器
// 负责加载或生成 RSA 密钥对，进程生命周期内全局唯一
type Manager struct {
	keyFilePath string
	privateKey  *rsa.PrivateKey
	publicKey   *rsa.PublicKey
}

// NewManager 创建 Manager 实例
func NewManager(keyFilePath string) *Manager {
	return &Manager{keyFilePath: keyFilePath}
}

// LoadOrGenerate 加载已有密钥，不存在则生成新密钥并落盘
func (m *Manager) LoadOrGenerate() error {
	if _, err := os.Stat(m.keyFilePath); err == nil {
		return m.load()
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("检查密钥文件失败: %w", err)
	}
	return m.generate()
}

// PrivateKey 返回签名用私钥
func (m *Manager) PrivateKey() *rsa.PrivateKey {
	return m.privateKey
}

// PublicKey 返回验签用公钥
func (m *Manager) PublicKey() *rsa.PublicKey {
	return m.publicKey
}

// generate 生成新密钥对并在首次使用前持久化
func (m *Manager) generate() error {
	privateKey, err := rsa.GenerateKey(rand.Reader, keySize)
	if err != nil {
		return fmt.Errorf("生成 RSA 密钥失败: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return fmt.Errorf("序列化私钥失败: %w", err)
	}

	pemData := pem.EncodeToMemory(&pem.Block{Type: pemBlockType, Bytes: der})

	if err := os.MkdirAll(filepath.Dir(m.keyFilePath), 0755); err != nil {
		return fmt.Errorf("创建密钥目录失败: %w", err)
	}
	if err := os.WriteFile(m.keyFilePath, pemData, 0600); err != nil {
		return fmt.Errorf("写入密钥文件失败: %w", err)
	}

	m.privateKey = privateKey
	m.publicKey = &privateKey.PublicKey

	log.Printf("🔑 已生成新的签名密钥: %s", m.keyFilePath)
	return nil
}

// load 从 PEM 文件加载私钥
func (m *Manager) load() error {
	pemData, err := os.ReadFile(m.keyFilePath)
	if err != nil {
		return fmt.Errorf("读取密钥文件失败: %w", err)
	}

	block, _ := pem.Decode(pemData)
	if block == nil {
		return fmt.Errorf("%w: %s", ErrInvalidKeyFile, m.keyFilePath)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		// 兼容 PKCS#1 格式的旧密钥文件
		rsaKey, err1 := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err1 != nil {
			return fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
		}
		parsed = rsaKey
	}

	privateKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("%w: not an RSA key", ErrInvalidKeyFile)
	}

	m.privateKey = privateKey
	m.publicKey = &privateKey.PublicKey

	log.Printf("🔑 已加载签名密钥: %s", m.keyFilePath)
	return nil
}
