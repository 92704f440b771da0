package config

import (
	"fmt"
	"os"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`              // 数据库文件路径
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大生命周期
	AutoMigrate     bool          `mapstructure:"auto_migrate"`      // 是否自动迁移
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// KeyConfig 签名密钥配置
type KeyConfig struct {
	Path string `mapstructure:"path"` // 私钥 PEM 文件路径
}

// PanelConfig 前端面板配置
type PanelConfig struct {
	URLPath       string `json:"url_path"`
	Title         string `json:"title"`
	Icon          string `json:"icon"`
	ComponentName string `json:"component_name"`
	RequireAdmin  bool   `json:"require_admin"`
}

// GuestConfig 访客模式配置
// 显式构造后传入各组件，取代历史实现中的全局可变状态
type GuestConfig struct {
	LoginPath        string        `mapstructure:"login_path"`        // 兑换端点路径
	DefaultDashboard string        `mapstructure:"default_dashboard"` // 默认仪表盘
	DefaultGroupID   string        `mapstructure:"default_group_id"`  // 托管用户默认组
	CopyLinkMode     string        `mapstructure:"copy_link_mode"`    // link, email, sms, whatsapp, telegram, qr
	InternalURL      string        `mapstructure:"internal_url"`
	ExternalURL      string        `mapstructure:"external_url"`
	Language         string        `mapstructure:"language"` // 兑换错误文案语言
	Panels           []PanelConfig `mapstructure:"panels"`
}

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Key      KeyConfig      `mapstructure:"key"`
	Guest    GuestConfig    `mapstructure:"guest"`
}

// RedemptionURL 拼接完整的兑换链接（优先外部地址）
func (c *GuestConfig) RedemptionURL(uid string) string {
	base := c.ExternalURL
	if base == "" {
		base = c.InternalURL
	}
	return fmt.Sprintf("%s%s?token=%s", base, c.LoginPath, uid)
}

// LoadConfig 加载配置（简化版，暂不依赖 Viper）
func LoadConfig(configPath string) (*Config, error) {
	// 默认配置
	config := &Config{
		Server: ServerConfig{
			Port:     8080,
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Path:            "./data/polaris-guest.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			AutoMigrate:     true,
		},
		Key: KeyConfig{
			Path: "./data/private_key.pem",
		},
		Guest: GuestConfig{
			LoginPath:        "/guest-mode/login",
			DefaultDashboard: "lovelace",
			DefaultGroupID:   "system-users",
			CopyLinkMode:     "link",
			InternalURL:      "http://localhost:8080",
			Language:         "en",
			Panels: []PanelConfig{
				{
					URLPath:       "guest-mode",
					Title:         "Guest",
					Icon:          "mdi:shield-key",
					ComponentName: "guest-mode-panel",
					RequireAdmin:  true,
				},
			},
		},
	}

	// 支持环境变量覆盖
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}

	if keyPath := os.Getenv("PRIVATE_KEY_PATH"); keyPath != "" {
		config.Key.Path = keyPath
	}

	if loginPath := os.Getenv("GUEST_LOGIN_PATH"); loginPath != "" {
		config.Guest.LoginPath = loginPath
	}

	if externalURL := os.Getenv("EXTERNAL_URL"); externalURL != "" {
		config.Guest.ExternalURL = externalURL
	}

	if internalURL := os.Getenv("INTERNAL_URL"); internalURL != "" {
		config.Guest.InternalURL = internalURL
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
			config.Server.Port = p
		}
	}

	return config, nil
}
