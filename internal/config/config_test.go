package config

import (
	"testing"
)

// TestLoadConfig_Defaults 测试默认配置
func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("got port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Guest.LoginPath != "/guest-mode/login" {
		t.Errorf("got login path = %v, want '/guest-mode/login'", cfg.Guest.LoginPath)
	}
	if cfg.Guest.DefaultDashboard != "lovelace" {
		t.Errorf("got default dashboard = %v, want 'lovelace'", cfg.Guest.DefaultDashboard)
	}
	if cfg.Guest.DefaultGroupID != "system-users" {
		t.Errorf("got default group = %v, want 'system-users'", cfg.Guest.DefaultGroupID)
	}
	if !cfg.Database.AutoMigrate {
		t.Error("auto migrate should default to true")
	}
	if len(cfg.Guest.Panels) != 1 {
		t.Errorf("got %d panels, want 1 default panel", len(cfg.Guest.Panels))
	}
}

// TestLoadConfig_EnvOverrides 测试环境变量覆盖
func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/override.db")
	t.Setenv("GUEST_LOGIN_PATH", "/custom/login")
	t.Setenv("EXTERNAL_URL", "https://example.com")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("got database path = %v, want override", cfg.Database.Path)
	}
	if cfg.Guest.LoginPath != "/custom/login" {
		t.Errorf("got login path = %v, want override", cfg.Guest.LoginPath)
	}
	if cfg.Guest.ExternalURL != "https://example.com" {
		t.Errorf("got external url = %v, want override", cfg.Guest.ExternalURL)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("got port = %d, want 9090", cfg.Server.Port)
	}
}

// TestGuestConfig_RedemptionURL 测试兑换链接拼接
func TestGuestConfig_RedemptionURL(t *testing.T) {
	cfg := &GuestConfig{
		LoginPath:   "/guest-mode/login",
		InternalURL: "http://localhost:8080",
		ExternalURL: "https://example.com",
	}

	// 外部地址优先
	got := cfg.RedemptionURL("uid-1")
	want := "https://example.com/guest-mode/login?token=uid-1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// 无外部地址时回退内部地址
	cfg.ExternalURL = ""
	got = cfg.RedemptionURL("uid-1")
	want = "http://localhost:8080/guest-mode/login?token=uid-1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
