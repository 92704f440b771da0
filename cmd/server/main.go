package main

import (
	"fmt"
	"log"

	"github.com/Mieluoxxx/Polaris-Guest/internal/api"
	"github.com/Mieluoxxx/Polaris-Guest/internal/config"
	"github.com/Mieluoxxx/Polaris-Guest/internal/db"
	"github.com/Mieluoxxx/Polaris-Guest/internal/directory"
	"github.com/Mieluoxxx/Polaris-Guest/internal/keys"
)

const (
	// Version 项目版本
	Version = "0.1.0"
	// AppName 应用名称
	AppName = "Polaris-Guest"
)

func main() {
	log.Printf("=== %s v%s ===\n", AppName, Version)
	log.Println("访客令牌签发与兑换服务")

	// 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("❌ 加载配置失败: %v", err)
	}

	// 初始化数据库
	database, err := db.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("❌ 初始化数据库失败: %v", err)
	}
	defer func() {
		if err := db.CloseDatabase(database); err != nil {
			log.Printf("⚠️  关闭数据库失败: %v", err)
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(database); err != nil {
			log.Fatalf("❌ 数据库迁移失败: %v", err)
		}
	}

	// 加载或生成签名密钥
	// 密钥文件存在但无法解析时必须中止：静默重新生成会使已签发的令牌全部失效
	keyManager := keys.NewManager(cfg.Key.Path)
	if err := keyManager.LoadOrGenerate(); err != nil {
		log.Fatalf("❌ 加载签名密钥失败: %v", err)
	}

	// 初始化用户目录（内置用户组与初始管理员）
	dirService := directory.NewService(directory.NewRepository(database), keyManager)
	if _, err := dirService.EnsureDefaults("owner"); err != nil {
		log.Fatalf("❌ 初始化用户目录失败: %v", err)
	}

	// 配置路由并启动
	router := api.SetupRouter(database, keyManager, cfg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("🚀 服务启动: http://localhost%s", addr)
	log.Printf("🔗 兑换端点: %s", cfg.Guest.LoginPath)

	if err := router.Run(addr); err != nil {
		log.Fatalf("❌ 服务启动失败: %v", err)
	}
}
