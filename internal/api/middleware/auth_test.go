package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mieluoxxx/Polaris-Guest/internal/directory"
	"github.com/Mieluoxxx/Polaris-Guest/internal/keys"
	"github.com/Mieluoxxx/Polaris-Guest/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupAuthTestEnv 创建测试环境
func setupAuthTestEnv(t *testing.T) (*gin.Engine, *directory.Service) {
	gin.SetMode(gin.TestMode)

	// 创建测试数据库
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Group{}, &models.RefreshToken{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	keyManager := keys.NewManager(filepath.Join(t.TempDir(), "key.pem"))
	if err := keyManager.LoadOrGenerate(); err != nil {
		t.Fatalf("failed to load test keys: %v", err)
	}
	dirService := directory.NewService(directory.NewRepository(db), keyManager)

	// 配置路由
	router := gin.New()

	// 受保护的端点
	protected := router.Group("/protected")
	protected.Use(AdminAuthMiddleware(dirService))
	{
		protected.GET("/resource", func(c *gin.Context) {
			userID, _ := c.Get("user_id")
			c.JSON(http.StatusOK, gin.H{
				"message": "Success",
				"user_id": userID,
			})
		})
	}

	return router, dirService
}

// issueAccessToken 为用户签发一个访问凭证
func issueAccessToken(t *testing.T, dir *directory.Service, name string, groupIDs []string) string {
	t.Helper()
	user, err := dir.CreateUser(name, groupIDs, false)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	refresh, err := dir.CreateRefreshToken(user, "Test Client", time.Hour)
	if err != nil {
		t.Fatalf("CreateRefreshToken() failed: %v", err)
	}
	accessToken, err := dir.CreateAccessToken(refresh)
	if err != nil {
		t.Fatalf("CreateAccessToken() failed: %v", err)
	}
	return accessToken
}

// TestAdminAuthMiddleware_Success 测试管理员通过验证
func TestAdminAuthMiddleware_Success(t *testing.T) {
	router, dir := setupAuthTestEnv(t)

	accessToken := issueAccessToken(t, dir, "Admin", []string{models.GroupAdmin})

	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d. Body: %s", resp.Code, resp.Body.String())
	}
}

// TestAdminAuthMiddleware_NonAdmin 测试非管理员被拒
func TestAdminAuthMiddleware_NonAdmin(t *testing.T) {
	router, dir := setupAuthTestEnv(t)

	accessToken := issueAccessToken(t, dir, "Regular", []string{models.GroupUsers})

	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d. Body: %s", resp.Code, resp.Body.String())
	}
}

// TestAdminAuthMiddleware_MissingAuthHeader 测试缺少 Authorization 头
func TestAdminAuthMiddleware_MissingAuthHeader(t *testing.T) {
	router, _ := setupAuthTestEnv(t)

	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

// TestAdminAuthMiddleware_InvalidFormat 测试错误的认证头格式
func TestAdminAuthMiddleware_InvalidFormat(t *testing.T) {
	router, _ := setupAuthTestEnv(t)

	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	req.Header.Set("Authorization", "Basic abc123")
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

// TestAdminAuthMiddleware_InvalidToken 测试无效访问凭证
func TestAdminAuthMiddleware_InvalidToken(t *testing.T) {
	router, _ := setupAuthTestEnv(t)

	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	req.Header.Set("Authorization", "Bearer not-a-valid-token")
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

// TestAdminAuthMiddleware_RevokedSession 测试会话撤销后凭证失效
func TestAdminAuthMiddleware_RevokedSession(t *testing.T) {
	router, dir := setupAuthTestEnv(t)

	user, _ := dir.CreateUser("Admin", []string{models.GroupAdmin}, false)
	refresh, _ := dir.CreateRefreshToken(user, "Test Client", time.Hour)
	accessToken, _ := dir.CreateAccessToken(refresh)

	// 撤销刷新凭证
	if err := dir.RemoveRefreshToken(refresh.ID); err != nil {
		t.Fatalf("RemoveRefreshToken() failed: %v", err)
	}

	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d. Body: %s", resp.Code, resp.Body.String())
	}
}
