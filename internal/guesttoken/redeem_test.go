package guesttoken

import (
	"net/http"
	"testing"

	"github.com/Mieluoxxx/Polaris-Guest/internal/i18n"
	"github.com/Mieluoxxx/Polaris-Guest/internal/models"
)

// assertRedeemError 断言兑换失败的状态码与文案键
func assertRedeemError(t *testing.T, err error, status int, label string) {
	t.Helper()
	redeemErr, ok := err.(*RedeemError)
	if !ok {
		t.Fatalf("expected *RedeemError, got %T: %v", err, err)
	}
	if redeemErr.Status != status {
		t.Errorf("got status = %d, want %d", redeemErr.Status, status)
	}
	if redeemErr.Label != label {
		t.Errorf("got label = %v, want %v", redeemErr.Label, label)
	}
}

// TestService_Redeem_MissingToken 测试缺少公开标识
func TestService_Redeem_MissingToken(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Redeem("")
	assertRedeemError(t, err, http.StatusBadRequest, i18n.LabelMissingToken)
}

// TestService_Redeem_UnknownUID 测试不存在的令牌
func TestService_Redeem_UnknownUID(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Redeem("no-such-uid")
	assertRedeemError(t, err, http.StatusNotFound, i18n.LabelTokenNotFound)
}

// TestService_Redeem_NeverExpire 测试永不过期令牌兑换成功
func TestService_Redeem_NeverExpire(t *testing.T) {
	service, dir, _ := newTestService(t)
	user := createTestUser(t, dir, "Alice")

	uid, err := service.CreateToken(&CreateTokenRequest{
		UserID:        user.ID,
		Name:          "Forever",
		IsNeverExpire: true,
	})
	if err != nil {
		t.Fatalf("CreateToken() failed: %v", err)
	}

	result, err := service.Redeem(uid)
	if err != nil {
		t.Fatalf("Redeem() failed: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatal("Redeem() should return an access token")
	}
	if result.RedirectPath != "/" {
		t.Errorf("got redirect path = %v, want '/'", result.RedirectPath)
	}

	// 访问凭证可通过目录校验并归属正确用户
	validated, err := dir.ValidateAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken() failed: %v", err)
	}
	if validated.ID != user.ID {
		t.Errorf("access token should belong to %v, got %v", user.ID, validated.ID)
	}

	// 使用计数与会话关联已持久化
	token, _ := service.repo.FindByUID(uid)
	if token.TimesUsed != 1 {
		t.Errorf("got times used = %d, want 1", token.TimesUsed)
	}
	if token.FirstUsedAt == nil || token.LastUsedAt == nil {
		t.Error("usage timestamps should be set")
	}
	if token.SessionRefID == "" || token.SessionToken == "" {
		t.Error("session linkage should be persisted")
	}
}

// TestService_Redeem_Idempotent 测试重复兑换返回同一份凭证
func TestService_Redeem_Idempotent(t *testing.T) {
	service, dir, _ := newTestService(t)
	user := createTestUser(t, dir, "Alice")

	uid, _ := service.CreateToken(&CreateTokenRequest{
		UserID:        user.ID,
		Name:          "Reusable",
		IsNeverExpire: true,
	})

	first, err := service.Redeem(uid)
	if err != nil {
		t.Fatalf("first Redeem() failed: %v", err)
	}
	second, err := service.Redeem(uid)
	if err != nil {
		t.Fatalf("second Redeem() failed: %v", err)
	}

	if first.AccessToken != second.AccessToken {
		t.Error("repeated redemption should return the same access token")
	}

	// 每次尝试都计数
	token, _ := service.repo.FindByUID(uid)
	if token.TimesUsed != 2 {
		t.Errorf("got times used = %d, want 2", token.TimesUsed)
	}
}

// TestService_Redeem_UsageLimit 测试使用次数上限
func TestService_Redeem_UsageLimit(t *testing.T) {
	service, dir, _ := newTestService(t)
	user := createTestUser(t, dir, "Alice")

	uid, _ := service.CreateToken(&CreateTokenRequest{
		UserID:        user.ID,
		Name:          "Limited",
		IsNeverExpire: true,
		UsageLimit:    intPtr(2),
	})

	// 第 1、2 次成功
	if _, err := service.Redeem(uid); err != nil {
		t.Fatalf("redemption 1 failed: %v", err)
	}
	if _, err := service.Redeem(uid); err != nil {
		t.Fatalf("redemption 2 failed: %v", err)
	}

	// 第 3 次被拒
	_, err := service.Redeem(uid)
	assertRedeemError(t, err, http.StatusForbidden, i18n.LabelUsageLimitReached)

	// 上限检查先于计数：被拒的尝试不再累加
	token, _ := service.repo.FindByUID(uid)
	if token.TimesUsed != 2 {
		t.Errorf("got times used = %d, want 2 (rejected attempt must not count)", token.TimesUsed)
	}
}

// TestService_Redeem_BeforeStartDate 测试窗口未生效
func TestService_Redeem_BeforeStartDate(t *testing.T) {
	service, dir, _ := newTestService(t)
	user := createTestUser(t, dir, "Alice")

	uid, _ := service.CreateToken(&CreateTokenRequest{
		UserID:                  user.ID,
		Name:                    "Future",
		StartOffsetMinutes:      intPtr(60),
		ExpirationOffsetMinutes: intPtr(120),
	})

	_, err := service.Redeem(uid)
	assertRedeemError(t, err, http.StatusForbidden, i18n.LabelNotYetOrExpired)

	// 窗口校验失败的尝试同样计入使用次数
	token, _ := service.repo.FindByUID(uid)
	if token.TimesUsed != 1 {
		t.Errorf("got times used = %d, want 1 (window failure still counts)", token.TimesUsed)
	}
}

// TestService_Redeem_AfterEndDate 测试窗口已过期
func TestService_Redeem_AfterEndDate(t *testing.T) {
	service, dir, _ := newTestService(t)
	user := createTestUser(t, dir, "Alice")

	uid, _ := service.CreateToken(&CreateTokenRequest{
		UserID:                  user.ID,
		Name:                    "Stale",
		StartOffsetMinutes:      intPtr(-120),
		ExpirationOffsetMinutes: intPtr(-60),
	})

	_, err := service.Redeem(uid)
	assertRedeemError(t, err, http.StatusForbidden, i18n.LabelNotYetOrExpired)
}

// TestService_Redeem_ActiveWindow 测试窗口内兑换成功
func TestService_Redeem_ActiveWindow(t *testing.T) {
	service, dir, _ := newTestService(t)
	user := createTestUser(t, dir, "Alice")

	uid, _ := service.CreateToken(&CreateTokenRequest{
		UserID:                  user.ID,
		Name:                    "Active",
		StartOffsetMinutes:      intPtr(-5),
		ExpirationOffsetMinutes: intPtr(60),
	})

	result, err := service.Redeem(uid)
	if err != nil {
		t.Fatalf("Redeem() within window failed: %v", err)
	}
	if result.AccessToken == "" {
		t.Error("Redeem() should return an access token")
	}
}

// TestService_Redeem_RedirectPath 测试非默认仪表盘的跳转路径
func TestService_Redeem_RedirectPath(t *testing.T) {
	service, dir, _ := newTestService(t)
	user := createTestUser(t, dir, "Alice")

	uid, _ := service.CreateToken(&CreateTokenRequest{
		UserID:        user.ID,
		Name:          "Energy",
		IsNeverExpire: true,
		Dashboard:     "energy",
	})

	result, err := service.Redeem(uid)
	if err != nil {
		t.Fatalf("Redeem() failed: %v", err)
	}
	if result.RedirectPath != "/energy" {
		t.Errorf("got redirect path = %v, want '/energy'", result.RedirectPath)
	}
}

// TestService_Redeem_TamperedToken 测试篡改存储的签名令牌
func TestService_Redeem_TamperedToken(t *testing.T) {
	service, dir, db := newTestService(t)
	user := createTestUser(t, dir, "Alice")

	uid, _ := service.CreateToken(&CreateTokenRequest{
		UserID:        user.ID,
		Name:          "Tampered",
		IsNeverExpire: true,
	})

	// 直接改写存储的签名串
	err := db.Model(&models.GuestToken{}).
		Where("uid = ?", uid).
		Update("capability_token", "not-a-jwt").Error
	if err != nil {
		t.Fatalf("failed to tamper token: %v", err)
	}

	_, err = service.Redeem(uid)
	assertRedeemError(t, err, http.StatusUnauthorized, i18n.LabelInvalidToken)
}

// TestService_Redeem_UserNotFound 测试非托管令牌的目标用户丢失
func TestService_Redeem_UserNotFound(t *testing.T) {
	service, dir, db := newTestService(t)
	user := createTestUser(t, dir, "Alice")

	uid, _ := service.CreateToken(&CreateTokenRequest{
		UserID:        user.ID,
		Name:          "Orphaned",
		IsNeverExpire: true,
	})

	// 用户被外部删除
	if err := db.Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("failed to delete user: %v", err)
	}

	_, err := service.Redeem(uid)
	assertRedeemError(t, err, http.StatusNotFound, i18n.LabelUserNotFound)
}

// TestService_Redeem_RecreatesManagedUser 测试托管用户丢失时惰性重建
func TestService_Redeem_RecreatesManagedUser(t *testing.T) {
	service, dir, db := newTestService(t)

	uid, err := service.CreateToken(&CreateTokenRequest{
		Name:          "Managed",
		IsNeverExpire: true,
		CreateUser:    true,
		NewUserName:   "Ghost",
	})
	if err != nil {
		t.Fatalf("CreateToken() failed: %v", err)
	}
	before, _ := service.repo.FindByUID(uid)
	oldUserID := before.UserID

	// 托管用户被外部删除
	if err := db.Delete(&models.User{}, "id = ?", oldUserID).Error; err != nil {
		t.Fatalf("failed to delete managed user: %v", err)
	}

	result, err := service.Redeem(uid)
	if err != nil {
		t.Fatalf("Redeem() should recreate the managed user, got %v", err)
	}
	if result.AccessToken == "" {
		t.Fatal("Redeem() should return an access token")
	}

	// 令牌已改挂到重建后的新用户
	after, _ := service.repo.FindByUID(uid)
	if after.UserID == oldUserID {
		t.Error("token should be reassigned to the recreated user")
	}
	recreated, err := dir.GetUser(after.UserID)
	if err != nil {
		t.Fatalf("recreated user should exist: %v", err)
	}
	if recreated.Name != "Ghost" {
		t.Errorf("got recreated user name = %v, want 'Ghost'", recreated.Name)
	}
}

// TestService_Redeem_ReissuesAfterRevocation 测试会话被撤销后重新签发
func TestService_Redeem_ReissuesAfterRevocation(t *testing.T) {
	service, dir, _ := newTestService(t)
	user := createTestUser(t, dir, "Alice")

	uid, _ := service.CreateToken(&CreateTokenRequest{
		UserID:        user.ID,
		Name:          "Revocable",
		IsNeverExpire: true,
	})

	if _, err := service.Redeem(uid); err != nil {
		t.Fatalf("first Redeem() failed: %v", err)
	}
	token, _ := service.repo.FindByUID(uid)

	// 撤销刷新凭证，缓存的访问凭证随之失效
	if err := dir.RemoveRefreshToken(token.SessionRefID); err != nil {
		t.Fatalf("RemoveRefreshToken() failed: %v", err)
	}

	result, err := service.Redeem(uid)
	if err != nil {
		t.Fatalf("Redeem() after revocation failed: %v", err)
	}
	if _, err := dir.ValidateAccessToken(result.AccessToken); err != nil {
		t.Errorf("reissued access token should be valid, got %v", err)
	}
}
