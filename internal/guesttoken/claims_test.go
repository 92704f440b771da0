package guesttoken

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"
)

// testSigningKey 生成测试签名密钥
func testSigningKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key
}

// TestCapabilityToken_RoundTrip 测试签发与验证
func TestCapabilityToken_RoundTrip(t *testing.T) {
	key := testSigningKey(t)

	start := time.Now().Truncate(time.Second)
	end := start.Add(2 * time.Hour)

	signed, err := SignCapabilityToken(key, "grant-123", false, &start, &end)
	if err != nil {
		t.Fatalf("SignCapabilityToken() failed: %v", err)
	}

	claims, redeemErr := VerifyCapabilityToken(&key.PublicKey, signed)
	if redeemErr != nil {
		t.Fatalf("VerifyCapabilityToken() failed: %v", redeemErr)
	}

	if claims.GrantID != "grant-123" {
		t.Errorf("got grant id = %v, want 'grant-123'", claims.GrantID)
	}
	if claims.IsNeverExpire {
		t.Error("bounded token should not be never-expire")
	}

	gotStart, gotEnd, err := claims.Window()
	if err != nil {
		t.Fatalf("Window() failed: %v", err)
	}
	if !gotStart.Equal(start) || !gotEnd.Equal(end) {
		t.Errorf("window mismatch: got [%v, %v], want [%v, %v]", gotStart, gotEnd, start, end)
	}
}

// TestCapabilityToken_NeverExpire 测试永不过期令牌的负载
func TestCapabilityToken_NeverExpire(t *testing.T) {
	key := testSigningKey(t)

	signed, err := SignCapabilityToken(key, "grant-456", true, nil, nil)
	if err != nil {
		t.Fatalf("SignCapabilityToken() failed: %v", err)
	}

	claims, redeemErr := VerifyCapabilityToken(&key.PublicKey, signed)
	if redeemErr != nil {
		t.Fatalf("VerifyCapabilityToken() failed: %v", redeemErr)
	}
	if !claims.IsNeverExpire {
		t.Error("claims should be never-expire")
	}
	if claims.StartDate != "" || claims.EndDate != "" {
		t.Error("never-expire claims should omit window dates")
	}
}

// TestCapabilityToken_WrongKey 测试用错误公钥验证
func TestCapabilityToken_WrongKey(t *testing.T) {
	key := testSigningKey(t)
	otherKey := testSigningKey(t)

	signed, err := SignCapabilityToken(key, "grant-789", true, nil, nil)
	if err != nil {
		t.Fatalf("SignCapabilityToken() failed: %v", err)
	}

	_, redeemErr := VerifyCapabilityToken(&otherKey.PublicKey, signed)
	if redeemErr == nil {
		t.Fatal("verification with wrong key should fail")
	}
	if redeemErr != errRedeemInvalidToken {
		t.Errorf("got %v, want invalid token error", redeemErr)
	}
}

// TestCapabilityToken_Garbage 测试非法令牌串
func TestCapabilityToken_Garbage(t *testing.T) {
	key := testSigningKey(t)

	_, redeemErr := VerifyCapabilityToken(&key.PublicKey, "garbage")
	if redeemErr != errRedeemInvalidToken {
		t.Errorf("got %v, want invalid token error", redeemErr)
	}
}

// TestSignCapabilityToken_NoKey 测试私钥缺失
func TestSignCapabilityToken_NoKey(t *testing.T) {
	_, err := SignCapabilityToken(nil, "grant", true, nil, nil)
	if err != ErrPrivateKeyUnavailable {
		t.Errorf("got %v, want ErrPrivateKeyUnavailable", err)
	}
}
