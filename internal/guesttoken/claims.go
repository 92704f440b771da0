package guesttoken

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CapabilityClaims 能力令牌的签名负载
// 负载内的时间字段是有效期窗口的权威来源，存储列只是查询用副本
type CapabilityClaims struct {
	GrantID       string `json:"id"`
	IsNeverExpire bool   `json:"isNeverExpire"`
	StartDate     string `json:"startDate,omitempty"`
	EndDate       string `json:"endDate,omitempty"`
	jwt.RegisteredClaims
}

// SignCapabilityToken 签发能力令牌（RS256）
func SignCapabilityToken(privateKey *rsa.PrivateKey, grantID string, isNeverExpire bool, startDate, endDate *time.Time) (string, error) {
	if privateKey == nil {
		return "", ErrPrivateKeyUnavailable
	}

	claims := CapabilityClaims{
		GrantID:       grantID,
		IsNeverExpire: isNeverExpire,
	}
	if !isNeverExpire {
		claims.StartDate = startDate.Format(time.RFC3339)
		claims.EndDate = endDate.Format(time.RFC3339)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("签发能力令牌失败: %w", err)
	}
	return signed, nil
}

// VerifyCapabilityToken 验证能力令牌签名并返回负载
// 签名方案自身的过期（exp 声明）与记录级有效期窗口是两回事
func VerifyCapabilityToken(publicKey *rsa.PublicKey, tokenStr string) (*CapabilityClaims, *RedeemError) {
	if publicKey == nil {
		return nil, errRedeemInternal
	}

	claims := &CapabilityClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errRedeemExpiredToken
		}
		return nil, errRedeemInvalidToken
	}
	if !token.Valid {
		return nil, errRedeemInvalidToken
	}
	return claims, nil
}

// Window 解析负载中的有效期窗口
func (c *CapabilityClaims) Window() (start, end time.Time, err error) {
	start, err = time.Parse(time.RFC3339, c.StartDate)
	if err != nil {
		return
	}
	end, err = time.Parse(time.RFC3339, c.EndDate)
	return
}
