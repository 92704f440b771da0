package directory

import (
	"errors"
	"fmt"
	"time"

	"github.com/Mieluoxxx/Polaris-Guest/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultLongLivedExpiration 无界令牌的访问凭证有效期
const DefaultLongLivedExpiration = 10 * 365 * 24 * time.Hour

var (
	// ErrInvalidAccessToken 访问凭证无效
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrAccessTokenExpired 访问凭证已过期
	ErrAccessTokenExpired = errors.New("access token expired")
)

// SessionClaims 访问凭证的 JWT 负载
// RefreshID 绑定刷新凭证：刷新凭证被撤销后访问凭证即失效
type SessionClaims struct {
	UserID    string `json:"uid"`
	RefreshID string `json:"rid"`
	jwt.RegisteredClaims
}

// CreateRefreshToken 为用户创建刷新凭证
// (user, client_name) 冲突时不视为错误，改为查出已有凭证复用
// 并发兑换同一令牌时由该唯一约束保证只产生一份会话凭证
func (s *Service) CreateRefreshToken(user *models.User, clientName string, accessExpiration time.Duration) (*models.RefreshToken, error) {
	if accessExpiration <= 0 {
		accessExpiration = DefaultLongLivedExpiration
	}

	token := &models.RefreshToken{
		ID:                    uuid.NewString(),
		UserID:                user.ID,
		ClientName:            clientName,
		TokenType:             models.TokenTypeLongLived,
		AccessTokenExpiration: accessExpiration,
	}

	err := s.repo.CreateRefreshToken(token)
	if err == nil {
		return token, nil
	}
	if errors.Is(err, ErrRefreshTokenExists) {
		// 已被并发请求创建，复用
		return s.repo.FindRefreshTokenByUserClient(user.ID, clientName)
	}
	return nil, err
}

// GetRefreshToken 根据 ID 获取刷新凭证
func (s *Service) GetRefreshToken(id string) (*models.RefreshToken, error) {
	return s.repo.FindRefreshTokenByID(id)
}

// RemoveRefreshToken 撤销刷新凭证
func (s *Service) RemoveRefreshToken(id string) error {
	return s.repo.DeleteRefreshToken(id)
}

// CreateAccessToken 由刷新凭证派生短期访问凭证（RS256）
func (s *Service) CreateAccessToken(refresh *models.RefreshToken) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:    refresh.UserID,
		RefreshID: refresh.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(refresh.AccessTokenExpiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.keys.PrivateKey())
	if err != nil {
		return "", fmt.Errorf("签发访问凭证失败: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken 校验访问凭证
// 签名、有效期均有效且对应的刷新凭证仍存在时返回所属用户
func (s *Service) ValidateAccessToken(tokenStr string) (*models.User, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.keys.PublicKey(), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAccessTokenExpired
		}
		return nil, ErrInvalidAccessToken
	}
	if !token.Valid {
		return nil, ErrInvalidAccessToken
	}

	// 刷新凭证已撤销则视为无效
	if _, err := s.repo.FindRefreshTokenByID(claims.RefreshID); err != nil {
		return nil, ErrInvalidAccessToken
	}

	return s.repo.FindUserByID(claims.UserID)
}
