package guesttoken

import (
	"encoding/json"
	"time"

	"github.com/Mieluoxxx/Polaris-Guest/internal/dashboard"
	"github.com/Mieluoxxx/Polaris-Guest/internal/models"
)

// CreateTokenRequest 创建令牌请求
// 目标用户二选一：user_id 指向已有用户，或 create_user=true 创建托管用户
type CreateTokenRequest struct {
	UserID                  string   `json:"user_id"`
	Name                    string   `json:"name" binding:"required,max=100"`
	StartOffsetMinutes      *int     `json:"start_offset_minutes"`
	ExpirationOffsetMinutes *int     `json:"expiration_offset_minutes"`
	IsNeverExpire           bool     `json:"is_never_expire"`
	Dashboard               string   `json:"dashboard"`
	Dashboards              []string `json:"dashboards"`
	UsageLimit              *int     `json:"usage_limit"`
	CreateUser              bool     `json:"create_user"`
	NewUserName             string   `json:"new_user_name"`
	GroupID                 string   `json:"group_id"`
	LocalOnly               bool     `json:"local_only"`
}

// CreateTokenByUsernameRequest 按用户名创建令牌（非交互批量授权）
type CreateTokenByUsernameRequest struct {
	Username                string   `json:"username" binding:"required"`
	Name                    string   `json:"name"`
	StartOffsetMinutes      *int     `json:"start_offset_minutes"`
	ExpirationOffsetMinutes *int     `json:"expiration_offset_minutes"`
	IsNeverExpire           bool     `json:"is_never_expire"`
	Dashboard               string   `json:"dashboard"`
	Dashboards              []string `json:"dashboards"`
	UsageLimit              *int     `json:"usage_limit"`
}

// TokenDTO 令牌数据传输对象
type TokenDTO struct {
	ID            uint       `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	Remaining     *int64     `json:"remaining"` // 剩余秒数，永不过期时为 null
	IsUsed        bool       `json:"isUsed"`
	UID           string     `json:"uid"`
	IsNeverExpire bool       `json:"isNeverExpire"`
	Dashboard     string     `json:"dashboard"`
	Dashboards    []string   `json:"dashboards"`
	FirstUsed     *time.Time `json:"first_used"`
	LastUsed      *time.Time `json:"last_used"`
	TimesUsed     int        `json:"times_used"`
	UsageLimit    *int       `json:"usage_limit"`
}

// GuestUserDTO 用户及其名下令牌
type GuestUserDTO struct {
	ID              string      `json:"id"`
	Username        string      `json:"username,omitempty"`
	Name            string      `json:"name"`
	IsOwner         bool        `json:"is_owner"`
	IsActive        bool        `json:"is_active"`
	LocalOnly       bool        `json:"local_only"`
	SystemGenerated bool        `json:"system_generated"`
	GroupIDs        []string    `json:"group_ids"`
	Tokens          []*TokenDTO `json:"tokens"`
}

// RedeemResult 兑换成功的结果
type RedeemResult struct {
	AccessToken  string
	RedirectPath string
}

// ToTokenDTO 将令牌模型转换为 DTO
func ToTokenDTO(token *models.GuestToken, now time.Time) *TokenDTO {
	dto := &TokenDTO{
		ID:            token.ID,
		Name:          token.TokenName,
		Type:          models.TokenTypeLongLived,
		StartDate:     token.StartDate,
		EndDate:       token.EndDate,
		IsUsed:        token.SessionToken != "",
		UID:           token.UID,
		IsNeverExpire: token.IsNeverExpire,
		Dashboard:     token.Dashboard,
		Dashboards:    TokenSelections(token),
		FirstUsed:     token.FirstUsedAt,
		LastUsed:      token.LastUsedAt,
		TimesUsed:     token.TimesUsed,
		UsageLimit:    token.UsageLimit,
	}

	if !token.IsNeverExpire && token.EndDate != nil {
		remaining := int64(token.EndDate.Sub(now).Seconds())
		dto.Remaining = &remaining
	}
	return dto
}

// TokenSelections 取令牌的仪表盘选择器集合
// 优先使用 JSON 列表列，回退到单仪表盘列
func TokenSelections(token *models.GuestToken) []string {
	if token.Dashboards != "" {
		var decoded []string
		if err := json.Unmarshal([]byte(token.Dashboards), &decoded); err == nil {
			if cleaned := dashboard.CleanSelections(decoded); len(cleaned) > 0 {
				return cleaned
			}
		}
	}
	if token.Dashboard != "" {
		return dashboard.CleanSelections([]string{token.Dashboard})
	}
	return nil
}

// DecodeGroupIDs 解码令牌存储的托管用户组列表
func DecodeGroupIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}
