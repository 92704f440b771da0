package models

import "time"

// GuestToken 访客令牌
// 每行对应一次授权：持有能力令牌的访客可在有效期内兑换平台会话凭证
type GuestToken struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    string `gorm:"type:varchar(36);not null;index" json:"user_id"`
	TokenName string `gorm:"type:varchar(100);not null" json:"token_name"`

	// 有效期窗口（反规范化副本，权威值在签名负载内）
	// 永不过期的令牌两列均为 NULL
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	IsNeverExpire bool       `gorm:"default:false;not null" json:"is_never_expire"`

	// CapabilityToken 签名的能力令牌（RS256）
	// UID 是对外公开的随机标识，与签名串解耦，作为兑换链接的参数
	CapabilityToken string `gorm:"type:text;not null" json:"-"`
	UID             string `gorm:"type:varchar(36);uniqueIndex" json:"uid"`

	// 会话关联：首次兑换成功后写入，此后保持不变（兑换幂等）
	SessionRefID string `gorm:"type:varchar(36)" json:"-"`
	SessionToken string `gorm:"type:text" json:"-"`

	// 使用计数
	FirstUsedAt *time.Time `json:"first_used,omitempty"`
	LastUsedAt  *time.Time `json:"last_used,omitempty"`
	TimesUsed   int        `gorm:"default:0;not null" json:"times_used"`
	UsageLimit  *int       `json:"usage_limit,omitempty"`

	// 仪表盘范围：Dashboard 为首选仪表盘，Dashboards 为 JSON 编码的有序选择器列表
	Dashboard  string `gorm:"type:varchar(100)" json:"dashboard"`
	Dashboards string `gorm:"type:text" json:"-"`

	// 托管用户信息：仅当令牌独占一个一次性访客身份时存在
	ManagedUser       bool   `gorm:"default:false;not null" json:"managed_user"`
	ManagedUserName   string `gorm:"type:varchar(100)" json:"managed_user_name,omitempty"`
	ManagedUserGroups string `gorm:"type:text" json:"-"`
	LocalOnly         bool   `gorm:"default:false;not null" json:"local_only"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (GuestToken) TableName() string {
	return "guest_tokens"
}

// Expired 判断令牌在给定时间是否已过有效期
func (t *GuestToken) Expired(now time.Time) bool {
	if t.IsNeverExpire || t.EndDate == nil {
		return false
	}
	return t.EndDate.Before(now)
}

// UsageExhausted 判断使用次数是否已达上限
func (t *GuestToken) UsageExhausted() bool {
	return t.UsageLimit != nil && t.TimesUsed >= *t.UsageLimit
}
