package models

import "time"

// User 平台用户
// 托管用户（访客令牌独占的一次性身份）与普通用户共用此表
type User struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name            string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Username        string    `gorm:"type:varchar(100)" json:"username,omitempty"`
	GroupIDs        string    `gorm:"type:text" json:"-"` // JSON 编码的组 ID 列表
	IsOwner         bool      `gorm:"default:false;not null" json:"is_owner"`
	IsActive        bool      `gorm:"default:true;not null" json:"is_active"`
	LocalOnly       bool      `gorm:"default:false;not null" json:"local_only"`
	SystemGenerated bool      `gorm:"default:false;not null" json:"system_generated"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Group 用户组
type Group struct {
	ID              string `gorm:"type:varchar(50);primaryKey" json:"id"`
	Name            string `gorm:"type:varchar(100);not null" json:"name"`
	SystemGenerated bool   `gorm:"default:false;not null" json:"system_generated"`
}

// TableName 指定表名
func (Group) TableName() string {
	return "groups"
}

// 内置用户组 ID
const (
	GroupAdmin    = "system-admin"
	GroupUsers    = "system-users"
	GroupReadOnly = "system-read-only"
)

// RefreshToken 会话刷新凭证
// (UserID, ClientName) 唯一索引是并发兑换时"冲突即复用"的依据
type RefreshToken struct {
	ID                    string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID                string        `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_user_client" json:"user_id"`
	ClientName            string        `gorm:"type:varchar(100);not null;uniqueIndex:idx_user_client" json:"client_name"`
	TokenType             string        `gorm:"type:varchar(50);not null" json:"token_type"`
	AccessTokenExpiration time.Duration `gorm:"not null" json:"access_token_expiration"`
	CreatedAt             time.Time     `json:"created_at"`
}

// TableName 指定表名
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// TokenTypeLongLived 长效访问令牌类型
const TokenTypeLongLived = "long_lived_access_token"

// Dashboard 仪表盘配置
// Config 为 JSON 编码的视图配置（views 列表，含 visibility 条目）
type Dashboard struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	URLPath   string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"url_path"`
	Title     string    `gorm:"type:varchar(100)" json:"title"`
	Config    string    `gorm:"type:text" json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Dashboard) TableName() string {
	return "dashboards"
}
