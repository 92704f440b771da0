package models

import "time"

// SystemEvent 系统事件日志
// 用于记录访客令牌生命周期中的重要事件，如签发、兑换、清理等
type SystemEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"type:varchar(50);not null;index" json:"type"` // token_minted, token_redeemed, etc.
	Message   string    `gorm:"type:text;not null" json:"message"`
	Level     string    `gorm:"type:varchar(20);not null;default:'info'" json:"level"` // info, warning, error
	Metadata  string    `gorm:"type:json" json:"metadata,omitempty"`                   // 额外的元数据（JSON 格式）
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (SystemEvent) TableName() string {
	return "system_events"
}

// EventType 事件类型常量
const (
	EventTypeTokenMinted       = "token_minted"       // 令牌签发
	EventTypeTokenRedeemed     = "token_redeemed"     // 令牌兑换成功
	EventTypeTokenRejected     = "token_rejected"     // 令牌兑换被拒
	EventTypeTokenSwept        = "token_swept"        // 过期令牌清理
	EventTypeTokenDeleted      = "token_deleted"      // 令牌删除
	EventTypeUserReconciled    = "user_reconciled"    // 托管用户重建
	EventTypeVisibilityChanged = "visibility_changed" // 仪表盘可见性变更
)

// EventLevel 事件级别常量
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)
