package guesttoken

import (
	"errors"
	"time"

	"github.com/Mieluoxxx/Polaris-Guest/internal/models"
	"gorm.io/gorm"
)

// Repository 访客令牌数据访问层
// 每个方法单独成一次短事务，跨请求的顺序保证完全交给存储层
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建 Repository 实例
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 插入令牌记录
func (r *Repository) Create(token *models.GuestToken) error {
	return r.db.Create(token).Error
}

// FindByID 根据 ID 查找令牌
func (r *Repository) FindByID(id uint) (*models.GuestToken, error) {
	var token models.GuestToken
	err := r.db.First(&token, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

// FindByUID 根据公开标识查找令牌
func (r *Repository) FindByUID(uid string) (*models.GuestToken, error) {
	var token models.GuestToken
	err := r.db.Where("uid = ?", uid).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

// FindAll 查找全部令牌
func (r *Repository) FindAll() ([]*models.GuestToken, error) {
	var tokens []*models.GuestToken
	err := r.db.Order("id ASC").Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// FindLatest 查找最近签发的令牌（状态展示用）
func (r *Repository) FindLatest() (*models.GuestToken, error) {
	var token models.GuestToken
	err := r.db.Order("id DESC").First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

// FindOthersForUser 查找同一用户的其他令牌（撤销范围计算用）
func (r *Repository) FindOthersForUser(userID string, excludeID uint) ([]*models.GuestToken, error) {
	var tokens []*models.GuestToken
	err := r.db.Where("user_id = ? AND id != ?", userID, excludeID).Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// CountForUser 统计用户名下剩余令牌数
func (r *Repository) CountForUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.GuestToken{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Delete 删除令牌
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&models.GuestToken{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// RecordUsage 记录一次兑换尝试
// 无条件递增：后续时间窗口校验失败的请求同样计入
func (r *Repository) RecordUsage(token *models.GuestToken, now time.Time) error {
	token.TimesUsed++
	token.LastUsedAt = &now
	if token.FirstUsedAt == nil {
		token.FirstUsedAt = &now
	}

	return r.db.Model(token).Updates(map[string]interface{}{
		"times_used":    token.TimesUsed,
		"last_used_at":  token.LastUsedAt,
		"first_used_at": token.FirstUsedAt,
	}).Error
}

// SetSessionLinkage 写入会话关联，写入后保持不变
func (r *Repository) SetSessionLinkage(token *models.GuestToken, refreshID, accessToken string) error {
	token.SessionRefID = refreshID
	token.SessionToken = accessToken

	return r.db.Model(token).Updates(map[string]interface{}{
		"session_ref_id": refreshID,
		"session_token":  accessToken,
	}).Error
}

// ReassignUser 将旧用户的全部令牌改挂到重建后的新用户
// 同步写回新的用户 ID、显示名与组列表
func (r *Repository) ReassignUser(oldUserID, newUserID, managedName, managedGroups string) error {
	return r.db.Model(&models.GuestToken{}).
		Where("user_id = ?", oldUserID).
		Updates(map[string]interface{}{
			"user_id":             newUserID,
			"managed_user_name":   managedName,
			"managed_user_groups": managedGroups,
		}).Error
}
