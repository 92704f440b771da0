package directory

import (
	"errors"
	"strings"

	"github.com/Mieluoxxx/Polaris-Guest/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrUserNameExists 用户名已存在
	ErrUserNameExists = errors.New("user name already exists")
	// ErrGroupNotFound 用户组不存在
	ErrGroupNotFound = errors.New("group not found")
	// ErrRefreshTokenNotFound 刷新凭证不存在
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenExists 同一用户下客户端名已存在刷新凭证
	ErrRefreshTokenExists = errors.New("refresh token already exists for user and client")
)

// Repository 用户目录数据访问层
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建 Repository 实例
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// isUniqueViolation 判断是否为唯一约束冲突
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser 创建用户
func (r *Repository) CreateUser(user *models.User) error {
	err := r.db.Create(user).Error
	if isUniqueViolation(err) {
		return ErrUserNameExists
	}
	return err
}

// FindUserByID 根据 ID 查找用户
func (r *Repository) FindUserByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByName 根据名称查找用户
func (r *Repository) FindUserByName(name string) (*models.User, error) {
	var user models.User
	err := r.db.Where("name = ?", name).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers 查找所有用户
func (r *Repository) ListUsers() ([]*models.User, error) {
	var users []*models.User
	err := r.db.Order("created_at ASC").Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser 删除用户
func (r *Repository) DeleteUser(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.User{}).Error
}

// ListGroups 查找所有用户组
func (r *Repository) ListGroups() ([]*models.Group, error) {
	var groups []*models.Group
	err := r.db.Order("id ASC").Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// SaveGroup 保存用户组（已存在则忽略）
func (r *Repository) SaveGroup(group *models.Group) error {
	err := r.db.Create(group).Error
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

// CreateRefreshToken 创建刷新凭证
// (user_id, client_name) 唯一约束冲突时返回 ErrRefreshTokenExists
func (r *Repository) CreateRefreshToken(token *models.RefreshToken) error {
	err := r.db.Create(token).Error
	if isUniqueViolation(err) {
		return ErrRefreshTokenExists
	}
	return err
}

// FindRefreshTokenByID 根据 ID 查找刷新凭证
func (r *Repository) FindRefreshTokenByID(id string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.db.Where("id = ?", id).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

// FindRefreshTokenByUserClient 根据用户与客户端名查找刷新凭证
func (r *Repository) FindRefreshTokenByUserClient(userID, clientName string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.db.Where("user_id = ? AND client_name = ?", userID, clientName).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

// DeleteRefreshToken 删除刷新凭证
func (r *Repository) DeleteRefreshToken(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.RefreshToken{}).Error
}

// DeleteRefreshTokensForUser 删除用户的全部刷新凭证
func (r *Repository) DeleteRefreshTokensForUser(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
}
