package directory

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/Mieluoxxx/Polaris-Guest/internal/keys"
	"github.com/Mieluoxxx/Polaris-Guest/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrCannotRemoveUser 系统生成的用户不可删除
	ErrCannotRemoveUser = errors.New("cannot remove system generated user")
)

// GroupProvider 用户组枚举适配器
// 统一不同宿主版本的组枚举方式，隔离核心逻辑与宿主 API 漂移
type GroupProvider interface {
	ListGroups() ([]*models.Group, error)
}

// storeGroupProvider 基于 groups 表的组枚举
// 表为空或读取失败时回退到内置的已知组集合
type storeGroupProvider struct {
	repo *Repository
}

// wellKnownGroups 内置组集合（回退路径）
var wellKnownGroups = []*models.Group{
	{ID: models.GroupAdmin, Name: "Administrators", SystemGenerated: true},
	{ID: models.GroupUsers, Name: "Users", SystemGenerated: true},
	{ID: models.GroupReadOnly, Name: "Read Only", SystemGenerated: true},
}

// ListGroups 枚举全部用户组
func (p *storeGroupProvider) ListGroups() ([]*models.Group, error) {
	groups, err := p.repo.ListGroups()
	if err != nil || len(groups) == 0 {
		return wellKnownGroups, nil
	}
	return groups, nil
}

// Service 用户目录服务
// 核心逻辑依赖的外部协作方：用户、用户组与会话凭证
type Service struct {
	repo   *Repository
	keys   *keys.Manager
	groups GroupProvider
}

// NewService 创建 Service 实例
func NewService(repo *Repository, keyManager *keys.Manager) *Service {
	return &Service{
		repo:   repo,
		keys:   keyManager,
		groups: &storeGroupProvider{repo: repo},
	}
}

// CreateUser 创建用户
// 同名用户已存在时返回 ErrUserNameExists，调用方应在任何存储写入前中止
func (s *Service) CreateUser(name string, groupIDs []string, localOnly bool) (*models.User, error) {
	encoded, err := encodeGroupIDs(groupIDs)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:        uuid.NewString(),
		Name:      name,
		GroupIDs:  encoded,
		IsActive:  true,
		LocalOnly: localOnly,
	}
	if err := s.repo.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser 根据 ID 获取用户
func (s *Service) GetUser(id string) (*models.User, error) {
	return s.repo.FindUserByID(id)
}

// FindUserByName 根据名称获取用户
func (s *Service) FindUserByName(name string) (*models.User, error) {
	return s.repo.FindUserByName(name)
}

// ListUsers 获取全部用户
func (s *Service) ListUsers() ([]*models.User, error) {
	return s.repo.ListUsers()
}

// RemoveUser 删除用户及其全部会话凭证
// 系统生成的用户不可删除
func (s *Service) RemoveUser(id string) error {
	user, err := s.repo.FindUserByID(id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.SystemGenerated {
		return ErrCannotRemoveUser
	}

	if err := s.repo.DeleteRefreshTokensForUser(id); err != nil {
		log.Printf("⚠️  删除用户 %s 的会话凭证失败: %v", id, err)
	}
	return s.repo.DeleteUser(id)
}

// ListGroups 枚举全部用户组
func (s *Service) ListGroups() ([]*models.Group, error) {
	return s.groups.ListGroups()
}

// UserGroupIDs 解码用户的组 ID 列表
func UserGroupIDs(user *models.User) []string {
	if user == nil || user.GroupIDs == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(user.GroupIDs), &ids); err != nil {
		return nil
	}
	return ids
}

// IsAdmin 判断用户是否属于管理员组
func IsAdmin(user *models.User) bool {
	if user == nil {
		return false
	}
	if user.IsOwner {
		return true
	}
	for _, id := range UserGroupIDs(user) {
		if id == models.GroupAdmin {
			return true
		}
	}
	return false
}

// EnsureDefaults 初始化内置用户组，并在用户表为空时创建初始管理员
func (s *Service) EnsureDefaults(ownerName string) (*models.User, error) {
	for _, group := range wellKnownGroups {
		if err := s.repo.SaveGroup(group); err != nil {
			return nil, err
		}
	}

	users, err := s.repo.ListUsers()
	if err != nil {
		return nil, err
	}
	if len(users) > 0 {
		return nil, nil
	}

	encoded, err := encodeGroupIDs([]string{models.GroupAdmin})
	if err != nil {
		return nil, err
	}
	owner := &models.User{
		ID:       uuid.NewString(),
		Name:     ownerName,
		GroupIDs: encoded,
		IsOwner:  true,
		IsActive: true,
	}
	if err := s.repo.CreateUser(owner); err != nil {
		return nil, err
	}
	log.Printf("👤 已创建初始管理员: %s", ownerName)
	return owner, nil
}

// encodeGroupIDs 编码组 ID 列表，空列表编码为空串
func encodeGroupIDs(groupIDs []string) (string, error) {
	if len(groupIDs) == 0 {
		return "", nil
	}
	data, err := json.Marshal(groupIDs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
