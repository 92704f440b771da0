package guesttoken

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/Mieluoxxx/Polaris-Guest/internal/config"
	"github.com/Mieluoxxx/Polaris-Guest/internal/dashboard"
	"github.com/Mieluoxxx/Polaris-Guest/internal/directory"
	"github.com/Mieluoxxx/Polaris-Guest/internal/events"
	"github.com/Mieluoxxx/Polaris-Guest/internal/keys"
	"github.com/Mieluoxxx/Polaris-Guest/internal/models"
	"github.com/google/uuid"
)

// StatusNotifier 状态展示刷新通知
// 每次签发后刷新二维码与最近令牌元数据
type StatusNotifier interface {
	Refresh()
}

// Service 访客令牌业务逻辑层
// 签发、兑换、删除与清理共用此入口
type Service struct {
	repo       *Repository
	directory  *directory.Service
	visibility *dashboard.Visibility
	events     *events.Service
	keys       *keys.Manager
	cfg        *config.GuestConfig
	status     StatusNotifier
}

// NewService 创建 Service 实例
func NewService(repo *Repository, dir *directory.Service, vis *dashboard.Visibility, ev *events.Service, keyManager *keys.Manager, cfg *config.GuestConfig) *Service {
	return &Service{
		repo:       repo,
		directory:  dir,
		visibility: vis,
		events:     ev,
		keys:       keyManager,
		cfg:        cfg,
	}
}

// SetStatusNotifier 注册状态展示刷新回调
func (s *Service) SetStatusNotifier(notifier StatusNotifier) {
	s.status = notifier
}

// CreateToken 签发访客令牌，返回公开的兑换标识 uid
func (s *Service) CreateToken(req *CreateTokenRequest) (string, error) {
	if req.Name == "" {
		return "", ErrMissingTokenName
	}

	// 有效期：要么永不过期，要么两个偏移量齐全
	var startDate, endDate *time.Time
	if !req.IsNeverExpire {
		if req.StartOffsetMinutes == nil || req.ExpirationOffsetMinutes == nil {
			return "", ErrMissingWindow
		}
		now := time.Now()
		start := now.Add(time.Duration(*req.StartOffsetMinutes) * time.Minute)
		end := now.Add(time.Duration(*req.ExpirationOffsetMinutes) * time.Minute)
		startDate = &start
		endDate = &end
	}

	selections := dashboard.CleanSelections(req.Dashboards)
	primaryDashboard := req.Dashboard
	if len(selections) > 0 {
		primaryDashboard = selections[0]
	}
	if primaryDashboard == "" {
		primaryDashboard = s.cfg.DefaultDashboard
	}

	// 托管用户先于任何存储写入创建：目录拒绝（重名）时直接中止
	userID := req.UserID
	managed := false
	managedName := ""
	managedGroups := ""
	if req.CreateUser {
		if req.NewUserName == "" {
			return "", ErrMissingUserName
		}

		groupIDs, err := s.resolveRequestedGroups(req.GroupID)
		if err != nil {
			return "", err
		}

		user, err := s.directory.CreateUser(req.NewUserName, groupIDs, req.LocalOnly)
		if err != nil {
			return "", err
		}

		userID = user.ID
		managed = true
		managedName = user.Name
		managedGroups = encodeGroups(groupIDs)
	} else {
		if userID == "" {
			return "", ErrMissingTargetUser
		}
		if _, err := s.directory.GetUser(userID); err != nil {
			return "", err
		}
	}

	uid := uuid.NewString()

	capabilityToken, err := SignCapabilityToken(s.keys.PrivateKey(), uid, req.IsNeverExpire, startDate, endDate)
	if err != nil {
		return "", err
	}

	token := &models.GuestToken{
		UserID:            userID,
		TokenName:         req.Name,
		StartDate:         startDate,
		EndDate:           endDate,
		IsNeverExpire:     req.IsNeverExpire,
		CapabilityToken:   capabilityToken,
		UID:               uid,
		UsageLimit:        req.UsageLimit,
		Dashboard:         primaryDashboard,
		Dashboards:        encodeGroups(selections),
		ManagedUser:       managed,
		ManagedUserName:   managedName,
		ManagedUserGroups: managedGroups,
		LocalOnly:         req.LocalOnly,
	}
	if err := s.repo.Create(token); err != nil {
		return "", err
	}

	// 可见性授予是尽力而为：失败记日志，不影响签发
	if len(selections) > 0 {
		if _, err := s.visibility.GrantUser(selections, userID); err != nil {
			log.Printf("⚠️  更新用户 %s 的仪表盘可见性失败: %v", userID, err)
		}
	}

	s.logEvent(models.EventTypeTokenMinted, "访客令牌已签发: "+req.Name, map[string]interface{}{
		"token_id": token.ID,
		"user_id":  userID,
		"managed":  managed,
	})
	s.refreshStatus()

	return uid, nil
}

// CreateTokenByUsername 按用户名签发令牌（批量授权入口）
func (s *Service) CreateTokenByUsername(req *CreateTokenByUsernameRequest) (string, error) {
	user, err := s.directory.FindUserByName(req.Username)
	if err != nil {
		return "", err
	}

	name := req.Name
	if name == "" {
		name = "New Token"
	}

	return s.CreateToken(&CreateTokenRequest{
		UserID:                  user.ID,
		Name:                    name,
		StartOffsetMinutes:      req.StartOffsetMinutes,
		ExpirationOffsetMinutes: req.ExpirationOffsetMinutes,
		IsNeverExpire:           req.IsNeverExpire,
		Dashboard:               req.Dashboard,
		Dashboards:              req.Dashboards,
		UsageLimit:              req.UsageLimit,
	})
}

// DeleteToken 删除令牌并级联清理下游副作用
// 返回是否确实删除了记录
func (s *Service) DeleteToken(id uint) (bool, error) {
	token, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return false, nil
		}
		return false, err
	}

	s.revokeDownstream(token)

	if err := s.repo.Delete(id); err != nil {
		return false, err
	}

	s.removeManagedUserIfOrphaned(token)

	s.logEvent(models.EventTypeTokenDeleted, "访客令牌已删除: "+token.TokenName, map[string]interface{}{
		"token_id": token.ID,
		"user_id":  token.UserID,
	})
	return true, nil
}

// GetToken 根据 ID 获取令牌
func (s *Service) GetToken(id uint) (*models.GuestToken, error) {
	return s.repo.FindByID(id)
}

// revokeDownstream 撤销令牌的下游副作用（会话与可见性），尽力而为
func (s *Service) revokeDownstream(token *models.GuestToken) {
	// 会话凭证撤销
	if token.SessionRefID != "" {
		if err := s.directory.RemoveRefreshToken(token.SessionRefID); err != nil {
			log.Printf("⚠️  撤销令牌 %d 的会话凭证失败: %v", token.ID, err)
		}
	}

	// 可见性撤销：仍被同一用户其他令牌需要的选择器不动
	selections := TokenSelections(token)
	if len(selections) == 0 {
		return
	}
	toRemove, err := s.selectionsToRemove(token, selections)
	if err != nil {
		log.Printf("⚠️  计算令牌 %d 的可撤销选择器失败: %v", token.ID, err)
		return
	}
	if len(toRemove) == 0 {
		return
	}
	if _, err := s.visibility.RevokeUser(toRemove, token.UserID); err != nil {
		log.Printf("⚠️  撤销用户 %s 的仪表盘可见性失败: %v", token.UserID, err)
	}
}

// selectionsToRemove 以同用户其他令牌的选择器为基准计算可撤销集合
func (s *Service) selectionsToRemove(token *models.GuestToken, selections []string) ([]string, error) {
	others, err := s.repo.FindOthersForUser(token.UserID, token.ID)
	if err != nil {
		return nil, err
	}
	remaining := make(map[string]bool)
	for _, other := range others {
		for _, sel := range TokenSelections(other) {
			remaining[sel] = true
		}
	}
	return dashboard.SelectionsToRemove(selections, remaining), nil
}

// removeManagedUserIfOrphaned 若托管用户名下已无令牌则将其删除
func (s *Service) removeManagedUserIfOrphaned(token *models.GuestToken) {
	if !token.ManagedUser {
		return
	}
	count, err := s.repo.CountForUser(token.UserID)
	if err != nil || count > 0 {
		return
	}
	if err := s.directory.RemoveUser(token.UserID); err != nil {
		log.Printf("⚠️  删除托管用户 %s 失败: %v", token.UserID, err)
	}
}

// resolveRequestedGroups 解析托管用户的组归属
// 请求的组有效则采用，否则回退默认组，再退而求其次取首个可用组
func (s *Service) resolveRequestedGroups(requestedGroupID string) ([]string, error) {
	groups, err := s.directory.ListGroups()
	if err != nil {
		return nil, err
	}

	valid := make(map[string]bool, len(groups))
	for _, group := range groups {
		valid[group.ID] = true
	}

	if requestedGroupID != "" && valid[requestedGroupID] {
		return []string{requestedGroupID}, nil
	}
	if valid[s.cfg.DefaultGroupID] {
		return []string{s.cfg.DefaultGroupID}, nil
	}
	if len(groups) > 0 {
		return []string{groups[0].ID}, nil
	}
	return nil, nil
}

// logEvent 记录生命周期事件，失败仅打日志
func (s *Service) logEvent(eventType, message string, metadata map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.LogInfo(eventType, message, metadata); err != nil {
		log.Printf("⚠️  记录事件失败: %v", err)
	}
}

// refreshStatus 通知状态展示刷新
func (s *Service) refreshStatus() {
	if s.status != nil {
		s.status.Refresh()
	}
}

// encodeGroups 编码字符串列表为 JSON，空列表编码为空串
func encodeGroups(values []string) string {
	if len(values) == 0 {
		return ""
	}
	data, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(data)
}
