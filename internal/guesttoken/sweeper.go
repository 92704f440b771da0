package guesttoken

import (
	"errors"
	"time"

	"github.com/Mieluoxxx/Polaris-Guest/internal/directory"
	"github.com/Mieluoxxx/Polaris-Guest/internal/models"
)

// ListGuestUsers 列出全部用户及其名下令牌
// 清理在列表时顺带执行（无独立调度器）：过期记录连同其下游副作用
// 一并清除，清理与列举共用同一次全表扫描
func (s *Service) ListGuestUsers() ([]*GuestUserDTO, error) {
	now := time.Now()

	tokens, err := s.repo.FindAll()
	if err != nil {
		return nil, err
	}

	// 清理过期令牌
	active := make([]*models.GuestToken, 0, len(tokens))
	for _, token := range tokens {
		if !token.Expired(now) {
			active = append(active, token)
			continue
		}
		s.sweepToken(token)
	}

	users, err := s.directory.ListUsers()
	if err != nil {
		return nil, err
	}
	usersByID := make(map[string]*models.User, len(users))
	for _, user := range users {
		usersByID[user.ID] = user
	}

	// 批量重建：托管令牌指向的用户不在目录中时惰性重建
	// 首个重建会同步改挂同一旧用户的全部令牌，此处按旧 ID 复用
	recreated := make(map[string]*models.User)
	for _, token := range active {
		if !token.ManagedUser {
			continue
		}
		if _, ok := usersByID[token.UserID]; ok {
			continue
		}

		if user, ok := recreated[token.UserID]; ok {
			token.UserID = user.ID
			token.ManagedUserName = user.Name
			continue
		}

		oldUserID := token.UserID
		user, err := s.recreateManagedUser(token)
		if err != nil {
			return nil, err
		}
		recreated[oldUserID] = user
		usersByID[user.ID] = user
	}

	// 按用户分组
	tokensByUser := make(map[string][]*models.GuestToken)
	for _, token := range active {
		tokensByUser[token.UserID] = append(tokensByUser[token.UserID], token)
	}

	result := make([]*GuestUserDTO, 0, len(usersByID))
	for _, user := range users {
		result = append(result, s.toGuestUserDTO(user, tokensByUser[user.ID], now))
	}
	for _, user := range recreated {
		result = append(result, s.toGuestUserDTO(user, tokensByUser[user.ID], now))
	}

	return result, nil
}

// sweepToken 清除一条过期记录及其下游副作用
func (s *Service) sweepToken(token *models.GuestToken) {
	s.revokeDownstream(token)

	if err := s.repo.Delete(token.ID); err != nil && !errors.Is(err, ErrTokenNotFound) {
		return
	}

	s.removeManagedUserIfOrphaned(token)

	s.logEvent(models.EventTypeTokenSwept, "过期访客令牌已清理: "+token.TokenName, map[string]interface{}{
		"token_id": token.ID,
		"user_id":  token.UserID,
	})
}

// toGuestUserDTO 组装用户及其令牌列表
func (s *Service) toGuestUserDTO(user *models.User, tokens []*models.GuestToken, now time.Time) *GuestUserDTO {
	dto := &GuestUserDTO{
		ID:              user.ID,
		Username:        user.Username,
		Name:            user.Name,
		IsOwner:         user.IsOwner,
		IsActive:        user.IsActive,
		LocalOnly:       user.LocalOnly,
		SystemGenerated: user.SystemGenerated,
		GroupIDs:        directory.UserGroupIDs(user),
		Tokens:          make([]*TokenDTO, 0, len(tokens)),
	}
	for _, token := range tokens {
		dto.Tokens = append(dto.Tokens, ToTokenDTO(token, now))
	}
	return dto
}
