package guesttoken

import (
	"errors"

	"github.com/Mieluoxxx/Polaris-Guest/internal/directory"
	"github.com/Mieluoxxx/Polaris-Guest/internal/models"
)

// reconcileGroupIDs 对托管用户的存储组列表做一致性收敛
// 规则：与现存组求交集；多于一个且含默认组时丢弃默认组（显式指派优先）；
// 空集时若默认组仍存在则回退默认组；去重且保持顺序
func reconcileGroupIDs(stored []string, available map[string]bool, defaultGroup string) []string {
	groupIDs := make([]string, 0, len(stored))
	for _, id := range stored {
		if available[id] {
			groupIDs = append(groupIDs, id)
		}
	}

	if len(groupIDs) > 1 {
		withoutDefault := make([]string, 0, len(groupIDs))
		for _, id := range groupIDs {
			if id != defaultGroup {
				withoutDefault = append(withoutDefault, id)
			}
		}
		if len(withoutDefault) < len(groupIDs) {
			groupIDs = withoutDefault
		}
	}

	if len(groupIDs) == 0 && available[defaultGroup] {
		groupIDs = append(groupIDs, defaultGroup)
	}

	// 去重，保持顺序
	seen := make(map[string]bool, len(groupIDs))
	deduped := groupIDs[:0]
	for _, id := range groupIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		deduped = append(deduped, id)
	}
	return deduped
}

// recreateManagedUser 重建丢失的托管用户身份
// 属性由令牌记录重新推导；新用户 ID 与组列表同步写回该用户的
// 全部令牌记录，调用方随后才能继续
func (s *Service) recreateManagedUser(token *models.GuestToken) (*models.User, error) {
	groups, err := s.directory.ListGroups()
	if err != nil {
		return nil, err
	}
	available := make(map[string]bool, len(groups))
	for _, group := range groups {
		available[group.ID] = true
	}

	groupIDs := reconcileGroupIDs(DecodeGroupIDs(token.ManagedUserGroups), available, s.cfg.DefaultGroupID)

	userName := token.ManagedUserName
	if userName == "" {
		userName = token.TokenName
	}
	if userName == "" {
		userName = "Guest"
	}

	user, err := s.directory.CreateUser(userName, groupIDs, token.LocalOnly)
	if err != nil {
		// 同名用户已被并发重建或手工恢复，直接复用
		if errors.Is(err, directory.ErrUserNameExists) {
			user, err = s.directory.FindUserByName(userName)
		}
		if err != nil {
			return nil, err
		}
	}

	oldUserID := token.UserID
	managedGroups := encodeGroups(groupIDs)
	if err := s.repo.ReassignUser(oldUserID, user.ID, user.Name, managedGroups); err != nil {
		return nil, err
	}

	token.UserID = user.ID
	token.ManagedUserName = user.Name
	token.ManagedUserGroups = managedGroups

	s.logEvent(models.EventTypeUserReconciled, "托管用户已重建: "+user.Name, map[string]interface{}{
		"old_user_id": oldUserID,
		"new_user_id": user.ID,
		"group_ids":   groupIDs,
	})

	return user, nil
}
