package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/Mieluoxxx/Polaris-Guest/internal/models"
	"gorm.io/gorm"
)

// Visibility 仪表盘可见性适配器
// 在仪表盘视图配置中为访客用户打可见性标记
type Visibility struct {
	db *gorm.DB
}

// NewVisibility 创建 Visibility 实例
func NewVisibility(db *gorm.DB) *Visibility {
	return &Visibility{db: db}
}

// GrantUser 为用户授予所选仪表盘视图的可见性
// 返回是否有配置发生变更（变更时前端需要重载）
func (v *Visibility) GrantUser(selections []string, userID string) (bool, error) {
	return v.updateVisibility(selections, userID, true)
}

// RevokeUser 撤销用户在所选仪表盘视图上的可见性
func (v *Visibility) RevokeUser(selections []string, userID string) (bool, error) {
	return v.updateVisibility(selections, userID, false)
}

// updateVisibility 按选择器分组逐个仪表盘更新配置
func (v *Visibility) updateVisibility(selections []string, userID string, add bool) (bool, error) {
	if userID == "" {
		return false, nil
	}

	grouped := groupSelections(selections)
	if len(grouped) == 0 {
		return false, nil
	}

	reloadRequired := false

	for dash, group := range grouped {
		var record models.Dashboard
		err := v.db.Where("url_path = ?", dash).First(&record).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 仪表盘未配置，跳过
				continue
			}
			return reloadRequired, fmt.Errorf("读取仪表盘 %s 配置失败: %w", dash, err)
		}

		var config map[string]interface{}
		if err := json.Unmarshal([]byte(record.Config), &config); err != nil || config == nil {
			continue
		}

		views, ok := config["views"].([]interface{})
		if !ok {
			continue
		}

		targets := targetViews(views, group)
		if len(targets) == 0 {
			continue
		}

		changed := false
		for _, view := range targets {
			if add {
				changed = addUserToView(view, userID) || changed
			} else {
				changed = removeUserFromView(view, userID) || changed
			}
		}

		if changed {
			data, err := json.Marshal(config)
			if err != nil {
				return reloadRequired, fmt.Errorf("序列化仪表盘 %s 配置失败: %w", dash, err)
			}
			record.Config = string(data)
			if err := v.db.Save(&record).Error; err != nil {
				return reloadRequired, fmt.Errorf("保存仪表盘 %s 配置失败: %w", dash, err)
			}
			reloadRequired = true
		}
	}

	if reloadRequired {
		log.Printf("🔁 仪表盘可见性已变更，前端需要重载")
	}
	return reloadRequired, nil
}

// targetViews 选出受影响的视图
// 裸仪表盘选择器影响全部视图，视图级选择器按 path 或 id 匹配
func targetViews(views []interface{}, group *selectionGroup) []map[string]interface{} {
	targets := make([]map[string]interface{}, 0, len(views))
	for _, raw := range views {
		view, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if group.allViews {
			targets = append(targets, view)
			continue
		}
		for _, name := range group.views {
			if matchView(view, name) {
				targets = append(targets, view)
				break
			}
		}
	}
	return targets
}

// matchView 按 path 或 id 匹配视图
func matchView(view map[string]interface{}, target string) bool {
	if target == "" {
		return false
	}
	if path, ok := view["path"].(string); ok && path == target {
		return true
	}
	if id, ok := view["id"].(string); ok && id == target {
		return true
	}
	return false
}

// viewVisibility 读取视图的可见性条目列表
func viewVisibility(view map[string]interface{}) []map[string]interface{} {
	raw, ok := view["visibility"].([]interface{})
	if !ok {
		return nil
	}
	entries := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if entry, ok := item.(map[string]interface{}); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// addUserToView 在视图上添加用户可见性标记，已存在则跳过
func addUserToView(view map[string]interface{}, userID string) bool {
	entries := viewVisibility(view)
	for _, entry := range entries {
		if entry["user"] == userID {
			return false
		}
	}
	updated := make([]interface{}, 0, len(entries)+1)
	for _, entry := range entries {
		updated = append(updated, entry)
	}
	updated = append(updated, map[string]interface{}{"user": userID})
	view["visibility"] = updated
	return true
}

// removeUserFromView 移除视图上的用户可见性标记
// 移除后列表为空时整个属性一并删除，而不是留下空列表
func removeUserFromView(view map[string]interface{}, userID string) bool {
	entries := viewVisibility(view)
	if len(entries) == 0 {
		return false
	}
	remaining := make([]interface{}, 0, len(entries))
	for _, entry := range entries {
		if entry["user"] != userID {
			remaining = append(remaining, entry)
		}
	}
	if len(remaining) == len(entries) {
		return false
	}
	if len(remaining) > 0 {
		view["visibility"] = remaining
	} else {
		delete(view, "visibility")
	}
	return true
}
