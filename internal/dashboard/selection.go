package dashboard

import "strings"

// DefaultDashboard 裸视图选择器归属的默认仪表盘
const DefaultDashboard = "lovelace"

// CleanSelections 规整选择器列表：去空白、去重，保持原有顺序
func CleanSelections(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	cleaned := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, item := range values {
		normalized := strings.TrimSpace(item)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		cleaned = append(cleaned, normalized)
	}
	return cleaned
}

// NormalizeSelection 解析 dashboard[/view] 选择器
// 返回仪表盘与视图（视图可为空），非法选择器返回 ok=false
func NormalizeSelection(selection string) (dashboard, view string, ok bool) {
	sanitized := strings.TrimSpace(selection)
	sanitized = strings.Trim(sanitized, "/")
	if sanitized == "" {
		return "", "", false
	}

	if idx := strings.Index(sanitized, "/"); idx >= 0 {
		dashboard = strings.TrimSpace(sanitized[:idx])
		if dashboard == "" {
			dashboard = DefaultDashboard
		}
		view = strings.Trim(strings.TrimSpace(sanitized[idx+1:]), "/")
		return dashboard, view, true
	}
	return sanitized, "", true
}

// selectionGroup 同一仪表盘下的视图集合
// allViews 为 true 表示整个仪表盘（裸选择器）
type selectionGroup struct {
	allViews bool
	views    []string
}

// groupSelections 按仪表盘聚合选择器
// 裸仪表盘选择器覆盖该仪表盘下的所有视图级选择器
func groupSelections(selections []string) map[string]*selectionGroup {
	grouped := make(map[string]*selectionGroup)
	for _, raw := range selections {
		dash, view, ok := NormalizeSelection(raw)
		if !ok {
			continue
		}

		group := grouped[dash]
		if view == "" {
			grouped[dash] = &selectionGroup{allViews: true}
			continue
		}
		if group == nil {
			grouped[dash] = &selectionGroup{views: []string{view}}
			continue
		}
		if group.allViews {
			continue
		}
		if !containsString(group.views, view) {
			group.views = append(group.views, view)
		}
	}
	return grouped
}

// SelectionCovered 判断选择器是否被 remaining 集合覆盖
// 裸仪表盘选择器同时"覆盖"其下的视图级选择器
func SelectionCovered(selection string, remaining map[string]bool) bool {
	if remaining[selection] {
		return true
	}
	if idx := strings.Index(selection, "/"); idx >= 0 {
		return remaining[selection[:idx]]
	}
	for item := range remaining {
		if strings.HasPrefix(item, selection+"/") {
			return true
		}
	}
	return false
}

// SelectionsToRemove 计算可安全撤销的选择器
// 仍被同一用户其他有效令牌需要的选择器不得撤销
func SelectionsToRemove(selections []string, remaining map[string]bool) []string {
	if len(selections) == 0 {
		return nil
	}
	if len(remaining) == 0 {
		return selections
	}
	toRemove := make([]string, 0, len(selections))
	for _, selection := range selections {
		if !SelectionCovered(selection, remaining) {
			toRemove = append(toRemove, selection)
		}
	}
	return toRemove
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
