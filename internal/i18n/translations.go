package i18n

import "fmt"

// 兑换错误文案键
const (
	LabelMissingToken        = "missing_token"
	LabelTokenNotFound       = "token_not_found"
	LabelUsageLimitReached   = "usage_limit_reached"
	LabelExpiredToken        = "expired_token"
	LabelInvalidToken        = "invalid_token"
	LabelNotYetOrExpired     = "not_yet_or_expired"
	LabelUserNotFound        = "user_not_found"
	LabelInternalServerError = "internal_server_error"
)

// translations 按语言组织的文案表
var translations = map[string]map[string]string{
	"en": {
		LabelMissingToken:        "Missing token",
		LabelTokenNotFound:       "Token not found",
		LabelUsageLimitReached:   "Usage limit reached",
		LabelExpiredToken:        "Token expired",
		LabelInvalidToken:        "Invalid token",
		LabelNotYetOrExpired:     "Token not yet valid or expired",
		LabelUserNotFound:        "User not found",
		LabelInternalServerError: "Internal server error",
	},
	"zh": {
		LabelMissingToken:        "缺少令牌",
		LabelTokenNotFound:       "令牌不存在",
		LabelUsageLimitReached:   "已达使用次数上限",
		LabelExpiredToken:        "令牌已过期",
		LabelInvalidToken:        "令牌无效",
		LabelNotYetOrExpired:     "令牌未生效或已过期",
		LabelUserNotFound:        "用户不存在",
		LabelInternalServerError: "服务器内部错误",
	},
}

// Lookup 查找指定语言的文案
// 未命中语言时回退英文；键缺失时返回占位文案而非报错
func Lookup(language, label string) string {
	key := fmt.Sprintf("guest_error.%s", label)

	table, ok := translations[language]
	if !ok {
		table = translations["en"]
	}

	if text, ok := table[label]; ok {
		return text
	}
	if text, ok := translations["en"][label]; ok {
		return text
	}
	return fmt.Sprintf("Missing translation: %s", key)
}
