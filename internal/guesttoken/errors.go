package guesttoken

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Mieluoxxx/Polaris-Guest/internal/i18n"
)

var (
	// ErrTokenNotFound 令牌不存在
	ErrTokenNotFound = errors.New("guest token not found")
	// ErrMissingTargetUser 缺少目标用户
	ErrMissingTargetUser = errors.New("user_id is required")
	// ErrMissingUserName 请求创建托管用户但未提供用户名
	ErrMissingUserName = errors.New("new_user_name is required when create_user is true")
	// ErrMissingWindow 有效期窗口不完整
	ErrMissingWindow = errors.New("start and expiration offsets are required when is_never_expire is false")
	// ErrMissingTokenName 缺少令牌名称
	ErrMissingTokenName = errors.New("token name is required")
	// ErrPrivateKeyUnavailable 签名私钥不可用
	ErrPrivateKeyUnavailable = errors.New("private key unavailable")
)

// RedeemError 兑换失败
// 携带 HTTP 状态码与本地化文案键，由兑换端点直接渲染为纯文本响应
type RedeemError struct {
	Status int
	Label  string
}

// Error 实现 error 接口
func (e *RedeemError) Error() string {
	return fmt.Sprintf("redeem rejected (%d): %s", e.Status, e.Label)
}

// 兑换失败的全部形态，按校验顺序排列
var (
	errRedeemMissingToken  = &RedeemError{Status: http.StatusBadRequest, Label: i18n.LabelMissingToken}
	errRedeemTokenNotFound = &RedeemError{Status: http.StatusNotFound, Label: i18n.LabelTokenNotFound}
	errRedeemUsageLimit    = &RedeemError{Status: http.StatusForbidden, Label: i18n.LabelUsageLimitReached}
	errRedeemExpiredToken  = &RedeemError{Status: http.StatusUnauthorized, Label: i18n.LabelExpiredToken}
	errRedeemInvalidToken  = &RedeemError{Status: http.StatusUnauthorized, Label: i18n.LabelInvalidToken}
	errRedeemNotYetValid   = &RedeemError{Status: http.StatusForbidden, Label: i18n.LabelNotYetOrExpired}
	errRedeemUserNotFound  = &RedeemError{Status: http.StatusNotFound, Label: i18n.LabelUserNotFound}
	errRedeemInternal      = &RedeemError{Status: http.StatusInternalServerError, Label: i18n.LabelInternalServerError}
)
