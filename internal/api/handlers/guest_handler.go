package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Mieluoxxx/Polaris-Guest/internal/config"
	"github.com/Mieluoxxx/Polaris-Guest/internal/directory"
	"github.com/Mieluoxxx/Polaris-Guest/internal/guesttoken"
	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GuestHandler 访客令牌管理接口处理器
type GuestHandler struct {
	service   *guesttoken.Service
	directory *directory.Service
	cfg       *config.GuestConfig
}

// NewGuestHandler 创建 GuestHandler 实例
func NewGuestHandler(service *guesttoken.Service, dir *directory.Service, cfg *config.GuestConfig) *GuestHandler {
	return &GuestHandler{service: service, directory: dir, cfg: cfg}
}

// ListGuestUsers 列出全部用户及其名下令牌
// 过期令牌的清理作为列举的副作用执行
// @Summary 列出用户及访客令牌
// @Tags guest
// @Produce json
// @Success 200 {array} guesttoken.GuestUserDTO
// @Router /api/guest/users [get]
func (h *GuestHandler) ListGuestUsers(c *gin.Context) {
	users, err := h.service.ListGuestUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to list guest users",
			},
		})
		return
	}

	c.JSON(http.StatusOK, users)
}

// ListGroups 列出可选的用户组
// @Summary 列出用户组
// @Tags guest
// @Produce json
// @Router /api/guest/groups [get]
func (h *GuestHandler) ListGroups(c *gin.Context) {
	groups, err := h.directory.ListGroups()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to list groups",
			},
		})
		return
	}

	c.JSON(http.StatusOK, groups)
}

// CreateToken 签发访客令牌
// @Summary 签发访客令牌
// @Tags guest
// @Accept json
// @Produce json
// @Param token body guesttoken.CreateTokenRequest true "授权信息"
// @Success 201 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /api/guest/tokens [post]
func (h *GuestHandler) CreateToken(c *gin.Context) {
	var req guesttoken.CreateTokenRequest

	// 绑定请求体
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request parameters",
				"details": err.Error(),
			},
		})
		return
	}

	uid, err := h.service.CreateToken(&req)
	if err != nil {
		h.handleGuestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"uid": uid})
}

// CreateTokenByUsername 按用户名签发访客令牌（批量授权）
// @Summary 按用户名签发访客令牌
// @Tags guest
// @Accept json
// @Produce json
// @Param token body guesttoken.CreateTokenByUsernameRequest true "授权信息"
// @Success 201 {object} map[string]string
// @Router /api/guest/tokens/by-username [post]
func (h *GuestHandler) CreateTokenByUsername(c *gin.Context) {
	var req guesttoken.CreateTokenByUsernameRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request parameters",
				"details": err.Error(),
			},
		})
		return
	}

	uid, err := h.service.CreateTokenByUsername(&req)
	if err != nil {
		h.handleGuestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"uid": uid})
}

// DeleteToken 删除访客令牌
// @Summary 删除访客令牌
// @Tags guest
// @Param id path int true "令牌 ID"
// @Success 200 {object} map[string]bool
// @Router /api/guest/tokens/{id} [delete]
func (h *GuestHandler) DeleteToken(c *gin.Context) {
	// 解析 ID
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid token ID",
			},
		})
		return
	}

	deleted, err := h.service.DeleteToken(uint(id))
	if err != nil {
		h.handleGuestError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// GetLoginPath 获取兑换端点路径
// @Summary 获取兑换端点路径
// @Tags guest
// @Router /api/guest/login-path [get]
func (h *GuestHandler) GetLoginPath(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"login_path": h.cfg.LoginPath})
}

// GetURLs 获取内外部访问地址
// @Summary 获取内外部访问地址
// @Tags guest
// @Router /api/guest/urls [get]
func (h *GuestHandler) GetURLs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"internal": h.cfg.InternalURL,
		"external": h.cfg.ExternalURL,
	})
}

// GetPanels 获取已注册的前端面板
// @Summary 获取前端面板
// @Tags guest
// @Router /api/guest/panels [get]
func (h *GuestHandler) GetPanels(c *gin.Context) {
	c.JSON(http.StatusOK, h.cfg.Panels)
}

// GetCopyLinkMode 获取链接分享模式
// @Summary 获取链接分享模式
// @Tags guest
// @Router /api/guest/copy-link-mode [get]
func (h *GuestHandler) GetCopyLinkMode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"copy_link_mode": h.cfg.CopyLinkMode})
}

// handleGuestError 处理访客令牌相关错误
func (h *GuestHandler) handleGuestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, guesttoken.ErrMissingTokenName),
		errors.Is(err, guesttoken.ErrMissingTargetUser),
		errors.Is(err, guesttoken.ErrMissingUserName),
		errors.Is(err, guesttoken.ErrMissingWindow):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_GRANT",
				"message": err.Error(),
			},
		})
	case errors.Is(err, guesttoken.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    "TOKEN_NOT_FOUND",
				"message": "Token not found",
			},
		})
	case errors.Is(err, directory.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User not found",
			},
		})
	case errors.Is(err, directory.ErrUserNameExists):
		c.JSON(http.StatusConflict, gin.H{
			"error": gin.H{
				"code":    "USER_NAME_CONFLICT",
				"message": "User name already exists",
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Internal server error",
			},
		})
	}
}
