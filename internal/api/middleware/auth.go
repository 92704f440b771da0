package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Mieluoxxx/Polaris-Guest/internal/directory"
	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware 管理接口认证中间件
// 校验 Bearer 访问凭证，并要求其所属用户具有管理员身份
func AdminAuthMiddleware(dir *directory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 提取 Authorization 头
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "MISSING_AUTH_HEADER",
					"message": "Missing authorization header",
				},
			})
			c.Abort()
			return
		}

		// 2. 解析 Bearer Token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "INVALID_AUTH_FORMAT",
					"message": "Invalid authorization format. Expected: Bearer <token>",
				},
			})
			c.Abort()
			return
		}

		tokenValue := parts[1]

		// 3. 验证访问凭证
		user, err := dir.ValidateAccessToken(tokenValue)
		if err != nil {
			handleAuthError(c, err)
			c.Abort()
			return
		}

		// 4. 管理接口仅限管理员
		if !directory.IsAdmin(user) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "ADMIN_REQUIRED",
					"message": "Administrator privileges required",
				},
			})
			c.Abort()
			return
		}

		// 5. 将用户信息存入 Context
		c.Set("user_id", user.ID)
		c.Set("user", user)

		c.Next()
	}
}

// handleAuthError 处理认证错误
func handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, directory.ErrAccessTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    "TOKEN_EXPIRED",
				"message": "Access token expired",
			},
		})
	case errors.Is(err, directory.ErrInvalidAccessToken):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    "INVALID_TOKEN",
				"message": "Invalid access token",
			},
		})
	case errors.Is(err, directory.ErrUserNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "Token user no longer exists",
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
