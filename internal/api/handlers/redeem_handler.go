package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Mieluoxxx/Polaris-Guest/internal/config"
	"github.com/Mieluoxxx/Polaris-Guest/internal/guesttoken"
	"github.com/Mieluoxxx/Polaris-Guest/internal/i18n"
	"github.com/Mieluoxxx/Polaris-Guest/internal/stats"
	"github.com/gin-gonic/gin"
)

// RedeemHandler 兑换端点处理器
// 无需认证：访客凭链接中的公开标识兑换会话凭证
type RedeemHandler struct {
	service *guesttoken.Service
	counter *stats.RedemptionCounter
	cfg     *config.GuestConfig
}

// NewRedeemHandler 创建 RedeemHandler 实例
func NewRedeemHandler(service *guesttoken.Service, counter *stats.RedemptionCounter, cfg *config.GuestConfig) *RedeemHandler {
	return &RedeemHandler{service: service, counter: counter, cfg: cfg}
}

// redeemPage 兑换成功页模板
// 将访问凭证写入浏览器本地会话存储后跳转到目标仪表盘
const redeemPage = `<!DOCTYPE html>
<html>
  <body>
    <script type="text/javascript">
      const hassUrl = window.location.protocol + '//' + window.location.host;
      const access_token = '%s';
      localStorage.setItem('hassTokens', JSON.stringify({ access_token: access_token, hassUrl: hassUrl }));
      window.location.href = hassUrl + '%s';
    </script>
  </body>
</html>
`

// Redeem 兑换访客令牌
// @Summary 兑换访客令牌
// @Description 校验 token 查询参数指向的令牌，成功时返回注入会话凭证的跳转页
// @Tags guest
// @Produce html
// @Param token query string true "令牌公开标识"
// @Success 200 {string} string "跳转页"
// @Failure 400 {string} string "缺少令牌"
// @Failure 401 {string} string "签名无效或已过期"
// @Failure 403 {string} string "窗口外或次数耗尽"
// @Failure 404 {string} string "令牌或用户不存在"
// @Router /guest-mode/login [get]
func (h *RedeemHandler) Redeem(c *gin.Context) {
	uid := c.Query("token")

	result, err := h.service.Redeem(uid)
	if err != nil {
		h.counter.MarkRejected()

		var redeemErr *guesttoken.RedeemError
		if errors.As(err, &redeemErr) {
			c.String(redeemErr.Status, i18n.Lookup(h.cfg.Language, redeemErr.Label))
			return
		}
		c.String(http.StatusInternalServerError, i18n.Lookup(h.cfg.Language, i18n.LabelInternalServerError))
		return
	}

	h.counter.MarkSucceeded()

	html := fmt.Sprintf(redeemPage, result.AccessToken, result.RedirectPath)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
