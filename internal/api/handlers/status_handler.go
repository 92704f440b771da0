package handlers

import (
	"net/http"

	"github.com/Mieluoxxx/Polaris-Guest/internal/events"
	"github.com/Mieluoxxx/Polaris-Guest/internal/stats"
	"github.com/Mieluoxxx/Polaris-Guest/internal/status"
	"github.com/gin-gonic/gin"
)

// StatusHandler 状态展示处理器
type StatusHandler struct {
	statusService *status.Service
	counter       *stats.RedemptionCounter
	eventService  *events.Service
}

// NewStatusHandler 创建状态展示处理器
func NewStatusHandler(statusService *status.Service, counter *stats.RedemptionCounter, eventService *events.Service) *StatusHandler {
	return &StatusHandler{
		statusService: statusService,
		counter:       counter,
		eventService:  eventService,
	}
}

// StatusResponse 状态响应
type StatusResponse struct {
	Token        status.TokenStatus    `json:"token"`
	Redemptions  stats.RedemptionStats `json:"redemptions"`
	RecentEvents []Event               `json:"recent_events"`
}

// Event 事件日志条目
type Event struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

// GetStatus 获取状态概览
// @Summary 获取状态概览
// @Description 最近签发令牌的元数据、兑换请求统计与最近事件
// @Tags status
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /api/guest/status [get]
func (h *StatusHandler) GetStatus(c *gin.Context) {
	// 获取最近事件（最多 10 条）
	recentEventsData, err := h.eventService.GetRecentEvents(10)
	recentEvents := make([]Event, 0, len(recentEventsData))

	if err == nil {
		for _, evt := range recentEventsData {
			recentEvents = append(recentEvents, Event{
				Timestamp: evt.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				Type:      evt.Type,
				Message:   evt.Message,
			})
		}
	}

	c.JSON(http.StatusOK, StatusResponse{
		Token:        h.statusService.Current(),
		Redemptions:  h.counter.GetStats(),
		RecentEvents: recentEvents,
	})
}

// GetQRCode 获取兑换链接二维码
// @Summary 获取兑换链接二维码
// @Tags status
// @Produce png
// @Success 200 {string} binary "PNG 图片"
// @Failure 404 {object} ErrorResponse
// @Router /api/guest/qr [get]
func (h *StatusHandler) GetQRCode(c *gin.Context) {
	image := h.statusService.QRImage()
	if image == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    "NO_TOKEN",
				"message": "No token has been issued yet",
			},
		})
		return
	}

	c.Data(http.StatusOK, "image/png", image)
}
