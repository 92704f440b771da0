package middleware

import (
	"github.com/Mieluoxxx/Polaris-Guest/internal/stats"
	"github.com/gin-gonic/gin"
)

// RedemptionCounterMiddleware 兑换请求计数中间件
// 统计兑换端点的全部请求
func RedemptionCounterMiddleware(counter *stats.RedemptionCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 增加请求计数
		counter.Increment()

		// 继续处理请求
		c.Next()
	}
}
