package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hr-smart-go/internal/service"
	"hr-smart-go/pkg/log"
)

// StatsHandler 负责处理统计和健康检查相关的 API 请求。
type StatsHandler struct {
	statsService service.StatsService
}

// NewStatsHandler 创建一个新的 StatsHandler 实例。
func NewStatsHandler(statsService service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// GetStats 返回系统统计数据，供管理端仪表盘使用。
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.statsService.GetSystemStats(c.Request.Context())
	if err != nil {
		log.Errorf("GetStats: 统计查询失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "统计查询失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": stats})
}

// Health 逐个探测核心依赖的连通性。任一组件不可用时返回 503。
func (h *StatsHandler) Health(c *gin.Context) {
	report := h.statsService.GetHealth(c.Request.Context())
	status := http.StatusOK
	if report.Status != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
