package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hr-smart-go/internal/middleware"
	"hr-smart-go/internal/model"
	"hr-smart-go/internal/service"
	"hr-smart-go/pkg/log"
)

// SearchHandler 负责处理知识库检索相关的 API 请求。
type SearchHandler struct {
	retrievalService service.RetrievalService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(retrievalService service.RetrievalService) *SearchHandler {
	return &SearchHandler{retrievalService: retrievalService}
}

// SearchRequest 定义了检索 API 的请求体结构。
// Threshold 和 Count 为 0 时使用服务端配置的默认值。
type SearchRequest struct {
	Query     string  `json:"query" binding:"required"`
	Threshold float64 `json:"threshold"`
	Count     int     `json:"count"`
}

// Search 对知识库做一次相似度检索，返回命中的分块及其匹配度。
// 检索范围限定在当前用户所属组织内已发布且启用的文档。
func (h *SearchHandler) Search(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载：query 不能为空"})
		return
	}

	orgID := claims.OrgID
	if claims.Role == model.RoleAdmin {
		// 管理员可跨组织检索
		orgID = c.Query("orgId")
	}

	chunks, err := h.retrievalService.Retrieve(c.Request.Context(), req.Query, req.Threshold, req.Count, orgID)
	if err != nil {
		log.Errorf("Search: 检索失败, query: %q, error: %v", req.Query, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "检索服务暂时不可用"})
		return
	}
	if chunks == nil {
		chunks = []model.RetrievedChunk{}
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"results": chunks,
			"total":   len(chunks),
		},
	})
}
