package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hr-smart-go/internal/middleware"
	"hr-smart-go/internal/pipeline"
	"hr-smart-go/internal/service"
	"hr-smart-go/pkg/log"
)

// DocumentHandler 负责处理文档管理相关的 API 请求。
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// VisibilityRequest 定义了发布状态变更的请求体结构。
type VisibilityRequest struct {
	Status    string `json:"status" binding:"required"`
	IsEnabled *bool  `json:"isEnabled" binding:"required"`
}

// Upload 处理文档上传。表单字段：file（文件）、title、category、description。
func (h *DocumentHandler) Upload(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
		return
	}

	req := service.UploadRequest{
		Title:       c.PostForm("title"),
		Category:    c.PostForm("category"),
		Description: c.PostForm("description"),
	}

	doc, err := h.documentService.Upload(claims, fileHeader, req)
	if err != nil {
		if errors.Is(err, pipeline.ErrUnsupportedFileType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "不支持的文件类型，仅支持 pdf/doc/docx/txt"})
			return
		}
		log.Errorf("Upload: 上传失败, fileName: %s, error: %v", fileHeader.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "文件上传失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "上传成功", "data": doc})
}

// List 返回当前用户可见的文档列表。
func (h *DocumentHandler) List(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	docs, err := h.documentService.List(claims)
	if err != nil {
		log.Errorf("List: 查询文档列表失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询文档列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": docs})
}

// Get 返回单个文档的详情（含处理状态）。
func (h *DocumentHandler) Get(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	doc, err := h.documentService.Get(claims, c.Param("id"))
	if err != nil {
		h.writeError(c, err, "查询文档失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": doc})
}

// GetChunks 返回文档的全部分块，用于诊断处理结果。
func (h *DocumentHandler) GetChunks(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	chunks, err := h.documentService.GetChunks(claims, c.Param("id"))
	if err != nil {
		h.writeError(c, err, "查询文档分块失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": chunks})
}

// Delete 删除文档及其全部派生数据。
func (h *DocumentHandler) Delete(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	if err := h.documentService.Delete(claims, c.Param("id")); err != nil {
		h.writeError(c, err, "删除文档失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "删除成功"})
}

// SetVisibility 修改文档的发布状态和启用开关。
func (h *DocumentHandler) SetVisibility(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	doc, err := h.documentService.SetVisibility(claims, c.Param("id"), req.Status, *req.IsEnabled)
	if err != nil {
		h.writeError(c, err, "更新文档状态失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "更新成功", "data": doc})
}

// Reprocess 重新触发文档处理。
func (h *DocumentHandler) Reprocess(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	if err := h.documentService.Reprocess(claims, c.Param("id")); err != nil {
		if errors.Is(err, pipeline.ErrProcessingInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "文档正在处理中，请稍后再试"})
			return
		}
		h.writeError(c, err, "触发重新处理失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "已触发重新处理"})
}

// Download 生成文件的临时下载链接。
func (h *DocumentHandler) Download(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	info, err := h.documentService.GenerateDownloadURL(claims, c.Param("id"))
	if err != nil {
		h.writeError(c, err, "生成下载链接失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": info})
}

// writeError 按错误类型映射 HTTP 状态码。
func (h *DocumentHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "文档不存在"})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "没有权限执行此操作"})
	default:
		log.Errorf("DocumentHandler: %s, error: %v", fallback, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
