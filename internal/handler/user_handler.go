package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hr-smart-go/internal/middleware"
	"hr-smart-go/internal/service"
	"hr-smart-go/pkg/log"
)

// UserHandler 负责处理当前用户相关的 API 请求。
type UserHandler struct {
	userService         service.UserService
	conversationService service.ConversationService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService, conversationService service.ConversationService) *UserHandler {
	return &UserHandler{
		userService:         userService,
		conversationService: conversationService,
	}
}

// UpdateProfileRequest 定义了更新个人信息的请求体结构。
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// GetProfile 返回当前登录用户的信息。
func (h *UserHandler) GetProfile(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	user, err := h.userService.GetProfile(claims.Username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "用户不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": user})
}

// UpdateProfile 更新当前用户的展示名和头像。
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	user, err := h.userService.UpdateProfile(claims.Username, req.DisplayName, req.AvatarURL)
	if err != nil {
		log.Warnf("UpdateProfile: 更新失败, username: %s, error: %v", claims.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "更新成功", "data": user})
}

// GetCurrentConversation 返回当前对话窗口内的消息。
func (h *UserHandler) GetCurrentConversation(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	messages, err := h.conversationService.GetCurrentHistory(c.Request.Context(), claims.UserID)
	if err != nil {
		log.Errorf("GetCurrentConversation: 查询失败, userID: %d, error: %v", claims.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询对话历史失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": messages})
}

// GetRecentConversations 返回当前用户最近的问答记录。
func (h *UserHandler) GetRecentConversations(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	turns, err := h.conversationService.GetRecentTurns(claims.UserID, limit)
	if err != nil {
		log.Errorf("GetRecentConversations: 查询失败, userID: %d, error: %v", claims.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询问答记录失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": turns})
}

// StartNewConversation 结束当前对话，后续提问不再携带旧上下文。
func (h *UserHandler) StartNewConversation(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	if err := h.conversationService.StartNewConversation(c.Request.Context(), claims.UserID); err != nil {
		log.Errorf("StartNewConversation: 失败, userID: %d, error: %v", claims.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "开启新对话失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "已开启新对话"})
}
