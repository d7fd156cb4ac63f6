package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hr-smart-go/internal/middleware"
	"hr-smart-go/internal/service"
	"hr-smart-go/pkg/log"
)

// AdminHandler 负责处理管理端的 API 请求。
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// OrgRequest 定义了组织创建与更新的请求体结构。
type OrgRequest struct {
	OrgID       string `json:"orgId" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ParentOrg   string `json:"parentOrg"`
}

// AssignOrgRequest 定义了用户组织分配的请求体结构。
type AssignOrgRequest struct {
	OrgID string `json:"orgId"`
}

// SetRoleRequest 定义了角色调整的请求体结构。
type SetRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// CreateOrganization 创建一个新组织。
func (h *AdminHandler) CreateOrganization(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	var req OrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	org, err := h.adminService.CreateOrganization(req.OrgID, req.Name, req.Description, req.ParentOrg, claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "创建成功", "data": org})
}

// ListOrganizations 返回所有组织的平铺列表。
func (h *AdminHandler) ListOrganizations(c *gin.Context) {
	orgs, err := h.adminService.ListOrganizations()
	if err != nil {
		log.Errorf("ListOrganizations: 查询失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询组织列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": orgs})
}

// GetOrganizationTree 返回组织树。
func (h *AdminHandler) GetOrganizationTree(c *gin.Context) {
	tree, err := h.adminService.GetOrganizationTree()
	if err != nil {
		log.Errorf("GetOrganizationTree: 查询失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询组织树失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": tree})
}

// UpdateOrganization 更新组织信息。
func (h *AdminHandler) UpdateOrganization(c *gin.Context) {
	var req OrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	org, err := h.adminService.UpdateOrganization(c.Param("orgId"), req.Name, req.Description, req.ParentOrg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "更新成功", "data": org})
}

// DeleteOrganization 删除一个组织。
func (h *AdminHandler) DeleteOrganization(c *gin.Context) {
	if err := h.adminService.DeleteOrganization(c.Param("orgId")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "删除成功"})
}

// ListUsers 分页返回用户列表。
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	resp, err := h.adminService.ListUsers(page, size)
	if err != nil {
		log.Errorf("ListUsers: 查询失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询用户列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": resp})
}

// AssignUserOrg 调整用户所属组织。
func (h *AdminHandler) AssignUserOrg(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的用户 ID"})
		return
	}

	var req AssignOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	if err := h.adminService.AssignUserOrg(uint(userID), req.OrgID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "分配成功"})
}

// SetUserRole 调整用户角色。
func (h *AdminHandler) SetUserRole(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的用户 ID"})
		return
	}

	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	if err := h.adminService.SetUserRole(uint(userID), req.Role); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "更新成功"})
}

// ListConversations 分页返回全量问答记录。
func (h *AdminHandler) ListConversations(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	resp, err := h.adminService.ListConversations(page, size)
	if err != nil {
		log.Errorf("ListConversations: 查询失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询问答记录失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": resp})
}

// ListActivities 返回最近的操作日志。
func (h *AdminHandler) ListActivities(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.adminService.ListActivities(c.Query("orgId"), limit)
	if err != nil {
		log.Errorf("ListActivities: 查询失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询操作日志失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": entries})
}
