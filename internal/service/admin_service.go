package service

import (
	"errors"
	"math"

	"gorm.io/gorm"

	"hr-smart-go/internal/model"
	"hr-smart-go/internal/repository"
)

// UserListResponse 定义了用户列表 API 的响应结构。
type UserListResponse struct {
	Content       []UserDetailResponse `json:"content"`
	TotalElements int64                `json:"totalElements"`
	TotalPages    int                  `json:"totalPages"`
	Size          int                  `json:"size"`
	Number        int                  `json:"number"`
}

// UserDetailResponse 定义了用户列表项的详细结构。
type UserDetailResponse struct {
	UserID      uint   `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	OrgID       string `json:"orgId"`
	OrgName     string `json:"orgName"`
}

// ConversationListResponse 定义了对话记录列表的分页响应结构。
type ConversationListResponse struct {
	Content       []model.Conversation `json:"content"`
	TotalElements int64                `json:"totalElements"`
	TotalPages    int                  `json:"totalPages"`
	Size          int                  `json:"size"`
	Number        int                  `json:"number"`
}

// AdminService 接口定义了所有管理员相关的业务操作。
type AdminService interface {
	// 组织管理
	CreateOrganization(orgID, name, description, parentOrg string, creatorID uint) (*model.Organization, error)
	ListOrganizations() ([]model.Organization, error)
	GetOrganizationTree() ([]*model.OrganizationNode, error)
	UpdateOrganization(orgID, name, description, parentOrg string) (*model.Organization, error)
	DeleteOrganization(orgID string) error

	// 用户管理
	AssignUserOrg(userID uint, orgID string) error
	SetUserRole(userID uint, role string) error
	ListUsers(page, size int) (*UserListResponse, error)

	// 对话与操作记录
	ListConversations(page, size int) (*ConversationListResponse, error)
	ListActivities(orgID string, limit int) ([]model.ActivityLog, error)
}

// adminService 是 AdminService 接口的实现。
type adminService struct {
	orgRepo          repository.OrgRepository
	userRepo         repository.UserRepository
	conversationRepo repository.ConversationRepository
	activityRepo     repository.ActivityRepository
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(
	orgRepo repository.OrgRepository,
	userRepo repository.UserRepository,
	conversationRepo repository.ConversationRepository,
	activityRepo repository.ActivityRepository,
) AdminService {
	return &adminService{
		orgRepo:          orgRepo,
		userRepo:         userRepo,
		conversationRepo: conversationRepo,
		activityRepo:     activityRepo,
	}
}

func (s *adminService) CreateOrganization(orgID, name, description, parentOrg string, creatorID uint) (*model.Organization, error) {
	// 检查 OrgID 是否已存在
	_, err := s.orgRepo.FindByID(orgID)
	if err == nil {
		return nil, errors.New("orgID 已存在")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 父组织必须真实存在，避免树上出现悬空节点
	if parentOrg != "" {
		if _, err := s.orgRepo.FindByID(parentOrg); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.New("父组织不存在")
			}
			return nil, err
		}
	}

	org := &model.Organization{
		OrgID:       orgID,
		Name:        name,
		Description: description,
		CreatedBy:   creatorID,
	}
	if parentOrg != "" {
		org.ParentOrg = &parentOrg
	}

	if err := s.orgRepo.Create(org); err != nil {
		return nil, err
	}
	return org, nil
}

// ListOrganizations 返回所有组织的平铺列表。
func (s *adminService) ListOrganizations() ([]model.Organization, error) {
	return s.orgRepo.FindAll()
}

// GetOrganizationTree 读取全部组织并在内存中组装成树。
func (s *adminService) GetOrganizationTree() ([]*model.OrganizationNode, error) {
	orgs, err := s.orgRepo.FindAll()
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*model.OrganizationNode)
	var tree []*model.OrganizationNode

	for _, org := range orgs {
		nodes[org.OrgID] = &model.OrganizationNode{
			OrgID:       org.OrgID,
			Name:        org.Name,
			Description: org.Description,
			ParentOrg:   org.ParentOrg,
			Children:    []*model.OrganizationNode{},
		}
	}

	for _, node := range nodes {
		if node.ParentOrg != nil && *node.ParentOrg != "" {
			if parent, ok := nodes[*node.ParentOrg]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		tree = append(tree, node)
	}
	return tree, nil
}

func (s *adminService) UpdateOrganization(orgID, name, description, parentOrg string) (*model.Organization, error) {
	org, err := s.orgRepo.FindByID(orgID)
	if err != nil {
		return nil, errors.New("organization not found")
	}

	org.Name = name
	org.Description = description
	if parentOrg != "" {
		if parentOrg == orgID {
			return nil, errors.New("组织不能作为自己的父节点")
		}
		org.ParentOrg = &parentOrg
	} else {
		org.ParentOrg = nil
	}

	if err := s.orgRepo.Update(org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *adminService) DeleteOrganization(orgID string) error {
	// 仍有成员的组织不允许删除
	users, err := s.userRepo.FindByOrgID(orgID)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return errors.New("组织下仍有用户，无法删除")
	}
	return s.orgRepo.Delete(orgID)
}

// AssignUserOrg 把用户划归到指定组织。
func (s *adminService) AssignUserOrg(userID uint, orgID string) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	if orgID != "" {
		if _, err := s.orgRepo.FindByID(orgID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("指定的组织不存在")
			}
			return err
		}
	}
	user.OrgID = orgID
	return s.userRepo.Update(user)
}

// SetUserRole 调整用户角色。
func (s *adminService) SetUserRole(userID uint, role string) error {
	if role != model.RoleUser && role != model.RoleAdmin {
		return errors.New("非法的角色")
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	user.Role = role
	return s.userRepo.Update(user)
}

// ListUsers 以分页的形式返回用户列表，并补充组织名称。
func (s *adminService) ListUsers(page, size int) (*UserListResponse, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}

	users, total, err := s.userRepo.FindWithPagination(page*size, size)
	if err != nil {
		return nil, err
	}

	// 批量查组织名，避免每个用户一次查询
	orgIDs := make([]string, 0, len(users))
	seen := make(map[string]bool)
	for _, u := range users {
		if u.OrgID != "" && !seen[u.OrgID] {
			seen[u.OrgID] = true
			orgIDs = append(orgIDs, u.OrgID)
		}
	}
	orgNames := make(map[string]string)
	if len(orgIDs) > 0 {
		orgs, err := s.orgRepo.FindBatchByIDs(orgIDs)
		if err != nil {
			return nil, err
		}
		for _, org := range orgs {
			orgNames[org.OrgID] = org.Name
		}
	}

	content := make([]UserDetailResponse, 0, len(users))
	for _, u := range users {
		content = append(content, UserDetailResponse{
			UserID:      u.ID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Role:        u.Role,
			OrgID:       u.OrgID,
			OrgName:     orgNames[u.OrgID],
		})
	}

	return &UserListResponse{
		Content:       content,
		TotalElements: total,
		TotalPages:    int(math.Ceil(float64(total) / float64(size))),
		Size:          size,
		Number:        page,
	}, nil
}

// ListConversations 分页返回全量问答记录，供管理端审计。
func (s *adminService) ListConversations(page, size int) (*ConversationListResponse, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}

	turns, total, err := s.conversationRepo.FindAllTurns(page*size, size)
	if err != nil {
		return nil, err
	}

	return &ConversationListResponse{
		Content:       turns,
		TotalElements: total,
		TotalPages:    int(math.Ceil(float64(total) / float64(size))),
		Size:          size,
		Number:        page,
	}, nil
}

// ListActivities 返回指定组织最近的操作日志；orgID 为空表示全部组织。
func (s *adminService) ListActivities(orgID string, limit int) ([]model.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.activityRepo.FindByOrgID(orgID, limit)
}
