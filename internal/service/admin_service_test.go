package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hr-smart-go/internal/model"
	"hr-smart-go/internal/repository"
)

type stubOrgRepo struct {
	repository.OrgRepository

	orgs map[string]*model.Organization
}

func (s *stubOrgRepo) FindByID(id string) (*model.Organization, error) {
	if org, ok := s.orgs[id]; ok {
		return org, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrgRepo) FindAll() ([]model.Organization, error) {
	var out []model.Organization
	for _, o := range s.orgs {
		out = append(out, *o)
	}
	return out, nil
}

func (s *stubOrgRepo) Create(org *model.Organization) error {
	s.orgs[org.OrgID] = org
	return nil
}

func strPtr(v string) *string { return &v }

func TestGetOrganizationTree(t *testing.T) {
	orgRepo := &stubOrgRepo{orgs: map[string]*model.Organization{
		"hq":      {OrgID: "hq", Name: "总部"},
		"hr":      {OrgID: "hr", Name: "人力资源部", ParentOrg: strPtr("hq")},
		"hr-comp": {OrgID: "hr-comp", Name: "薪酬组", ParentOrg: strPtr("hr")},
		"finance": {OrgID: "finance", Name: "财务部", ParentOrg: strPtr("hq")},
	}}
	svc := NewAdminService(orgRepo, nil, nil, nil)

	tree, err := svc.GetOrganizationTree()
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "hq", tree[0].OrgID)
	assert.Len(t, tree[0].Children, 2)

	var hrNode *model.OrganizationNode
	for _, child := range tree[0].Children {
		if child.OrgID == "hr" {
			hrNode = child
		}
	}
	require.NotNil(t, hrNode)
	require.Len(t, hrNode.Children, 1)
	assert.Equal(t, "hr-comp", hrNode.Children[0].OrgID)
}

func TestGetOrganizationTreeOrphanBecomesRoot(t *testing.T) {
	// 父节点不存在的组织挂到根上，避免从树中消失
	orgRepo := &stubOrgRepo{orgs: map[string]*model.Organization{
		"lonely": {OrgID: "lonely", Name: "孤儿组织", ParentOrg: strPtr("ghost")},
	}}
	svc := NewAdminService(orgRepo, nil, nil, nil)

	tree, err := svc.GetOrganizationTree()
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "lonely", tree[0].OrgID)
}

func TestCreateOrganizationValidations(t *testing.T) {
	orgRepo := &stubOrgRepo{orgs: map[string]*model.Organization{
		"hq": {OrgID: "hq", Name: "总部"},
	}}
	svc := NewAdminService(orgRepo, nil, nil, nil)

	// 重复 ID
	_, err := svc.CreateOrganization("hq", "重复", "", "", 1)
	assert.Error(t, err)

	// 父组织不存在
	_, err = svc.CreateOrganization("new", "新部门", "", "ghost", 1)
	assert.Error(t, err)

	// 正常创建
	org, err := svc.CreateOrganization("hr", "人力资源部", "负责招聘", "hq", 1)
	require.NoError(t, err)
	assert.Equal(t, "hr", org.OrgID)
	require.NotNil(t, org.ParentOrg)
	assert.Equal(t, "hq", *org.ParentOrg)
}
