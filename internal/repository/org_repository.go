// Package repository 包含了所有与数据库交互的逻辑。
package repository

import (
	"hr-smart-go/internal/model"

	"gorm.io/gorm"
)

// OrgRepository 接口定义了组织的数据操作方法。
type OrgRepository interface {
	Create(org *model.Organization) error
	FindByID(id string) (*model.Organization, error)
	FindAll() ([]model.Organization, error)
	FindBatchByIDs(ids []string) ([]model.Organization, error)
	Update(org *model.Organization) error
	Delete(id string) error
}

type orgRepository struct {
	db *gorm.DB
}

// NewOrgRepository 创建一个新的 OrgRepository 实例。
func NewOrgRepository(db *gorm.DB) OrgRepository {
	return &orgRepository{db: db}
}

// Create 在数据库中插入一个新的组织记录。
func (r *orgRepository) Create(org *model.Organization) error {
	return r.db.Create(org).Error
}

// FindAll 从数据库中检索所有的组织记录。
func (r *orgRepository) FindAll() ([]model.Organization, error) {
	var orgs []model.Organization
	err := r.db.Find(&orgs).Error
	return orgs, err
}

// FindBatchByIDs finds organizations by a slice of IDs.
func (r *orgRepository) FindBatchByIDs(ids []string) ([]model.Organization, error) {
	var orgs []model.Organization
	if len(ids) == 0 {
		return orgs, nil
	}
	err := r.db.Where("org_id IN ?", ids).Find(&orgs).Error
	return orgs, err
}

// FindByID 根据给定的 orgID 从数据库中查找一个组织。
func (r *orgRepository) FindByID(orgID string) (*model.Organization, error) {
	var org model.Organization
	err := r.db.Where("org_id = ?", orgID).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Update 更新数据库中一个已存在的组织记录。
func (r *orgRepository) Update(org *model.Organization) error {
	return r.db.Save(org).Error
}

// Delete 根据给定的 orgID 从数据库中删除一个组织记录。
func (r *orgRepository) Delete(orgID string) error {
	return r.db.Delete(&model.Organization{}, "org_id = ?", orgID).Error
}
