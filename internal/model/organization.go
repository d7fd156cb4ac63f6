// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// Organization 对应于数据库中的 'organizations' 表。
// 它是多租户隔离的基本单位：用户和文档都归属于某个组织。
type Organization struct {
	// OrgID 是组织的唯一标识符，作为主键。
	OrgID string `gorm:"type:varchar(64);primaryKey" json:"orgId"`
	// Name 是组织的显示名称。
	Name string `gorm:"type:varchar(100);not null" json:"name"`
	// Description 提供了对该组织更详细的描述。
	Description string `gorm:"type:text" json:"description"`
	// ParentOrg 指向父级组织的 OrgID，用于构建层级结构。使用指针以接受 NULL 值，表示顶级组织。
	ParentOrg *string `gorm:"type:varchar(64)" json:"parentOrg"`
	// CreatedBy 记录了创建此组织的用户的 ID。
	CreatedBy uint      `gorm:"not null" json:"createdBy"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// OrganizationNode represents a node in the organization tree.
type OrganizationNode struct {
	OrgID       string              `json:"orgId"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	ParentOrg   *string             `json:"parentOrg"`
	Children    []*OrganizationNode `json:"children"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Organization) TableName() string {
	return "organizations"
}
