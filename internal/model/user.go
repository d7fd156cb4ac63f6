// Package model 包含了应用的数据模型定义。
package model

import "time"

// 用户角色常量。
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User 对应于数据库中的 'users' 表。
type User struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Password    string    `gorm:"type:varchar(255);not null" json:"-"`
	DisplayName string    `gorm:"type:varchar(100)" json:"displayName"`
	Role        string    `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	OrgID       string    `gorm:"type:varchar(64);index" json:"orgId"`
	AvatarURL   string    `gorm:"type:varchar(512)" json:"avatarUrl"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}
