package repository

import (
	"hr-smart-go/internal/model"

	"gorm.io/gorm"
)

// ActivityRepository 定义了操作日志的持久化接口。
type ActivityRepository interface {
	Create(entry *model.ActivityLog) error
	FindByOrgID(orgID string, limit int) ([]model.ActivityLog, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository 创建一个新的 ActivityRepository 实例。
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

// Create 写入一条操作日志。
func (r *activityRepository) Create(entry *model.ActivityLog) error {
	return r.db.Create(entry).Error
}

// FindByOrgID 查询某个组织最近的操作日志，orgID 为空时返回全部组织。
func (r *activityRepository) FindByOrgID(orgID string, limit int) ([]model.ActivityLog, error) {
	var entries []model.ActivityLog
	query := r.db.Order("id desc").Limit(limit)
	if orgID != "" {
		query = query.Where("org_id = ?", orgID)
	}
	err := query.Find(&entries).Error
	return entries, err
}
