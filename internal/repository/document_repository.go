// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"time"

	"hr-smart-go/internal/model"

	"gorm.io/gorm"
)

// DocumentRepository 接口定义了文档记录的持久化操作。
type DocumentRepository interface {
	Create(doc *model.Document) error
	FindByID(id string) (*model.Document, error)
	FindByOrgID(orgID string) ([]model.Document, error)
	FindAll() ([]model.Document, error)
	Update(doc *model.Document) error
	Delete(id string) error

	// ClaimProcessing 以一次条件更新抢占文档的处理权：仅当当前处理状态为
	// pending/completed/failed，或 processing 已超过租约时长（持有者崩溃后
	// 状态不会自行恢复）时置为 processing。返回 false 表示已有处理在进行，
	// 调用方应拒绝本次运行。这是阻止同一文档并发处理的租约。
	ClaimProcessing(id string) (bool, error)
	MarkCompleted(id string, textLength, pageCount, chunkCount int) error
	MarkFailed(id string, message string) error
	UpdateVisibility(id string, status string, enabled bool) error

	CountByProcessingStatus() (map[string]int64, error)
	CountByOrg() (map[string]int64, error)
}

// ProcessingLeaseTimeout 是 processing 状态的租约时长。
// 超过该时长仍未完成的处理视为持有者已崩溃，允许重新抢占。
const ProcessingLeaseTimeout = 30 * time.Minute

// documentRepository 是 DocumentRepository 接口的 GORM 实现。
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create 在数据库中创建一个新的文档记录。
func (r *documentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

// FindByID 根据文档 ID 检索文档记录。
func (r *documentRepository) FindByID(id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByOrgID 查找指定组织的所有文档。
func (r *documentRepository) FindByOrgID(orgID string) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Where("org_id = ?", orgID).Order("created_at desc").Find(&docs).Error
	return docs, err
}

// FindAll 从数据库中检索所有文档记录。
func (r *documentRepository) FindAll() ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Order("created_at desc").Find(&docs).Error
	return docs, err
}

// Update 更新一个文档记录。
func (r *documentRepository) Update(doc *model.Document) error {
	return r.db.Save(doc).Error
}

// Delete 根据文档 ID 删除文档记录。
func (r *documentRepository) Delete(id string) error {
	return r.db.Delete(&model.Document{}, "id = ?", id).Error
}

// ClaimProcessing 通过条件更新抢占处理权（详见接口注释）。
// processing 状态的 updated_at 由每次状态变更刷新，早于租约窗口即视为失联。
func (r *documentRepository) ClaimProcessing(id string) (bool, error) {
	staleBefore := time.Now().Add(-ProcessingLeaseTimeout)
	res := r.db.Model(&model.Document{}).
		Where("id = ? AND (processing_status IN ? OR (processing_status = ? AND updated_at < ?))",
			id,
			[]string{
				model.ProcessingPending,
				model.ProcessingCompleted,
				model.ProcessingFailed,
			},
			model.ProcessingRunning,
			staleBefore,
		).
		Update("processing_status", model.ProcessingRunning)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkCompleted 将文档标记为处理完成，记录文本长度、页数、分块数并清除历史错误。
func (r *documentRepository) MarkCompleted(id string, textLength, pageCount, chunkCount int) error {
	now := time.Now()
	return r.db.Model(&model.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processing_status": model.ProcessingCompleted,
		"processing_error":  "",
		"text_length":       textLength,
		"page_count":        pageCount,
		"chunk_count":       chunkCount,
		"processed_at":      &now,
	}).Error
}

// MarkFailed 将文档标记为处理失败并保存错误信息。
// 失败前已写入的分块不做回滚，重新处理时会先整体清除。
func (r *documentRepository) MarkFailed(id string, message string) error {
	return r.db.Model(&model.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processing_status": model.ProcessingFailed,
		"processing_error":  message,
	}).Error
}

// UpdateVisibility 更新文档的发布状态与启用开关。
func (r *documentRepository) UpdateVisibility(id string, status string, enabled bool) error {
	return r.db.Model(&model.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"is_enabled": enabled,
	}).Error
}

// CountByProcessingStatus 按处理状态统计文档数量。
func (r *documentRepository) CountByProcessingStatus() (map[string]int64, error) {
	type row struct {
		ProcessingStatus string
		Total            int64
	}
	var rows []row
	err := r.db.Model(&model.Document{}).
		Select("processing_status, count(*) as total").
		Group("processing_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, v := range rows {
		result[v.ProcessingStatus] = v.Total
	}
	return result, nil
}

// CountByOrg 按组织统计文档数量。
func (r *documentRepository) CountByOrg() (map[string]int64, error) {
	type row struct {
		OrgID string
		Total int64
	}
	var rows []row
	err := r.db.Model(&model.Document{}).
		Select("org_id, count(*) as total").
		Group("org_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, v := range rows {
		result[v.OrgID] = v.Total
	}
	return result, nil
}
