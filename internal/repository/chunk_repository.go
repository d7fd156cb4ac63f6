package repository

import (
	"hr-smart-go/internal/model"

	"gorm.io/gorm"
)

// ChunkRepository 定义了对 document_chunks 表的数据操作接口。
type ChunkRepository interface {
	Create(chunk *model.DocumentChunk) error
	BatchCreate(chunks []*model.DocumentChunk) error
	FindByDocumentID(documentID string) ([]*model.DocumentChunk, error)
	DeleteByDocumentID(documentID string) error
	CountAll() (int64, error)
	CountByDocumentID(documentID string) (int64, error)
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建一个新的 ChunkRepository 实例。
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

// Create 创建单条分块记录。
func (r *chunkRepository) Create(chunk *model.DocumentChunk) error {
	return r.db.Create(chunk).Error
}

// BatchCreate 批量创建分块记录。
func (r *chunkRepository) BatchCreate(chunks []*model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.CreateInBatches(chunks, 100).Error // 每100条记录一批
}

// FindByDocumentID 根据文档 ID 查找所有相关的分块记录，按分块序号升序。
func (r *chunkRepository) FindByDocumentID(documentID string) ([]*model.DocumentChunk, error) {
	var chunks []*model.DocumentChunk
	err := r.db.Where("document_id = ?", documentID).Order("chunk_index asc").Find(&chunks).Error
	return chunks, err
}

// DeleteByDocumentID 根据文档 ID 删除所有相关的分块记录。
// 按 document_id 精确过滤，兄弟文档的分块不受影响。
func (r *chunkRepository) DeleteByDocumentID(documentID string) error {
	return r.db.Where("document_id = ?", documentID).Delete(&model.DocumentChunk{}).Error
}

// CountAll 统计全部分块数量。
func (r *chunkRepository) CountAll() (int64, error) {
	var total int64
	err := r.db.Model(&model.DocumentChunk{}).Count(&total).Error
	return total, err
}

// CountByDocumentID 统计某个文档的分块数量。
func (r *chunkRepository) CountByDocumentID(documentID string) (int64, error) {
	var total int64
	err := r.db.Model(&model.DocumentChunk{}).Where("document_id = ?", documentID).Count(&total).Error
	return total, err
}
