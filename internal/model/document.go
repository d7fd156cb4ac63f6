// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 文档发布状态。只有 published 且 is_enabled=true 的文档的分块会进入检索。
const (
	DocStatusDraft     = "draft"
	DocStatusPublished = "published"
	DocStatusArchived  = "archived"
)

// 文档处理状态机：pending -> processing -> completed | failed。
// reprocess 操作允许从 completed/failed 重新回到 processing。
const (
	ProcessingPending   = "pending"
	ProcessingRunning   = "processing"
	ProcessingCompleted = "completed"
	ProcessingFailed    = "failed"
)

// Document 对应于数据库中的 'documents' 表，记录一份上传的制度文档及其处理状态。
type Document struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Category    string `gorm:"type:varchar(100)" json:"category"`
	Description string `gorm:"type:text" json:"description"`
	FileName    string `gorm:"type:varchar(255);not null" json:"fileName"`
	// ObjectName 是文件在 MinIO 中的对象路径。
	ObjectName string `gorm:"type:varchar(512);not null" json:"-"`
	FileSize   int64  `gorm:"not null" json:"fileSize"`
	OrgID      string `gorm:"type:varchar(64);index;not null" json:"orgId"`
	UploadedBy uint   `gorm:"not null" json:"uploadedBy"`

	Status    string `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	IsEnabled bool   `gorm:"not null;default:true" json:"isEnabled"`

	ProcessingStatus string `gorm:"type:varchar(20);not null;default:'pending'" json:"processingStatus"`
	// ProcessingError 保存最近一次处理失败的人类可读错误信息。
	ProcessingError string `gorm:"type:text" json:"processingError"`
	TextLength      int    `gorm:"not null;default:0" json:"textLength"`
	PageCount       int    `gorm:"not null;default:0" json:"pageCount"`
	ChunkCount      int    `gorm:"not null;default:0" json:"chunkCount"`

	ProcessedAt *time.Time `gorm:"default:null" json:"processedAt"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}
