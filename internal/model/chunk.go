package model

import "time"

// DocumentChunk 对应于数据库中的 document_chunks 表。
// 分块由文档处理管道生成，随父文档一起被整体删除或重建。
type DocumentChunk struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID string `gorm:"type:varchar(36);not null;index;column:document_id" json:"documentId"`
	// ChunkIndex 是该分块在文档内的序号，从 0 开始连续编号。
	ChunkIndex int       `gorm:"not null;column:chunk_index" json:"chunkIndex"`
	Content    string    `gorm:"type:text;column:content" json:"content"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// EsChunk 定义了存储在 Elasticsearch 中的分块结构。
// 向量与用于检索过滤的文档可见性字段（org_id / doc_status / is_enabled）在此冗余存储。
type EsChunk struct {
	VectorID     string    `json:"vector_id"` // 唯一标识，例如 documentID_chunkIndex
	DocumentID   string    `json:"document_id"`
	ChunkIndex   int       `json:"chunk_index"`
	Content      string    `json:"content"`
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
	OrgID        string    `json:"org_id"`
	DocStatus    string    `json:"doc_status"`
	IsEnabled    bool      `json:"is_enabled"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
}

// RetrievedChunk 是检索返回的分块及其相似度得分，不落库。
// 附带父文档的元数据，便于下游在回答中标注出处。
type RetrievedChunk struct {
	DocumentID  string  `json:"documentId"`
	ChunkIndex  int     `json:"chunkIndex"`
	Content     string  `json:"content"`
	Similarity  float64 `json:"similarity"` // [0,1]，由余弦相似度折算
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}
