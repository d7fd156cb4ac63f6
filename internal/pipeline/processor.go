package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"gorm.io/gorm"

	"hr-smart-go/internal/config"
	"hr-smart-go/internal/model"
	"hr-smart-go/internal/repository"
	"hr-smart-go/pkg/embedding"
	"hr-smart-go/pkg/log"
	"hr-smart-go/pkg/tasks"
)

// TextExtractor 抽取文件正文和页数，由 Tika 客户端实现。
type TextExtractor interface {
	ExtractText(fileReader io.Reader, fileName string) (string, error)
	ExtractPageCount(fileReader io.Reader, fileName string) (int, error)
}

// VectorIndexer 是分块向量的写入端，由 Elasticsearch Store 实现。
type VectorIndexer interface {
	IndexChunk(ctx context.Context, doc model.EsChunk) error
	DeleteByDocumentID(ctx context.Context, documentID string) error
	SyncDocumentVisibility(ctx context.Context, documentID, status string, enabled bool) error
}

// ObjectFetcher 按对象名读取原始文件内容。
type ObjectFetcher interface {
	Fetch(ctx context.Context, objectName string) (io.ReadCloser, error)
}

// Processor 实现文档处理管道：下载原始文件、抽取文本、切块、
// 逐块生成向量并写入数据库与向量索引，最后更新文档处理状态。
// 它同时是 Kafka 消费者的 TaskProcessor。
type Processor struct {
	docRepo   repository.DocumentRepository
	chunkRepo repository.ChunkRepository
	objects   ObjectFetcher
	extractor TextExtractor
	embedder  embedding.Client
	index     VectorIndexer
	ragCfg    config.RAGConfig
	modelName string
}

func NewProcessor(
	docRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
	objects ObjectFetcher,
	extractor TextExtractor,
	embedder embedding.Client,
	index VectorIndexer,
	ragCfg config.RAGConfig,
	modelName string,
) *Processor {
	return &Processor{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		objects:   objects,
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		ragCfg:    ragCfg,
		modelName: modelName,
	}
}

// Process 处理一条文档任务。业务性失败（抽取为空、嵌入失败等）会被
// 记录到文档的 processing_status/processing_error 上并返回 nil，
// 只有基础设施层面的错误（查库失败、抢占冲突等）才向消费者返回 error。
func (p *Processor) Process(ctx context.Context, task tasks.DocumentProcessingTask) error {
	log.Infof("[Processor] 开始处理文档, documentID: %s, fileName: %s", task.DocumentID, task.FileName)

	doc, err := p.docRepo.FindByID(task.DocumentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 文档在任务排队期间被删除，任务直接作废
			log.Warnf("[Processor] 文档不存在，跳过任务, documentID: %s", task.DocumentID)
			return nil
		}
		return fmt.Errorf("查询文档记录失败: %w", err)
	}

	// 条件更新抢占处理权，防止同一文档被并发处理
	claimed, err := p.docRepo.ClaimProcessing(doc.ID)
	if err != nil {
		return fmt.Errorf("更新文档处理状态失败: %w", err)
	}
	if !claimed {
		log.Warnf("[Processor] 文档正在被处理，跳过重复任务, documentID: %s", doc.ID)
		return ErrProcessingInProgress
	}

	if err := p.run(ctx, doc); err != nil {
		log.Errorf("[Processor] 文档处理失败, documentID: %s, error: %v", doc.ID, err)
		if markErr := p.docRepo.MarkFailed(doc.ID, err.Error()); markErr != nil {
			return fmt.Errorf("记录失败状态失败: %w", markErr)
		}
		// 失败已经落在文档状态上，不再让消费者重试
		return nil
	}
	return nil
}

// run 执行处理主体，返回的任何错误都代表本次处理失败。
func (p *Processor) run(ctx context.Context, doc *model.Document) error {
	reader, err := p.objects.Fetch(ctx, doc.ObjectName)
	if err != nil {
		return fmt.Errorf("下载原始文件失败: %w", err)
	}
	defer reader.Close()

	// 读入内存，文本抽取和页数统计各需要一次完整读取
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("读取文件内容失败: %w", err)
	}

	text, err := p.extractor.ExtractText(bytes.NewReader(data), doc.FileName)
	if err != nil {
		return fmt.Errorf("文本抽取失败: %w", err)
	}
	if text == "" {
		return fmt.Errorf("文件中未抽取到任何文本内容")
	}

	pageCount, err := p.extractor.ExtractPageCount(bytes.NewReader(data), doc.FileName)
	if err != nil {
		// 页数是展示性信息，拿不到不影响处理
		log.Warnf("[Processor] 获取页数失败, documentID: %s, error: %v", doc.ID, err)
		pageCount = 0
	}

	// 重新处理时先清掉旧分块，保证数据库与向量索引不残留旧内容
	if err := p.chunkRepo.DeleteByDocumentID(doc.ID); err != nil {
		return fmt.Errorf("%w: 删除旧分块失败: %v", ErrPersistence, err)
	}
	if err := p.index.DeleteByDocumentID(ctx, doc.ID); err != nil {
		return fmt.Errorf("%w: 删除旧向量失败: %v", ErrPersistence, err)
	}

	chunks := SplitText(text, p.ragCfg.ChunkSize, p.ragCfg.ChunkOverlap)
	if len(chunks) == 0 {
		return fmt.Errorf("文本切块后没有有效内容")
	}
	log.Infof("[Processor] 文本切块完成, documentID: %s, chunks: %d", doc.ID, len(chunks))

	// 逐块串行处理：先生成向量，再写数据库行和向量索引。
	// 任何一块失败即整体失败，已写入的分块会在下次处理时被整体清理。
	for i, content := range chunks {
		vector, err := p.embedder.CreateEmbedding(ctx, content)
		if err != nil {
			return fmt.Errorf("%w: 第 %d 块向量化失败: %v", ErrEmbedding, i, err)
		}

		row := &model.DocumentChunk{
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    content,
		}
		if err := p.chunkRepo.Create(row); err != nil {
			return fmt.Errorf("%w: 第 %d 块写入数据库失败: %v", ErrPersistence, i, err)
		}

		esDoc := model.EsChunk{
			VectorID:     fmt.Sprintf("%s_%d", doc.ID, i),
			DocumentID:   doc.ID,
			ChunkIndex:   i,
			Content:      content,
			Vector:       vector,
			ModelVersion: p.modelName,
			OrgID:        doc.OrgID,
			DocStatus:    doc.Status,
			IsEnabled:    doc.IsEnabled,
			Title:        doc.Title,
			Category:     doc.Category,
			Description:  doc.Description,
		}
		if err := p.index.IndexChunk(ctx, esDoc); err != nil {
			return fmt.Errorf("%w: 第 %d 块写入向量索引失败: %v", ErrPersistence, i, err)
		}
	}

	// 处理期间管理员可能已修改可见性，那次 update_by_query 看不到之后才写入的分块，
	// 这里以数据库当前值为准把过滤字段再同步一遍
	if fresh, err := p.docRepo.FindByID(doc.ID); err != nil {
		log.Warnf("[Processor] 回读文档可见性失败, documentID: %s, error: %v", doc.ID, err)
	} else if fresh.Status != doc.Status || fresh.IsEnabled != doc.IsEnabled {
		if err := p.index.SyncDocumentVisibility(ctx, doc.ID, fresh.Status, fresh.IsEnabled); err != nil {
			return fmt.Errorf("%w: 同步可见性字段失败: %v", ErrPersistence, err)
		}
	}

	textLength := utf8.RuneCountInString(text)
	if err := p.docRepo.MarkCompleted(doc.ID, textLength, pageCount, len(chunks)); err != nil {
		return fmt.Errorf("更新完成状态失败: %w", err)
	}

	log.Infof("[Processor] 文档处理完成, documentID: %s, textLength: %d, pages: %d, chunks: %d",
		doc.ID, textLength, pageCount, len(chunks))
	return nil
}
