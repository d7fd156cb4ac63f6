package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hr-smart-go/internal/config"
	"hr-smart-go/internal/model"
	"hr-smart-go/internal/repository"
	"hr-smart-go/pkg/tasks"
)

type fakeDocRepo struct {
	repository.DocumentRepository

	doc *model.Document
	// docAfterClaim 非空时，第二次及以后的 FindByID 返回它，模拟处理期间文档被修改
	docAfterClaim *model.Document
	findCalls     int
	claimResult   bool
	claimCalls    int

	completedID     string
	completedText   int
	completedPages  int
	completedChunks int

	failedID      string
	failedMessage string
}

func (f *fakeDocRepo) FindByID(id string) (*model.Document, error) {
	if f.doc == nil || f.doc.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	f.findCalls++
	if f.findCalls > 1 && f.docAfterClaim != nil {
		return f.docAfterClaim, nil
	}
	return f.doc, nil
}

func (f *fakeDocRepo) ClaimProcessing(id string) (bool, error) {
	f.claimCalls++
	return f.claimResult, nil
}

func (f *fakeDocRepo) MarkCompleted(id string, textLength, pageCount, chunkCount int) error {
	f.completedID = id
	f.completedText = textLength
	f.completedPages = pageCount
	f.completedChunks = chunkCount
	return nil
}

func (f *fakeDocRepo) MarkFailed(id string, message string) error {
	f.failedID = id
	f.failedMessage = message
	return nil
}

type fakeChunkRepo struct {
	repository.ChunkRepository

	created    []*model.DocumentChunk
	deletedFor []string
	failAfter  int // 第 N 次 Create 返回错误，0 表示不失败
}

func (f *fakeChunkRepo) Create(chunk *model.DocumentChunk) error {
	if f.failAfter > 0 && len(f.created)+1 >= f.failAfter {
		return errors.New("duplicate entry")
	}
	f.created = append(f.created, chunk)
	return nil
}

func (f *fakeChunkRepo) DeleteByDocumentID(documentID string) error {
	f.deletedFor = append(f.deletedFor, documentID)
	return nil
}

type fakeExtractor struct {
	text  string
	pages int
	err   error
}

func (f *fakeExtractor) ExtractText(fileReader io.Reader, fileName string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeExtractor) ExtractPageCount(fileReader io.Reader, fileName string) (int, error) {
	return f.pages, nil
}

type fakeEmbedder struct {
	calls   int
	failAt  int // 第 N 次调用失败，0 表示不失败
	vectors [][]float32
}

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failAt > 0 && f.calls >= f.failAt {
		return nil, errors.New("embedding service unavailable")
	}
	v := []float32{float32(f.calls), 0.5}
	f.vectors = append(f.vectors, v)
	return v, nil
}

type fakeIndexer struct {
	indexed    []model.EsChunk
	deletedFor []string

	syncedID      string
	syncedStatus  string
	syncedEnabled bool
}

func (f *fakeIndexer) IndexChunk(ctx context.Context, doc model.EsChunk) error {
	f.indexed = append(f.indexed, doc)
	return nil
}

func (f *fakeIndexer) DeleteByDocumentID(ctx context.Context, documentID string) error {
	f.deletedFor = append(f.deletedFor, documentID)
	return nil
}

func (f *fakeIndexer) SyncDocumentVisibility(ctx context.Context, documentID, status string, enabled bool) error {
	f.syncedID = documentID
	f.syncedStatus = status
	f.syncedEnabled = enabled
	return nil
}

type fakeFetcher struct {
	content string
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context, objectName string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

func testDocument() *model.Document {
	return &model.Document{
		ID:               "doc-1",
		Title:            "员工手册",
		FileName:         "handbook.pdf",
		ObjectName:       "documents/hr/doc-1/handbook.pdf",
		OrgID:            "hr",
		Status:           model.DocStatusDraft,
		IsEnabled:        true,
		ProcessingStatus: model.ProcessingPending,
	}
}

func newTestProcessor(docRepo *fakeDocRepo, chunkRepo *fakeChunkRepo, fetcher *fakeFetcher, extractor *fakeExtractor, embedder *fakeEmbedder, indexer *fakeIndexer) *Processor {
	ragCfg := config.RAGConfig{ChunkSize: 100, ChunkOverlap: 20}
	return NewProcessor(docRepo, chunkRepo, fetcher, extractor, embedder, indexer, ragCfg, "test-embedding-model")
}

func TestProcessorHappyPath(t *testing.T) {
	docRepo := &fakeDocRepo{doc: testDocument(), claimResult: true}
	chunkRepo := &fakeChunkRepo{}
	extractor := &fakeExtractor{text: strings.Repeat("人事制度条款。", 50), pages: 3}
	embedder := &fakeEmbedder{}
	indexer := &fakeIndexer{}
	p := newTestProcessor(docRepo, chunkRepo, &fakeFetcher{content: "raw bytes"}, extractor, embedder, indexer)

	err := p.Process(context.Background(), tasks.DocumentProcessingTask{DocumentID: "doc-1", FileName: "handbook.pdf"})
	require.NoError(t, err)

	assert.Equal(t, 1, docRepo.claimCalls)
	assert.Equal(t, "doc-1", docRepo.completedID)
	assert.Empty(t, docRepo.failedID)
	assert.Equal(t, 350, docRepo.completedText)
	assert.Equal(t, 3, docRepo.completedPages)
	assert.Equal(t, len(chunkRepo.created), docRepo.completedChunks)

	// 数据库行与向量索引一一对应，嵌入调用次数等于分块数
	require.Equal(t, len(chunkRepo.created), len(indexer.indexed))
	assert.Equal(t, len(chunkRepo.created), embedder.calls)

	// 分块序号连续且从 0 开始
	for i, c := range chunkRepo.created {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, "doc-1", c.DocumentID)
	}
	for i, e := range indexer.indexed {
		assert.Equal(t, i, e.ChunkIndex)
		assert.Equal(t, "doc-1_"+string(rune('0'+i)), e.VectorID)
		assert.Equal(t, "test-embedding-model", e.ModelVersion)
		assert.Equal(t, "hr", e.OrgID)
		assert.Equal(t, model.DocStatusDraft, e.DocStatus)
		assert.True(t, e.IsEnabled)
	}

	// 可见性没有变化，不需要额外的同步
	assert.Empty(t, indexer.syncedID)
}

func TestProcessorSyncsVisibilityChangedDuringRun(t *testing.T) {
	changed := testDocument()
	changed.Status = model.DocStatusPublished
	changed.IsEnabled = false
	docRepo := &fakeDocRepo{doc: testDocument(), docAfterClaim: changed, claimResult: true}
	indexer := &fakeIndexer{}
	p := newTestProcessor(docRepo, &fakeChunkRepo{}, &fakeFetcher{content: "x"}, &fakeExtractor{text: "制度内容"}, &fakeEmbedder{}, indexer)

	err := p.Process(context.Background(), tasks.DocumentProcessingTask{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", docRepo.completedID)

	// 处理期间管理员改过可见性，落索引后要按数据库当前值重新同步过滤字段
	assert.Equal(t, "doc-1", indexer.syncedID)
	assert.Equal(t, model.DocStatusPublished, indexer.syncedStatus)
	assert.False(t, indexer.syncedEnabled)
}

func TestProcessorClaimRejected(t *testing.T) {
	docRepo := &fakeDocRepo{doc: testDocument(), claimResult: false}
	chunkRepo := &fakeChunkRepo{}
	p := newTestProcessor(docRepo, chunkRepo, &fakeFetcher{content: "x"}, &fakeExtractor{text: "text"}, &fakeEmbedder{}, &fakeIndexer{})

	err := p.Process(context.Background(), tasks.DocumentProcessingTask{DocumentID: "doc-1"})
	assert.ErrorIs(t, err, ErrProcessingInProgress)

	// 没抢到处理权时不应动任何数据
	assert.Empty(t, chunkRepo.deletedFor)
	assert.Empty(t, docRepo.failedID)
	assert.Empty(t, docRepo.completedID)
}

func TestProcessorDocumentGone(t *testing.T) {
	docRepo := &fakeDocRepo{doc: nil}
	p := newTestProcessor(docRepo, &fakeChunkRepo{}, &fakeFetcher{content: "x"}, &fakeExtractor{text: "text"}, &fakeEmbedder{}, &fakeIndexer{})

	// 文档已被删除的任务直接作废，不算处理失败
	err := p.Process(context.Background(), tasks.DocumentProcessingTask{DocumentID: "doc-1"})
	assert.NoError(t, err)
	assert.Zero(t, docRepo.claimCalls)
}

func TestProcessorEmptyTextFails(t *testing.T) {
	docRepo := &fakeDocRepo{doc: testDocument(), claimResult: true}
	p := newTestProcessor(docRepo, &fakeChunkRepo{}, &fakeFetcher{content: "x"}, &fakeExtractor{text: ""}, &fakeEmbedder{}, &fakeIndexer{})

	err := p.Process(context.Background(), tasks.DocumentProcessingTask{DocumentID: "doc-1"})
	// 业务性失败落在文档状态上，不向消费者返回 error
	assert.NoError(t, err)
	assert.Equal(t, "doc-1", docRepo.failedID)
	assert.NotEmpty(t, docRepo.failedMessage)
	assert.Empty(t, docRepo.completedID)
}

func TestProcessorEmbeddingFailureMarksFailed(t *testing.T) {
	docRepo := &fakeDocRepo{doc: testDocument(), claimResult: true}
	chunkRepo := &fakeChunkRepo{}
	embedder := &fakeEmbedder{failAt: 2}
	indexer := &fakeIndexer{}
	extractor := &fakeExtractor{text: strings.Repeat("A", 250)}
	p := newTestProcessor(docRepo, chunkRepo, &fakeFetcher{content: "x"}, extractor, embedder, indexer)

	err := p.Process(context.Background(), tasks.DocumentProcessingTask{DocumentID: "doc-1"})
	assert.NoError(t, err)
	assert.Equal(t, "doc-1", docRepo.failedID)
	assert.Contains(t, docRepo.failedMessage, "embedding")
	assert.Empty(t, docRepo.completedID)

	// 第一块已经写入，属于部分写入，由下一次处理整体清理
	assert.Len(t, chunkRepo.created, 1)
	assert.Len(t, indexer.indexed, 1)
}

func TestProcessorReprocessClearsOldData(t *testing.T) {
	docRepo := &fakeDocRepo{doc: testDocument(), claimResult: true}
	chunkRepo := &fakeChunkRepo{}
	indexer := &fakeIndexer{}
	p := newTestProcessor(docRepo, chunkRepo, &fakeFetcher{content: "x"}, &fakeExtractor{text: "制度内容"}, &fakeEmbedder{}, indexer)

	err := p.Process(context.Background(), tasks.DocumentProcessingTask{DocumentID: "doc-1", Reprocess: true})
	require.NoError(t, err)

	// 切块和写入之前先清理旧数据
	assert.Equal(t, []string{"doc-1"}, chunkRepo.deletedFor)
	assert.Equal(t, []string{"doc-1"}, indexer.deletedFor)
	assert.Equal(t, "doc-1", docRepo.completedID)
}

func TestProcessorFetchFailureMarksFailed(t *testing.T) {
	docRepo := &fakeDocRepo{doc: testDocument(), claimResult: true}
	p := newTestProcessor(docRepo, &fakeChunkRepo{}, &fakeFetcher{err: errors.New("object not found")}, &fakeExtractor{text: "text"}, &fakeEmbedder{}, &fakeIndexer{})

	err := p.Process(context.Background(), tasks.DocumentProcessingTask{DocumentID: "doc-1"})
	assert.NoError(t, err)
	assert.Equal(t, "doc-1", docRepo.failedID)
	assert.Contains(t, docRepo.failedMessage, "object not found")
}
