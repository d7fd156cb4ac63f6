package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hr-smart-go/internal/config"
	"hr-smart-go/internal/model"
	"hr-smart-go/internal/pipeline"
	"hr-smart-go/internal/repository"
	"hr-smart-go/pkg/tasks"
	"hr-smart-go/pkg/token"
)

type stubDocRepo struct {
	repository.DocumentRepository

	docs map[string]*model.Document

	visibilityID      string
	visibilityStatus  string
	visibilityEnabled bool
}

func (s *stubDocRepo) FindByID(id string) (*model.Document, error) {
	if doc, ok := s.docs[id]; ok {
		return doc, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubDocRepo) FindAll() ([]model.Document, error) {
	var out []model.Document
	for _, d := range s.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (s *stubDocRepo) FindByOrgID(orgID string) ([]model.Document, error) {
	var out []model.Document
	for _, d := range s.docs {
		if d.OrgID == orgID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *stubDocRepo) UpdateVisibility(id string, status string, enabled bool) error {
	s.visibilityID = id
	s.visibilityStatus = status
	s.visibilityEnabled = enabled
	return nil
}

type stubChunkRepo struct {
	repository.ChunkRepository

	chunks map[string][]*model.DocumentChunk
}

func (s *stubChunkRepo) FindByDocumentID(documentID string) ([]*model.DocumentChunk, error) {
	return s.chunks[documentID], nil
}

type stubActivityRepo struct {
	entries []*model.ActivityLog
}

func (s *stubActivityRepo) Create(entry *model.ActivityLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubActivityRepo) FindByOrgID(orgID string, limit int) ([]model.ActivityLog, error) {
	return nil, nil
}

type stubVectorStore struct {
	deletedFor  []string
	syncedID    string
	syncStatus  string
	syncEnabled bool
}

func (s *stubVectorStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	s.deletedFor = append(s.deletedFor, documentID)
	return nil
}

func (s *stubVectorStore) SyncDocumentVisibility(ctx context.Context, documentID, status string, enabled bool) error {
	s.syncedID = documentID
	s.syncStatus = status
	s.syncEnabled = enabled
	return nil
}

func adminClaims() *token.CustomClaims {
	return &token.CustomClaims{UserID: 1, Username: "admin", Role: model.RoleAdmin, OrgID: "hq"}
}

func userClaims(orgID string) *token.CustomClaims {
	return &token.CustomClaims{UserID: 2, Username: "alice", Role: model.RoleUser, OrgID: orgID}
}

func newDocTestService(docRepo *stubDocRepo, chunkRepo *stubChunkRepo, vectorStore *stubVectorStore, activityRepo *stubActivityRepo) DocumentService {
	return NewDocumentService(docRepo, chunkRepo, activityRepo, vectorStore, config.MinIOConfig{BucketName: "hr-documents"})
}

func seedDocs() map[string]*model.Document {
	return map[string]*model.Document{
		"d1": {ID: "d1", Title: "员工手册", OrgID: "hr", UploadedBy: 2, Status: model.DocStatusDraft, IsEnabled: true},
		"d2": {ID: "d2", Title: "财务规范", OrgID: "finance", UploadedBy: 3, Status: model.DocStatusPublished, IsEnabled: true},
	}
}

func TestDocumentListOrgScoped(t *testing.T) {
	docRepo := &stubDocRepo{docs: seedDocs()}
	svc := newDocTestService(docRepo, &stubChunkRepo{}, &stubVectorStore{}, &stubActivityRepo{})

	docs, err := svc.List(userClaims("hr"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d1", docs[0].ID)

	all, err := svc.List(adminClaims())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDocumentGetHidesOtherOrgs(t *testing.T) {
	docRepo := &stubDocRepo{docs: seedDocs()}
	svc := newDocTestService(docRepo, &stubChunkRepo{}, &stubVectorStore{}, &stubActivityRepo{})

	// 跨组织访问表现为不存在，而不是权限错误，避免泄露文档存在性
	_, err := svc.Get(userClaims("hr"), "d2")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = svc.Get(userClaims("hr"), "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	doc, err := svc.Get(adminClaims(), "d2")
	require.NoError(t, err)
	assert.Equal(t, "d2", doc.ID)
}

func TestSetVisibilityAdminOnly(t *testing.T) {
	docRepo := &stubDocRepo{docs: seedDocs()}
	svc := newDocTestService(docRepo, &stubChunkRepo{}, &stubVectorStore{}, &stubActivityRepo{})

	_, err := svc.SetVisibility(userClaims("hr"), "d1", model.DocStatusPublished, true)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestSetVisibilitySyncsBothStores(t *testing.T) {
	docRepo := &stubDocRepo{docs: seedDocs()}
	vectorStore := &stubVectorStore{}
	activityRepo := &stubActivityRepo{}
	svc := newDocTestService(docRepo, &stubChunkRepo{}, vectorStore, activityRepo)

	doc, err := svc.SetVisibility(adminClaims(), "d1", model.DocStatusPublished, true)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusPublished, doc.Status)
	assert.True(t, doc.IsEnabled)

	// 数据库和向量索引的过滤字段都要更新
	assert.Equal(t, "d1", docRepo.visibilityID)
	assert.Equal(t, model.DocStatusPublished, docRepo.visibilityStatus)
	assert.True(t, docRepo.visibilityEnabled)
	assert.Equal(t, "d1", vectorStore.syncedID)
	assert.Equal(t, model.DocStatusPublished, vectorStore.syncStatus)
	assert.True(t, vectorStore.syncEnabled)

	require.Len(t, activityRepo.entries, 1)
	assert.Equal(t, model.ActivityPublish, activityRepo.entries[0].Action)
}

func TestSetVisibilityRejectsUnknownStatus(t *testing.T) {
	docRepo := &stubDocRepo{docs: seedDocs()}
	svc := newDocTestService(docRepo, &stubChunkRepo{}, &stubVectorStore{}, &stubActivityRepo{})

	_, err := svc.SetVisibility(adminClaims(), "d1", "hidden", true)
	assert.Error(t, err)
}

func TestReprocessRecoversStaleProcessing(t *testing.T) {
	stale := &model.Document{ID: "d1", Title: "员工手册", OrgID: "hr", UploadedBy: 2,
		ProcessingStatus: model.ProcessingRunning,
		UpdatedAt:        time.Now().Add(-time.Hour),
	}
	fresh := &model.Document{ID: "d2", Title: "考勤制度", OrgID: "hr", UploadedBy: 2,
		ProcessingStatus: model.ProcessingRunning,
		UpdatedAt:        time.Now(),
	}
	docRepo := &stubDocRepo{docs: map[string]*model.Document{"d1": stale, "d2": fresh}}
	var produced []tasks.DocumentProcessingTask
	svc := &documentService{
		docRepo:      docRepo,
		chunkRepo:    &stubChunkRepo{},
		activityRepo: &stubActivityRepo{},
		vectorStore:  &stubVectorStore{},
		minioCfg:     config.MinIOConfig{BucketName: "hr-documents"},
		produceTask: func(task tasks.DocumentProcessingTask) error {
			produced = append(produced, task)
			return nil
		},
	}

	// 租约期内的 processing 拒绝重复触发
	err := svc.Reprocess(userClaims("hr"), "d2")
	assert.ErrorIs(t, err, pipeline.ErrProcessingInProgress)
	assert.Empty(t, produced)

	// 超过租约的 processing 视为持有者已崩溃，允许重新触发以恢复文档
	err = svc.Reprocess(userClaims("hr"), "d1")
	require.NoError(t, err)
	require.Len(t, produced, 1)
	assert.Equal(t, "d1", produced[0].DocumentID)
	assert.True(t, produced[0].Reprocess)
}

func TestGetChunksReturnsStoredOrder(t *testing.T) {
	docRepo := &stubDocRepo{docs: seedDocs()}
	chunkRepo := &stubChunkRepo{chunks: map[string][]*model.DocumentChunk{
		"d1": {
			{DocumentID: "d1", ChunkIndex: 0, Content: "第一块"},
			{DocumentID: "d1", ChunkIndex: 1, Content: "第二块"},
		},
	}}
	svc := newDocTestService(docRepo, chunkRepo, &stubVectorStore{}, &stubActivityRepo{})

	chunks, err := svc.GetChunks(userClaims("hr"), "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
}
