package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hr-smart-go/internal/config"
	"hr-smart-go/internal/model"
	"hr-smart-go/internal/pipeline"
	"hr-smart-go/internal/repository"
	"hr-smart-go/pkg/kafka"
	"hr-smart-go/pkg/log"
	"hr-smart-go/pkg/storage"
	"hr-smart-go/pkg/tasks"
	"hr-smart-go/pkg/token"
)

// ErrDocumentNotFound 文档不存在或对当前用户不可见。
var ErrDocumentNotFound = errors.New("document not found")

// ErrPermissionDenied 当前用户没有操作该文档的权限。
var ErrPermissionDenied = errors.New("permission denied")

// UploadRequest 承载上传接口的表单字段。
type UploadRequest struct {
	Title       string
	Category    string
	Description string
}

// DownloadInfoDTO 封装了文件下载链接所需的信息。
type DownloadInfoDTO struct {
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadUrl"`
	FileSize    int64  `json:"fileSize"`
}

// VectorStore 是文档服务需要的向量索引维护端，由 Elasticsearch Store 实现。
type VectorStore interface {
	DeleteByDocumentID(ctx context.Context, documentID string) error
	SyncDocumentVisibility(ctx context.Context, documentID, status string, enabled bool) error
}

// DocumentService 接口定义了文档管理相关的业务操作。
type DocumentService interface {
	Upload(claims *token.CustomClaims, fileHeader *multipart.FileHeader, req UploadRequest) (*model.Document, error)
	List(claims *token.CustomClaims) ([]model.Document, error)
	Get(claims *token.CustomClaims, id string) (*model.Document, error)
	GetChunks(claims *token.CustomClaims, id string) ([]*model.DocumentChunk, error)
	Delete(claims *token.CustomClaims, id string) error
	SetVisibility(claims *token.CustomClaims, id, status string, enabled bool) (*model.Document, error)
	Reprocess(claims *token.CustomClaims, id string) error
	GenerateDownloadURL(claims *token.CustomClaims, id string) (*DownloadInfoDTO, error)
}

type documentService struct {
	docRepo      repository.DocumentRepository
	chunkRepo    repository.ChunkRepository
	activityRepo repository.ActivityRepository
	vectorStore  VectorStore
	minioCfg     config.MinIOConfig
	produceTask  func(tasks.DocumentProcessingTask) error
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(
	docRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
	activityRepo repository.ActivityRepository,
	vectorStore VectorStore,
	minioCfg config.MinIOConfig,
) DocumentService {
	return &documentService{
		docRepo:      docRepo,
		chunkRepo:    chunkRepo,
		activityRepo: activityRepo,
		vectorStore:  vectorStore,
		minioCfg:     minioCfg,
		produceTask:  kafka.ProduceDocumentTask,
	}
}

// Upload 接收上传的制度文档，保存到对象存储并投递处理任务。
// 新文档以 draft 状态落库，处理状态为 pending，由后台消费者异步处理。
func (s *documentService) Upload(claims *token.CustomClaims, fileHeader *multipart.FileHeader, req UploadRequest) (*model.Document, error) {
	if !pipeline.IsSupportedFileType(fileHeader.Filename) {
		return nil, pipeline.ErrUnsupportedFileType
	}
	if req.Title == "" {
		req.Title = fileHeader.Filename
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer file.Close()

	docID := uuid.NewString()
	objectName := path.Join("documents", claims.OrgID, docID, fileHeader.Filename)
	if err := storage.PutObject(context.Background(), s.minioCfg.BucketName, objectName, file, fileHeader.Size, fileHeader.Header.Get("Content-Type")); err != nil {
		return nil, fmt.Errorf("保存文件到对象存储失败: %w", err)
	}

	doc := &model.Document{
		ID:               docID,
		Title:            req.Title,
		Category:         req.Category,
		Description:      req.Description,
		FileName:         fileHeader.Filename,
		ObjectName:       objectName,
		FileSize:         fileHeader.Size,
		OrgID:            claims.OrgID,
		UploadedBy:       claims.UserID,
		Status:           model.DocStatusDraft,
		IsEnabled:        true,
		ProcessingStatus: model.ProcessingPending,
	}
	if err := s.docRepo.Create(doc); err != nil {
		// 数据库失败时清理已落盘的对象，避免孤儿文件
		_ = storage.RemoveObject(context.Background(), s.minioCfg.BucketName, objectName)
		return nil, fmt.Errorf("保存文档记录失败: %w", err)
	}

	task := tasks.DocumentProcessingTask{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		ObjectName: doc.ObjectName,
		OrgID:      doc.OrgID,
		UserID:     claims.UserID,
	}
	if err := s.produceTask(task); err != nil {
		// 任务没有投递成功，文档停留在 pending，可通过 reprocess 重新触发
		log.Errorf("[DocumentService] 投递文档处理任务失败, documentID: %s, error: %v", doc.ID, err)
	}

	s.recordActivity(claims, model.ActivityUpload, doc.ID, doc.Title)
	log.Infof("[DocumentService] 文档上传成功, documentID: %s, fileName: %s", doc.ID, doc.FileName)
	return doc, nil
}

// List 返回当前用户可见的文档列表。管理员查看全部，普通用户只看本组织。
func (s *documentService) List(claims *token.CustomClaims) ([]model.Document, error) {
	if claims.Role == model.RoleAdmin {
		return s.docRepo.FindAll()
	}
	return s.docRepo.FindByOrgID(claims.OrgID)
}

func (s *documentService) Get(claims *token.CustomClaims, id string) (*model.Document, error) {
	return s.findVisible(claims, id)
}

// GetChunks 返回文档的全部分块，按分块序号升序，用于管理端诊断。
func (s *documentService) GetChunks(claims *token.CustomClaims, id string) ([]*model.DocumentChunk, error) {
	if _, err := s.findVisible(claims, id); err != nil {
		return nil, err
	}
	return s.chunkRepo.FindByDocumentID(id)
}

// Delete 删除文档及其全部派生数据：分块行、向量索引、对象存储中的原始文件。
func (s *documentService) Delete(claims *token.CustomClaims, id string) error {
	doc, err := s.findVisible(claims, id)
	if err != nil {
		return err
	}
	if doc.UploadedBy != claims.UserID && claims.Role != model.RoleAdmin {
		return ErrPermissionDenied
	}

	if err := s.chunkRepo.DeleteByDocumentID(id); err != nil {
		return fmt.Errorf("删除文档分块失败: %w", err)
	}
	if err := s.vectorStore.DeleteByDocumentID(context.Background(), id); err != nil {
		return fmt.Errorf("删除向量索引失败: %w", err)
	}
	if err := storage.RemoveObject(context.Background(), s.minioCfg.BucketName, doc.ObjectName); err != nil {
		// 对象存储清理失败不阻塞删除，记录日志便于人工处理
		log.Warnf("[DocumentService] 删除对象存储文件失败, documentID: %s, error: %v", id, err)
	}
	if err := s.docRepo.Delete(id); err != nil {
		return fmt.Errorf("删除文档记录失败: %w", err)
	}

	s.recordActivity(claims, model.ActivityDelete, id, doc.Title)
	log.Infof("[DocumentService] 文档已删除, documentID: %s", id)
	return nil
}

// SetVisibility 修改文档的发布状态和启用开关，并把变更同步到向量索引的过滤字段。
func (s *documentService) SetVisibility(claims *token.CustomClaims, id, status string, enabled bool) (*model.Document, error) {
	if claims.Role != model.RoleAdmin {
		return nil, ErrPermissionDenied
	}
	if status != model.DocStatusDraft && status != model.DocStatusPublished && status != model.DocStatusArchived {
		return nil, fmt.Errorf("非法的文档状态: %s", status)
	}

	doc, err := s.findVisible(claims, id)
	if err != nil {
		return nil, err
	}

	if err := s.docRepo.UpdateVisibility(id, status, enabled); err != nil {
		return nil, fmt.Errorf("更新文档可见性失败: %w", err)
	}
	if err := s.vectorStore.SyncDocumentVisibility(context.Background(), id, status, enabled); err != nil {
		return nil, fmt.Errorf("同步向量索引可见性失败: %w", err)
	}

	doc.Status = status
	doc.IsEnabled = enabled

	action := model.ActivityUnpublish
	if status == model.DocStatusPublished && enabled {
		action = model.ActivityPublish
	}
	s.recordActivity(claims, action, id, doc.Title)
	log.Infof("[DocumentService] 文档可见性已更新, documentID: %s, status: %s, enabled: %t", id, status, enabled)
	return doc, nil
}

// Reprocess 重新触发文档处理。旧分块由处理管道在开始时整体清理。
// processing 超过租约时长说明处理方已崩溃，此时允许重新触发以恢复文档。
func (s *documentService) Reprocess(claims *token.CustomClaims, id string) error {
	doc, err := s.findVisible(claims, id)
	if err != nil {
		return err
	}
	if doc.UploadedBy != claims.UserID && claims.Role != model.RoleAdmin {
		return ErrPermissionDenied
	}
	if doc.ProcessingStatus == model.ProcessingRunning &&
		time.Since(doc.UpdatedAt) < repository.ProcessingLeaseTimeout {
		return pipeline.ErrProcessingInProgress
	}

	task := tasks.DocumentProcessingTask{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		ObjectName: doc.ObjectName,
		OrgID:      doc.OrgID,
		UserID:     claims.UserID,
		Reprocess:  true,
	}
	if err := s.produceTask(task); err != nil {
		return fmt.Errorf("投递重新处理任务失败: %w", err)
	}

	s.recordActivity(claims, model.ActivityReprocess, id, doc.Title)
	log.Infof("[DocumentService] 已触发重新处理, documentID: %s", id)
	return nil
}

// GenerateDownloadURL 生成文件的临时下载链接，有效期 15 分钟。
func (s *documentService) GenerateDownloadURL(claims *token.CustomClaims, id string) (*DownloadInfoDTO, error) {
	doc, err := s.findVisible(claims, id)
	if err != nil {
		return nil, err
	}

	downloadURL, err := storage.GetPresignedURL(s.minioCfg.BucketName, doc.ObjectName, 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("生成下载链接失败: %w", err)
	}
	return &DownloadInfoDTO{
		FileName:    doc.FileName,
		DownloadURL: downloadURL,
		FileSize:    doc.FileSize,
	}, nil
}

// findVisible 查找文档并做组织级可见性校验。
func (s *documentService) findVisible(claims *token.CustomClaims, id string) (*model.Document, error) {
	doc, err := s.docRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	if claims.Role != model.RoleAdmin && doc.OrgID != claims.OrgID {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// recordActivity 写操作日志，失败只记 log，不影响主流程。
func (s *documentService) recordActivity(claims *token.CustomClaims, action, targetID, detail string) {
	entry := &model.ActivityLog{
		OrgID:    claims.OrgID,
		UserID:   claims.UserID,
		Action:   action,
		TargetID: targetID,
		Detail:   detail,
	}
	if err := s.activityRepo.Create(entry); err != nil {
		log.Warnf("[DocumentService] 写入操作日志失败, action: %s, target: %s, error: %v", action, targetID, err)
	}
}
