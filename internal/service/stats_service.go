package service

import (
	"context"

	"hr-smart-go/internal/repository"
	"hr-smart-go/pkg/database"
	"hr-smart-go/pkg/log"
)

// SystemStats 汇总了系统运行指标，用于管理端仪表盘。
type SystemStats struct {
	TotalUsers         int64            `json:"totalUsers"`
	TotalDocuments     int64            `json:"totalDocuments"`
	TotalChunks        int64            `json:"totalChunks"`
	TotalConversations int64            `json:"totalConversations"`
	IndexedVectors     int64            `json:"indexedVectors"`
	ProcessingStatus   map[string]int64 `json:"processingStatus"`
	DocumentsByOrg     map[string]int64 `json:"documentsByOrg"`
}

// ComponentHealth 描述单个依赖组件的健康状况。
type ComponentHealth struct {
	Status string `json:"status"` // "up" 或 "down"
	Error  string `json:"error,omitempty"`
}

// HealthReport 汇总各个核心依赖的连通性。
type HealthReport struct {
	Status     string                     `json:"status"` // 所有组件 up 时为 "up"
	Components map[string]ComponentHealth `json:"components"`
}

// VectorStats 是向量索引的统计和连通性探测端，由 Elasticsearch Store 实现。
type VectorStats interface {
	CountChunks(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// StatsService 提供系统统计和健康检查。
type StatsService interface {
	GetSystemStats(ctx context.Context) (*SystemStats, error)
	GetHealth(ctx context.Context) *HealthReport
}

type statsService struct {
	userRepo         repository.UserRepository
	docRepo          repository.DocumentRepository
	chunkRepo        repository.ChunkRepository
	conversationRepo repository.ConversationRepository
	vectorStats      VectorStats
}

// NewStatsService 创建一个新的 StatsService 实例。
func NewStatsService(
	userRepo repository.UserRepository,
	docRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
	conversationRepo repository.ConversationRepository,
	vectorStats VectorStats,
) StatsService {
	return &statsService{
		userRepo:         userRepo,
		docRepo:          docRepo,
		chunkRepo:        chunkRepo,
		conversationRepo: conversationRepo,
		vectorStats:      vectorStats,
	}
}

// GetSystemStats 汇总数据库和向量索引的各项计数。
func (s *statsService) GetSystemStats(ctx context.Context) (*SystemStats, error) {
	stats := &SystemStats{}

	var err error
	if stats.TotalUsers, err = s.userRepo.Count(); err != nil {
		return nil, err
	}
	if stats.ProcessingStatus, err = s.docRepo.CountByProcessingStatus(); err != nil {
		return nil, err
	}
	for _, n := range stats.ProcessingStatus {
		stats.TotalDocuments += n
	}
	if stats.DocumentsByOrg, err = s.docRepo.CountByOrg(); err != nil {
		return nil, err
	}
	if stats.TotalChunks, err = s.chunkRepo.CountAll(); err != nil {
		return nil, err
	}
	if stats.TotalConversations, err = s.conversationRepo.CountTurns(); err != nil {
		return nil, err
	}

	// 向量索引计数失败不阻塞整体统计，仪表盘标记为 -1
	if stats.IndexedVectors, err = s.vectorStats.CountChunks(ctx); err != nil {
		log.Warnf("[StatsService] 查询向量索引计数失败: %v", err)
		stats.IndexedVectors = -1
	}
	return stats, nil
}

// GetHealth 逐个探测 MySQL、Redis 和 Elasticsearch 的连通性。
func (s *statsService) GetHealth(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Status:     "up",
		Components: make(map[string]ComponentHealth),
	}

	check := func(name string, err error) {
		if err != nil {
			report.Status = "down"
			report.Components[name] = ComponentHealth{Status: "down", Error: err.Error()}
			return
		}
		report.Components[name] = ComponentHealth{Status: "up"}
	}

	check("mysql", pingMySQL())
	check("redis", database.RDB.Ping(ctx).Err())
	check("elasticsearch", s.vectorStats.Ping(ctx))
	return report
}

func pingMySQL() error {
	sqlDB, err := database.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
