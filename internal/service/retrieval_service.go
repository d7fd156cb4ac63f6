// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hr-smart-go/internal/config"
	"hr-smart-go/internal/model"
	"hr-smart-go/pkg/embedding"
	"hr-smart-go/pkg/log"
)

// ErrRetrieval 检索链路失败（嵌入服务或向量索引不可用）。
var ErrRetrieval = errors.New("retrieval failed")

// VectorSearcher 是向量相似度检索的查询端，由 Elasticsearch Store 实现。
// 检索结果已按相似度降序排列，且只包含 published 且 is_enabled 的文档分块。
type VectorSearcher interface {
	Search(ctx context.Context, queryVector []float32, threshold float64, count int, orgID string) ([]model.RetrievedChunk, error)
}

// RetrievalService 接口定义了 RAG 检索相关的业务操作。
type RetrievalService interface {
	// Retrieve 将查询文本向量化后做相似度检索。
	// threshold/count 传 0 时使用配置中的默认值；orgID 为空表示不按组织过滤。
	Retrieve(ctx context.Context, query string, threshold float64, count int, orgID string) ([]model.RetrievedChunk, error)
	// BuildContext 将检索结果拼装为提供给大模型的上下文文本。
	BuildContext(chunks []model.RetrievedChunk) string
}

type retrievalService struct {
	embedder embedding.Client
	searcher VectorSearcher
	ragCfg   config.RAGConfig
}

// NewRetrievalService 创建一个新的 RetrievalService 实例。
func NewRetrievalService(embedder embedding.Client, searcher VectorSearcher, ragCfg config.RAGConfig) RetrievalService {
	return &retrievalService{
		embedder: embedder,
		searcher: searcher,
		ragCfg:   ragCfg,
	}
}

func (s *retrievalService) Retrieve(ctx context.Context, query string, threshold float64, count int, orgID string) ([]model.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if threshold <= 0 {
		threshold = s.ragCfg.MatchThreshold
	}
	if count <= 0 {
		count = s.ragCfg.MatchCount
	}

	vector, err := s.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		log.Errorf("[RetrievalService] 查询向量化失败: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	chunks, err := s.searcher.Search(ctx, vector, threshold, count, orgID)
	if err != nil {
		log.Errorf("[RetrievalService] 向量检索失败: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	log.Infof("[RetrievalService] 检索完成, query: %q, threshold: %.2f, hits: %d", query, threshold, len(chunks))
	return chunks, nil
}

// BuildContext 按相似度降序把分块拼成带出处和匹配度的上下文块。
// 没有任何分块时返回空字符串，由调用方决定降级话术。
func (s *retrievalService) BuildContext(chunks []model.RetrievedChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("[%d] (%s · %.1f%%) %s", i+1, chunk.Title, chunk.Similarity*100, chunk.Content))
	}
	return sb.String()
}
