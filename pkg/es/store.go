package es

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"hr-smart-go/internal/model"
	"hr-smart-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Store 封装了分块向量在 Elasticsearch 中的索引、删除与近邻检索操作。
// 检索时的可见性过滤（published + enabled + 组织）在服务端查询内完成。
type Store struct {
	client *elasticsearch.Client
	index  string
}

// NewStore 创建一个新的 Store 实例。
func NewStore(client *elasticsearch.Client, index string) *Store {
	return &Store{client: client, index: index}
}

// IndexChunk 将单个分块向量索引到 Elasticsearch。
func (s *Store) IndexChunk(ctx context.Context, doc model.EsChunk) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: doc.VectorID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引分块到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index chunk")
	}

	return nil
}

// DeleteByDocumentID 删除某个文档的全部分块向量。
// 按 document_id 精确过滤，不会波及其他文档。
func (s *Store) DeleteByDocumentID(ctx context.Context, documentID string) error {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"document_id": documentID,
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return err
	}

	res, err := s.client.DeleteByQuery(
		[]string{s.index},
		&buf,
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("按文档删除分块向量出错: %s", res.String())
		return errors.New("failed to delete chunks by document id")
	}
	return nil
}

// SyncDocumentVisibility 在文档发布状态或启用开关变化后，
// 通过 update_by_query 同步该文档所有分块上的可见性字段。
func (s *Store) SyncDocumentVisibility(ctx context.Context, documentID, status string, enabled bool) error {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"document_id": documentID,
			},
		},
		"script": map[string]interface{}{
			"source": "ctx._source.doc_status = params.status; ctx._source.is_enabled = params.enabled",
			"lang":   "painless",
			"params": map[string]interface{}{
				"status":  status,
				"enabled": enabled,
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}

	res, err := s.client.UpdateByQuery(
		[]string{s.index},
		s.client.UpdateByQuery.WithContext(ctx),
		s.client.UpdateByQuery.WithBody(&buf),
		s.client.UpdateByQuery.WithRefresh(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("同步分块可见性字段出错: %s", res.String())
		return errors.New("failed to sync chunk visibility")
	}
	return nil
}

// Search 对存储的分块向量执行 kNN 近邻检索。
// 过滤条件：doc_status=published AND is_enabled=true；orgID 非空时额外限定组织。
// 返回结果按相似度降序排列，得分低于 threshold 的候选被丢弃。
func (s *Store) Search(ctx context.Context, queryVector []float32, threshold float64, count int, orgID string) ([]model.RetrievedChunk, error) {
	filters := []map[string]interface{}{
		{"term": map[string]interface{}{"doc_status": model.DocStatusPublished}},
		{"term": map[string]interface{}{"is_enabled": true}},
	}
	if orgID != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"org_id": orgID},
		})
	}

	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   queryVector,
			"k":              count,
			"num_candidates": count * 10,
			"filter": map[string]interface{}{
				"bool": map[string]interface{}{
					"filter": filters,
				},
			},
		},
		"size":    count,
		"_source": []string{"document_id", "chunk_index", "content", "title", "category", "description"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("Elasticsearch 检索返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source struct {
					DocumentID  string `json:"document_id"`
					ChunkIndex  int    `json:"chunk_index"`
					Content     string `json:"content"`
					Title       string `json:"title"`
					Category    string `json:"category"`
					Description string `json:"description"`
				} `json:"_source"`
				Score float64 `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	// kNN 得分对 cosine 相似度已归一到 [0,1]，在此应用阈值过滤
	results := make([]model.RetrievedChunk, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		if hit.Score < threshold {
			continue
		}
		results = append(results, model.RetrievedChunk{
			DocumentID:  hit.Source.DocumentID,
			ChunkIndex:  hit.Source.ChunkIndex,
			Content:     hit.Source.Content,
			Similarity:  hit.Score,
			Title:       hit.Source.Title,
			Category:    hit.Source.Category,
			Description: hit.Source.Description,
		})
	}
	return results, nil
}

// CountChunks 返回索引中的分块向量总数。
func (s *Store) CountChunks(ctx context.Context) (int64, error) {
	res, err := s.client.Count(
		s.client.Count.WithContext(ctx),
		s.client.Count.WithIndex(s.index),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("elasticsearch count returned an error: %s", res.Status())
	}

	var countResp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResp); err != nil {
		return 0, err
	}
	return countResp.Count, nil
}

// Ping 检查 Elasticsearch 集群是否可达。
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping returned an error: %s", res.Status())
	}
	return nil
}
