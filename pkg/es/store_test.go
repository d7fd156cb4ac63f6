package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIndex = "hr_document_chunks"

type stubHit struct {
	Score  float64                `json:"_score"`
	Source map[string]interface{} `json:"_source"`
}

// newSearchStub 起一个只响应 _search 的 Elasticsearch 桩服务，
// 记录收到的查询体并返回给定的命中列表。
func newSearchStub(t *testing.T, hits []stubHit, capturedQuery *map[string]interface{}) *Store {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// v8 客户端校验该响应头，缺失会拒绝与服务端通信
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/"+testIndex+"/_search" {
			_, _ = w.Write([]byte(`{}`))
			return
		}

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var q map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &q))
		*capturedQuery = q

		resp := map[string]interface{}{
			"hits": map[string]interface{}{"hits": hits},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewStore(client, testIndex)
}

// knnFilterTerms 从捕获的查询体中取出 knn 过滤器里的所有 term 条件，按字段聚合。
func knnFilterTerms(t *testing.T, query map[string]interface{}) map[string]interface{} {
	t.Helper()
	knn, ok := query["knn"].(map[string]interface{})
	require.True(t, ok, "查询体缺少 knn 子句")
	boolClause, ok := knn["filter"].(map[string]interface{})["bool"].(map[string]interface{})
	require.True(t, ok, "knn 过滤器不是 bool 结构")
	filters, ok := boolClause["filter"].([]interface{})
	require.True(t, ok)

	terms := make(map[string]interface{})
	for _, f := range filters {
		term, ok := f.(map[string]interface{})["term"].(map[string]interface{})
		require.True(t, ok, "过滤条件不是 term")
		for field, value := range term {
			terms[field] = value
		}
	}
	return terms
}

func chunkSource(content, title string) map[string]interface{} {
	return map[string]interface{}{
		"document_id": "d1",
		"chunk_index": 0,
		"content":     content,
		"title":       title,
	}
}

func TestStoreSearchBuildsVisibilityFilters(t *testing.T) {
	var captured map[string]interface{}
	store := newSearchStub(t, []stubHit{
		{Score: 0.93, Source: chunkSource("年假规定", "员工手册")},
	}, &captured)

	_, err := store.Search(context.Background(), []float32{0.1, 0.2}, 0.5, 5, "hr")
	require.NoError(t, err)

	// 组织内检索必须同时限定：已发布、启用中、本组织
	terms := knnFilterTerms(t, captured)
	assert.Equal(t, "published", terms["doc_status"])
	assert.Equal(t, true, terms["is_enabled"])
	assert.Equal(t, "hr", terms["org_id"])

	knn := captured["knn"].(map[string]interface{})
	assert.EqualValues(t, 5, knn["k"])
	assert.EqualValues(t, 50, knn["num_candidates"])
}

func TestStoreSearchOmitsOrgFilterWhenUnscoped(t *testing.T) {
	var captured map[string]interface{}
	store := newSearchStub(t, nil, &captured)

	_, err := store.Search(context.Background(), []float32{0.1}, 0.5, 5, "")
	require.NoError(t, err)

	// 管理员全局检索不带组织条件，但发布状态和启用开关仍然生效
	terms := knnFilterTerms(t, captured)
	assert.Equal(t, "published", terms["doc_status"])
	assert.Equal(t, true, terms["is_enabled"])
	_, hasOrg := terms["org_id"]
	assert.False(t, hasOrg)
}

func TestStoreSearchDropsHitsBelowThreshold(t *testing.T) {
	var captured map[string]interface{}
	store := newSearchStub(t, []stubHit{
		{Score: 0.91, Source: chunkSource("年假规定", "员工手册")},
		{Score: 0.66, Source: chunkSource("打卡要求", "考勤制度")},
		{Score: 0.49, Source: chunkSource("停车位申请", "后勤指南")},
	}, &captured)

	results, err := store.Search(context.Background(), []float32{0.1}, 0.5, 10, "hr")
	require.NoError(t, err)

	// 低于阈值的候选被丢弃，保留的结果维持降序
	require.Len(t, results, 2)
	assert.Equal(t, 0.91, results[0].Similarity)
	assert.Equal(t, "员工手册", results[0].Title)
	assert.Equal(t, "年假规定", results[0].Content)
	assert.Equal(t, 0.66, results[1].Similarity)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestStoreSearchEmptyResult(t *testing.T) {
	var captured map[string]interface{}
	store := newSearchStub(t, nil, &captured)

	results, err := store.Search(context.Background(), []float32{0.1}, 0.5, 10, "hr")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStoreSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"reason":"index corrupted"}}`))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	store := NewStore(client, testIndex)

	_, err = store.Search(context.Background(), []float32{0.1}, 0.5, 10, "hr")
	assert.Error(t, err)
}
