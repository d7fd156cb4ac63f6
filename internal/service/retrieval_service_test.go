package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-smart-go/internal/config"
	"hr-smart-go/internal/model"
)

type stubEmbedder struct {
	vector []float32
	err    error
	texts  []string
}

func (s *stubEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	s.texts = append(s.texts, text)
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

type stubSearcher struct {
	results []model.RetrievedChunk
	err     error

	gotVector    []float32
	gotThreshold float64
	gotCount     int
	gotOrgID     string
}

func (s *stubSearcher) Search(ctx context.Context, queryVector []float32, threshold float64, count int, orgID string) ([]model.RetrievedChunk, error) {
	s.gotVector = queryVector
	s.gotThreshold = threshold
	s.gotCount = count
	s.gotOrgID = orgID
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func testRAGConfig() config.RAGConfig {
	return config.RAGConfig{
		ChunkSize:      1000,
		ChunkOverlap:   200,
		MatchThreshold: 0.5,
		MatchCount:     10,
	}
}

func TestRetrieveUsesConfigDefaults(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2}}
	searcher := &stubSearcher{results: []model.RetrievedChunk{{Content: "a", Similarity: 0.9}}}
	svc := NewRetrievalService(embedder, searcher, testRAGConfig())

	chunks, err := svc.Retrieve(context.Background(), "年假怎么算", 0, 0, "hr")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, []string{"年假怎么算"}, embedder.texts)
	assert.Equal(t, []float32{0.1, 0.2}, searcher.gotVector)
	assert.Equal(t, 0.5, searcher.gotThreshold)
	assert.Equal(t, 10, searcher.gotCount)
	assert.Equal(t, "hr", searcher.gotOrgID)
}

func TestRetrieveExplicitParamsOverrideDefaults(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{0.1}}
	searcher := &stubSearcher{}
	svc := NewRetrievalService(embedder, searcher, testRAGConfig())

	_, err := svc.Retrieve(context.Background(), "试用期", 0.72, 3, "")
	require.NoError(t, err)
	assert.Equal(t, 0.72, searcher.gotThreshold)
	assert.Equal(t, 3, searcher.gotCount)
	assert.Equal(t, "", searcher.gotOrgID)
}

func TestRetrieveBlankQuery(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{0.1}}
	searcher := &stubSearcher{}
	svc := NewRetrievalService(embedder, searcher, testRAGConfig())

	chunks, err := svc.Retrieve(context.Background(), "   ", 0, 0, "hr")
	require.NoError(t, err)
	assert.Nil(t, chunks)
	// 空查询不应触发嵌入调用
	assert.Empty(t, embedder.texts)
}

func TestRetrieveEmbeddingErrorWrapped(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("connection refused")}
	svc := NewRetrievalService(embedder, &stubSearcher{}, testRAGConfig())

	_, err := svc.Retrieve(context.Background(), "加班费", 0, 0, "hr")
	assert.ErrorIs(t, err, ErrRetrieval)
}

func TestRetrieveSearchErrorWrapped(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{0.1}}
	searcher := &stubSearcher{err: errors.New("index unavailable")}
	svc := NewRetrievalService(embedder, searcher, testRAGConfig())

	_, err := svc.Retrieve(context.Background(), "加班费", 0, 0, "hr")
	assert.ErrorIs(t, err, ErrRetrieval)
}

func TestBuildContextFormat(t *testing.T) {
	svc := NewRetrievalService(&stubEmbedder{}, &stubSearcher{}, testRAGConfig())

	chunks := []model.RetrievedChunk{
		{Title: "员工手册", Content: "年假规定……", Similarity: 0.873},
		{Title: "考勤制度", Content: "打卡要求……", Similarity: 0.651},
	}
	got := svc.BuildContext(chunks)

	assert.Equal(t, "[1] (员工手册 · 87.3%) 年假规定……\n\n[2] (考勤制度 · 65.1%) 打卡要求……", got)
}

func TestBuildContextEmpty(t *testing.T) {
	svc := NewRetrievalService(&stubEmbedder{}, &stubSearcher{}, testRAGConfig())
	assert.Equal(t, "", svc.BuildContext(nil))
	assert.Equal(t, "", svc.BuildContext([]model.RetrievedChunk{}))
}
