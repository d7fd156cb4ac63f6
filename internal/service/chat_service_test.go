package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-smart-go/internal/config"
	"hr-smart-go/internal/model"
)

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		Prompt: config.LLMPromptConfig{
			Rules:        "只依据引用区回答。",
			RefStart:     "<<REF>>",
			RefEnd:       "<<END>>",
			NoResultText: "（本轮无检索结果）",
		},
	}
}

func newPromptTestService(llmCfg config.LLMConfig) *chatService {
	return &chatService{llmCfg: llmCfg}
}

func TestBuildSystemMessageWithContext(t *testing.T) {
	s := newPromptTestService(testLLMConfig())
	got := s.buildSystemMessage("[1] (员工手册 · 87.3%) 年假规定……")

	assert.Equal(t, "只依据引用区回答。\n\n<<REF>>\n[1] (员工手册 · 87.3%) 年假规定……\n<<END>>", got)
}

func TestBuildSystemMessageNoContext(t *testing.T) {
	s := newPromptTestService(testLLMConfig())
	got := s.buildSystemMessage("")

	assert.Contains(t, got, "（本轮无检索结果）")
	assert.Contains(t, got, "<<REF>>")
	assert.Contains(t, got, "<<END>>")
}

func TestBuildSystemMessageDefaultMarkers(t *testing.T) {
	// 配置缺失时使用内置的包裹符和降级话术
	s := newPromptTestService(config.LLMConfig{})
	got := s.buildSystemMessage("")

	assert.Contains(t, got, "<<REF>>")
	assert.Contains(t, got, "<<END>>")
	assert.Contains(t, got, "（本轮无检索结果）")
}

func TestComposeMessagesOrder(t *testing.T) {
	s := newPromptTestService(testLLMConfig())
	history := []model.ChatMessage{
		{Role: "user", Content: "上一个问题"},
		{Role: "assistant", Content: "上一个回答"},
	}

	msgs := s.composeMessages("system prompt", history, "新问题")
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "system prompt", msgs[0].Content)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "user", msgs[3].Role)
	assert.Equal(t, "新问题", msgs[3].Content)
}

func TestBuildGenerationParams(t *testing.T) {
	cfg := testLLMConfig()
	cfg.Generation = config.LLMGenerationConfig{Temperature: 0.3, MaxTokens: 2048}
	s := newPromptTestService(cfg)

	gp := s.buildGenerationParams()
	require.NotNil(t, gp)
	require.NotNil(t, gp.Temperature)
	assert.Equal(t, 0.3, *gp.Temperature)
	require.NotNil(t, gp.MaxTokens)
	assert.Equal(t, 2048, *gp.MaxTokens)
	assert.Nil(t, gp.TopP)
}

func TestBuildGenerationParamsEmpty(t *testing.T) {
	s := newPromptTestService(testLLMConfig())
	assert.Nil(t, s.buildGenerationParams())
}
