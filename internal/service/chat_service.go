package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"hr-smart-go/internal/config"
	"hr-smart-go/internal/model"
	"hr-smart-go/internal/repository"
	"hr-smart-go/pkg/llm"
	"hr-smart-go/pkg/log"
	"hr-smart-go/pkg/token"
)

// ChatService 定义了问答操作的接口。
type ChatService interface {
	StreamResponse(ctx context.Context, query string, claims *token.CustomClaims, ws *websocket.Conn, shouldStop func() bool) error
}

type chatService struct {
	retrieval        RetrievalService
	llmClient        llm.Client
	conversationRepo repository.ConversationRepository
	activityRepo     repository.ActivityRepository
	llmCfg           config.LLMConfig
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(
	retrieval RetrievalService,
	llmClient llm.Client,
	conversationRepo repository.ConversationRepository,
	activityRepo repository.ActivityRepository,
	llmCfg config.LLMConfig,
) ChatService {
	return &chatService{
		retrieval:        retrieval,
		llmClient:        llmClient,
		conversationRepo: conversationRepo,
		activityRepo:     activityRepo,
		llmCfg:           llmCfg,
	}
}

// StreamResponse 执行完整的 RAG 问答流程并把大模型响应流式写回 websocket。
// 检索范围限定在用户所属组织内已发布且启用的文档。
func (s *chatService) StreamResponse(ctx context.Context, query string, claims *token.CustomClaims, ws *websocket.Conn, shouldStop func() bool) error {
	// 1. 检索相关分块（阈值和数量走配置默认值）
	chunks, err := s.retrieval.Retrieve(ctx, query, 0, 0, claims.OrgID)
	if err != nil {
		return fmt.Errorf("failed to retrieve context: %w", err)
	}

	// 2. 构建上下文、system 消息与历史
	contextText := s.retrieval.BuildContext(chunks)
	systemMsg := s.buildSystemMessage(contextText)
	history, err := s.loadHistory(ctx, claims.UserID)
	if err != nil {
		log.Errorf("[ChatService] 加载对话历史失败: %v", err)
		history = []model.ChatMessage{}
	}
	messages := s.composeMessages(systemMsg, history, query)

	// 拦截 websocket writer 以捕获完整答案，并包装为 JSON 分块
	answerBuilder := &strings.Builder{}
	interceptor := &wsWriterInterceptor{conn: ws, writer: answerBuilder, shouldStop: shouldStop}

	// 3. 流式调用 LLM
	if err := s.llmClient.StreamChatMessages(ctx, messages, s.buildGenerationParams(), interceptor); err != nil {
		return err
	}

	// 4. 发送完成通知，并持久化这一轮对话
	sendCompletion(ws)
	fullAnswer := answerBuilder.String()
	if len(fullAnswer) > 0 {
		// 使用后台上下文：原始请求被取消也要保存已生成的答案
		if err := s.saveTurn(context.Background(), claims, query, fullAnswer); err != nil {
			log.Errorf("[ChatService] 保存对话失败: %v", err)
		}
	}
	return nil
}

// buildSystemMessage 把检索上下文包进提示词的引用区。
func (s *chatService) buildSystemMessage(contextText string) string {
	rules := s.llmCfg.Prompt.Rules
	refStart := s.llmCfg.Prompt.RefStart
	if refStart == "" {
		refStart = "<<REF>>"
	}
	refEnd := s.llmCfg.Prompt.RefEnd
	if refEnd == "" {
		refEnd = "<<END>>"
	}

	var sys strings.Builder
	if rules != "" {
		sys.WriteString(rules)
		sys.WriteString("\n\n")
	}
	sys.WriteString(refStart)
	sys.WriteString("\n")
	if contextText != "" {
		sys.WriteString(contextText)
	} else {
		noRes := s.llmCfg.Prompt.NoResultText
		if noRes == "" {
			noRes = "（本轮无检索结果）"
		}
		sys.WriteString(noRes)
	}
	sys.WriteString("\n")
	sys.WriteString(refEnd)
	return sys.String()
}

func (s *chatService) loadHistory(ctx context.Context, userID uint) ([]model.ChatMessage, error) {
	convID, err := s.conversationRepo.GetOrCreateConversationID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.conversationRepo.GetConversationHistory(ctx, convID)
}

func (s *chatService) composeMessages(systemMsg string, history []model.ChatMessage, userInput string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: systemMsg})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: userInput})
	return msgs
}

// saveTurn 把本轮问答同时写入 Redis 短期历史和 MySQL 持久记录。
func (s *chatService) saveTurn(ctx context.Context, claims *token.CustomClaims, question, answer string) error {
	conversationID, err := s.conversationRepo.GetOrCreateConversationID(ctx, claims.UserID)
	if err != nil {
		return fmt.Errorf("failed to get or create conversation ID: %w", err)
	}

	history, err := s.conversationRepo.GetConversationHistory(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to get conversation history: %w", err)
	}
	now := time.Now()
	history = append(history,
		model.ChatMessage{Role: "user", Content: question, Timestamp: now},
		model.ChatMessage{Role: "assistant", Content: answer, Timestamp: now},
	)
	if err := s.conversationRepo.UpdateConversationHistory(ctx, conversationID, history); err != nil {
		return err
	}

	turn := &model.Conversation{
		UserID:   claims.UserID,
		OrgID:    claims.OrgID,
		Question: question,
		Answer:   answer,
	}
	if err := s.conversationRepo.SaveTurn(turn); err != nil {
		return err
	}

	entry := &model.ActivityLog{
		OrgID:  claims.OrgID,
		UserID: claims.UserID,
		Action: model.ActivityChat,
		Detail: question,
	}
	if err := s.activityRepo.Create(entry); err != nil {
		log.Warnf("[ChatService] 写入操作日志失败: %v", err)
	}
	return nil
}

func (s *chatService) buildGenerationParams() *llm.GenerationParams {
	var gp llm.GenerationParams
	if s.llmCfg.Generation.Temperature != 0 {
		t := s.llmCfg.Generation.Temperature
		gp.Temperature = &t
	}
	if s.llmCfg.Generation.TopP != 0 {
		p := s.llmCfg.Generation.TopP
		gp.TopP = &p
	}
	if s.llmCfg.Generation.MaxTokens != 0 {
		m := s.llmCfg.Generation.MaxTokens
		gp.MaxTokens = &m
	}
	if gp.Temperature == nil && gp.TopP == nil && gp.MaxTokens == nil {
		return nil
	}
	return &gp
}

// wsWriterInterceptor 是对 websocket.Conn 的封装，用于捕获写入的消息。
type wsWriterInterceptor struct {
	conn       *websocket.Conn
	writer     *strings.Builder
	shouldStop func() bool
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		// 停止标志生效：跳过下发
		return nil
	}
	w.writer.Write(data)
	// 将原始分块包装成 {"chunk":"..."}
	payload := map[string]string{"chunk": string(data)}
	b, _ := json.Marshal(payload)
	return w.conn.WriteMessage(messageType, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(ws *websocket.Conn) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"message":   "响应已完成",
		"timestamp": time.Now().UnixMilli(),
	}
	b, _ := json.Marshal(notif)
	_ = ws.WriteMessage(websocket.TextMessage, b)
}
