package service

import (
	"context"

	"hr-smart-go/internal/model"
	"hr-smart-go/internal/repository"
)

// ConversationService 提供用户侧的对话历史操作。
type ConversationService interface {
	// GetCurrentHistory 返回当前对话窗口内的消息。
	GetCurrentHistory(ctx context.Context, userID uint) ([]model.ChatMessage, error)
	// GetRecentTurns 返回用户最近的问答记录。
	GetRecentTurns(userID uint, limit int) ([]model.Conversation, error)
	// StartNewConversation 结束当前对话，后续提问不再携带旧上下文。
	StartNewConversation(ctx context.Context, userID uint) error
}

type conversationService struct {
	conversationRepo repository.ConversationRepository
}

// NewConversationService 创建一个新的 ConversationService 实例。
func NewConversationService(conversationRepo repository.ConversationRepository) ConversationService {
	return &conversationService{conversationRepo: conversationRepo}
}

func (s *conversationService) GetCurrentHistory(ctx context.Context, userID uint) ([]model.ChatMessage, error) {
	convID, err := s.conversationRepo.GetOrCreateConversationID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.conversationRepo.GetConversationHistory(ctx, convID)
}

func (s *conversationService) GetRecentTurns(userID uint, limit int) ([]model.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.conversationRepo.FindTurnsByUserID(userID, limit)
}

func (s *conversationService) StartNewConversation(ctx context.Context, userID uint) error {
	return s.conversationRepo.ResetConversation(ctx, userID)
}
