// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hr-smart-go/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ConversationRepository 定义了对话历史记录的操作接口。
// 滚动上下文窗口保存在 Redis 中；完整的问答轮次落到 MySQL 供查询。
type ConversationRepository interface {
	GetOrCreateConversationID(ctx context.Context, userID uint) (string, error)
	GetConversationHistory(ctx context.Context, conversationID string) ([]model.ChatMessage, error)
	UpdateConversationHistory(ctx context.Context, conversationID string, messages []model.ChatMessage) error
	ResetConversation(ctx context.Context, userID uint) error

	SaveTurn(turn *model.Conversation) error
	FindTurnsByUserID(userID uint, limit int) ([]model.Conversation, error)
	FindAllTurns(offset, limit int) ([]model.Conversation, int64, error)
	CountTurns() (int64, error)
}

type conversationRepository struct {
	redisClient *redis.Client
	db          *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(redisClient *redis.Client, db *gorm.DB) ConversationRepository {
	return &conversationRepository{redisClient: redisClient, db: db}
}

// GetOrCreateConversationID 获取或创建一个新的对话ID。
func (r *conversationRepository) GetOrCreateConversationID(ctx context.Context, userID uint) (string, error) {
	userKey := fmt.Sprintf("user:%d:current_conversation", userID)
	convID, err := r.redisClient.Get(ctx, userKey).Result()
	if err == redis.Nil {
		convID = fmt.Sprintf("%d-%d", time.Now().UnixNano(), userID)
		if err := r.redisClient.Set(ctx, userKey, convID, 7*24*time.Hour).Err(); err != nil {
			return "", fmt.Errorf("failed to set conversation id: %w", err)
		}
		return convID, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get conversation id: %w", err)
	}
	return convID, nil
}

// GetConversationHistory 从 Redis 获取对话历史记录。
func (r *conversationRepository) GetConversationHistory(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	key := fmt.Sprintf("conversation:%s", conversationID)
	jsonData, err := r.redisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return []model.ChatMessage{}, nil // No history yet
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	var messages []model.ChatMessage
	err = json.Unmarshal([]byte(jsonData), &messages)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation history: %w", err)
	}
	return messages, nil
}

// UpdateConversationHistory 在 Redis 中更新对话历史记录。
func (r *conversationRepository) UpdateConversationHistory(ctx context.Context, conversationID string, messages []model.ChatMessage) error {
	key := fmt.Sprintf("conversation:%s", conversationID)
	// 保留最近 20 条
	if len(messages) > 20 {
		messages = messages[len(messages)-20:]
	}
	jsonData, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation history: %w", err)
	}
	err = r.redisClient.Set(ctx, key, jsonData, 7*24*time.Hour).Err()
	if err != nil {
		return fmt.Errorf("failed to set conversation history: %w", err)
	}
	return nil
}

// ResetConversation 结束当前对话，清空用户的上下文窗口。
// 下一次提问会分配新的对话 ID。
func (r *conversationRepository) ResetConversation(ctx context.Context, userID uint) error {
	userKey := fmt.Sprintf("user:%d:current_conversation", userID)
	convID, err := r.redisClient.Get(ctx, userKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get conversation id: %w", err)
	}
	if err := r.redisClient.Del(ctx, fmt.Sprintf("conversation:%s", convID)).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation history: %w", err)
	}
	return r.redisClient.Del(ctx, userKey).Err()
}

// SaveTurn 将一轮问答写入数据库。
func (r *conversationRepository) SaveTurn(turn *model.Conversation) error {
	return r.db.Create(turn).Error
}

// FindTurnsByUserID 查询某个用户最近的问答轮次。
func (r *conversationRepository) FindTurnsByUserID(userID uint, limit int) ([]model.Conversation, error) {
	var turns []model.Conversation
	err := r.db.Where("user_id = ?", userID).Order("created_at desc").Limit(limit).Find(&turns).Error
	return turns, err
}

// FindAllTurns 分页查询全部问答轮次（管理端使用）。
func (r *conversationRepository) FindAllTurns(offset, limit int) ([]model.Conversation, int64, error) {
	var turns []model.Conversation
	var total int64
	if err := r.db.Model(&model.Conversation{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.Order("created_at desc").Offset(offset).Limit(limit).Find(&turns).Error
	return turns, total, err
}

// CountTurns 返回问答轮次总数。
func (r *conversationRepository) CountTurns() (int64, error) {
	var total int64
	err := r.db.Model(&model.Conversation{}).Count(&total).Error
	return total, err
}
