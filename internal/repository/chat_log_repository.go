package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"hrdoc-assistant/internal/model"
)

const maxChatLogPage = 100

type ChatLogRepository struct {
	db *gorm.DB
}

func NewChatLogRepository(db *gorm.DB) *ChatLogRepository {
	return &ChatLogRepository{db: db}
}

func (r *ChatLogRepository) Create(ctx context.Context, entry *model.ChatLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("%w: create chat log failed: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// ListRecent returns at most limit entries, newest first.
func (r *ChatLogRepository) ListRecent(ctx context.Context, limit int) ([]model.ChatLog, error) {
	if limit <= 0 || limit > maxChatLogPage {
		limit = maxChatLogPage
	}

	var logs []model.ChatLog
	if err := r.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("%w: list chat logs failed: %w", ErrStoreUnavailable, err)
	}
	return logs, nil
}
