package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hrdoc-assistant/internal/model"
)

type DocumentRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db, now: time.Now}
}

// Put creates or fully replaces the document identified by name. The
// document comes back active with a fresh upload timestamp.
func (r *DocumentRepository) Put(ctx context.Context, name, content string) (*model.Document, error) {
	doc := &model.Document{
		Name:       name,
		Content:    content,
		UploadedAt: r.now(),
		Active:     true,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "uploaded_at", "active"}),
		}).
		Create(doc).Error
	if err != nil {
		return nil, fmt.Errorf("%w: put document failed: %w", ErrStoreUnavailable, err)
	}
	return doc, nil
}

// ListActive returns every active document. Order is whatever the store
// yields; callers must not depend on it.
func (r *DocumentRepository) ListActive(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.WithContext(ctx).Where("active = ?", true).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("%w: list active documents failed: %w", ErrStoreUnavailable, err)
	}
	return docs, nil
}

func (r *DocumentRepository) ListAll(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.WithContext(ctx).Order("uploaded_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("%w: list documents failed: %w", ErrStoreUnavailable, err)
	}
	return docs, nil
}

// SetActive flips the active flag. The row is looked up first because MySQL
// reports zero affected rows when the value does not change.
func (r *DocumentRepository) SetActive(ctx context.Context, name string, active bool) error {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("%w: get document failed: %w", ErrStoreUnavailable, err)
	}
	err := r.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("name = ?", name).
		Update("active", active).Error
	if err != nil {
		return fmt.Errorf("%w: update document failed: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Delete hard-removes the document. A missing name is reported, not ignored.
func (r *DocumentRepository) Delete(ctx context.Context, name string) error {
	result := r.db.WithContext(ctx).Where("name = ?", name).Delete(&model.Document{})
	if result.Error != nil {
		return fmt.Errorf("%w: delete document failed: %w", ErrStoreUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}
