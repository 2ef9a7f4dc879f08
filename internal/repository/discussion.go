package repository

import (
	"context"
	"errors"

	"discourse/internal/models"

	"gorm.io/gorm"
)

// DiscussionRepository defines the interface for discussion data operations.
type DiscussionRepository interface {
	Create(ctx context.Context, discussion *models.Discussion) error
	GetByID(ctx context.Context, id uint) (*models.Discussion, error)
	Update(ctx context.Context, discussion *models.Discussion) error
	Delete(ctx context.Context, id uint) error
	ListByUser(ctx context.Context, userID uint) ([]models.Discussion, error)
}

type discussionRepository struct {
	db *gorm.DB
}

// NewDiscussionRepository creates a new discussion repository.
func NewDiscussionRepository(db *gorm.DB) DiscussionRepository {
	return &discussionRepository{db: db}
}

func (r *discussionRepository) Create(ctx context.Context, discussion *models.Discussion) error {
	if err := r.db.WithContext(ctx).Create(discussion).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *discussionRepository) GetByID(ctx context.Context, id uint) (*models.Discussion, error) {
	var discussion models.Discussion
	if err := r.db.WithContext(ctx).First(&discussion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Discussion", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &discussion, nil
}

func (r *discussionRepository) Update(ctx context.Context, discussion *models.Discussion) error {
	if err := r.db.WithContext(ctx).Save(discussion).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *discussionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Discussion{}, id)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Discussion", id)
	}
	return nil
}

// ListByUser returns every discussion authored by userID. Used by the
// account-deletion cascade, not by listings, which are served from the index.
func (r *discussionRepository) ListByUser(ctx context.Context, userID uint) ([]models.Discussion, error) {
	var discussions []models.Discussion
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&discussions).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return discussions, nil
}
