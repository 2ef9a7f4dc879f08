package repository

import (
	"context"
	"errors"

	"discourse/internal/models"

	"gorm.io/gorm"
)

// LikeRepository defines the interface for like data operations.
type LikeRepository interface {
	Create(ctx context.Context, like *models.Like) error
	GetByID(ctx context.Context, id uint) (*models.Like, error)
	Delete(ctx context.Context, id uint) error
	ListByTarget(ctx context.Context, targetID uint) ([]models.Like, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Like, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new like repository.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Create(ctx context.Context, like *models.Like) error {
	if err := r.db.WithContext(ctx).Create(like).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("You have already liked this")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *likeRepository) GetByID(ctx context.Context, id uint) (*models.Like, error) {
	var like models.Like
	if err := r.db.WithContext(ctx).First(&like, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Like", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &like, nil
}

func (r *likeRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Like{}, id)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Like", id)
	}
	return nil
}

// ListByTarget returns every like on a target. Used by the cleanup cascade
// when the liked entity is deleted.
func (r *likeRepository) ListByTarget(ctx context.Context, targetID uint) ([]models.Like, error) {
	var likes []models.Like
	if err := r.db.WithContext(ctx).Where("target_entity_id = ?", targetID).Find(&likes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return likes, nil
}

// ListByUser returns every like placed by userID. Used by the account-deletion
// cascade; the "my likes" listing is served from the index.
func (r *likeRepository) ListByUser(ctx context.Context, userID uint) ([]models.Like, error) {
	var likes []models.Like
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&likes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return likes, nil
}
