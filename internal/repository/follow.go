package repository

import (
	"context"
	"errors"
	"fmt"

	"discourse/internal/models"

	"gorm.io/gorm"
)

// FollowRepository defines the interface for follow-edge data operations.
type FollowRepository interface {
	Create(ctx context.Context, follow *models.Follow) error
	Get(ctx context.Context, followerID, followeeID uint) (*models.Follow, error)
	Delete(ctx context.Context, followerID, followeeID uint) error
	ListInvolving(ctx context.Context, userID uint) ([]models.Follow, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(ctx context.Context, follow *models.Follow) error {
	if err := r.db.WithContext(ctx).Create(follow).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("Already following this user")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *followRepository) Get(ctx context.Context, followerID, followeeID uint) (*models.Follow, error) {
	var follow models.Follow
	err := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		First(&follow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Follow", fmt.Sprintf("%d_%d", followerID, followeeID))
		}
		return nil, models.NewInternalError(err)
	}
	return &follow, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followeeID uint) error {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewValidationError("Not following this user")
	}
	return nil
}

// ListInvolving returns every edge where userID is follower or followee.
// Used by the account-deletion cascade.
func (r *followRepository) ListInvolving(ctx context.Context, userID uint) ([]models.Follow, error) {
	var follows []models.Follow
	if err := r.db.WithContext(ctx).
		Where("follower_id = ? OR followee_id = ?", userID, userID).
		Find(&follows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return follows, nil
}
