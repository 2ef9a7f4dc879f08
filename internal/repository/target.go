package repository

import (
	"context"
	"errors"

	"discourse/internal/models"

	"gorm.io/gorm"
)

const resolveRetries = 3

// TargetRepository manages the deduplicated target-entity table that likes
// point at. Resolve hands out the single row for an (entity_type, entity_id)
// pair, creating it on first use; Release garbage-collects the row once the
// last like referencing it is gone.
type TargetRepository interface {
	Resolve(ctx context.Context, entityType models.EntityType, entityID uint) (*models.TargetEntity, error)
	Lookup(ctx context.Context, entityType models.EntityType, entityID uint) (*models.TargetEntity, error)
	GetByID(ctx context.Context, id uint) (*models.TargetEntity, error)
	Release(ctx context.Context, id uint) error
}

type targetRepository struct {
	db *gorm.DB
}

// NewTargetRepository creates a new target-entity repository.
func NewTargetRepository(db *gorm.DB) TargetRepository {
	return &targetRepository{db: db}
}

// Resolve returns the row for the pair, creating it when absent. Concurrent
// first-likes race on the insert; the loser hits the unique index and
// re-fetches the winner's row instead of inserting a duplicate.
func (r *targetRepository) Resolve(ctx context.Context, entityType models.EntityType, entityID uint) (*models.TargetEntity, error) {
	for attempt := 0; attempt < resolveRetries; attempt++ {
		target, err := r.Lookup(ctx, entityType, entityID)
		if err != nil {
			return nil, err
		}
		if target != nil {
			return target, nil
		}

		created := models.TargetEntity{EntityType: entityType, EntityID: entityID}
		err = r.db.WithContext(ctx).Create(&created).Error
		if err == nil {
			return &created, nil
		}
		if !isUniqueViolation(err) {
			return nil, models.NewInternalError(err)
		}
		// Lost the race; loop re-fetches the winner.
	}
	return nil, models.NewInternalError(errors.New("target resolution retries exhausted"))
}

// Lookup fetches the row for the pair without creating it. Returns (nil, nil)
// when no like has ever targeted the entity.
func (r *targetRepository) Lookup(ctx context.Context, entityType models.EntityType, entityID uint) (*models.TargetEntity, error) {
	var target models.TargetEntity
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &target, nil
}

func (r *targetRepository) GetByID(ctx context.Context, id uint) (*models.TargetEntity, error) {
	var target models.TargetEntity
	if err := r.db.WithContext(ctx).First(&target, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Target entity", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &target, nil
}

// Release deletes the target row if no like references it anymore. The count
// and delete run in one transaction so a like created in between keeps the
// row alive.
func (r *targetRepository) Release(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Like{}).Where("target_entity_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Delete(&models.TargetEntity{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
