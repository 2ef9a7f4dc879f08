package repository

import (
	"context"
	"sync"
	"testing"

	"discourse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetRepository_ResolveDeduplicates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTargetRepository(db)
	ctx := context.Background()

	first, err := repo.Resolve(ctx, models.EntityTypeDiscussion, 42)
	require.NoError(t, err)

	second, err := repo.Resolve(ctx, models.EntityTypeDiscussion, 42)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Same id under a different kind is a distinct target.
	other, err := repo.Resolve(ctx, models.EntityTypeComment, 42)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	var count int64
	require.NoError(t, db.Model(&models.TargetEntity{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestTargetRepository_LookupDoesNotCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTargetRepository(db)
	ctx := context.Background()

	target, err := repo.Lookup(ctx, models.EntityTypeDiscussion, 42)
	require.NoError(t, err)
	assert.Nil(t, target)

	var count int64
	require.NoError(t, db.Model(&models.TargetEntity{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	resolved, err := repo.Resolve(ctx, models.EntityTypeDiscussion, 42)
	require.NoError(t, err)

	target, err = repo.Lookup(ctx, models.EntityTypeDiscussion, 42)
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.Equal(t, resolved.ID, target.ID)
}

func TestTargetRepository_ConcurrentResolve(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTargetRepository(db)

	const workers = 8
	ids := make([]uint, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target, err := repo.Resolve(context.Background(), models.EntityTypeComment, 7)
			if assert.NoError(t, err) {
				ids[i] = target.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Equal(t, ids[0], ids[i])
	}

	var count int64
	require.NoError(t, db.Model(&models.TargetEntity{}).
		Where("entity_type = ? AND entity_id = ?", models.EntityTypeComment, 7).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTargetRepository_Release(t *testing.T) {
	db := setupTestDB(t)
	targetRepo := NewTargetRepository(db)
	likeRepo := NewLikeRepository(db)
	ctx := context.Background()

	u1 := createTestUser(t, db)
	u2 := createTestUser(t, db)

	target, err := targetRepo.Resolve(ctx, models.EntityTypeDiscussion, 1)
	require.NoError(t, err)

	like1 := &models.Like{TargetEntityID: target.ID, UserID: u1.ID}
	like2 := &models.Like{TargetEntityID: target.ID, UserID: u2.ID}
	require.NoError(t, likeRepo.Create(ctx, like1))
	require.NoError(t, likeRepo.Create(ctx, like2))

	// A referenced target survives release.
	require.NoError(t, likeRepo.Delete(ctx, like1.ID))
	require.NoError(t, targetRepo.Release(ctx, target.ID))
	_, err = targetRepo.GetByID(ctx, target.ID)
	assert.NoError(t, err)

	// The last like going away garbage-collects it.
	require.NoError(t, likeRepo.Delete(ctx, like2.ID))
	require.NoError(t, targetRepo.Release(ctx, target.ID))
	_, err = targetRepo.GetByID(ctx, target.ID)
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}
