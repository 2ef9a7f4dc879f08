package service

import (
	"context"
	"log/slog"

	"discourse/internal/index"
	"discourse/internal/middleware"
	"discourse/internal/models"
	"discourse/internal/repository"
)

type LikeService struct {
	likeRepo       repository.LikeRepository
	targetRepo     repository.TargetRepository
	discussionRepo repository.DiscussionRepository
	commentRepo    repository.CommentRepository
	projector      *index.Projector
	queries        *index.Queries
	log            *slog.Logger
}

type CreateLikeInput struct {
	UserID     uint
	EntityType models.EntityType
	EntityID   uint
}

func NewLikeService(
	likeRepo repository.LikeRepository,
	targetRepo repository.TargetRepository,
	discussionRepo repository.DiscussionRepository,
	commentRepo repository.CommentRepository,
	projector *index.Projector,
	queries *index.Queries,
) *LikeService {
	return &LikeService{
		likeRepo:       likeRepo,
		targetRepo:     targetRepo,
		discussionRepo: discussionRepo,
		commentRepo:    commentRepo,
		projector:      projector,
		queries:        queries,
		log:            middleware.Logger,
	}
}

// CreateLike validates the target, resolves its deduplicated handle and
// writes the like. Liking the same target twice surfaces as a conflict from
// the unique index, not as a pre-check.
func (s *LikeService) CreateLike(ctx context.Context, in CreateLikeInput) (*models.Like, error) {
	if !in.EntityType.Valid() {
		return nil, models.NewValidationError("Entity type must be 'discussion' or 'comment'")
	}

	switch in.EntityType {
	case models.EntityTypeDiscussion:
		if _, err := s.discussionRepo.GetByID(ctx, in.EntityID); err != nil {
			return nil, err
		}
	case models.EntityTypeComment:
		if _, err := s.commentRepo.GetByID(ctx, in.EntityID); err != nil {
			return nil, err
		}
	}

	target, err := s.targetRepo.Resolve(ctx, in.EntityType, in.EntityID)
	if err != nil {
		return nil, err
	}

	like := &models.Like{
		TargetEntityID: target.ID,
		UserID:         in.UserID,
	}
	if err := s.likeRepo.Create(ctx, like); err != nil {
		// A freshly resolved target with no surviving like would leak, so
		// collect it on any failure other than a duplicate (where the
		// existing like keeps the row referenced anyway).
		if appErr, ok := err.(*models.AppError); !ok || appErr.Code != models.CodeConflict {
			s.releaseTarget(ctx, target.ID)
		}
		return nil, err
	}

	s.projector.ProjectLike(ctx, like, target)
	return like, nil
}

func (s *LikeService) GetLike(ctx context.Context, id uint) (*models.Like, error) {
	return s.likeRepo.GetByID(ctx, id)
}

// DeleteLike removes the like and garbage-collects the target row when this
// was the last like referencing it. The collection is best effort: once the
// like row is gone the delete has succeeded, and a failed Release only leaves
// an unreferenced target for a later Release to pick up.
func (s *LikeService) DeleteLike(ctx context.Context, actorID, likeID uint) error {
	like, err := s.likeRepo.GetByID(ctx, likeID)
	if err != nil {
		return err
	}
	if like.UserID != actorID {
		return models.NewUnauthorizedError("You can only remove your own likes")
	}

	if err := s.likeRepo.Delete(ctx, likeID); err != nil {
		return err
	}
	s.projector.DeprojectLike(ctx, likeID)
	s.releaseTarget(ctx, like.TargetEntityID)
	return nil
}

// RemoveForTarget deletes every like on the entity from both stores and
// collects the target row. Called by the cleanup cascades when the liked
// entity itself goes away.
func (s *LikeService) RemoveForTarget(ctx context.Context, entityType models.EntityType, entityID uint) error {
	target, err := s.targetRepo.Lookup(ctx, entityType, entityID)
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}

	likes, err := s.likeRepo.ListByTarget(ctx, target.ID)
	if err != nil {
		return err
	}
	for _, like := range likes {
		if err := s.likeRepo.Delete(ctx, like.ID); err != nil {
			return err
		}
		s.projector.DeprojectLike(ctx, like.ID)
	}

	s.releaseTarget(ctx, target.ID)
	return nil
}

// DeleteAllByUser removes every like placed by userID. Part of the
// account-deletion cascade.
func (s *LikeService) DeleteAllByUser(ctx context.Context, userID uint) error {
	likes, err := s.likeRepo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, like := range likes {
		if err := s.DeleteLike(ctx, userID, like.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *LikeService) ListByUser(ctx context.Context, userID uint, pr index.PageRequest) (*index.Page[index.LikeDoc], error) {
	return s.queries.LikesByUser(ctx, userID, pr)
}

func (s *LikeService) releaseTarget(ctx context.Context, targetID uint) {
	if err := s.targetRepo.Release(ctx, targetID); err != nil {
		s.log.ErrorContext(ctx, "target release failed",
			slog.Uint64("target_id", uint64(targetID)),
			slog.String("error", err.Error()),
		)
	}
}
