package service

import (
	"context"
	"errors"

	"discourse/internal/index"
	"discourse/internal/models"
	"discourse/internal/repository"
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	projector  *index.Projector
	queries    *index.Queries
}

func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	projector *index.Projector,
	queries *index.Queries,
) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		projector:  projector,
		queries:    queries,
	}
}

// Follow creates the directed edge. Self-follows, duplicate edges and absent
// followees are all rejected as validation failures.
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID uint) (*models.Follow, error) {
	if followerID == followeeID {
		return nil, models.NewValidationError("You cannot follow yourself")
	}

	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return nil, models.NewValidationError("User to follow does not exist")
		}
		return nil, err
	}

	follow := &models.Follow{FollowerID: followerID, FolloweeID: followeeID}
	if err := s.followRepo.Create(ctx, follow); err != nil {
		return nil, err
	}

	s.projector.ProjectFollow(ctx, follow)
	return follow, nil
}

// Unfollow removes the edge; removing an edge that does not exist is a
// validation failure.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return models.NewValidationError("You cannot unfollow yourself")
	}

	if err := s.followRepo.Delete(ctx, followerID, followeeID); err != nil {
		return err
	}

	s.projector.DeprojectFollow(ctx, followerID, followeeID)
	return nil
}

func (s *FollowService) Followers(ctx context.Context, userID uint, pr index.PageRequest) (*index.Page[index.UserDoc], error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.queries.Followers(ctx, userID, pr)
}

func (s *FollowService) Following(ctx context.Context, userID uint, pr index.PageRequest) (*index.Page[index.UserDoc], error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.queries.Following(ctx, userID, pr)
}
