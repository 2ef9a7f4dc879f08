// Package service contains the business logic sitting between the HTTP layer
// and the two stores. Writes go to the record store first and are then
// projected into the index; listings and searches are answered by the index
// query layer.
package service

import (
	"context"

	"discourse/internal/index"
	"discourse/internal/models"
	"discourse/internal/repository"
)

type UserService struct {
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	discussions *DiscussionService
	comments    *CommentService
	likes       *LikeService
	projector   *index.Projector
	queries     *index.Queries
}

type RegisterUserInput struct {
	Name         string
	Mobile       string
	Email        string
	PasswordHash string
}

type UpdateUserInput struct {
	ActorID uint
	UserID  uint
	Name    *string
	Mobile  *string
	Email   *string
}

func NewUserService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	discussions *DiscussionService,
	comments *CommentService,
	likes *LikeService,
	projector *index.Projector,
	queries *index.Queries,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		followRepo:  followRepo,
		discussions: discussions,
		comments:    comments,
		likes:       likes,
		projector:   projector,
		queries:     queries,
	}
}

func (s *UserService) Register(ctx context.Context, in RegisterUserInput) (*models.User, error) {
	if in.Name == "" || in.Mobile == "" || in.Email == "" || in.PasswordHash == "" {
		return nil, models.NewValidationError("Name, mobile, email and password are required")
	}

	user := &models.User{
		Name:     in.Name,
		Mobile:   in.Mobile,
		Email:    in.Email,
		Password: in.PasswordHash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.projector.ProjectUser(ctx, user)
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userRepo.GetByEmail(ctx, email)
}

func (s *UserService) UpdateUser(ctx context.Context, in UpdateUserInput) (*models.User, error) {
	if in.ActorID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own profile")
	}

	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, models.NewValidationError("Name cannot be empty")
		}
		user.Name = *in.Name
	}
	if in.Mobile != nil {
		if *in.Mobile == "" {
			return nil, models.NewValidationError("Mobile cannot be empty")
		}
		user.Mobile = *in.Mobile
	}
	if in.Email != nil {
		if *in.Email == "" {
			return nil, models.NewValidationError("Email cannot be empty")
		}
		user.Email = *in.Email
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.projector.ProjectUser(ctx, user)
	return user, nil
}

// DeleteUser removes the account and everything it produced: the user's
// discussions (with their comments and likes), their remaining comments and
// likes on other content, and every follow edge touching them. Both stores are
// cleaned up before the user row itself so the index never lists content that
// cannot be joined back to a user.
func (s *UserService) DeleteUser(ctx context.Context, actorID, userID uint) error {
	if actorID != userID {
		return models.NewUnauthorizedError("You can only delete your own account")
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}

	// Discussions first: their cascade also removes the user's comments and
	// likes on their own threads, leaving the later passes only the rows
	// pointing at other people's content.
	if err := s.discussions.DeleteAllByUser(ctx, userID); err != nil {
		return err
	}
	if err := s.comments.DeleteAllByUser(ctx, userID); err != nil {
		return err
	}
	if err := s.likes.DeleteAllByUser(ctx, userID); err != nil {
		return err
	}

	follows, err := s.followRepo.ListInvolving(ctx, userID)
	if err != nil {
		return err
	}
	for _, f := range follows {
		if err := s.followRepo.Delete(ctx, f.FollowerID, f.FolloweeID); err != nil {
			return err
		}
		s.projector.DeprojectFollow(ctx, f.FollowerID, f.FolloweeID)
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	s.projector.DeprojectUser(ctx, userID)
	return nil
}

func (s *UserService) ListUsers(ctx context.Context, pr index.PageRequest) (*index.Page[index.UserDoc], error) {
	return s.queries.Users(ctx, pr)
}

func (s *UserService) SearchUsers(ctx context.Context, name string, pr index.PageRequest) (*index.Page[index.UserDoc], error) {
	if name == "" {
		return nil, models.NewValidationError("Search term is required")
	}
	return s.queries.SearchUsersByName(ctx, name, pr)
}
