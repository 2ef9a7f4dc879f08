package service

import (
	"context"

	"discourse/internal/index"
	"discourse/internal/models"
	"discourse/internal/repository"
)

type DiscussionService struct {
	discussionRepo repository.DiscussionRepository
	commentRepo    repository.CommentRepository
	likes          *LikeService
	projector      *index.Projector
	queries        *index.Queries
}

type CreateDiscussionInput struct {
	UserID   uint
	Text     string
	Image    string
	Hashtags string
}

type UpdateDiscussionInput struct {
	ActorID      uint
	DiscussionID uint
	Text         *string
	Image        *string
	Hashtags     *string
}

func NewDiscussionService(
	discussionRepo repository.DiscussionRepository,
	commentRepo repository.CommentRepository,
	likes *LikeService,
	projector *index.Projector,
	queries *index.Queries,
) *DiscussionService {
	return &DiscussionService{
		discussionRepo: discussionRepo,
		commentRepo:    commentRepo,
		likes:          likes,
		projector:      projector,
		queries:        queries,
	}
}

func (s *DiscussionService) CreateDiscussion(ctx context.Context, in CreateDiscussionInput) (*models.Discussion, error) {
	if in.Text == "" {
		return nil, models.NewValidationError("Text is required")
	}

	discussion := &models.Discussion{
		Text:     in.Text,
		Image:    in.Image,
		Hashtags: in.Hashtags,
		UserID:   in.UserID,
	}
	if err := s.discussionRepo.Create(ctx, discussion); err != nil {
		return nil, err
	}

	s.projector.ProjectDiscussion(ctx, discussion)
	return discussion, nil
}

func (s *DiscussionService) GetDiscussion(ctx context.Context, id uint) (*models.Discussion, error) {
	return s.discussionRepo.GetByID(ctx, id)
}

func (s *DiscussionService) UpdateDiscussion(ctx context.Context, in UpdateDiscussionInput) (*models.Discussion, error) {
	discussion, err := s.discussionRepo.GetByID(ctx, in.DiscussionID)
	if err != nil {
		return nil, err
	}
	if discussion.UserID != in.ActorID {
		return nil, models.NewUnauthorizedError("You can only update your own discussions")
	}

	if in.Text != nil {
		if *in.Text == "" {
			return nil, models.NewValidationError("Text cannot be empty")
		}
		discussion.Text = *in.Text
	}
	if in.Image != nil {
		discussion.Image = *in.Image
	}
	if in.Hashtags != nil {
		discussion.Hashtags = *in.Hashtags
	}

	if err := s.discussionRepo.Update(ctx, discussion); err != nil {
		return nil, err
	}

	s.projector.ProjectDiscussion(ctx, discussion)
	return discussion, nil
}

// DeleteDiscussion removes the discussion together with its comments and the
// likes on any of them, from both stores, so nothing keeps pointing at a
// discussion that no longer exists.
func (s *DiscussionService) DeleteDiscussion(ctx context.Context, actorID, discussionID uint) error {
	discussion, err := s.discussionRepo.GetByID(ctx, discussionID)
	if err != nil {
		return err
	}
	if discussion.UserID != actorID {
		return models.NewUnauthorizedError("You can only delete your own discussions")
	}

	comments, err := s.commentRepo.ListByDiscussion(ctx, discussionID)
	if err != nil {
		return err
	}
	for _, comment := range comments {
		if err := s.likes.RemoveForTarget(ctx, models.EntityTypeComment, comment.ID); err != nil {
			return err
		}
		if err := s.commentRepo.Delete(ctx, comment.ID); err != nil {
			return err
		}
		s.projector.DeprojectComment(ctx, comment.ID)
	}
	if err := s.likes.RemoveForTarget(ctx, models.EntityTypeDiscussion, discussionID); err != nil {
		return err
	}

	if err := s.discussionRepo.Delete(ctx, discussionID); err != nil {
		return err
	}
	s.projector.DeprojectDiscussion(ctx, discussionID)
	return nil
}

// DeleteAllByUser removes every discussion authored by userID, each with its
// full comment and like cleanup. Part of the account-deletion cascade.
func (s *DiscussionService) DeleteAllByUser(ctx context.Context, userID uint) error {
	discussions, err := s.discussionRepo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, discussion := range discussions {
		if err := s.DeleteDiscussion(ctx, userID, discussion.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *DiscussionService) ListDiscussions(ctx context.Context, pr index.PageRequest) (*index.Page[index.DiscussionDoc], error) {
	return s.queries.Discussions(ctx, pr)
}

func (s *DiscussionService) ListByUser(ctx context.Context, userID uint, pr index.PageRequest) (*index.Page[index.DiscussionDoc], error) {
	return s.queries.DiscussionsByUser(ctx, userID, pr)
}

func (s *DiscussionService) SearchByText(ctx context.Context, text string, pr index.PageRequest) (*index.Page[index.DiscussionDoc], error) {
	if text == "" {
		return nil, models.NewValidationError("Search term is required")
	}
	return s.queries.SearchDiscussionsByText(ctx, text, pr)
}

func (s *DiscussionService) SearchByTag(ctx context.Context, tag string, pr index.PageRequest) (*index.Page[index.DiscussionDoc], error) {
	if tag == "" {
		return nil, models.NewValidationError("Hashtag is required")
	}
	return s.queries.SearchDiscussionsByTag(ctx, tag, pr)
}
