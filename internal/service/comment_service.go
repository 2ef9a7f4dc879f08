package service

import (
	"context"

	"discourse/internal/index"
	"discourse/internal/models"
	"discourse/internal/repository"
)

type CommentService struct {
	commentRepo    repository.CommentRepository
	discussionRepo repository.DiscussionRepository
	likes          *LikeService
	projector      *index.Projector
	queries        *index.Queries
}

type CreateCommentInput struct {
	UserID       uint
	DiscussionID uint
	Text         string
}

type UpdateCommentInput struct {
	ActorID   uint
	CommentID uint
	Text      string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	discussionRepo repository.DiscussionRepository,
	likes *LikeService,
	projector *index.Projector,
	queries *index.Queries,
) *CommentService {
	return &CommentService{
		commentRepo:    commentRepo,
		discussionRepo: discussionRepo,
		likes:          likes,
		projector:      projector,
		queries:        queries,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if _, err := s.discussionRepo.GetByID(ctx, in.DiscussionID); err != nil {
		return nil, err
	}
	if in.Text == "" {
		return nil, models.NewValidationError("Text is required")
	}

	comment := &models.Comment{
		Text:         in.Text,
		DiscussionID: in.DiscussionID,
		UserID:       in.UserID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.projector.ProjectComment(ctx, comment)
	return comment, nil
}

func (s *CommentService) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	return s.commentRepo.GetByID(ctx, id)
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.ActorID {
		return nil, models.NewUnauthorizedError("You can only update your own comments")
	}
	if in.Text == "" {
		return nil, models.NewValidationError("Text is required")
	}

	comment.Text = in.Text
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}

	s.projector.ProjectComment(ctx, comment)
	return comment, nil
}

// DeleteComment removes the comment and any likes on it from both stores.
func (s *CommentService) DeleteComment(ctx context.Context, actorID, commentID uint) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != actorID {
		return models.NewUnauthorizedError("You can only delete your own comments")
	}

	if err := s.likes.RemoveForTarget(ctx, models.EntityTypeComment, commentID); err != nil {
		return err
	}
	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return err
	}
	s.projector.DeprojectComment(ctx, commentID)
	return nil
}

// DeleteAllByUser removes every comment authored by userID together with the
// likes on each. Part of the account-deletion cascade.
func (s *CommentService) DeleteAllByUser(ctx context.Context, userID uint) error {
	comments, err := s.commentRepo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, comment := range comments {
		if err := s.DeleteComment(ctx, userID, comment.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *CommentService) ListByDiscussion(ctx context.Context, discussionID uint, pr index.PageRequest) (*index.Page[index.CommentDoc], error) {
	if _, err := s.discussionRepo.GetByID(ctx, discussionID); err != nil {
		return nil, err
	}
	return s.queries.CommentsByDiscussion(ctx, discussionID, pr)
}

func (s *CommentService) ListByUser(ctx context.Context, userID uint, pr index.PageRequest) (*index.Page[index.CommentDoc], error) {
	return s.queries.CommentsByUser(ctx, userID, pr)
}
