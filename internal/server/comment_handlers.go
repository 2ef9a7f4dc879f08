package server

import (
	"discourse/internal/models"
	"discourse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/discussions/:id/comments.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	discussionID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:       currentUserID(c),
		DiscussionID: discussionID,
		Text:         req.Text,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetDiscussionComments handles GET /api/discussions/:id/comments.
func (s *Server) GetDiscussionComments(c *fiber.Ctx) error {
	discussionID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page, err := s.commentService.ListByDiscussion(c.UserContext(), discussionID, parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// UpdateComment handles PUT /api/comments/:id.
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		ActorID:   currentUserID(c),
		CommentID: id,
		Text:      req.Text,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.commentService.DeleteComment(c.UserContext(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}

// GetMyComments handles GET /api/comments/me.
func (s *Server) GetMyComments(c *fiber.Ctx) error {
	page, err := s.commentService.ListByUser(c.UserContext(), currentUserID(c), parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}
