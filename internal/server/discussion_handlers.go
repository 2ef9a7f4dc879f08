package server

import (
	"discourse/internal/models"
	"discourse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateDiscussion handles POST /api/discussions.
func (s *Server) CreateDiscussion(c *fiber.Ctx) error {
	var req struct {
		Text     string `json:"text"`
		Image    string `json:"image"`
		Hashtags string `json:"hashtags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	discussion, err := s.discussionService.CreateDiscussion(c.UserContext(), service.CreateDiscussionInput{
		UserID:   currentUserID(c),
		Text:     req.Text,
		Image:    req.Image,
		Hashtags: req.Hashtags,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(discussion)
}

// GetDiscussion handles GET /api/discussions/:id.
func (s *Server) GetDiscussion(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	discussion, err := s.discussionService.GetDiscussion(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(discussion)
}

// UpdateDiscussion handles PUT /api/discussions/:id.
func (s *Server) UpdateDiscussion(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Text     *string `json:"text"`
		Image    *string `json:"image"`
		Hashtags *string `json:"hashtags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	discussion, err := s.discussionService.UpdateDiscussion(c.UserContext(), service.UpdateDiscussionInput{
		ActorID:      currentUserID(c),
		DiscussionID: id,
		Text:         req.Text,
		Image:        req.Image,
		Hashtags:     req.Hashtags,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(discussion)
}

// DeleteDiscussion handles DELETE /api/discussions/:id.
func (s *Server) DeleteDiscussion(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.discussionService.DeleteDiscussion(c.UserContext(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Discussion deleted"})
}

// GetDiscussions handles GET /api/discussions.
func (s *Server) GetDiscussions(c *fiber.Ctx) error {
	page, err := s.discussionService.ListDiscussions(c.UserContext(), parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// GetMyDiscussions handles GET /api/discussions/me.
func (s *Server) GetMyDiscussions(c *fiber.Ctx) error {
	page, err := s.discussionService.ListByUser(c.UserContext(), currentUserID(c), parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// SearchDiscussions handles GET /api/discussions/search?text= or ?tag=.
func (s *Server) SearchDiscussions(c *fiber.Ctx) error {
	if tag := c.Query("tag"); tag != "" {
		page, err := s.discussionService.SearchByTag(c.UserContext(), tag, parsePage(c))
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(page)
	}

	text := c.Query("text")
	if text == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Either 'text' or 'tag' query parameter is required"))
	}
	page, err := s.discussionService.SearchByText(c.UserContext(), text, parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// SearchByHashtag handles GET /api/search?query=.
func (s *Server) SearchByHashtag(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Query parameter is required"))
	}
	page, err := s.discussionService.SearchByTag(c.UserContext(), query, parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}
