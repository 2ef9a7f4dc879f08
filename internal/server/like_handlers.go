package server

import (
	"discourse/internal/models"
	"discourse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateLike handles POST /api/likes.
func (s *Server) CreateLike(c *fiber.Ctx) error {
	var req struct {
		EntityType string `json:"entity_type"`
		EntityID   uint   `json:"entity_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	like, err := s.likeService.CreateLike(c.UserContext(), service.CreateLikeInput{
		UserID:     currentUserID(c),
		EntityType: models.EntityType(req.EntityType),
		EntityID:   req.EntityID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(like)
}

// DeleteLike handles DELETE /api/likes/:id.
func (s *Server) DeleteLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.likeService.DeleteLike(c.UserContext(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Like removed"})
}

// GetMyLikes handles GET /api/likes/me.
func (s *Server) GetMyLikes(c *fiber.Ctx) error {
	page, err := s.likeService.ListByUser(c.UserContext(), currentUserID(c), parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}
