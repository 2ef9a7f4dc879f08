package server

import (
	"discourse/internal/models"
	"discourse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetUsers handles GET /api/users.
func (s *Server) GetUsers(c *fiber.Ctx) error {
	page, err := s.userService.ListUsers(c.UserContext(), parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// SearchUsers handles GET /api/users/search?name=.
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	name := c.Query("name")
	page, err := s.userService.SearchUsers(c.UserContext(), name, parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// GetUserProfile handles GET /api/users/:id.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Name   *string `json:"name"`
		Mobile *string `json:"mobile"`
		Email  *string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	userID := currentUserID(c)
	user, err := s.userService.UpdateUser(c.UserContext(), service.UpdateUserInput{
		ActorID: userID,
		UserID:  userID,
		Name:    req.Name,
		Mobile:  req.Mobile,
		Email:   req.Email,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// DeleteMyAccount handles DELETE /api/users/me.
func (s *Server) DeleteMyAccount(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if err := s.userService.DeleteUser(c.UserContext(), userID, userID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account deleted"})
}

// FollowUser handles POST /api/users/:id/follow.
func (s *Server) FollowUser(c *fiber.Ctx) error {
	followeeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	follow, err := s.followService.Follow(c.UserContext(), currentUserID(c), followeeID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(follow)
}

// UnfollowUser handles DELETE /api/users/:id/follow.
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	followeeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.followService.Unfollow(c.UserContext(), currentUserID(c), followeeID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Unfollowed"})
}

// GetFollowers handles GET /api/users/:id/followers.
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page, err := s.followService.Followers(c.UserContext(), id, parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// GetFollowing handles GET /api/users/:id/following.
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page, err := s.followService.Following(c.UserContext(), id, parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}
