package handlers

import (
	"errors"
	"fmt"
	"log"

	"mozicblog/internal/middleware"
	"mozicblog/internal/repositories"
	"mozicblog/internal/services"

	"github.com/gofiber/fiber/v2"
)

// FollowHandler handles the follow/unfollow endpoints. Both are guarded the
// same way: the actor must be authenticated, and acting on yourself is not an
// error but a silent redirect home, matching the user-visible behaviour of
// the rendered site.
type FollowHandler struct {
	follows  *services.FollowService
	accounts *services.AccountService
}

// NewFollowHandler creates a new FollowHandler.
func NewFollowHandler(follows *services.FollowService, accounts *services.AccountService) *FollowHandler {
	return &FollowHandler{
		follows:  follows,
		accounts: accounts,
	}
}

// RegisterRoutes registers the follow routes; the router passed in must
// already run the auth middleware.
func (h *FollowHandler) RegisterRoutes(router fiber.Router) {
	users := router.Group("/users")
	users.Post("/:id/follow", h.HandleFollow)
	users.Delete("/:id/follow", h.HandleUnfollow)
}

// HandleFollow makes the actor follow the target user. Following someone you
// already follow changes nothing; either way the actor lands on the target's
// profile.
func (h *FollowHandler) HandleFollow(c *fiber.Ctx) error {
	return h.toggle(c, "follow", h.follows.Follow)
}

// HandleUnfollow makes the actor unfollow the target user, with the same
// no-op and redirect behaviour as HandleFollow.
func (h *FollowHandler) HandleUnfollow(c *fiber.Ctx) error {
	return h.toggle(c, "unfollow", h.follows.Unfollow)
}

func (h *FollowHandler) toggle(c *fiber.Ctx, action string, op func(followerID, followedID string) error) error {
	targetID := c.Params("id")
	actor, _ := c.Locals(middleware.ActorIDKey).(string)

	if actor == targetID {
		// Self-follow/unfollow is silently bounced home, never an error.
		return c.Redirect("/", fiber.StatusFound)
	}

	if _, err := h.accounts.GetUser(targetID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("User with ID %s not found", targetID),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve user",
			"error":   err.Error(),
		})
	}

	if err := op(actor, targetID); err != nil {
		log.Printf("Error on %s of %s by %s: %v", action, targetID, actor, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not " + action + " user",
			"error":   err.Error(),
		})
	}

	return c.Redirect("/users/"+targetID, fiber.StatusFound)
}
