package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"mozicblog/internal/middleware"
	"mozicblog/internal/models"
	"mozicblog/internal/repositories"
	"mozicblog/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Page sizes matching the rendered views: the member index shows 10 users per
// page, the follower/following listings 30.
const (
	IndexPageSize  = 10
	FollowPageSize = 30
)

// UserHandler handles HTTP requests for accounts and user listings.
type UserHandler struct {
	accounts *services.AccountService
	follows  *services.FollowService
	auth     *services.AuthService
	policy   services.Policy
	flash    FlashChannel
	validate *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(accounts *services.AccountService, follows *services.FollowService, auth *services.AuthService, policy services.Policy, flash FlashChannel) *UserHandler {
	return &UserHandler{
		accounts: accounts,
		follows:  follows,
		auth:     auth,
		policy:   policy,
		flash:    flash,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the public user routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/login", h.HandleLogin)
	router.Get("/signup/confirm/:token", h.HandleConfirmEmail)

	users := router.Group("/users")
	users.Post("/", h.HandleRegister)
	users.Get("/", h.HandleIndex)
	users.Get("/:id", h.HandleShow)
	users.Get("/:id/followers", h.HandleFollowers)
	users.Get("/:id/followings", h.HandleFollowings)
}

// RegisterProtectedRoutes registers the owner-only routes; the router passed
// in must already run the auth middleware.
func (h *UserHandler) RegisterProtectedRoutes(router fiber.Router) {
	users := router.Group("/users")
	users.Put("/:id", h.HandleUpdate)
	users.Delete("/:id", h.HandleDelete)
}

// RegisterRequest represents the signup form.
type RegisterRequest struct {
	Name                 string `json:"name" validate:"required,max=50"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=6"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// HandleRegister handles new user registration. Only guests may sign up: a
// request carrying a valid session is sent back home.
func (h *UserHandler) HandleRegister(c *fiber.Ctx) error {
	if actorID(c, h.auth) != "" {
		return c.Redirect("/", fiber.StatusFound)
	}

	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	user, err := h.accounts.Register(req.Name, req.Email, req.Password)
	if err != nil {
		log.Printf("Error registering user: %v", err)
		if errors.Is(err, services.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Registration failed",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not register user",
			"error":   err.Error(),
		})
	}

	log.Printf("User %s registered, awaiting email confirmation", user.ID)
	h.flash.Success(c, "A confirmation email has been sent to your address, please check your inbox.")
	return c.Redirect("/", fiber.StatusFound)
}

// HandleConfirmEmail redeems an activation token. On success the account is
// activated, the user is logged in with a fresh session token and sent to
// their profile. An unknown or already-consumed token is a hard 404.
func (h *UserHandler) HandleConfirmEmail(c *fiber.Ctx) error {
	token := c.Params("token")

	user, err := h.accounts.ConfirmEmail(token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Invalid activation token",
			})
		}
		log.Printf("Error confirming email: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not confirm email",
			"error":   err.Error(),
		})
	}

	sessionToken, err := h.auth.IssueToken(user)
	if err != nil {
		log.Printf("Error issuing session token after activation: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not log in",
			"error":   err.Error(),
		})
	}

	h.flash.Success(c, "Congratulations, your account is now active!")
	c.Set("X-Session-Token", sessionToken)
	return c.Redirect("/users/"+user.ID, fiber.StatusFound)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *UserHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	token, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		log.Printf("Error during login for %s: %v", req.Email, err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

// HandleIndex lists users page by page.
func (h *UserHandler) HandleIndex(c *fiber.Ctx) error {
	page := parsePage(c.Query("page"), 1)

	users, total, err := h.accounts.ListUsers(page, IndexPageSize)
	if err != nil {
		log.Printf("Error listing users: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not list users",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"users": users,
		"page":  page,
		"total": total,
	})
}

// HandleShow returns a user's profile with their follower and following
// counts.
func (h *UserHandler) HandleShow(c *fiber.Ctx) error {
	userID := c.Params("id")

	user, err := h.accounts.GetUser(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("User with ID %s not found", userID),
			})
		}
		log.Printf("Error getting user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve user",
			"error":   err.Error(),
		})
	}

	_, followerCount, err := h.follows.Followers(userID, 1, 1)
	if err != nil {
		log.Printf("Error counting followers for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve user",
			"error":   err.Error(),
		})
	}
	_, followingCount, err := h.follows.Followings(userID, 1, 1)
	if err != nil {
		log.Printf("Error counting followings for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve user",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"user":            user,
		"follower_count":  followerCount,
		"following_count": followingCount,
	})
}

// UpdateProfileRequest represents the profile edit form. Password is optional
// and only re-hashed when supplied.
type UpdateProfileRequest struct {
	Name                 string `json:"name" validate:"required,max=50"`
	Password             string `json:"password" validate:"omitempty,min=6"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

// HandleUpdate updates a user's own profile.
func (h *UserHandler) HandleUpdate(c *fiber.Ctx) error {
	userID := c.Params("id")
	actor, _ := c.Locals(middleware.ActorIDKey).(string)

	if !h.policy.CanModify(actor, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "You may only edit your own profile",
		})
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing update request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	user, err := h.accounts.GetUser(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("User with ID %s not found", userID),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve user",
			"error":   err.Error(),
		})
	}

	if err := h.accounts.UpdateProfile(user, req.Name, req.Password); err != nil {
		log.Printf("Error updating profile for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update profile",
			"error":   err.Error(),
		})
	}

	h.flash.Success(c, "Profile updated successfully.")
	return c.Redirect("/users/"+userID, fiber.StatusFound)
}

// HandleDelete removes a user's own account and sends them back where they
// came from.
func (h *UserHandler) HandleDelete(c *fiber.Ctx) error {
	userID := c.Params("id")
	actor, _ := c.Locals(middleware.ActorIDKey).(string)

	if !h.policy.CanModify(actor, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "You may only delete your own account",
		})
	}

	if err := h.accounts.DeleteAccount(userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("User with ID %s not found", userID),
			})
		}
		log.Printf("Error deleting account %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not delete account",
			"error":   err.Error(),
		})
	}

	h.flash.Success(c, "Account deleted.")
	back := c.Get("Referer")
	if back == "" {
		back = "/"
	}
	return c.Redirect(back, fiber.StatusFound)
}

// HandleFollowers lists the users following the given user.
func (h *UserHandler) HandleFollowers(c *fiber.Ctx) error {
	return h.followListing(c, "followers", h.follows.Followers)
}

// HandleFollowings lists the users the given user follows.
func (h *UserHandler) HandleFollowings(c *fiber.Ctx) error {
	return h.followListing(c, "followings", h.follows.Followings)
}

// followListing produces the shared view bundle for both directions of the
// follow graph: the listed users, the page window and a display title.
func (h *UserHandler) followListing(c *fiber.Ctx, title string, list func(string, int, int) ([]models.User, int64, error)) error {
	userID := c.Params("id")
	page := parsePage(c.Query("page"), 1)

	if _, err := h.accounts.GetUser(userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("User with ID %s not found", userID),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve user",
			"error":   err.Error(),
		})
	}

	users, total, err := list(userID, page, FollowPageSize)
	if err != nil {
		log.Printf("Error listing %s for %s: %v", title, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not list " + title,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"title": title,
		"users": users,
		"page":  page,
		"total": total,
	})
}

// validationFailed maps validator errors to a field-level message map.
func validationFailed(c *fiber.Ctx, err error) error {
	validationErrors := err.(validator.ValidationErrors)
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// parsePage safely converts a query value to a positive page number.
func parsePage(value string, defaultVal int) int {
	if value == "" {
		return defaultVal
	}
	if v, err := strconv.Atoi(value); err == nil && v > 0 {
		return v
	}
	return defaultVal
}

// actorID resolves the current actor from a bearer token on an otherwise
// public route; it returns the empty string for guests.
func actorID(c *fiber.Ctx, auth *services.AuthService) string {
	authHeader := c.Get("Authorization")
	const prefix = "Bearer "
	if len(authHeader) <= len(prefix) || authHeader[:len(prefix)] != prefix {
		return ""
	}
	claims, err := auth.ValidateToken(authHeader[len(prefix):])
	if err != nil {
		return ""
	}
	id, _ := claims["user_id"].(string)
	return id
}
