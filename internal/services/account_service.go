package services

import (
	"fmt"
	"log"

	"mozicblog/internal/models"
	"mozicblog/internal/repositories"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AccountService handles the user account lifecycle: registration with email
// confirmation, profile updates, deletion and listing.
type AccountService struct {
	userRepo repositories.UserRepository
	notifier Notifier
}

// NewAccountService creates a new AccountService.
func NewAccountService(userRepo repositories.UserRepository, notifier Notifier) *AccountService {
	return &AccountService{
		userRepo: userRepo,
		notifier: notifier,
	}
}

// Register creates a deactivated account and dispatches the confirmation
// email. The account stays unusable until ConfirmEmail redeems the token.
func (s *AccountService) Register(name, email, password string) (*models.User, error) {
	if existing, err := s.userRepo.GetByEmail(email); err == nil && existing != nil {
		return nil, fmt.Errorf("email '%s': %w", email, ErrEmailTaken)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	token := uuid.New().String()
	user := &models.User{
		Name:            name,
		Email:           email,
		Password:        string(hashedPassword),
		Activated:       false,
		ActivationToken: &token,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	if err := s.notifier.SendActivationEmail(user); err != nil {
		return nil, fmt.Errorf("failed to send activation email: %w", err)
	}

	log.Printf("Registered user %s, activation email dispatched to %s", user.ID, user.Email)
	return user, nil
}

// ConfirmEmail redeems a one-time activation token. An unknown token fails
// with a not-found error; so does a token that was already consumed, since
// consumption nulls the column the lookup matches on. The token can therefore
// activate an account at most once.
func (s *AccountService) ConfirmEmail(token string) (*models.User, error) {
	user, err := s.userRepo.GetByActivationToken(token)
	if err != nil {
		return nil, err
	}

	user.Activated = true
	user.ActivationToken = nil
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to activate user %s: %w", user.ID, err)
	}

	log.Printf("Activated account %s", user.ID)
	return user, nil
}

// UpdateProfile changes the user's name, and their password only when a new
// one is supplied.
func (s *AccountService) UpdateProfile(user *models.User, name, newPassword string) error {
	user.Name = name
	if newPassword != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = string(hashedPassword)
	}

	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to update profile for user %s: %w", user.ID, err)
	}
	return nil
}

// DeleteAccount removes the user along with all their follow relations.
func (s *AccountService) DeleteAccount(id string) error {
	return s.userRepo.Delete(id)
}

// GetUser retrieves a single user by ID.
func (s *AccountService) GetUser(id string) (*models.User, error) {
	return s.userRepo.GetByID(id)
}

// ListUsers retrieves one page of users plus the total count.
func (s *AccountService) ListUsers(page, perPage int) ([]models.User, int64, error) {
	return s.userRepo.List(page, perPage)
}
