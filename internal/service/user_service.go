package service

import (
	"context"
	"strings"

	"foreman/internal/models"
	"foreman/internal/repository"
	"foreman/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// UserService provides account profile business logic.
type UserService struct {
	users repository.UserRepository
}

// NewUserService returns a new UserService.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// GetUserByID returns the user with the given ID.
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// ProfileUpdate carries the mutable profile fields. Empty fields are left
// unchanged.
type ProfileUpdate struct {
	Username string
	Email    string
	Password string
}

// UpdateProfile applies the given changes to the user's profile. A new
// password is validated and rehashed before storage.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if username := strings.TrimSpace(update.Username); username != "" && username != user.Username {
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		existing, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != userID {
			return nil, models.NewValidationError("username is already taken")
		}
		user.Username = username
	}

	if email := strings.TrimSpace(update.Email); email != "" && email != user.Email {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		existing, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != userID {
			return nil, models.NewValidationError("email is already taken")
		}
		user.Email = email
	}

	if update.Password != "" {
		if err := validation.ValidatePassword(update.Password); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(update.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		user.Password = string(hashed)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetAvatar records the stored avatar path on the user.
func (s *UserService) SetAvatar(ctx context.Context, userID uint, path string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Avatar = path
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
