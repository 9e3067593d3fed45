package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akozhin/matchup/models"
	"github.com/akozhin/matchup/repositories"
	"github.com/akozhin/matchup/utils"
)

type RegisterInput struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
}

type authService struct {
	userRepo repositories.UserRepository
}

func NewAuthService(userRepo repositories.UserRepository) AuthService {
	return &authService{
		userRepo: userRepo,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	nickname := strings.TrimSpace(input.Nickname)
	if nickname == "" || input.Email == "" || input.Password == "" {
		return nil, ErrNameRequired
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Nickname:     nickname,
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hashedPassword,
		Role:         models.RolePlayer,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserEmailConflict):
			return nil, ErrAuthEmailTaken
		case errors.Is(err, repositories.ErrUserNicknameConflict):
			return nil, ErrAuthNicknameTaken
		default:
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if !utils.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, ErrAuthInvalidCredentials
	}

	user.PasswordHash = ""
	return user, nil
}

// ScopesForRole разворачивает роль в список разрешений, зашиваемых в токен.
func ScopesForRole(role models.UserRole) []string {
	base := []string{
		ScopeCreateMatch, ScopeUpdateMatch, ScopeDeleteMatch,
		ScopeCreateTournament, ScopeUpdateTournament, ScopeDeleteTournament,
	}
	if role == models.RoleAdmin {
		return append(base,
			ScopeUpdateAnyMatch, ScopeDeleteAnyMatch,
			ScopeUpdateAnyTourney, ScopeDeleteAnyTourney,
			ScopeCreateGame, ScopeUpdateGame, ScopeDeleteGame,
		)
	}
	return base
}
