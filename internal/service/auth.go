package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
	"github.com/sakif/eventhub/internal/validate"
)

// AuthService issues identities: email/password registration and login,
// and the GitHub OAuth callback.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// It never sets cookies or reads requests; that is the handler's job.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
	now       clock
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		now:       systemClock,
	}
}

// AuthResult bundles the user and the issued JWT so the handler can set
// the cookie and respond in one step.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates a password account with role user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	now := s.now()
	user := &model.User{
		Username:       in.Username,
		Email:          in.Email,
		PasswordHash:   hash,
		Role:           model.RoleUser,
		FavoriteEvents: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("userID", user.ID), slog.String("username", user.Username))
	return s.issue(user)
}

// Login checks email and password. Unknown email and wrong password give
// the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub handles the OAuth callback:
//
//  1. A user already linked to this GitHub ID logs in.
//  2. Otherwise a user with the same email gets the GitHub ID linked.
//  3. Otherwise a new role=user account is created from the GitHub login.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	if err == nil {
		s.logger.Info("user authenticated via GitHub", slog.String("userID", user.ID))
		return s.issue(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up GitHub user %d: %w", gh.ID, err)
	}

	email := normalizeEmail(gh.Email)
	if email == "" {
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", gh.ID, strings.ToLower(gh.Login))
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		githubID := gh.ID
		user, err = s.users.MutateUser(ctx, existing.ID, func(u *model.User) error {
			u.GitHubID = &githubID
			u.UpdatedAt = s.now()
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.logger.Info("GitHub account linked", slog.String("userID", user.ID))
		return s.issue(user)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}

	user, err = s.createGitHubUser(ctx, gh, email)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered via GitHub", slog.String("userID", user.ID), slog.String("username", user.Username))
	return s.issue(user)
}

// createGitHubUser uses the GitHub login as username, falling back to
// login-<githubID> when the login is taken or too short.
func (s *AuthService) createGitHubUser(ctx context.Context, gh *auth.GitHubUser, email string) (*model.User, error) {
	githubID := gh.ID
	now := s.now()

	candidates := []string{gh.Login, fmt.Sprintf("%s-%d", gh.Login, gh.ID)}
	if len(gh.Login) < 3 {
		candidates = candidates[1:]
	}

	var lastErr error
	for _, username := range candidates {
		if len(username) > 30 {
			username = username[:30]
		}
		user := &model.User{
			Username:       username,
			Email:          email,
			GitHubID:       &githubID,
			Role:           model.RoleUser,
			FavoriteEvents: []string{},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err := s.users.CreateUser(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// CurrentUser returns the account behind a verified identity.
func (s *AuthService) CurrentUser(ctx context.Context, actor auth.Identity) (*model.User, error) {
	if actor.UserID == "" {
		return nil, apperror.Unauthorized("not authorized")
	}
	return s.users.GetUserByID(ctx, actor.UserID)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
