package auth

import (
	"context"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/saleads/internal/domain"
)

// usernamePattern allows letters, digits and @.+-_ only.
var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

// Service defines the authentication operations.
type Service interface {
	Login(ctx context.Context, email, password string) (*TokenResponse, error)
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
}

// authService implements Service.
type authService struct {
	issuer   TokenIssuer
	userRepo domain.UserRepository
	logger   *slog.Logger
}

// NewService creates a new auth Service. A nil logger uses slog.Default().
func NewService(issuer TokenIssuer, userRepo domain.UserRepository, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		issuer:   issuer,
		userRepo: userRepo,
		logger:   logger,
	}
}

// Login authenticates a user by email and password and returns an access token.
func (s *authService) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		// Unknown emails and wrong passwords look the same to the caller.
		if domain.IsNotFound(err) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}

	token, expiresAt, err := s.issuer.Issue(user)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to generate token", err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.Uint64("user_id", uint64(user.ID)))
	return &TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	}, nil
}

// validateRegisterInput validates registration input. username and email are
// expected to be pre-trimmed by callers.
func validateRegisterInput(username, email, password string) error {
	nameLen := utf8.RuneCountInString(username)
	if nameLen == 0 {
		return domain.NewAppError(domain.CodeValidation, "username is required", nil)
	}
	if nameLen > 150 {
		return domain.NewAppError(domain.CodeValidation, "username must not exceed 150 characters", nil)
	}
	if !usernamePattern.MatchString(username) {
		return domain.NewAppError(domain.CodeValidation, "username may contain only letters, digits and @.+-_", nil)
	}
	if len(email) == 0 {
		return domain.NewAppError(domain.CodeValidation, "email is required", nil)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return domain.NewAppError(domain.CodeValidation, "email must be a valid email address", nil)
	}
	if len(password) < 8 {
		return domain.NewAppError(domain.CodeValidation, "password must be at least 8 characters", nil)
	}
	if len(password) > 72 {
		return domain.NewAppError(domain.CodeValidation, "password must not exceed 72 characters", nil)
	}
	return nil
}

// Register creates a new user with the given credentials.
func (s *authService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := validateRegisterInput(username, email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to hash password", err)
	}

	user := domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, &user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("username", user.Username),
	)
	return &user, nil
}
