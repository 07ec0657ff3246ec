package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/atom-todo-api/internal/domain"
	"github.com/phrazzld/atom-todo-api/internal/platform/logger"
	"github.com/phrazzld/atom-todo-api/internal/redact"
	"github.com/phrazzld/atom-todo-api/internal/service/auth"
	"github.com/phrazzld/atom-todo-api/internal/store"
)

// Session is the outcome of a login or registration: the user and a freshly
// issued access token.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// UserService provides email-based sign in and user lookups.
type UserService interface {
	// Login issues a token for the user registered with email. An unknown
	// email is not an error: the returned bool is false and the session nil.
	Login(ctx context.Context, email string) (*Session, bool, error)

	// Register creates a user and issues a token for it.
	// Returns ErrEmailExists if the email is already registered.
	Register(ctx context.Context, email string) (*Session, error)

	// Exists reports whether a user is registered with email.
	Exists(ctx context.Context, email string) (bool, error)

	// GetByEmail returns the user registered with email.
	// Returns ErrUserNotFound if there is none.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type userServiceImpl struct {
	userStore  store.UserStore
	jwtService auth.JWTService
	logger     *slog.Logger
}

// NewUserService creates a new UserService.
// It returns an error if any of the required dependencies are nil.
func NewUserService(
	userStore store.UserStore,
	jwtService auth.JWTService,
	logger *slog.Logger,
) (UserService, error) {
	if userStore == nil {
		return nil, domain.NewValidationError("userStore", "cannot be nil", domain.ErrValidation)
	}
	if jwtService == nil {
		return nil, domain.NewValidationError("jwtService", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &userServiceImpl{
		userStore:  userStore,
		jwtService: jwtService,
		logger:     logger.With(slog.String("component", "user_service")),
	}, nil
}

// Login implements UserService.Login
func (s *userServiceImpl) Login(ctx context.Context, email string) (*Session, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.lookup(ctx, "login", email)
	if errors.Is(err, ErrUserNotFound) {
		log.Debug("login for unknown email",
			slog.String("email_fp", redact.EmailFingerprint(email)))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	session, err := s.issue(ctx, "login", user)
	if err != nil {
		return nil, false, err
	}

	log.Info("user logged in", slog.String("user_id", user.ID.String()))
	return session, true, nil
}

// Register implements UserService.Register
func (s *userServiceImpl) Register(ctx context.Context, email string) (*Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(email)
	if err != nil {
		log.Debug("rejected registration",
			slog.String("error", err.Error()),
			slog.String("email_fp", redact.EmailFingerprint(email)))
		return nil, err
	}

	if err := s.userStore.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			log.Debug("attempted to register an existing email",
				slog.String("email_fp", redact.EmailFingerprint(user.Email)))
		} else {
			log.Error("failed to save user",
				slog.String("error", redact.Error(err)),
				slog.String("email_fp", redact.EmailFingerprint(user.Email)))
		}
		return nil, NewUserServiceError("register", "failed to save user", err)
	}

	session, err := s.issue(ctx, "register", user)
	if err != nil {
		return nil, err
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return session, nil
}

// Exists implements UserService.Exists
func (s *userServiceImpl) Exists(ctx context.Context, email string) (bool, error) {
	_, err := s.lookup(ctx, "exists", email)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByEmail implements UserService.GetByEmail
func (s *userServiceImpl) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.lookup(ctx, "get_by_email", email)
}

// lookup validates and normalizes email before asking the store.
func (s *userServiceImpl) lookup(ctx context.Context, operation, email string) (*domain.User, error) {
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	normalized := domain.NormalizeEmail(email)

	user, err := s.userStore.GetByEmail(ctx, normalized)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to retrieve user by email",
				slog.String("operation", operation),
				slog.String("error", redact.Error(err)),
				slog.String("email_fp", redact.EmailFingerprint(normalized)))
		}
		return nil, NewUserServiceError(operation, "failed to retrieve user", err)
	}
	return user, nil
}

func (s *userServiceImpl) issue(ctx context.Context, operation string, user *domain.User) (*Session, error) {
	token, expiresAt, err := s.jwtService.GenerateToken(ctx, user.ID, user.Email)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to generate token",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return nil, NewUserServiceError(operation, "failed to generate token", err)
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
