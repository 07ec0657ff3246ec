package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/domain"
	"github.com/phrazzld/atom-todo-api/internal/platform/docschema"
	"github.com/phrazzld/atom-todo-api/internal/platform/logger"
	"github.com/phrazzld/atom-todo-api/internal/redact"
	"github.com/phrazzld/atom-todo-api/internal/store"
)

// UserStore implements store.UserStore on the documents table.
type UserStore struct {
	db      store.DBTX
	schemas *docschema.Validator
	logger  *slog.Logger
}

// NewUserStore creates a UserStore. If logger is nil, a default logger is used.
func NewUserStore(db store.DBTX, schemas *docschema.Validator, logger *slog.Logger) *UserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if schemas == nil {
		panic("schema validator cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserStore{
		db:      db,
		schemas: schemas,
		logger:  logger.With(slog.String("component", "user_store"), slog.String("backend", "sqlite")),
	}
}

var _ store.UserStore = (*UserStore)(nil)

// Create implements store.UserStore.Create.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		return err
	}
	doc := newUserDocument(user)
	if err := s.schemas.ValidateUser(doc); err != nil {
		log.Warn("user document rejected by schema", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode user document: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`,
		collectionUsers, doc.ID, string(body))
	if err != nil {
		if isUniqueViolation(err) {
			log.Debug("email already registered",
				slog.String("email_fp", redact.EmailFingerprint(user.Email)))
			return store.ErrEmailExists
		}
		log.Error("failed to insert user document",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", doc.ID))
		return store.NewStoreError("user", "create", "failed to insert user", err)
	}

	log.Debug("user created", slog.String("user_id", doc.ID))
	return nil
}

// GetByID implements store.UserStore.GetByID.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getOne(ctx, "get_by_id",
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, id.String())
}

// GetByEmail implements store.UserStore.GetByEmail.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "get_by_email",
		`SELECT body FROM documents WHERE collection = ? AND json_extract(body, '$.email') = ?`,
		domain.NormalizeEmail(email))
}

func (s *UserStore) getOne(ctx context.Context, operation, query string, arg any) (*domain.User, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, query, collectionUsers, arg).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query user document",
			slog.String("operation", operation),
			slog.String("error", redact.Error(err)))
		return nil, store.NewStoreError("user", operation, "failed to query user", err)
	}

	user, err := decodeUser(body)
	if err != nil {
		return nil, store.NewStoreError("user", operation, "corrupt user document", err)
	}
	return user, nil
}
