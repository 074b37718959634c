package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/devilmonastery/bnetsso/internal/domain/entities"
	"github.com/devilmonastery/bnetsso/internal/domain/repositories"
	"github.com/devilmonastery/bnetsso/internal/pkg/idgen"
	"github.com/devilmonastery/bnetsso/internal/pkg/metrics"
)

// pqUniqueViolation is the SQLSTATE for unique_violation
const pqUniqueViolation = "23505"

// UserRepository implements the UserRepository interface for PostgreSQL
type UserRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sqlx.DB) repositories.UserRepository {
	return &UserRepository{
		db:  db,
		log: slog.Default().With(slog.String("repo", "user")),
	}
}

// userRow represents a user as stored in the database
type userRow struct {
	ID          string         `db:"id"`
	Username    string         `db:"username"`
	UserSlug    string         `db:"userslug"`
	Email       sql.NullString `db:"email"`
	Role        string         `db:"role"`
	BattleNetID sql.NullString `db:"battlenet_id"`
	BattleTag   sql.NullString `db:"battletag"`
	Characters  []byte         `db:"characters"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// toEntity converts a userRow to a domain entity
func (r *userRow) toEntity() *entities.User {
	user := &entities.User{
		ID:        r.ID,
		Username:  r.Username,
		UserSlug:  r.UserSlug,
		Email:     r.Email.String, // Empty string if NULL
		Role:      entities.Role(r.Role),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}

	if r.BattleNetID.Valid {
		user.BattleNetID = &r.BattleNetID.String
	}
	if r.BattleTag.Valid {
		user.BattleTag = &r.BattleTag.String
	}
	if len(r.Characters) > 0 {
		user.Characters = r.Characters
	}

	return user
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordDBOperation("user", "create", time.Since(start), 1, err)
	}()

	if user.ID == "" {
		user.ID = idgen.GenerateID()
	}
	if user.Role == "" {
		user.Role = entities.RoleUser
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.log.Debug("creating user",
		slog.String("id", user.ID),
		slog.String("userslug", user.UserSlug))

	query := `INSERT INTO users (id, username, userslug, email, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.UserSlug,
		sql.NullString{String: user.Email, Valid: user.Email != ""},
		string(user.Role), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", user.UserSlug, repositories.ErrDuplicateUser)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("user", "get_by_id", time.Since(start), rowCount, err)
	}()

	var row userRow
	query := `
		SELECT id, username, userslug, email, role, battlenet_id, battletag, characters,
		       created_at, updated_at
		FROM users
		WHERE id = $1`

	err = r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = repositories.ErrUserNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	rowCount = 1

	return row.toEntity(), nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	var rows int64
	defer func() {
		metrics.RecordDBOperation("user", "delete", time.Since(start), rows, err)
	}()

	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, err = res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		err = repositories.ErrUserNotFound
		return err
	}
	return nil
}

// SetProviderFields overwrites the Battle.net fields on an account
func (r *UserRepository) SetProviderFields(ctx context.Context, id string, fields entities.ProviderFields) error {
	start := time.Now()
	var err error
	var rows int64
	defer func() {
		metrics.RecordDBOperation("user", "set_provider_fields", time.Since(start), rows, err)
	}()

	chars := string(fields.Characters)
	if chars == "" {
		chars = "[]"
	}

	query := `UPDATE users
		SET battlenet_id = $2, battletag = $3, characters = $4::jsonb, updated_at = NOW()
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, fields.BattleNetID, fields.BattleTag, chars)
	if err != nil {
		return fmt.Errorf("failed to set provider fields: %w", err)
	}
	rows, err = res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		err = repositories.ErrUserNotFound
		return err
	}
	return nil
}

// SetUsernameAndEmail finalizes the registration fields in one statement
func (r *UserRepository) SetUsernameAndEmail(ctx context.Context, id, username, userslug, email string) error {
	start := time.Now()
	var err error
	var rows int64
	defer func() {
		metrics.RecordDBOperation("user", "set_username_email", time.Since(start), rows, err)
	}()

	query := `UPDATE users
		SET username = $2, userslug = $3, email = $4, updated_at = NOW()
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, username, userslug, email)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user %s: %w", id, repositories.ErrDuplicateUser)
		}
		return fmt.Errorf("failed to update username and email: %w", err)
	}
	rows, err = res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		err = repositories.ErrUserNotFound
		return err
	}
	return nil
}

// SetRole changes an account's role
func (r *UserRepository) SetRole(ctx context.Context, id string, role entities.Role) error {
	start := time.Now()
	var err error
	var rows int64
	defer func() {
		metrics.RecordDBOperation("user", "set_role", time.Since(start), rows, err)
	}()

	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, string(role))
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	rows, err = res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		err = repositories.ErrUserNotFound
		return err
	}
	return nil
}

// ExistsBySlug checks if a userslug is in use
func (r *UserRepository) ExistsBySlug(ctx context.Context, userslug string) (bool, error) {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordDBOperation("user", "exists_by_slug", time.Since(start), -1, err)
	}()

	var exists bool
	err = r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE userslug = $1)`, userslug)
	if err != nil {
		return false, fmt.Errorf("failed to check userslug: %w", err)
	}
	return exists, nil
}

// EmailAvailable reports whether no account uses the email
func (r *UserRepository) EmailAvailable(ctx context.Context, email string) (bool, error) {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordDBOperation("user", "email_available", time.Since(start), -1, err)
	}()

	var exists bool
	err = r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = $1)`,
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return !exists, nil
}
