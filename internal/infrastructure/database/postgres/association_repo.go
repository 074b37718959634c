package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devilmonastery/bnetsso/internal/domain/repositories"
	"github.com/devilmonastery/bnetsso/internal/pkg/metrics"
)

// AssociationRepository implements repositories.AssociationStore for PostgreSQL
type AssociationRepository struct {
	db *sqlx.DB
}

// NewAssociationRepository creates a new Battle.net association repository
func NewAssociationRepository(db *sqlx.DB) repositories.AssociationStore {
	return &AssociationRepository{db: db}
}

// Put creates or replaces the mapping for externalID
func (r *AssociationRepository) Put(ctx context.Context, externalID, userID string) error {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordDBOperation("association", "put", time.Since(start), 1, err)
	}()

	query := `
		INSERT INTO battlenet_associations (external_id, user_id, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, externalID, userID)
	if err != nil {
		return fmt.Errorf("failed to put association: %w", err)
	}
	return nil
}

// Get returns the account mapped to externalID
func (r *AssociationRepository) Get(ctx context.Context, externalID string) (string, bool, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("association", "get", time.Since(start), rowCount, err)
	}()

	var userID string
	err = r.db.GetContext(ctx, &userID,
		`SELECT user_id FROM battlenet_associations WHERE external_id = $1`, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get association: %w", err)
	}
	rowCount = 1
	return userID, true, nil
}

// Delete removes the mapping for externalID if present
func (r *AssociationRepository) Delete(ctx context.Context, externalID string) error {
	start := time.Now()
	var err error
	var rows int64
	defer func() {
		metrics.RecordDBOperation("association", "delete", time.Since(start), rows, err)
	}()

	res, err := r.db.ExecContext(ctx, `DELETE FROM battlenet_associations WHERE external_id = $1`, externalID)
	if err != nil {
		return fmt.Errorf("failed to delete association: %w", err)
	}
	rows, _ = res.RowsAffected()
	return nil
}
