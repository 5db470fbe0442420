package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/dbx"
	"github.com/dmitrijs2005/idkeeper/internal/ids"
	"github.com/dmitrijs2005/idkeeper/internal/server/models"
)

// PostgresRepository writes activity rows over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts e. A nil user id is stored for events about unknown users.
func (r *PostgresRepository) Append(ctx context.Context, e *models.Activity) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = ids.NewAt(e.OccurredAt)
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	var userID any
	if e.UserID != "" {
		userID = e.UserID
	}

	query := `
		INSERT INTO user_activity (id, user_id, username, event, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query, e.ID, userID, e.UserName, string(e.Event), string(metadata), e.OccurredAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
