package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/sagarpkr/multipost/internal/models"
)

type PublishTargetRepository interface {
	Create(ctx context.Context, tx *sql.Tx, t *models.PublishTarget) (int64, error)
	GetByPostAndAccount(ctx context.Context, postID, accountID int64) (*models.PublishTarget, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PublishTarget, error)
	Update(ctx context.Context, t *models.PublishTarget) error
	FailPending(ctx context.Context, postID int64, kind, message string) (int64, error)
}

type publishTargetRepository struct {
	db *sql.DB
}

func NewPublishTargetRepository(db *sql.DB) PublishTargetRepository {
	return &publishTargetRepository{db: db}
}

const targetColumns = `id, post_id, account_id, provider, status, provider_post_id, error_kind, error_message, attempt_count, last_attempt_at, created_at, updated_at`

func scanTarget(row interface{ Scan(...any) error }) (*models.PublishTarget, error) {
	var t models.PublishTarget
	var lastAttemptAt sql.NullTime
	err := row.Scan(&t.ID, &t.PostID, &t.AccountID, &t.Provider, &t.Status,
		&t.ProviderPostID, &t.ErrorKind, &t.ErrorMessage, &t.AttemptCount,
		&lastAttemptAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastAttemptAt.Valid {
		t.LastAttemptAt = lastAttemptAt.Time
	}
	return &t, nil
}

func (r *publishTargetRepository) Create(ctx context.Context, tx *sql.Tx, t *models.PublishTarget) (int64, error) {
	// ON CONFLICT keeps the one-target-per-(post, account) invariant without
	// a read-then-write race.
	query := `
		INSERT INTO publish_targets (post_id, account_id, provider, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (post_id, account_id) DO NOTHING
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, t.PostID, t.AccountID, t.Provider, t.Status).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, t.PostID, t.AccountID, t.Provider, t.Status).Scan(&id)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishTargetRepository) GetByPostAndAccount(ctx context.Context, postID, accountID int64) (*models.PublishTarget, error) {
	query := `SELECT ` + targetColumns + ` FROM publish_targets WHERE post_id = $1 AND account_id = $2`
	t, err := scanTarget(r.db.QueryRowContext(ctx, query, postID, accountID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, fmt.Errorf("query row: %w", err)
	}
	return t, nil
}

func (r *publishTargetRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishTarget, error) {
	query := `SELECT ` + targetColumns + ` FROM publish_targets WHERE post_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var targets []*models.PublishTarget
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("scan row: %w", err)
		}
		targets = append(targets, t)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return targets, nil
}

func (r *publishTargetRepository) Update(ctx context.Context, t *models.PublishTarget) error {
	query := `
		UPDATE publish_targets
		SET status = $2,
			provider_post_id = $3,
			error_kind = $4,
			error_message = $5,
			attempt_count = $6,
			last_attempt_at = $7,
			updated_at = $8
		WHERE id = $1
	`
	var lastAttemptAt any
	if !t.LastAttemptAt.IsZero() {
		lastAttemptAt = t.LastAttemptAt
	}
	_, err := r.db.ExecContext(ctx, query, t.ID, t.Status, t.ProviderPostID,
		t.ErrorKind, t.ErrorMessage, t.AttemptCount, lastAttemptAt, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// FailPending marks every still-pending target of a post failed with the
// given error. Used for cancellation and the media readiness deadline.
func (r *publishTargetRepository) FailPending(ctx context.Context, postID int64, kind, message string) (int64, error) {
	query := `
		UPDATE publish_targets
		SET status = $2,
			error_kind = $3,
			error_message = $4,
			updated_at = $5
		WHERE post_id = $1 AND status = $6
	`
	result, err := r.db.ExecContext(ctx, query, postID, models.TargetStatusFailed,
		kind, message, time.Now(), models.TargetStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return affected, nil
}
