package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/sagarpkr/multipost/internal/models"
)

type MediaAttachmentRepository interface {
	Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAttachment) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.MediaAttachment, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.MediaAttachment, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAttachment, error)
	LinkToPost(ctx context.Context, tx *sql.Tx, postID, attachmentID int64, order int) error
	MarkReady(ctx context.Context, id int64) error
	Remove(ctx context.Context, id int64) error
}

type mediaAttachmentRepository struct {
	db *sql.DB
}

func NewMediaAttachmentRepository(db *sql.DB) MediaAttachmentRepository {
	return &mediaAttachmentRepository{db: db}
}

const mediaColumns = `id, user_id, storage_key, type, width, height, duration, ready, created_at`

func scanAttachment(row interface{ Scan(...any) error }) (*models.MediaAttachment, error) {
	var ma models.MediaAttachment
	err := row.Scan(&ma.ID, &ma.UserID, &ma.StorageKey, &ma.Type,
		&ma.Width, &ma.Height, &ma.Duration, &ma.Ready, &ma.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ma, nil
}

func (r *mediaAttachmentRepository) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAttachment) (int64, error) {
	query := `
		INSERT INTO media_attachments (user_id, storage_key, type, width, height, duration, ready)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, ma.UserID, ma.StorageKey, ma.Type,
			ma.Width, ma.Height, ma.Duration, ma.Ready).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, ma.UserID, ma.StorageKey, ma.Type,
			ma.Width, ma.Height, ma.Duration, ma.Ready).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *mediaAttachmentRepository) GetByID(ctx context.Context, id int64) (*models.MediaAttachment, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_attachments WHERE id = $1`
	ma, err := scanAttachment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return ma, nil
}

func (r *mediaAttachmentRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.MediaAttachment, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_attachments WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var attachments []*models.MediaAttachment
	for rows.Next() {
		ma, err := scanAttachment(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		attachments = append(attachments, ma)
	}
	return attachments, rows.Err()
}

func (r *mediaAttachmentRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAttachment, error) {
	query := `
		SELECT m.id, m.user_id, m.storage_key, m.type, m.width, m.height, m.duration, m.ready, m.created_at
		FROM media_attachments m
		JOIN post_media pm ON pm.attachment_id = m.id
		WHERE pm.post_id = $1
		ORDER BY pm.display_order
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var attachments []*models.MediaAttachment
	for rows.Next() {
		ma, err := scanAttachment(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		attachments = append(attachments, ma)
	}
	return attachments, rows.Err()
}

func (r *mediaAttachmentRepository) LinkToPost(ctx context.Context, tx *sql.Tx, postID, attachmentID int64, order int) error {
	query := `
		INSERT INTO post_media (post_id, attachment_id, display_order)
		VALUES ($1, $2, $3)
	`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, postID, attachmentID, order)
	} else {
		_, err = r.db.ExecContext(ctx, query, postID, attachmentID, order)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *mediaAttachmentRepository) MarkReady(ctx context.Context, id int64) error {
	query := `UPDATE media_attachments SET ready = TRUE WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *mediaAttachmentRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM media_attachments WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
