package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/transfer"
)

type PostPlatformRepository interface {
	CreatePending(ctx context.Context, tx *sql.Tx, pp *models.PostPlatform) (int64, error)
	RecordOutcome(ctx context.Context, pp *models.PostPlatform) error
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostPlatform, error)
	ListForUser(ctx context.Context, userID int64) ([]*transfer.PostPlatformRow, error)
	CheckByUserID(ctx context.Context, postPlatformID, userID int64) (bool, error)
}

type postPlatformRepository struct {
	db *sql.DB
}

func NewPostPlatformRepository(db *sql.DB) PostPlatformRepository {
	return &postPlatformRepository{db: db}
}

const postPlatformColumns = `id, post_id, account_id, platform, account_name, platform_post_id, status, error_message, created_at, updated_at`

// CreatePending records a publish target at scheduling time. Platform and
// account name are snapshotted so the row stays meaningful after the
// account disconnects.
func (r *postPlatformRepository) CreatePending(ctx context.Context, tx *sql.Tx, pp *models.PostPlatform) (int64, error) {
	query := `
		INSERT INTO post_platforms (post_id, account_id, platform, account_name, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, pp.PostID, pp.AccountID, pp.Platform, pp.AccountName, models.TargetStatusPending).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, pp.PostID, pp.AccountID, pp.Platform, pp.AccountName, models.TargetStatusPending).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

// RecordOutcome writes one target's publish result, creating the row when
// the target was never pre-registered. One statement per target keeps the
// fan-out goroutines independent.
func (r *postPlatformRepository) RecordOutcome(ctx context.Context, pp *models.PostPlatform) error {
	query := `
		INSERT INTO post_platforms (post_id, account_id, platform, account_name, platform_post_id, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (post_id, account_id) DO UPDATE
		SET platform_post_id = EXCLUDED.platform_post_id,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			account_name = COALESCE(NULLIF(EXCLUDED.account_name, ''), post_platforms.account_name),
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query,
		pp.PostID, pp.AccountID, pp.Platform, pp.AccountName,
		pp.PlatformPostID, pp.Status, pp.ErrorMessage)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postPlatformRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostPlatform, error) {
	query := `SELECT ` + postPlatformColumns + ` FROM post_platforms WHERE post_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var targets []*models.PostPlatform
	for rows.Next() {
		var pp models.PostPlatform
		// account_id goes NULL when the account is disconnected; the
		// snapshot columns keep the row meaningful, so surface it as 0.
		var accountID sql.NullInt64
		err := rows.Scan(&pp.ID, &pp.PostID, &accountID, &pp.Platform, &pp.AccountName,
			&pp.PlatformPostID, &pp.Status, &pp.ErrorMessage, &pp.CreatedAt, &pp.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		pp.AccountID = accountID.Int64
		targets = append(targets, &pp)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return targets, nil
}

// ListForUser returns the publish targets of the user's published posts,
// in insertion order.
func (r *postPlatformRepository) ListForUser(ctx context.Context, userID int64) ([]*transfer.PostPlatformRow, error) {
	query := `
		SELECT pp.id, p.id, p.title, pp.platform, p.published_at
		FROM post_platforms pp
		JOIN posts p ON p.id = pp.post_id
		WHERE p.user_id = $1 AND p.status = $2
		ORDER BY pp.id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, models.PostStatusPublished)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var result []*transfer.PostPlatformRow
	for rows.Next() {
		var row transfer.PostPlatformRow
		err := rows.Scan(&row.PostPlatformID, &row.PostID, &row.Title, &row.Platform, &row.PublishedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		result = append(result, &row)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return result, nil
}

func (r *postPlatformRepository) CheckByUserID(ctx context.Context, postPlatformID, userID int64) (bool, error) {
	query := `
		SELECT 1 FROM post_platforms pp
		JOIN posts p ON p.id = pp.post_id
		WHERE pp.id = $1 AND p.user_id = $2
	`

	var result int
	err := r.db.QueryRowContext(ctx, query, postPlatformID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}
