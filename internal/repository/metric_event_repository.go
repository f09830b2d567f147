package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/transfer"
)

// MetricEventRepository appends and reads per-post-per-platform metric
// events. Events are never updated in place; repeated polls for the same
// metric accumulate and readers sum them.
type MetricEventRepository interface {
	Create(ctx context.Context, ev *models.MetricEvent) (int64, error)
	ListForUser(ctx context.Context, userID int64) ([]*transfer.MetricRow, error)
	ListForUserSince(ctx context.Context, userID int64, since time.Time) ([]*transfer.MetricRow, error)
}

type metricEventRepository struct {
	db *sql.DB
}

func NewMetricEventRepository(db *sql.DB) MetricEventRepository {
	return &metricEventRepository{db: db}
}

func (r *metricEventRepository) Create(ctx context.Context, ev *models.MetricEvent) (int64, error) {
	query := `
		INSERT INTO metric_events (post_platform_id, metric_type, value, recorded_at)
		VALUES ($1, $2, $3, COALESCE($4, CURRENT_TIMESTAMP))
		RETURNING id
	`

	var recordedAt *time.Time
	if !ev.RecordedAt.IsZero() {
		recordedAt = &ev.RecordedAt
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query, ev.PostPlatformID, ev.MetricType, ev.Value, recordedAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

const metricRowQuery = `
	SELECT me.post_platform_id, p.id, p.title, pp.platform, me.metric_type, me.value, me.recorded_at
	FROM metric_events me
	JOIN post_platforms pp ON pp.id = me.post_platform_id
	JOIN posts p ON p.id = pp.post_id
	WHERE p.user_id = $1 AND p.status = $2`

func (r *metricEventRepository) ListForUser(ctx context.Context, userID int64) ([]*transfer.MetricRow, error) {
	query := metricRowQuery + ` ORDER BY me.id`
	rows, err := r.db.QueryContext(ctx, query, userID, models.PostStatusPublished)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectMetricRows(rows)
}

func (r *metricEventRepository) ListForUserSince(ctx context.Context, userID int64, since time.Time) ([]*transfer.MetricRow, error) {
	query := metricRowQuery + ` AND me.recorded_at >= $3 ORDER BY me.recorded_at`
	rows, err := r.db.QueryContext(ctx, query, userID, models.PostStatusPublished, since)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectMetricRows(rows)
}

func collectMetricRows(rows *sql.Rows) ([]*transfer.MetricRow, error) {
	var result []*transfer.MetricRow
	for rows.Next() {
		var row transfer.MetricRow
		err := rows.Scan(&row.PostPlatformID, &row.PostID, &row.Title, &row.Platform,
			&row.MetricType, &row.Value, &row.RecordedAt)
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
