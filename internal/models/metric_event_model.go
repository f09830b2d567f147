package models

import "time"

// MetricEvent is one observed measurement for a post on one platform.
// Rows are append-only; repeated polls for the same kind accumulate by sum.
type MetricEvent struct {
	ID             int64     `db:"id" json:"id"`
	PostPlatformID int64     `db:"post_platform_id" json:"post_platform_id"`
	MetricType     string    `db:"metric_type" json:"metric_type"`
	Value          int64     `db:"value" json:"value"`
	RecordedAt     time.Time `db:"recorded_at" json:"recorded_at"`
}

const (
	MetricViews    = "views"
	MetricLikes    = "likes"
	MetricComments = "comments"
	MetricShares   = "shares"
)

func IsValidMetricType(t string) bool {
	switch t {
	case MetricViews, MetricLikes, MetricComments, MetricShares:
		return true
	}
	return false
}
