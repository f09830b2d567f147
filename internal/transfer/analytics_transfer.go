package transfer

import "time"

type AnalyticsOverview struct {
	TotalPosts        int64   `json:"total_posts"`
	TotalViews        int64   `json:"total_views"`
	TotalLikes        int64   `json:"total_likes"`
	TotalComments     int64   `json:"total_comments"`
	TotalShares       int64   `json:"total_shares"`
	AvgEngagementRate float64 `json:"avg_engagement_rate"`
	TopPlatform       string  `json:"top_platform"`
}

type PlatformAnalytics struct {
	Platform       string  `json:"platform"`
	Posts          int64   `json:"posts"`
	Views          int64   `json:"views"`
	Likes          int64   `json:"likes"`
	Comments       int64   `json:"comments"`
	Shares         int64   `json:"shares"`
	EngagementRate float64 `json:"engagement_rate"`
}

type PostPerformance struct {
	PostID         int64      `json:"post_id"`
	Title          string     `json:"title"`
	Platform       string     `json:"platform"`
	Views          int64      `json:"views"`
	Likes          int64      `json:"likes"`
	Comments       int64      `json:"comments"`
	Shares         int64      `json:"shares"`
	EngagementRate float64    `json:"engagement_rate"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
}

// TrendPoint carries metric sums for one UTC calendar day. Days without
// events are absent from the series, not zero-filled.
type TrendPoint struct {
	Date     string `json:"date"`
	Views    int64  `json:"views"`
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
	Shares   int64  `json:"shares"`
}

// AnalyticsDashboard bundles the four projections for one page render.
type AnalyticsDashboard struct {
	Overview  *AnalyticsOverview  `json:"overview"`
	Platforms []PlatformAnalytics `json:"platforms"`
	TopPosts  []PostPerformance   `json:"top_posts"`
	Trends    []TrendPoint        `json:"trends"`
}

// MetricRow is one metric event joined up to its owning published post.
type MetricRow struct {
	PostPlatformID int64
	PostID         int64
	Title          string
	Platform       string
	MetricType     string
	Value          int64
	RecordedAt     time.Time
}

// PostPlatformRow is one publish target joined to its published post.
type PostPlatformRow struct {
	PostPlatformID int64
	PostID         int64
	Title          string
	Platform       string
	PublishedAt    *time.Time
}
