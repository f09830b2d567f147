package service

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/postpulse/postpulse/internal/repository"
	"github.com/postpulse/postpulse/internal/transfer"
)

// DefaultTrendWindow is the trailing window for the trend series.
const DefaultTrendWindow = 30

// AnalyticsService derives the dashboard's read-only projections from
// metric events. All projections cover published posts only and none
// mutates state.
type AnalyticsService interface {
	Overview(ctx context.Context, userID int64) (*transfer.AnalyticsOverview, error)
	PlatformBreakdown(ctx context.Context, userID int64) ([]transfer.PlatformAnalytics, error)
	TopPosts(ctx context.Context, userID int64, limit int) ([]transfer.PostPerformance, error)
	TrendData(ctx context.Context, userID int64, days int) ([]transfer.TrendPoint, error)
	Dashboard(ctx context.Context, userID int64) *transfer.AnalyticsDashboard
}

type analyticsService struct {
	p  repository.PostRepository
	pp repository.PostPlatformRepository
	me repository.MetricEventRepository
}

func NewAnalyticsService(
	p repository.PostRepository,
	pp repository.PostPlatformRepository,
	me repository.MetricEventRepository) AnalyticsService {
	return &analyticsService{
		p:  p,
		pp: pp,
		me: me,
	}
}

type metricSums struct {
	views    int64
	likes    int64
	comments int64
	shares   int64
}

func (m *metricSums) add(metricType string, value int64) {
	switch metricType {
	case "views":
		m.views += value
	case "likes":
		m.likes += value
	case "comments":
		m.comments += value
	case "shares":
		m.shares += value
	}
}

// engagementRate is 100 * (likes+comments+shares) / views rounded to two
// decimal places, zero when there are no views.
func engagementRate(m metricSums) float64 {
	if m.views == 0 {
		return 0
	}
	rate := float64(m.likes+m.comments+m.shares) / float64(m.views) * 100
	return math.Round(rate*100) / 100
}

func (s *analyticsService) Overview(ctx context.Context, userID int64) (*transfer.AnalyticsOverview, error) {
	totalPosts, err := s.p.CountPublished(ctx, userID)
	if err != nil {
		return nil, err
	}

	metrics, err := s.me.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	targets, err := s.pp.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var totals metricSums
	for _, row := range metrics {
		totals.add(row.MetricType, row.Value)
	}

	// Top platform is the one with the most publish targets. Ties go to
	// the lexicographically smaller platform id so the result is stable.
	platformCounts := make(map[string]int)
	for _, t := range targets {
		platformCounts[t.Platform]++
	}
	topPlatform := "none"
	topCount := 0
	for platform, count := range platformCounts {
		if count > topCount || (count == topCount && topCount > 0 && platform < topPlatform) {
			topPlatform = platform
			topCount = count
		}
	}

	return &transfer.AnalyticsOverview{
		TotalPosts:        totalPosts,
		TotalViews:        totals.views,
		TotalLikes:        totals.likes,
		TotalComments:     totals.comments,
		TotalShares:       totals.shares,
		AvgEngagementRate: engagementRate(totals),
		TopPlatform:       topPlatform,
	}, nil
}

func (s *analyticsService) PlatformBreakdown(ctx context.Context, userID int64) ([]transfer.PlatformAnalytics, error) {
	targets, err := s.pp.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	metrics, err := s.me.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	posts := make(map[string]int64)
	var order []string
	for _, t := range targets {
		if _, seen := posts[t.Platform]; !seen {
			order = append(order, t.Platform)
		}
		posts[t.Platform]++
	}

	sums := make(map[string]*metricSums)
	for _, row := range metrics {
		m, ok := sums[row.Platform]
		if !ok {
			m = &metricSums{}
			sums[row.Platform] = m
		}
		m.add(row.MetricType, row.Value)
	}

	sort.Strings(order)

	breakdown := make([]transfer.PlatformAnalytics, 0, len(order))
	for _, platform := range order {
		m := sums[platform]
		if m == nil {
			m = &metricSums{}
		}
		breakdown = append(breakdown, transfer.PlatformAnalytics{
			Platform:       platform,
			Posts:          posts[platform],
			Views:          m.views,
			Likes:          m.likes,
			Comments:       m.comments,
			Shares:         m.shares,
			EngagementRate: engagementRate(*m),
		})
	}
	return breakdown, nil
}

// TopPosts ranks (post, platform) pairs by engagement rate. The sort is
// stable so pairs with equal rates keep their insertion order.
func (s *analyticsService) TopPosts(ctx context.Context, userID int64, limit int) ([]transfer.PostPerformance, error) {
	if limit <= 0 {
		limit = 10
	}

	targets, err := s.pp.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	metrics, err := s.me.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	sums := make(map[int64]*metricSums)
	for _, row := range metrics {
		m, ok := sums[row.PostPlatformID]
		if !ok {
			m = &metricSums{}
			sums[row.PostPlatformID] = m
		}
		m.add(row.MetricType, row.Value)
	}

	performance := make([]transfer.PostPerformance, 0, len(targets))
	for _, t := range targets {
		m := sums[t.PostPlatformID]
		if m == nil {
			m = &metricSums{}
		}
		performance = append(performance, transfer.PostPerformance{
			PostID:         t.PostID,
			Title:          t.Title,
			Platform:       t.Platform,
			Views:          m.views,
			Likes:          m.likes,
			Comments:       m.comments,
			Shares:         m.shares,
			EngagementRate: engagementRate(*m),
			PublishedAt:    t.PublishedAt,
		})
	}

	sort.SliceStable(performance, func(i, j int) bool {
		return performance[i].EngagementRate > performance[j].EngagementRate
	})

	if len(performance) > limit {
		performance = performance[:limit]
	}
	return performance, nil
}

// TrendData buckets metric sums by UTC calendar day over a trailing
// window. Only days with at least one event appear.
func (s *analyticsService) TrendData(ctx context.Context, userID int64, days int) ([]transfer.TrendPoint, error) {
	if days <= 0 {
		days = DefaultTrendWindow
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	metrics, err := s.me.ListForUserSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*transfer.TrendPoint)
	for _, row := range metrics {
		date := row.RecordedAt.UTC().Format("2006-01-02")
		point, ok := buckets[date]
		if !ok {
			point = &transfer.TrendPoint{Date: date}
			buckets[date] = point
		}
		switch row.MetricType {
		case "views":
			point.Views += row.Value
		case "likes":
			point.Likes += row.Value
		case "comments":
			point.Comments += row.Value
		case "shares":
			point.Shares += row.Value
		}
	}

	trend := make([]transfer.TrendPoint, 0, len(buckets))
	for _, point := range buckets {
		trend = append(trend, *point)
	}
	sort.Slice(trend, func(i, j int) bool {
		return trend[i].Date < trend[j].Date
	})
	return trend, nil
}

// Dashboard runs all four projections concurrently for one page render.
// A failed projection degrades to its zero value; it never fails the page.
func (s *analyticsService) Dashboard(ctx context.Context, userID int64) *transfer.AnalyticsDashboard {
	dashboard := &transfer.AnalyticsDashboard{}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		overview, err := s.Overview(ctx, userID)
		if err != nil {
			slog.Info(err.Error())
			return
		}
		dashboard.Overview = overview
	}()

	go func() {
		defer wg.Done()
		platforms, err := s.PlatformBreakdown(ctx, userID)
		if err != nil {
			slog.Info(err.Error())
			return
		}
		dashboard.Platforms = platforms
	}()

	go func() {
		defer wg.Done()
		topPosts, err := s.TopPosts(ctx, userID, 10)
		if err != nil {
			slog.Info(err.Error())
			return
		}
		dashboard.TopPosts = topPosts
	}()

	go func() {
		defer wg.Done()
		trends, err := s.TrendData(ctx, userID, DefaultTrendWindow)
		if err != nil {
			slog.Info(err.Error())
			return
		}
		dashboard.Trends = trends
	}()

	wg.Wait()
	return dashboard
}
