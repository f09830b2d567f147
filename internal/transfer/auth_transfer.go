package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type PostCreation struct {
	Title            string `form:"title"`
	Body             string `form:"body"`
	ScheduledAt      string `form:"scheduled_at"`
	SelectedAccounts string `form:"selected_accounts"`
}

type MetricIngest struct {
	PostPlatformID int64  `json:"post_platform_id"`
	MetricType     string `json:"metric_type"`
	Value          int64  `json:"value"`
}
