package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/repository"
	"github.com/postpulse/postpulse/internal/transfer"
)

// MetricService appends metric events observed for a publish target.
// Events accumulate; re-polling the same metric adds a new row rather
// than updating an old one.
type MetricService interface {
	Record(ctx context.Context, userID int64, in *transfer.MetricIngest) (int64, error)
}

type metricService struct {
	pp repository.PostPlatformRepository
	me repository.MetricEventRepository
}

func NewMetricService(pp repository.PostPlatformRepository, me repository.MetricEventRepository) MetricService {
	return &metricService{
		pp: pp,
		me: me,
	}
}

func (s *metricService) Record(ctx context.Context, userID int64, in *transfer.MetricIngest) (int64, error) {
	if in == nil || in.PostPlatformID == 0 {
		err := errors.New("post platform id is required")
		slog.Info(err.Error())
		return 0, err
	}
	if !models.IsValidMetricType(in.MetricType) {
		err := errors.New("invalid metric type")
		slog.Info(err.Error())
		return 0, err
	}
	if in.Value < 0 {
		err := errors.New("metric value cannot be negative")
		slog.Info(err.Error())
		return 0, err
	}

	ok, err := s.pp.CheckByUserID(ctx, in.PostPlatformID, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		err = errors.New("publish target doesn't exist")
		slog.Info(err.Error())
		return 0, err
	}

	return s.me.Create(ctx, &models.MetricEvent{
		PostPlatformID: in.PostPlatformID,
		MetricType:     in.MetricType,
		Value:          in.Value,
	})
}
