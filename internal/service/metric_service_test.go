package service

import (
	"context"
	"testing"

	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRecordMetric(t *testing.T) {
	pp := new(MockPostPlatformRepository)
	pp.On("CheckByUserID", mock.Anything, int64(7), int64(42)).Return(true, nil)

	me := new(MockMetricEventRepository)
	me.On("Create", mock.Anything, mock.MatchedBy(func(ev *models.MetricEvent) bool {
		return ev.PostPlatformID == 7 && ev.MetricType == "likes" && ev.Value == 12
	})).Return(int64(99), nil)

	ms := NewMetricService(pp, me)

	id, err := ms.Record(context.Background(), 42, &transfer.MetricIngest{
		PostPlatformID: 7,
		MetricType:     "likes",
		Value:          12,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(99), id)
}

func TestRecordMetricValidation(t *testing.T) {
	ms := NewMetricService(new(MockPostPlatformRepository), new(MockMetricEventRepository))

	_, err := ms.Record(context.Background(), 42, nil)
	assert.Error(t, err)

	_, err = ms.Record(context.Background(), 42, &transfer.MetricIngest{MetricType: "likes", Value: 1})
	assert.Error(t, err)

	_, err = ms.Record(context.Background(), 42, &transfer.MetricIngest{PostPlatformID: 7, MetricType: "applause", Value: 1})
	assert.Error(t, err)

	_, err = ms.Record(context.Background(), 42, &transfer.MetricIngest{PostPlatformID: 7, MetricType: "views", Value: -1})
	assert.Error(t, err)
}

func TestRecordMetricForeignTarget(t *testing.T) {
	pp := new(MockPostPlatformRepository)
	pp.On("CheckByUserID", mock.Anything, int64(7), int64(42)).Return(false, nil)

	me := new(MockMetricEventRepository)
	ms := NewMetricService(pp, me)

	_, err := ms.Record(context.Background(), 42, &transfer.MetricIngest{
		PostPlatformID: 7,
		MetricType:     "views",
		Value:          1,
	})
	assert.Error(t, err)
	me.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
