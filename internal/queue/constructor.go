package queue

import (
	"github.com/postpulse/postpulse/internal/repository"
	"github.com/postpulse/postpulse/internal/service"
)

type Queue struct {
	pr      repository.PostRepository
	pp      repository.PostPlatformRepository
	sa      repository.SocialAccountRepository
	ma      repository.MediaAssetRepository
	publish service.PublishService
}

func NewQueue(
	pr repository.PostRepository,
	pp repository.PostPlatformRepository,
	sa repository.SocialAccountRepository,
	ma repository.MediaAssetRepository,
	publish service.PublishService) *Queue {
	return &Queue{
		pr:      pr,
		pp:      pp,
		sa:      sa,
		ma:      ma,
		publish: publish,
	}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
