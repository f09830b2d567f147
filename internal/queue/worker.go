package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/transfer"
)

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return q.PublishPost(ctx, payload.PostID)
}

// PublishPost runs a due post through the dispatcher and reflects the
// aggregate outcome on the post: published when any target delivered,
// failed when every target failed.
func (q *Queue) PublishPost(ctx context.Context, postID int64) error {
	post, err := q.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return errors.New("post not found")
	}

	targets, err := q.pp.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errors.New("no accounts selected for publishing")
	}

	// Targets whose account was disconnected carry a zero account id.
	// They are skipped rather than failing the rest of the batch.
	accountIDs := make([]int64, 0, len(targets))
	for _, target := range targets {
		if target.AccountID == 0 {
			log.Printf("Skipping target %d for PostID %d: account disconnected", target.ID, postID)
			continue
		}
		accountIDs = append(accountIDs, target.AccountID)
	}
	if len(accountIDs) == 0 {
		return errors.New("no connected accounts left for publishing")
	}

	accounts, err := q.sa.ListByIDs(ctx, accountIDs)
	if err != nil {
		return err
	}

	content := &transfer.PostContent{
		Title: post.Title,
		Body:  post.Body,
	}
	assets, err := q.ma.ListByPostID(ctx, postID)
	if err != nil {
		log.Printf("Error loading media for PostID %d: %v", postID, err)
	}
	for _, asset := range assets {
		content.MediaURLs = append(content.MediaURLs, asset.FileURL)
	}

	outcomes := q.publish.Publish(ctx, post, content, accounts)

	anySuccess := false
	for _, outcome := range outcomes {
		if outcome != nil && outcome.Status == models.TargetStatusSuccess {
			anySuccess = true
			break
		}
	}

	status := models.PostStatusFailed
	var publishedAt *time.Time
	if anySuccess {
		status = models.PostStatusPublished
		now := time.Now()
		publishedAt = &now
	}

	if err := q.pr.UpdateStatus(ctx, postID, status, publishedAt); err != nil {
		log.Printf("Error updating status for PostID %d: %v", postID, err)
		return err
	}

	return nil
}
