package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

// EnqueuePost schedules the publish task for when the post is due. The
// task id is derived from the post id so re-scheduling the same post
// replaces rather than duplicates the task.
func EnqueuePost(asynqClient *asynq.Client, payload PublishPostPayload, delay time.Duration) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)

	_, err = asynqClient.Enqueue(task,
		asynq.ProcessIn(delay),
		asynq.TaskID(fmt.Sprintf("publish:post:%d", payload.PostID)),
	)
	if err != nil {
		return err
	}

	log.Printf("Publish task scheduled: %+v", payload)
	return nil
}
