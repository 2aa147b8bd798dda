package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// TaskLikeNotification is the asynq task type of like notification emails.
const TaskLikeNotification = "email:like"

// LikeNotificationPayload is stored in Redis with each like notification task.
type LikeNotificationPayload struct {
	To        string `json:"to"`
	Listing   string `json:"listing"`
	ListingID string `json:"listing_id"`
	LikedBy   string `json:"liked_by"`
	LikeCount int    `json:"like_count"`
}

// NewLikeNotificationTask builds a like notification task for the default
// queue, retried up to 3 times with a 30 second timeout per attempt.
func NewLikeNotificationTask(p LikeNotificationPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskLikeNotification,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue("default"),
		asynq.Timeout(30*time.Second),
	), nil
}

// EnqueueLikeNotification queues an email to the owner of a liked listing.
func (j *JobService) EnqueueLikeNotification(ctx context.Context, p LikeNotificationPayload) error {
	task, err := NewLikeNotificationTask(p)
	if err != nil {
		return err
	}

	info, err := j.Client.EnqueueContext(ctx, task)
	if err != nil {
		return err
	}

	j.logger.Debug().
		Str("task_id", info.ID).
		Str("queue", info.Queue).
		Str("listing_id", p.ListingID).
		Msg("like notification enqueued")

	return nil
}
