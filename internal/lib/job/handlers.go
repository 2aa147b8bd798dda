package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// handleLikeNotificationTask sends the email described by a like
// notification task. A malformed payload is not retried.
func (j *JobService) handleLikeNotificationTask(ctx context.Context, t *asynq.Task) error {
	var p LikeNotificationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal like notification payload: %v: %w", err, asynq.SkipRetry)
	}

	j.logger.Info().
		Str("type", "like").
		Str("listing_id", p.ListingID).
		Str("to", p.To).
		Msg("Processing like notification task")

	if err := j.mailer.SendLikeNotification(p.To, p.Listing, p.LikeCount); err != nil {
		j.logger.Error().
			Str("type", "like").
			Str("listing_id", p.ListingID).
			Str("to", p.To).
			Err(err).
			Msg("Failed to send like notification")
		return err
	}

	j.logger.Info().
		Str("type", "like").
		Str("listing_id", p.ListingID).
		Str("to", p.To).
		Msg("Successfully sent like notification")

	return nil
}
