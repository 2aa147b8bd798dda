package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentNotification struct {
	to        string
	listing   string
	likeCount int
}

type fakeMailer struct {
	sent []sentNotification
	err  error
}

func (f *fakeMailer) SendLikeNotification(to, listing string, likeCount int) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentNotification{to: to, listing: listing, likeCount: likeCount})
	return nil
}

func newTestService(mailer Mailer) *JobService {
	logger := zerolog.Nop()
	return &JobService{mailer: mailer, logger: &logger}
}

func TestNewLikeNotificationTask(t *testing.T) {
	p := LikeNotificationPayload{
		To:        "owner@example.com",
		Listing:   "babysitting job",
		ListingID: "0b7d2c1e-7f5c-4d8a-9d51-3c8a4a1f6e20",
		LikedBy:   "user_2",
		LikeCount: 2,
	}

	task, err := NewLikeNotificationTask(p)
	require.NoError(t, err)
	assert.Equal(t, TaskLikeNotification, task.Type())

	var decoded LikeNotificationPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, p, decoded)
}

func TestHandleLikeNotificationTask(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newTestService(mailer)

	task, err := NewLikeNotificationTask(LikeNotificationPayload{
		To:        "sitter@example.com",
		Listing:   "sitter profile",
		LikeCount: 5,
	})
	require.NoError(t, err)

	require.NoError(t, svc.handleLikeNotificationTask(context.Background(), task))
	assert.Equal(t, []sentNotification{{to: "sitter@example.com", listing: "sitter profile", likeCount: 5}}, mailer.sent)
}

func TestHandleLikeNotificationTask_SendFailureIsRetried(t *testing.T) {
	svc := newTestService(&fakeMailer{err: errors.New("provider down")})

	task, err := NewLikeNotificationTask(LikeNotificationPayload{To: "a@example.com"})
	require.NoError(t, err)

	err = svc.handleLikeNotificationTask(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleLikeNotificationTask_BadPayloadSkipsRetry(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newTestService(mailer)

	task := asynq.NewTask(TaskLikeNotification, []byte("{not json"), asynq.Timeout(time.Second))

	err := svc.handleLikeNotificationTask(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, mailer.sent)
}
