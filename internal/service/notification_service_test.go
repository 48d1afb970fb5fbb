package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studybot/pkg/jobs"
)

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, Notice) error {
	return errors.New("dm closed")
}

func TestNotificationInlineDelivery(t *testing.T) {
	notifier := &MemoryNotifier{}
	metrics := NewMetricsService()
	svc := NewNotificationService(nil, notifier, metrics, nil)

	svc.Send(context.Background(),
		Notice{Kind: NoticeCancellation, RecipientID: "u1", Message: "one"},
		Notice{Kind: NoticeCancellation, RecipientID: "u2", Message: "two"},
	)

	notices := notifier.Notices()
	require.Len(t, notices, 2)
	assert.Equal(t, "u2", notices[1].RecipientID)
	assert.Equal(t, uint64(2), metrics.Snapshot().NoticesDelivered)
}

func TestNotificationInlineFailureIsCounted(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewNotificationService(nil, failingNotifier{}, metrics, nil)

	svc.Send(context.Background(), Notice{Kind: NoticeInvitation, RecipientID: "u1"})

	assert.Equal(t, uint64(1), metrics.Snapshot().NoticesFailed)
	assert.Error(t, svc.deliver(context.Background(), Notice{Kind: NoticeInvitation, RecipientID: "u1"}))
}

func TestNotificationThroughQueue(t *testing.T) {
	notifier := &MemoryNotifier{}
	svc := NewNotificationService(nil, notifier, nil, nil)
	queue := jobs.NewQueue("notices-test", svc.Handle, jobs.QueueConfig{Workers: 2})
	queue.Start(context.Background())
	defer queue.Stop()
	svc.AttachQueue(queue)

	svc.Send(context.Background(),
		Notice{Kind: NoticeAcceptance, RecipientID: "organizer", Message: "accepted"},
	)

	require.Eventually(t, func() bool {
		return len(notifier.Notices()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "accepted", notifier.Notices()[0].Message)
}

func TestNotificationHandleIgnoresForeignPayload(t *testing.T) {
	notifier := &MemoryNotifier{}
	svc := NewNotificationService(nil, notifier, nil, nil)

	err := svc.Handle(context.Background(), jobs.Job{ID: "1", Type: "other", Payload: "not a notice"})
	assert.NoError(t, err)
	assert.Empty(t, notifier.Notices())
}

func TestNotificationEnqueueFailureIsSwallowed(t *testing.T) {
	notifier := &MemoryNotifier{}
	svc := NewNotificationService(nil, notifier, nil, nil)
	svc.AttachQueue(jobs.NewQueue("stopped", svc.Handle, jobs.QueueConfig{}))

	assert.NotPanics(t, func() {
		svc.Send(context.Background(), Notice{Kind: NoticeCancellation, RecipientID: "u1"})
	})
	assert.Empty(t, notifier.Notices())
}
