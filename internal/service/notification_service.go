package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/studybot/pkg/jobs"
)

// NoticeKind labels why a direct message is sent.
type NoticeKind string

const (
	NoticeCancellation NoticeKind = "cancellation"
	NoticeInvitation   NoticeKind = "invitation"
	NoticeAcceptance   NoticeKind = "acceptance"
)

// Notice is a direct message addressed to one chat member.
type Notice struct {
	Kind        NoticeKind `json:"kind"`
	RecipientID string     `json:"recipient_id"`
	EventID     string     `json:"event_id"`
	Message     string     `json:"message"`
}

// Notifier delivers a notice to the chat platform.
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

// LogNotifier writes notices to the log. It stands in for a chat-platform client.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, notice Notice) error {
	n.logger.Info("notice delivered",
		zap.String("kind", string(notice.Kind)),
		zap.String("recipient_id", notice.RecipientID),
		zap.String("event_id", notice.EventID),
		zap.String("message", notice.Message),
	)
	return nil
}

// MemoryNotifier keeps delivered notices in memory.
type MemoryNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify implements Notifier.
func (n *MemoryNotifier) Notify(_ context.Context, notice Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

// Notices returns a copy of everything delivered so far.
func (n *MemoryNotifier) Notices() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notice, len(n.notices))
	copy(out, n.notices)
	return out
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// NotificationService hands notices to the background queue, or delivers them
// inline when no queue is attached.
type NotificationService struct {
	queue    jobDispatcher
	notifier Notifier
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewNotificationService constructs the dispatcher. queue may be nil.
func NewNotificationService(queue jobDispatcher, notifier Notifier, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &NotificationService{queue: queue, notifier: notifier, metrics: metrics, logger: logger}
}

// AttachQueue sets the queue once it has been built around Handle.
func (s *NotificationService) AttachQueue(queue jobDispatcher) {
	s.queue = queue
}

// Send schedules delivery of every notice. Failures are logged, never returned.
func (s *NotificationService) Send(ctx context.Context, notices ...Notice) {
	for _, notice := range notices {
		if s.queue == nil {
			if err := s.deliver(ctx, notice); err != nil {
				s.logger.Warn("inline notice delivery failed", zap.String("recipient_id", notice.RecipientID), zap.Error(err))
			}
			continue
		}
		job := jobs.Job{ID: uuid.NewString(), Type: string(notice.Kind), Payload: notice}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue notice", zap.String("recipient_id", notice.RecipientID), zap.Error(err))
		}
	}
}

// Handle is the queue handler for notice jobs.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(Notice)
	if !ok {
		s.logger.Error("unexpected notice payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	return s.deliver(ctx, notice)
}

func (s *NotificationService) deliver(ctx context.Context, notice Notice) error {
	err := s.notifier.Notify(ctx, notice)
	s.metrics.RecordNotification(string(notice.Kind), err == nil)
	if err != nil {
		return fmt.Errorf("deliver %s notice to %s: %w", notice.Kind, notice.RecipientID, err)
	}
	return nil
}
