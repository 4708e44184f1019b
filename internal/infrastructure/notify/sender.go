// Package notify implements the notification delivery collaborator: a queued
// sender draining into per-channel deliverers.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tutorhub/tutorhub/internal/domain/notification"
)

// ErrQueueClosed is returned when sending after Close.
var ErrQueueClosed = errors.New("notify: sender is closed")

// Deliverer delivers one notification over a single channel type.
type Deliverer interface {
	Deliver(ctx context.Context, n *notification.Notification) error
}

// QueuedSender implements notification.Sender. Send enqueues and returns;
// a background worker drains the queue into the configured deliverers.
// Delivery failures are logged, never surfaced to the enqueuer.
type QueuedSender struct {
	deliverers map[notification.ChannelType]Deliverer
	queue      chan *notification.Notification
	logger     *slog.Logger

	mu      sync.RWMutex
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewQueuedSender creates a sender with the given per-channel deliverers and
// starts its worker.
func NewQueuedSender(deliverers map[notification.ChannelType]Deliverer, queueSize int, logger *slog.Logger) *QueuedSender {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	s := &QueuedSender{
		deliverers: deliverers,
		queue:      make(chan *notification.Notification, queueSize),
		logger:     logger.With("component", "notification_sender"),
		closeCh:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.worker()
	return s
}

// Send implements notification.Sender. The read lock is held across the
// enqueue so Close cannot observe the sender as idle while an enqueue is
// still in flight.
func (s *QueuedSender) Send(ctx context.Context, n *notification.Notification) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrQueueClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.queue <- n:
		return nil
	}
}

// Close stops accepting new notifications and waits for the worker to drain
// everything already accepted. The queue channel itself is never closed: a
// Send racing Close returns ErrQueueClosed instead of hitting a closed
// channel.
func (s *QueuedSender) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.closeCh)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *QueuedSender) worker() {
	defer s.wg.Done()

	for {
		select {
		case n := <-s.queue:
			s.dispatch(n)
		case <-s.closeCh:
			for {
				select {
				case n := <-s.queue:
					s.dispatch(n)
				default:
					return
				}
			}
		}
	}
}

func (s *QueuedSender) dispatch(n *notification.Notification) {
	ctx := context.Background()

	for _, ch := range n.Channels {
		d, ok := s.deliverers[ch]
		if !ok {
			s.logger.Warn("no deliverer for channel", "channel", ch, "type", n.Type)
			continue
		}

		if err := d.Deliver(ctx, n); err != nil {
			s.logger.Error("notification delivery failed",
				"channel", ch,
				"type", n.Type,
				"recipient_id", n.RecipientID,
				"error", err,
			)
			continue
		}

		s.logger.Debug("notification delivered",
			"channel", ch,
			"type", n.Type,
			"recipient_id", n.RecipientID,
		)
	}
}

// LogDeliverer logs notifications instead of sending them. Used for the push
// channel until a real provider is wired, and in development for email.
type LogDeliverer struct {
	channel notification.ChannelType
	logger  *slog.Logger
}

// NewLogDeliverer creates a LogDeliverer for the given channel type.
func NewLogDeliverer(channel notification.ChannelType, logger *slog.Logger) *LogDeliverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDeliverer{
		channel: channel,
		logger:  logger.With("deliverer", string(channel)),
	}
}

// Deliver implements Deliverer.
func (d *LogDeliverer) Deliver(_ context.Context, n *notification.Notification) error {
	d.logger.Info("delivering notification",
		"recipient_id", n.RecipientID,
		"subject", n.Subject,
		"body", n.Body,
	)
	return nil
}
