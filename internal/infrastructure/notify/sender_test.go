package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub/internal/domain/notification"
	"github.com/tutorhub/tutorhub/internal/domain/tutor"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

type captureDeliverer struct {
	mu        sync.Mutex
	delivered []*notification.Notification
	err       error
}

func (c *captureDeliverer) Deliver(_ context.Context, n *notification.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.delivered = append(c.delivered, n)
	return nil
}

func (c *captureDeliverer) all() []*notification.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*notification.Notification(nil), c.delivered...)
}

func approvedNotification(t *testing.T) *notification.Notification {
	t.Helper()
	owner := &user.User{ID: uuid.New(), Name: "Bek"}
	p, err := tutor.NewProfile(owner.ID, "algebra", "bio", 25)
	require.NoError(t, err)
	return notification.NewTutorApproved(owner, *p)
}

func TestQueuedSenderFansOutPerChannel(t *testing.T) {
	email := &captureDeliverer{}
	push := &captureDeliverer{}
	s := NewQueuedSender(map[notification.ChannelType]Deliverer{
		notification.ChannelEmail: email,
		notification.ChannelPush:  push,
	}, 8, nil)

	n := approvedNotification(t)
	require.NoError(t, s.Send(context.Background(), n))

	// Close drains the queue, so afterwards every delivery has happened.
	s.Close()

	require.Len(t, email.all(), 1)
	require.Len(t, push.all(), 1)
	assert.Equal(t, n.RecipientID, email.all()[0].RecipientID)
}

func TestQueuedSenderSkipsMissingDeliverer(t *testing.T) {
	email := &captureDeliverer{}
	s := NewQueuedSender(map[notification.ChannelType]Deliverer{
		notification.ChannelEmail: email,
	}, 8, nil)

	// The approved notification also targets push; with no push deliverer
	// the email leg still goes out.
	require.NoError(t, s.Send(context.Background(), approvedNotification(t)))
	s.Close()

	assert.Len(t, email.all(), 1)
}

func TestQueuedSenderSwallowsDeliveryFailures(t *testing.T) {
	email := &captureDeliverer{err: context.DeadlineExceeded}
	push := &captureDeliverer{}
	s := NewQueuedSender(map[notification.ChannelType]Deliverer{
		notification.ChannelEmail: email,
		notification.ChannelPush:  push,
	}, 8, nil)

	require.NoError(t, s.Send(context.Background(), approvedNotification(t)))
	s.Close()

	// The failing email leg does not stop the push leg.
	assert.Len(t, push.all(), 1)
}

func TestQueuedSenderCloseDrainsAcceptedSends(t *testing.T) {
	email := &captureDeliverer{}
	push := &captureDeliverer{}
	s := NewQueuedSender(map[notification.ChannelType]Deliverer{
		notification.ChannelEmail: email,
		notification.ChannelPush:  push,
	}, 32, nil)

	const sends = 20
	for i := 0; i < sends; i++ {
		require.NoError(t, s.Send(context.Background(), approvedNotification(t)))
	}
	s.Close()

	assert.Len(t, email.all(), sends)
	assert.Len(t, push.all(), sends)
}

func TestQueuedSenderSendsRacingCloseNeverPanic(t *testing.T) {
	email := &captureDeliverer{}
	s := NewQueuedSender(map[notification.ChannelType]Deliverer{
		notification.ChannelEmail: email,
	}, 4, nil)

	n := approvedNotification(t)

	var (
		wg       sync.WaitGroup
		accepted int64
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Send(context.Background(), n)
			if err == nil {
				atomic.AddInt64(&accepted, 1)
			} else {
				assert.ErrorIs(t, err, ErrQueueClosed)
			}
		}()
	}

	s.Close()
	wg.Wait()

	// Every send either landed before the close and was delivered, or was
	// turned away cleanly.
	assert.Len(t, email.all(), int(atomic.LoadInt64(&accepted)))
}

func TestQueuedSenderRejectsSendAfterClose(t *testing.T) {
	s := NewQueuedSender(nil, 8, nil)
	s.Close()

	err := s.Send(context.Background(), approvedNotification(t))
	assert.ErrorIs(t, err, ErrQueueClosed)

	// Close is idempotent.
	s.Close()
}
