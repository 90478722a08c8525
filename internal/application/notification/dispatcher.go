package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/lostfound-api/internal/pkg/sse"
)

// EventCreated is the SSE event name pushed for every stored notification.
const EventCreated = "notification.created"

const (
	defaultQueueSize = 1024
	defaultWorkers   = 4
	deliverTimeout   = 5 * time.Second
)

// Notifier is the fire-and-forget sink used by the item, claim and sweeper
// services. Notify never fails; problems are only visible in the logs.
type Notifier interface {
	Notify(recipientID, title, content string, t domain.NotificationType, relatedID string)
}

type notificationWriter interface {
	Put(ctx context.Context, n *domain.Notification) error
}

type pusher interface {
	Publish(ctx context.Context, userID string, ev sse.Event) error
}

type recipientLookup interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// Channel delivers a stored notification outside the application.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, to *domain.User, n *domain.Notification) error
}

type DispatcherDeps struct {
	Store     notificationWriter
	Pusher    pusher          // optional
	Users     recipientLookup // required only when Channels is non-empty
	Channels  []Channel
	QueueSize int
}

// Dispatcher persists and delivers notifications on a bounded queue drained
// by a worker pool. When the queue is full the notification is dropped.
type Dispatcher struct {
	store    notificationWriter
	pusher   pusher
	users    recipientLookup
	channels []Channel
	queue    chan *domain.Notification
	now      func() time.Time
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	size := deps.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Dispatcher{
		store:    deps.Store,
		pusher:   deps.Pusher,
		users:    deps.Users,
		channels: deps.Channels,
		queue:    make(chan *domain.Notification, size),
		now:      time.Now,
	}
}

func (d *Dispatcher) Notify(recipientID, title, content string, t domain.NotificationType, relatedID string) {
	if recipientID == "" {
		slog.Warn("notification without recipient dropped", "title", title, "related_id", relatedID)
		return
	}
	n := &domain.Notification{
		NotificationID:  id.New(),
		RecipientUserID: recipientID,
		Title:           title,
		Content:         content,
		Type:            t,
		RelatedID:       relatedID,
		CreatedAt:       d.now().UTC(),
	}
	select {
	case d.queue <- n:
	default:
		slog.Warn("notification queue full, dropped",
			"user_id", recipientID, "type", t.String(), "related_id", relatedID)
	}
}

// Start launches workers and returns a stop func. Stop lets the workers
// drain what is already queued until ctx expires.
func (d *Dispatcher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = defaultWorkers
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case n := <-d.queue:
					d.deliver(n)
				case <-stopCh:
					d.drain()
					return
				}
			}
		}()
	}
	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() { close(stopCh) })
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			slog.Warn("notification dispatcher stopped with pending work", "queued", len(d.queue))
			return ctx.Err()
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		default:
			return
		}
	}
}

// QueueLen is a sampled queue depth.
func (d *Dispatcher) QueueLen() int { return len(d.queue) }

func (d *Dispatcher) deliver(n *domain.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	log := slog.With("notification_id", n.NotificationID, "user_id", n.RecipientUserID, "type", n.Type.String())
	if err := d.store.Put(ctx, n); err != nil {
		log.Error("failed to store notification", "err", err)
		return
	}
	if d.pusher != nil {
		if err := d.pusher.Publish(ctx, n.RecipientUserID, sse.Event{Type: EventCreated, Data: n}); err != nil {
			log.Warn("failed to push notification", "err", err)
		}
	}
	if len(d.channels) == 0 || d.users == nil {
		return
	}
	u, err := d.users.Get(ctx, n.RecipientUserID)
	if err != nil {
		log.Warn("failed to load recipient for delivery", "err", err)
		return
	}
	for _, ch := range d.channels {
		if err := ch.Deliver(ctx, u, n); err != nil {
			log.Warn("failed to deliver notification", "channel", ch.Name(), "err", err)
		}
	}
}
