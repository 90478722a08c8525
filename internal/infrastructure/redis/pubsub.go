package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lostfound-api/internal/pkg/sse"
)

const DefaultChannel = "lostfound:notification:sse"

// envelope is the message shape carried on the shared channel.
type envelope struct {
	UserID string          `json:"user_id"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
	SentAt time.Time       `json:"sent_at"`
}

// Bridge fans SSE events out to every instance. Publish writes to Redis and
// Run replays each message into the local hub, so a stream open on any
// instance sees events produced on any other.
type Bridge struct {
	client  *goredis.Client
	channel string
	hub     *sse.Hub
}

func NewBridge(client *goredis.Client, channel string, hub *sse.Hub) *Bridge {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Bridge{client: client, channel: channel, hub: hub}
}

func (b *Bridge) Publish(ctx context.Context, userID string, ev sse.Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("encode sse payload: %w", err)
	}
	body, err := json.Marshal(envelope{UserID: userID, Type: ev.Type, Data: data, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode sse envelope: %w", err)
	}
	return b.client.Publish(ctx, b.channel, body).Err()
}

// Run subscribes to the channel and blocks until ctx is cancelled or the
// subscription fails.
func (b *Bridge) Run(ctx context.Context) error {
	ps := b.client.Subscribe(ctx, b.channel)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	slog.Info("sse redis bridge subscribed", "channel", b.channel)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Warn("sse bridge: bad message", "channel", b.channel, "err", err)
				continue
			}
			if env.UserID == "" || env.Type == "" {
				continue
			}
			_ = b.hub.Publish(ctx, env.UserID, sse.Event{Type: env.Type, Data: env.Data})
		}
	}
}
