package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const eventChannel = "carhorizon.events"

// Bridge mirrors published events through redis pub/sub so that every
// server instance's hub delivers the same stream. Each instance publishes
// to one channel and replays everything it receives — its own events
// included — into the local hub.
type Bridge struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewBridge(rdb *redis.Client, logger *zap.Logger) *Bridge {
	return &Bridge{rdb: rdb, logger: logger}
}

func (b *Bridge) forward(env envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return b.rdb.Publish(ctx, eventChannel, raw).Err()
}

// Listen subscribes to the event channel and replays envelopes into the
// hub until the context is cancelled. Malformed payloads are dropped.
func (b *Bridge) Listen(ctx context.Context, hub *Hub) {
	sub := b.rdb.Subscribe(ctx, eventChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("drop event: bad envelope", zap.Error(err))
				continue
			}
			hub.deliver(env)
		}
	}
}
