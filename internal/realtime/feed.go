package realtime

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// ChannelListingsChanged carries one message per mutation of the listings
// table, regardless of row or column.
const ChannelListingsChanged = "bhandaras:changed"

// ChangeFeed is the store's change-notification stream for the listings
// table. Subscribers receive a signal per mutation; signals carry no payload
// because the contract is a full refetch, not incremental patching.
type ChangeFeed interface {
	// Publish signals that the listings table changed.
	Publish(ctx context.Context) error

	// Subscribe returns a channel that receives a signal per change, plus a
	// cancel func that must be called on teardown to stop the feed. Signals
	// may coalesce; subscribers must not assume one signal per mutation.
	Subscribe(ctx context.Context) (<-chan struct{}, func(), error)
}

// RedisChangeFeed implements ChangeFeed using Redis Pub/Sub.
type RedisChangeFeed struct {
	client *redis.Client
}

// NewChangeFeed creates a ChangeFeed backed by Redis Pub/Sub.
func NewChangeFeed(client *redis.Client) ChangeFeed {
	return &RedisChangeFeed{client: client}
}

func (f *RedisChangeFeed) Publish(ctx context.Context) error {
	if err := f.client.Publish(ctx, ChannelListingsChanged, "changed").Err(); err != nil {
		log.Printf("[ChangeFeed] Publish FAILED: channel=%s err=%v", ChannelListingsChanged, err)
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

func (f *RedisChangeFeed) Subscribe(ctx context.Context) (<-chan struct{}, func(), error) {
	pubsub := f.client.Subscribe(ctx, ChannelListingsChanged)

	// Force the subscription to be established before returning, so callers
	// don't miss changes published immediately after Subscribe.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe to change feed: %w", err)
	}

	out := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
				// Coalesce: a pending signal already implies a refetch.
				select {
				case out <- struct{}{}:
				default:
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		close(done)
		if err := pubsub.Close(); err != nil {
			log.Printf("[ChangeFeed] Unsubscribe close error: %v", err)
		}
	}

	log.Printf("[ChangeFeed] Subscribed: channel=%s", ChannelListingsChanged)
	return out, cancel, nil
}
