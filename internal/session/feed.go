package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"treasure-chess/internal/obslog"
)

const feedChannelPrefix = "session:feed:"

// Feed broadcasts full session records over Redis pub/sub, one channel
// per pair. Subscribers receive every committed write; delivery is
// at-most-once, so consumers reconcile against the store on reconnect.
type Feed struct {
	rdb *redis.Client
}

func NewFeed(rdb *redis.Client) *Feed {
	return &Feed{rdb: rdb}
}

func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func feedChannel(pairKey string) string { return feedChannelPrefix + pairKey }

// Publish pushes the full record to the pair's channel. Always publish
// the committed state, never a diff; late or reordered snapshots are
// then safe for subscribers to drop.
func (f *Feed) Publish(ctx context.Context, rec *Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := f.rdb.Publish(ctx, feedChannel(rec.PairKey), payload).Err(); err != nil {
		return fmt.Errorf("publish record: %w", err)
	}
	return nil
}

// Subscription delivers decoded records for one pair until closed.
type Subscription struct {
	pubsub *redis.PubSub
	out    chan *Record
	cancel context.CancelFunc
}

// C returns the record stream. The channel closes when the subscription
// is closed or the context ends.
func (s *Subscription) C() <-chan *Record { return s.out }

func (s *Subscription) Close() {
	s.cancel()
	s.pubsub.Close()
}

// Subscribe starts listening on the pair's channel. Malformed payloads
// are logged and dropped rather than surfaced.
func (f *Feed) Subscribe(ctx context.Context, pairKey string) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	pubsub := f.rdb.Subscribe(ctx, feedChannel(pairKey))
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", pairKey, err)
	}

	sub := &Subscription{
		pubsub: pubsub,
		out:    make(chan *Record, 16),
		cancel: cancel,
	}

	go func() {
		defer close(sub.out)
		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				var rec Record
				if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
					obslog.L().Warn("feed_malformed_payload",
						zap.String("channel", msg.Channel),
						zap.Error(err))
					continue
				}
				select {
				case sub.out <- &rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return sub, nil
}
