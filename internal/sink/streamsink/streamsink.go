// Package streamsink implements a stream/firehose-style RegionalClient
// backed by Redis streams, standing in for a cloud delivery-stream service.
package streamsink

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"

	"github.com/cloudshuttle/logshuttle/internal/agenterrors"
)

// Options configures one region's stream client.
type Options struct {
	Addr       string
	StreamKey  string
	RatePerSec float64
}

// Client issues XADD calls against a Redis stream, rate-limited per region.
type Client struct {
	rdb       *redis.Client
	streamKey string
	limiter   *rate.Limiter
}

func New(opts Options) *Client {
	rdb := redis.NewClient(&redis.Options{Addr: opts.Addr})
	limit := opts.RatePerSec
	if limit <= 0 {
		limit = 200
	}
	return &Client{
		rdb:       rdb,
		streamKey: opts.StreamKey,
		limiter:   rate.NewLimiter(rate.Limit(limit), int(limit)),
	}
}

// Send writes each record as a single XADD entry's "body" field, honoring
// the configured rate limit and request deadline.
func (c *Client) Send(ctx context.Context, records [][]byte) error {
	for _, record := range records {
		if err := c.limiter.Wait(ctx); err != nil {
			return agenterrors.CancelledErr("streamsink-send")
		}
		sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := c.rdb.XAdd(sendCtx, &redis.XAddArgs{
			Stream: c.streamKey,
			Values: map[string]interface{}{"body": record},
		}).Err()
		cancel()
		if err != nil {
			return agenterrors.TransientTransportErr("redis-xadd", err)
		}
	}
	return nil
}

func (c *Client) Close() error { return c.rdb.Close() }
