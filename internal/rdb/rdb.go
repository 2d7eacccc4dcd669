// Package rdb holds the optional redis connection used to throttle clients.
package rdb

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lerndmina/ContributionsLeaderboard/internal/logger"
)

const (
	rateLimitPfx = "contribboard:rl:"
	pingTimeout  = 3 * time.Second
)

type Client struct {
	rdb *redis.Client
}

// New connects to redisURL and fails unless the server answers a ping.
func New(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("rdb.New: parse url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("rdb.New: ping: %w", err)
	}
	return &Client{rdb: client}, nil
}

func (c *Client) Close() error { return c.rdb.Close() }

// ── Rate limiting ─────────────────────────────────────────────────────────────

// hit counts one request from ip in the fixed window containing now and
// returns the running count and when the window closes.
func (c *Client) hit(ctx context.Context, ip string, window time.Duration, now time.Time) (int64, time.Time, error) {
	start := now.Truncate(window)
	reset := start.Add(window)
	key := rateLimitPfx + ip + ":" + strconv.FormatInt(start.Unix(), 10)

	var count *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		count = p.Incr(ctx, key)
		p.ExpireAt(ctx, key, reset.Add(time.Second))
		return nil
	})
	if err != nil {
		return 0, reset, err
	}
	return count.Val(), reset, nil
}

// RateLimit allows max requests per client IP in each window. Mount it after
// chi's middleware.RealIP so proxied clients are told apart. A nil Client, or
// a redis failure, lets requests through.
func (c *Client) RateLimit(max int, window time.Duration) func(http.Handler) http.Handler {
	if window < time.Second {
		window = time.Second
	}
	return func(next http.Handler) http.Handler {
		if c == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			n, reset, err := c.hit(r.Context(), clientIP(r), window, now)
			if err != nil {
				logger.Warn("rdb: rate limit check failed: %v", err)
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(max) - n
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(max))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if n > int64(max) {
				retry := int(reset.Sub(now).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, "rate limited", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the host part of RemoteAddr, which RealIP may already have
// replaced with a bare address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
