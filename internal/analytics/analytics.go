// Package analytics reports leaderboard views to PostHog. Without an API key
// every method is a no-op.
package analytics

import (
	"time"

	"github.com/posthog/posthog-go"

	"github.com/lerndmina/ContributionsLeaderboard/internal/logger"
)

const (
	DefaultHost = "https://us.i.posthog.com"

	leaderboardViewEvent = "leaderboard_viewed"
)

// Client is safe to use when nil or zero.
type Client struct {
	ph posthog.Client
}

func New(apiKey, host string) *Client {
	if apiKey == "" {
		return &Client{}
	}
	if host == "" {
		host = DefaultHost
	}
	ph, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: host})
	if err != nil {
		logger.Warn("analytics: posthog disabled: %v", err)
		return &Client{}
	}
	return &Client{ph: ph}
}

// Enabled reports whether events are sent anywhere.
func (c *Client) Enabled() bool { return c != nil && c.ph != nil }

// Close flushes queued events.
func (c *Client) Close() {
	if !c.Enabled() {
		return
	}
	if err := c.ph.Close(); err != nil {
		logger.Warn("analytics: flush on close: %v", err)
	}
}

// LeaderboardViewed records one view of path with the query parameters it
// was rendered with.
func (c *Client) LeaderboardViewed(visitorID, path string, params map[string]interface{}) {
	if !c.Enabled() {
		return
	}
	props := posthog.NewProperties().Set("$current_url", path)
	for k, v := range params {
		props.Set(k, v)
	}
	err := c.ph.Enqueue(posthog.Capture{
		DistinctId: visitorID,
		Event:      leaderboardViewEvent,
		Timestamp:  time.Now(),
		Properties: props,
	})
	if err != nil {
		logger.Debug("analytics: enqueue %s: %v", leaderboardViewEvent, err)
	}
}
