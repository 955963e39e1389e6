// Package notifications delivers listing lifecycle events to connected users.
//
// Services publish events to Redis; every API instance subscribes and fans the
// events out to the websocket clients it holds.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types.
const (
	EventWebsiteSubmitted            = "website.submitted"
	EventWebsiteVerified             = "website.verified"
	EventWebsiteUnderReview          = "website.under_review"
	EventWebsiteApproved             = "website.approved"
	EventWebsiteRejected             = "website.rejected"
	EventWebsitePaused               = "website.paused"
	EventWebsiteResumed              = "website.resumed"
	EventWebsiteDeleted              = "website.deleted"
	EventWebsiteOwnershipTransferred = "website.ownership_transferred"
	EventWebsiteMethodsUpdated       = "website.methods_updated"
)

const (
	userChannelPrefix = "notifications:user:"
	adminChannel      = "notifications:admins"
)

// Event is the websocket frame sent to clients.
type Event struct {
	Type      string         `json:"type"`
	WebsiteID uint           `json:"websiteId"`
	Payload   map[string]any `json:"payload,omitempty"`
	At        time.Time      `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, websiteID uint, payload map[string]any) Event {
	return Event{Type: eventType, WebsiteID: websiteID, Payload: payload, At: time.Now().UTC()}
}

// Publisher is what services need to emit events.
type Publisher interface {
	PublishUser(ctx context.Context, userID uint, ev Event) error
	PublishAdmins(ctx context.Context, ev Event) error
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends an event to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishAdmins sends an event to every connected admin.
func (n *Notifier) PublishAdmins(ctx context.Context, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, adminChannel, payload).Err()
}

// StartPatternSubscriber subscribes to user and admin channels and calls onMessage
// for each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", adminChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}
