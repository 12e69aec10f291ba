package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/advocate-booking/internal/model"
)

// Directory resolves event recipients to reachable users.
type Directory interface {
	ClientContact(ctx context.Context, clientID uint64) (model.Contact, error)
	AdvocateContact(ctx context.Context, advocateID uint64) (model.Contact, error)
	UserContact(ctx context.Context, userID uint64) (model.Contact, error)
	AssistantsOf(ctx context.Context, advocateID uint64) ([]model.Assistant, error)
}

// Inbox stores in-app notifications.
type Inbox interface {
	InsertNotification(ctx context.Context, n *model.Notification) error
}

// Channel is an outbound delivery route such as email or SMS.  A channel
// that cannot reach a contact (no phone number, say) returns nil.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, to model.Contact, title, message string) error
}

// Consumer drains the notifications queue.  Every recipient gets an inbox
// row and a delivery attempt on each channel.
type Consumer struct {
	URL       string
	Directory Directory
	Inbox     Inbox
	Channels  []Channel
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff when the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Printf("notify-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("notify-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notify-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(NotificationsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(NotificationsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				log.Printf("notify-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // malformed, do not requeue
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle delivers one encoded event.  Only a malformed body is an error;
// per-recipient failures are logged and skipped.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Title == "" {
		return errors.New("event has no title")
	}
	kind := model.NotificationKind(ev.Kind)
	if kind == "" {
		kind = model.NotifySystem
	}
	for _, to := range c.recipients(ctx, ev) {
		n := &model.Notification{UserID: to.UserID, Title: ev.Title, Message: ev.Message, Kind: kind}
		if err := c.Inbox.InsertNotification(ctx, n); err != nil {
			log.Printf("notify-consumer: store notification for user %d: %v", to.UserID, err)
		}
		for _, chn := range c.Channels {
			if err := chn.Deliver(ctx, to, ev.Title, ev.Message); err != nil {
				log.Printf("notify-consumer: %s to user %d failed: %v", chn.Name(), to.UserID, err)
			}
		}
	}
	return nil
}

// recipients expands the event's addressees.  An advocate's active
// assistants are copied on everything sent to the advocate.
func (c *Consumer) recipients(ctx context.Context, ev NotificationEvent) []model.Contact {
	var (
		out  []model.Contact
		seen = map[uint64]bool{}
	)
	add := func(ct model.Contact, err error, what string, id uint64) {
		if err != nil {
			log.Printf("notify-consumer: resolve %s %d: %v", what, id, err)
			return
		}
		if seen[ct.UserID] {
			return
		}
		seen[ct.UserID] = true
		out = append(out, ct)
	}

	if ev.ClientID != 0 {
		ct, err := c.Directory.ClientContact(ctx, ev.ClientID)
		add(ct, err, "client", ev.ClientID)
	}
	if ev.AdvocateID != 0 {
		ct, err := c.Directory.AdvocateContact(ctx, ev.AdvocateID)
		add(ct, err, "advocate", ev.AdvocateID)
		assistants, err := c.Directory.AssistantsOf(ctx, ev.AdvocateID)
		if err != nil {
			log.Printf("notify-consumer: assistants of advocate %d: %v", ev.AdvocateID, err)
		}
		for _, a := range assistants {
			if !a.IsActive {
				continue
			}
			ct, err := c.Directory.UserContact(ctx, a.UserID)
			add(ct, err, "user", a.UserID)
		}
	}
	for _, id := range ev.UserIDs {
		ct, err := c.Directory.UserContact(ctx, id)
		add(ct, err, "user", id)
	}
	return out
}
