package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lulgamer69/event-ticket-system/internal/model"
	"github.com/lulgamer69/event-ticket-system/internal/queue"
)

// OutboxNotifier persists notifications as QUEUED outbound_messages rows
// and publishes their ids for the delivery consumer.  A publish failure
// leaves the rows QUEUED; staff can resend them from the messages view.
type OutboxNotifier struct {
	outbox    OutboxStore
	publisher EventPublisher
	enabled   func(channel string) bool
}

// NewOutboxNotifier returns a notifier.  Notifications for channels where
// enabled returns false are dropped.  A nil enabled accepts every channel.
func NewOutboxNotifier(outbox OutboxStore, publisher EventPublisher, enabled func(channel string) bool) *OutboxNotifier {
	if enabled == nil {
		enabled = func(string) bool { return true }
	}
	return &OutboxNotifier{outbox: outbox, publisher: publisher, enabled: enabled}
}

func (n *OutboxNotifier) Notify(ctx context.Context, notes ...model.Notification) {
	now := time.Now().UTC()
	rows := make([]model.OutboundMessage, 0, len(notes))
	for _, note := range notes {
		if note.Recipient == "" || !n.enabled(note.Channel) {
			continue
		}
		rows = append(rows, model.OutboundMessage{
			ID:             uuid.NewString(),
			Channel:        note.Channel,
			Recipient:      note.Recipient,
			Subject:        note.Subject,
			Body:           note.Body,
			AttachmentPath: note.AttachmentPath,
			TicketNumber:   note.TicketNumber,
			Status:         model.MessageQueued,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	if len(rows) == 0 {
		return
	}
	if err := n.outbox.Enqueue(ctx, rows); err != nil {
		log.Printf("notify: enqueue %d messages failed: %v", len(rows), err)
		return
	}
	events := make([]queue.OutboundMessageEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, queue.OutboundMessageEvent{
			MessageID:    r.ID,
			Channel:      r.Channel,
			TicketNumber: r.TicketNumber,
			EnqueuedAt:   now,
		})
	}
	if err := n.publisher.Publish(ctx, events...); err != nil {
		log.Printf("notify: publish %d messages failed, left queued: %v", len(events), err)
	}
}

// DeliveryWorker sends stored messages named by queue events.
type DeliveryWorker struct {
	outbox     OutboxStore
	dispatcher MessageDispatcher
	now        func() time.Time
}

func NewDeliveryWorker(outbox OutboxStore, dispatcher MessageDispatcher) *DeliveryWorker {
	return &DeliveryWorker{outbox: outbox, dispatcher: dispatcher, now: time.Now}
}

// Deliver sends one message and records the result.  Delivery failures
// are recorded on the row and are not returned; only a missing or
// unreadable row is an error, which rejects the queue delivery.
func (w *DeliveryWorker) Deliver(ctx context.Context, ev queue.OutboundMessageEvent) error {
	msg, err := w.outbox.Get(ctx, ev.MessageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("message %s: %w", ev.MessageID, ErrMessageNotFound)
	}
	if err != nil {
		return fmt.Errorf("load message %s: %w", ev.MessageID, err)
	}
	if msg.Status == model.MessageSent {
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := w.dispatcher.Dispatch(sendCtx, msg); err != nil {
		log.Printf("notify-consumer: %s via %s to %s failed: %v", msg.ID, msg.Channel, msg.Recipient, err)
		if mErr := w.outbox.MarkFailed(ctx, msg.ID, err.Error()); mErr != nil {
			log.Printf("notify-consumer: mark %s failed: %v", msg.ID, mErr)
		}
		return nil
	}
	if err := w.outbox.MarkSent(ctx, msg.ID, w.now()); err != nil {
		log.Printf("notify-consumer: mark %s sent: %v", msg.ID, err)
	}
	return nil
}
