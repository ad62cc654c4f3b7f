// Package queue carries outbound notification ids over RabbitMQ.  The
// message rows themselves live in the outbound_messages table; the broker
// only wakes the consumer.
package queue

import "time"

// NotificationQueueName is the durable queue outbound message ids are
// published to.
const NotificationQueueName = "notifications.outbound"

// OutboundMessageEvent announces a QUEUED outbound_messages row.
type OutboundMessageEvent struct {
	MessageID    string    `json:"message_id"`
	Channel      string    `json:"channel"`
	TicketNumber string    `json:"ticket_number,omitempty"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}
