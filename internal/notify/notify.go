// Package notify delivers outbound messages over email and WhatsApp.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/lulgamer69/event-ticket-system/internal/model"
)

// ErrChannelDisabled is returned when a message targets a channel that has
// no configured sender.
var ErrChannelDisabled = errors.New("notification channel not configured")

// Message is one delivery attempt.
type Message struct {
	To             string
	Subject        string
	Body           string
	AttachmentPath string
}

// Sender delivers a message over one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher routes messages to the sender for their channel.
type Dispatcher struct {
	senders map[string]Sender
}

// NewDispatcher returns an empty dispatcher.  Channels without a sender
// fail with ErrChannelDisabled.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{senders: map[string]Sender{}}
}

// Register attaches s to channel, replacing any earlier sender.
func (d *Dispatcher) Register(channel string, s Sender) *Dispatcher {
	d.senders[channel] = s
	return d
}

// Enabled reports whether channel has a sender.
func (d *Dispatcher) Enabled(channel string) bool {
	_, ok := d.senders[channel]
	return ok
}

// Dispatch delivers a persisted outbound message.
func (d *Dispatcher) Dispatch(ctx context.Context, m *model.OutboundMessage) error {
	s, ok := d.senders[m.Channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrChannelDisabled, m.Channel)
	}
	return s.Send(ctx, Message{
		To:             m.Recipient,
		Subject:        m.Subject,
		Body:           m.Body,
		AttachmentPath: m.AttachmentPath,
	})
}
