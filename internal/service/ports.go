package service

import (
	"context"
	"io"
	"time"

	"github.com/lulgamer69/event-ticket-system/internal/document"
	"github.com/lulgamer69/event-ticket-system/internal/model"
	"github.com/lulgamer69/event-ticket-system/internal/payment"
	"github.com/lulgamer69/event-ticket-system/internal/queue"
)

// RegistrationStore is the persistence the workflows need.  It is
// satisfied by *repository.RegistrationRepo.
type RegistrationStore interface {
	Create(ctx context.Context, reg *model.Registration) error
	GetByTicket(ctx context.Context, ticket string) (*model.Registration, error)
	MarkAttended(ctx context.Context, ticket string, at time.Time) (int64, error)
	TransitionPaymentStatus(ctx context.Context, ticket string, from []model.PaymentStatus, to model.PaymentStatus) (int64, error)
	SetPaymentRef(ctx context.Context, ticket, ref string) error
	SetProofPath(ctx context.Context, ticket, path string) error
	ListByPaymentStatus(ctx context.Context, statuses []model.PaymentStatus) ([]model.Registration, error)
	Stats(ctx context.Context) (model.RegistrationStats, error)
}

// OutboxStore is the outbound message table.  It is satisfied by
// *repository.OutboxRepo.
type OutboxStore interface {
	Enqueue(ctx context.Context, msgs []model.OutboundMessage) error
	Get(ctx context.Context, id string) (*model.OutboundMessage, error)
	List(ctx context.Context, status string, limit int) ([]model.OutboundMessage, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, cause string) error
	Requeue(ctx context.Context, id string) (int64, error)
}

type TicketGenerator interface {
	New() (string, error)
}

type TicketRenderer interface {
	Render(f document.TicketFields) (string, error)
	Path(ticket string) string
	Exists(ticket string) bool
}

type ProofStore interface {
	Save(ticket string, src io.Reader) (string, error)
}

type QRDecoder interface {
	Decode(src io.Reader) (string, error)
}

type PaymentGateway interface {
	CreateOrder(ctx context.Context, o payment.Order) (*payment.OrderHandle, error)
}

// EventPublisher wakes the notification consumer.
type EventPublisher interface {
	Publish(ctx context.Context, events ...queue.OutboundMessageEvent) error
}

// MessageDispatcher delivers one stored message.
type MessageDispatcher interface {
	Dispatch(ctx context.Context, m *model.OutboundMessage) error
}

// Notifier accepts notifications for asynchronous delivery.  It never
// fails the caller; problems are logged.
type Notifier interface {
	Notify(ctx context.Context, notes ...model.Notification)
}
