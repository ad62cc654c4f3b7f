package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lulgamer69/event-ticket-system/internal/config"
	"github.com/lulgamer69/event-ticket-system/internal/model"
	"github.com/lulgamer69/event-ticket-system/internal/queue"
	"github.com/lulgamer69/event-ticket-system/internal/ticket"
)

// defaultPaymentStatuses is what the payments view shows without a filter.
var defaultPaymentStatuses = []model.PaymentStatus{
	model.PaymentPending,
	model.PaymentAwaitingVerification,
	model.PaymentVerified,
	model.PaymentPaid,
}

// verifiableStatuses may be moved to VERIFIED by staff.  VERIFIED is
// included so a repeated verification succeeds without changing anything.
var verifiableStatuses = []model.PaymentStatus{
	model.PaymentPending,
	model.PaymentAwaitingVerification,
	model.PaymentVerified,
}

type AdminService interface {
	VerifyPayment(ctx context.Context, ticket string) (*model.Registration, error)
	ListPayments(ctx context.Context, statuses []model.PaymentStatus) ([]model.Registration, error)
	Stats(ctx context.Context) (model.RegistrationStats, error)
	ListMessages(ctx context.Context, status string, limit int) ([]model.OutboundMessage, error)
	ResendMessage(ctx context.Context, id string) (*model.OutboundMessage, error)
}

// AdminDeps wires an AdminService.
type AdminDeps struct {
	Store     RegistrationStore
	Outbox    OutboxStore
	Publisher EventPublisher
	Documents TicketRenderer
	Notifier  Notifier
	Event     config.EventConfig
	Notify    config.NotifyConfig
	BaseURL   string
}

type adminService struct {
	AdminDeps
	msgs messages
}

func NewAdminService(d AdminDeps) AdminService {
	return &adminService{AdminDeps: d, msgs: newMessages(d.Event, d.Notify, d.BaseURL)}
}

// ParsePaymentStatuses turns a comma separated filter into statuses.
func ParsePaymentStatuses(s string) ([]model.PaymentStatus, error) {
	var out []model.PaymentStatus
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		st := model.PaymentStatus(part)
		if !st.Valid() {
			return nil, &ValidationError{Fields: map[string]string{"status": "oneof"}}
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *adminService) VerifyPayment(ctx context.Context, t string) (*model.Registration, error) {
	t = ticket.Normalize(t)
	reg, err := s.Store.GetByTicket(ctx, t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := s.Store.TransitionPaymentStatus(ctx, t, verifiableStatuses, model.PaymentVerified)
	if err != nil {
		return nil, fmt.Errorf("verify payment: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotVerifiable
	}
	reg.PaymentStatus = model.PaymentVerified

	docPath := ""
	if s.Documents.Exists(reg.TicketNumber) {
		docPath = s.Documents.Path(reg.TicketNumber)
	}
	s.Notifier.Notify(ctx, s.msgs.paymentVerified(reg, docPath)...)
	return reg, nil
}

func (s *adminService) ListPayments(ctx context.Context, statuses []model.PaymentStatus) ([]model.Registration, error) {
	if len(statuses) == 0 {
		statuses = defaultPaymentStatuses
	}
	return s.Store.ListByPaymentStatus(ctx, statuses)
}

func (s *adminService) Stats(ctx context.Context) (model.RegistrationStats, error) {
	return s.Store.Stats(ctx)
}

func (s *adminService) ListMessages(ctx context.Context, status string, limit int) ([]model.OutboundMessage, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	switch status {
	case "", model.MessageQueued, model.MessageSent, model.MessageFailed:
	default:
		return nil, &ValidationError{Fields: map[string]string{"status": "oneof"}}
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.Outbox.List(ctx, status, limit)
}

// ResendMessage puts an unsent message back on the queue.
func (s *adminService) ResendMessage(ctx context.Context, id string) (*model.OutboundMessage, error) {
	msg, err := s.Outbox.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := s.Outbox.Requeue(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("requeue: %w", err)
	}
	if rows == 0 {
		return nil, ErrMessageAlreadySent
	}
	msg.Status = model.MessageQueued
	if err := s.Publisher.Publish(ctx, queue.OutboundMessageEvent{
		MessageID:    msg.ID,
		Channel:      msg.Channel,
		TicketNumber: msg.TicketNumber,
		EnqueuedAt:   time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	return msg, nil
}
