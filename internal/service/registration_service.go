package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lulgamer69/event-ticket-system/internal/config"
	"github.com/lulgamer69/event-ticket-system/internal/document"
	"github.com/lulgamer69/event-ticket-system/internal/model"
	"github.com/lulgamer69/event-ticket-system/internal/payment"
	"github.com/lulgamer69/event-ticket-system/internal/repository"
	"github.com/lulgamer69/event-ticket-system/internal/ticket"
)

// RegisterInput is the registration form.
type RegisterInput struct {
	ChildRoll    string `json:"child_roll" form:"child_roll" validate:"required,max=64"`
	ChildName    string `json:"child_name" form:"child_name" validate:"required,max=255"`
	ClassSection string `json:"class_section" form:"class_section" validate:"required,max=64"`
	Guest1Name   string `json:"guest1_name" form:"guest1_name" validate:"required,max=255"`
	Guest2Name   string `json:"guest2_name" form:"guest2_name" validate:"omitempty,max=255"`
	Guest3Name   string `json:"guest3_name" form:"guest3_name" validate:"omitempty,max=255"`
	Phone        string `json:"phone" form:"phone" validate:"required,min=6,max=32"`
	Email        string `json:"email" form:"email" validate:"omitempty,email,max=255"`
	PassCount    int    `json:"pass_count" form:"pass_count" validate:"required,min=1"`
}

func (in *RegisterInput) normalize() {
	in.ChildRoll = strings.TrimSpace(in.ChildRoll)
	in.ChildName = strings.TrimSpace(in.ChildName)
	in.ClassSection = strings.TrimSpace(in.ClassSection)
	in.Guest1Name = strings.TrimSpace(in.Guest1Name)
	in.Guest2Name = strings.TrimSpace(in.Guest2Name)
	in.Guest3Name = strings.TrimSpace(in.Guest3Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

// PaymentInstructions tell the registrant how to pay in manual mode.
type PaymentInstructions struct {
	PayeeName      string `json:"payee_name"`
	PayeeAccount   string `json:"payee_account"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	ProofUploadURL string `json:"proof_upload_url"`
}

// RegisterResult is returned for every created registration, including
// the case where the gateway order could not be opened.
type RegisterResult struct {
	Registration model.Registration   `json:"registration"`
	DocumentURL  string               `json:"document_url"`
	Checkout     *payment.OrderHandle `json:"checkout,omitempty"`
	Instructions *PaymentInstructions `json:"instructions,omitempty"`
}

// EventInfo is the public description of the event.
type EventInfo struct {
	Name             string `json:"name"`
	UnitPrice        int64  `json:"unit_price"`
	Currency         string `json:"currency"`
	BasePeople       int    `json:"base_people"`
	MaxPasses        int    `json:"max_passes"`
	RegistrationEnds string `json:"registration_ends"`
	Open             bool   `json:"open"`
	PaymentMode      string `json:"payment_mode"`
}

// GatewayOutcome reports what a gateway notification did.
type GatewayOutcome struct {
	TicketNumber  string              `json:"ticket_number"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	Applied       bool                `json:"applied"`
}

type RegistrationService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Lookup(ctx context.Context, ticket string) (*model.Registration, error)
	Document(ctx context.Context, ticket string) (string, error)
	InitiatePayment(ctx context.Context, ticket string) (*payment.OrderHandle, error)
	CompleteGatewayPayment(ctx context.Context, n payment.Notification) (*GatewayOutcome, error)
	ConfirmPayment(ctx context.Context, ticket string, proof io.Reader) (*model.Registration, error)
	EventInfo() EventInfo
	DocumentURL(ticket string) string
}

// RegistrationDeps wires a RegistrationService.  Gateway may be nil in
// manual payment mode.  Now defaults to time.Now.
type RegistrationDeps struct {
	Store     RegistrationStore
	Tickets   TicketGenerator
	Documents TicketRenderer
	Proofs    ProofStore
	Gateway   PaymentGateway
	Notifier  Notifier
	Event     config.EventConfig
	Payment   config.PaymentConfig
	Notify    config.NotifyConfig
	BaseURL   string
	Now       func() time.Time
}

type registrationService struct {
	RegistrationDeps
	validate *validator.Validate
	msgs     messages
}

func NewRegistrationService(d RegistrationDeps) RegistrationService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Event.Location == nil {
		d.Event.Location = time.UTC
	}
	if d.Payment.MinorUnitFactor < 1 {
		d.Payment.MinorUnitFactor = 1
	}
	return &registrationService{
		RegistrationDeps: d,
		validate:         newValidator(),
		msgs:             newMessages(d.Event, d.Notify, d.BaseURL),
	}
}

// closed reports whether the calendar date in the event time zone is past
// the last registration day.
func (s *registrationService) closed() bool {
	now := s.Now().In(s.Event.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.Event.Location)
	return today.After(s.Event.RegistrationEnds)
}

func (s *registrationService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if s.closed() {
		return nil, ErrRegistrationClosed
	}
	in.normalize()
	if err := s.validate.Struct(in); err != nil {
		return nil, newValidationError(err)
	}
	if in.PassCount > passLimit(s.Event.MaxPasses) {
		return nil, &ValidationError{Fields: map[string]string{"pass_count": "max"}}
	}

	totalPeople, amount := Price(in.PassCount, s.Event.UnitPrice)
	status := model.PaymentFree
	if amount > 0 {
		status = model.PaymentPending
	}
	reg := &model.Registration{
		ChildRoll:     in.ChildRoll,
		ChildName:     in.ChildName,
		ClassSection:  in.ClassSection,
		Guest1Name:    in.Guest1Name,
		Guest2Name:    in.Guest2Name,
		Guest3Name:    in.Guest3Name,
		Phone:         in.Phone,
		Email:         in.Email,
		PassCount:     in.PassCount,
		TotalPeople:   totalPeople,
		AmountPaid:    amount,
		PaymentStatus: status,
	}
	if err := s.insert(ctx, reg); err != nil {
		return nil, err
	}

	docPath, err := s.Documents.Render(s.ticketFields(reg))
	if err != nil {
		// the document endpoint renders on demand when the file is missing
		log.Printf("registration: render %s failed: %v", reg.TicketNumber, err)
		docPath = ""
	}

	res := &RegisterResult{Registration: *reg, DocumentURL: s.DocumentURL(reg.TicketNumber)}
	if amount == 0 {
		s.Notifier.Notify(ctx, s.msgs.ticketIssued(reg, docPath)...)
		return res, nil
	}

	switch s.Payment.Mode {
	case "gateway":
		h, err := s.openOrder(ctx, reg)
		if err != nil {
			return res, err
		}
		res.Checkout = h
	default:
		res.Instructions = &PaymentInstructions{
			PayeeName:      s.Payment.PayeeName,
			PayeeAccount:   s.Payment.PayeeAccount,
			Amount:         amount,
			Currency:       s.Event.Currency,
			ProofUploadURL: s.BaseURL + "/v1/registrations/" + reg.TicketNumber + "/payment-proof",
		}
	}
	return res, nil
}

// insert stores reg under a fresh ticket number, regenerating on ticket
// collisions up to ticket.MaxAttempts times.
func (s *registrationService) insert(ctx context.Context, reg *model.Registration) error {
	for attempt := 1; ; attempt++ {
		t, err := s.Tickets.New()
		if err != nil {
			return err
		}
		reg.TicketNumber = t
		err = s.Store.Create(ctx, reg)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrDuplicateRoll):
			return ErrDuplicateRegistration
		case errors.Is(err, repository.ErrDuplicateTicket):
			log.Printf("registration: ticket collision on %s (attempt %d)", t, attempt)
			if attempt >= ticket.MaxAttempts {
				return ErrTicketSpaceExhausted
			}
		default:
			return fmt.Errorf("insert registration: %w", err)
		}
	}
}

func (s *registrationService) openOrder(ctx context.Context, reg *model.Registration) (*payment.OrderHandle, error) {
	if s.Gateway == nil {
		return nil, ErrGatewayDisabled
	}
	extra := int32(reg.PassCount - 1)
	h, err := s.Gateway.CreateOrder(ctx, payment.Order{
		TicketNumber: reg.TicketNumber,
		Items: []payment.Item{{
			ID:    "extra-pass",
			Name:  s.Event.Name + " additional pass",
			Price: s.Event.UnitPrice * s.Payment.MinorUnitFactor,
			Qty:   extra,
		}},
		CustomerName: reg.Guest1Name,
		Email:        reg.Email,
		Phone:        reg.Phone,
	})
	if err != nil {
		log.Printf("registration: gateway order for %s failed: %v", reg.TicketNumber, err)
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if err := s.Store.SetPaymentRef(ctx, reg.TicketNumber, h.OrderID); err != nil {
		return nil, fmt.Errorf("store payment ref: %w", err)
	}
	ref := h.OrderID
	reg.PaymentRef = &ref
	return h, nil
}

func (s *registrationService) lookup(ctx context.Context, t string) (*model.Registration, error) {
	t = ticket.Normalize(t)
	if t == "" {
		return nil, ErrTicketNotFound
	}
	reg, err := s.Store.GetByTicket(ctx, t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *registrationService) Lookup(ctx context.Context, t string) (*model.Registration, error) {
	return s.lookup(ctx, t)
}

// Document returns the path of the ticket PDF, rendering it first when the
// file is missing.
func (s *registrationService) Document(ctx context.Context, t string) (string, error) {
	reg, err := s.lookup(ctx, t)
	if err != nil {
		return "", err
	}
	if s.Documents.Exists(reg.TicketNumber) {
		return s.Documents.Path(reg.TicketNumber), nil
	}
	return s.Documents.Render(s.ticketFields(reg))
}

func (s *registrationService) InitiatePayment(ctx context.Context, t string) (*payment.OrderHandle, error) {
	if s.Gateway == nil {
		return nil, ErrGatewayDisabled
	}
	reg, err := s.lookup(ctx, t)
	if err != nil {
		return nil, err
	}
	if reg.PaymentStatus != model.PaymentPending {
		return nil, ErrNothingToPay
	}
	return s.openOrder(ctx, reg)
}

func (s *registrationService) CompleteGatewayPayment(ctx context.Context, n payment.Notification) (*GatewayOutcome, error) {
	if !n.VerifySignature(s.Payment.MidtransServerKey) {
		return nil, ErrInvalidSignature
	}
	reg, err := s.lookup(ctx, payment.TicketFromOrderID(n.OrderID))
	if err != nil {
		return nil, err
	}
	out := &GatewayOutcome{TicketNumber: reg.TicketNumber, PaymentStatus: reg.PaymentStatus}

	switch {
	case n.Settled():
		if want := reg.AmountPaid * s.Payment.MinorUnitFactor; !grossMatches(n.GrossAmount, want) {
			log.Printf("registration: gateway amount %s for %s does not match %d; ignored", n.GrossAmount, reg.TicketNumber, want)
			return out, nil
		}
		rows, err := s.Store.TransitionPaymentStatus(ctx, reg.TicketNumber,
			[]model.PaymentStatus{model.PaymentPending, model.PaymentAwaitingVerification}, model.PaymentPaid)
		if err != nil {
			return nil, fmt.Errorf("mark paid: %w", err)
		}
		if rows == 0 {
			return out, nil
		}
		if err := s.Store.SetPaymentRef(ctx, reg.TicketNumber, n.OrderID); err != nil {
			log.Printf("registration: store payment ref for %s failed: %v", reg.TicketNumber, err)
		}
		reg.PaymentStatus = model.PaymentPaid
		out.PaymentStatus = model.PaymentPaid
		out.Applied = true
		s.Notifier.Notify(ctx, s.msgs.ticketIssued(reg, s.Documents.Path(reg.TicketNumber))...)
	case n.Failed():
		log.Printf("registration: gateway reported %s for %s", n.TransactionStatus, n.OrderID)
	}
	return out, nil
}

func (s *registrationService) ConfirmPayment(ctx context.Context, t string, proof io.Reader) (*model.Registration, error) {
	reg, err := s.lookup(ctx, t)
	if err != nil {
		return nil, err
	}
	if proof == nil {
		return nil, ErrUploadInvalid
	}
	if reg.PaymentStatus != model.PaymentPending && reg.PaymentStatus != model.PaymentAwaitingVerification {
		return nil, ErrNothingToPay
	}

	path, err := s.Proofs.Save(reg.TicketNumber, proof)
	if err != nil {
		if errors.Is(err, document.ErrInvalidImage) || errors.Is(err, document.ErrTooLarge) {
			return nil, fmt.Errorf("%w: %v", ErrUploadInvalid, err)
		}
		return nil, fmt.Errorf("store proof: %w", err)
	}
	if err := s.Store.SetProofPath(ctx, reg.TicketNumber, path); err != nil {
		return nil, fmt.Errorf("store proof path: %w", err)
	}
	rows, err := s.Store.TransitionPaymentStatus(ctx, reg.TicketNumber,
		[]model.PaymentStatus{model.PaymentPending, model.PaymentAwaitingVerification}, model.PaymentAwaitingVerification)
	if err != nil {
		return nil, fmt.Errorf("mark awaiting verification: %w", err)
	}
	if rows == 0 {
		// verified or paid between the lookup and now
		return s.lookup(ctx, reg.TicketNumber)
	}
	reg.PaymentStatus = model.PaymentAwaitingVerification
	reg.ProofPath = &path
	s.Notifier.Notify(ctx, s.msgs.proofReceived(reg, path)...)
	return reg, nil
}

func (s *registrationService) EventInfo() EventInfo {
	return EventInfo{
		Name:             s.Event.Name,
		UnitPrice:        s.Event.UnitPrice,
		Currency:         s.Event.Currency,
		BasePeople:       BasePeople,
		MaxPasses:        s.Event.MaxPasses,
		RegistrationEnds: s.Event.RegistrationEnds.Format("2006-01-02"),
		Open:             !s.closed(),
		PaymentMode:      s.Payment.Mode,
	}
}

func (s *registrationService) DocumentURL(t string) string {
	return s.msgs.documentURL(t)
}

func (s *registrationService) ticketFields(reg *model.Registration) document.TicketFields {
	return document.TicketFields{
		EventName:    s.Event.Name,
		TicketNumber: reg.TicketNumber,
		ChildName:    reg.ChildName,
		ChildRoll:    reg.ChildRoll,
		ClassSection: reg.ClassSection,
		Guests:       reg.Guests(),
		TotalPeople:  reg.TotalPeople,
		AmountPaid:   reg.AmountPaid,
		Currency:     s.Event.Currency,
	}
}

// grossMatches compares the gateway's decimal gross amount with the amount
// owed in the gateway's unit.
func grossMatches(gross string, want int64) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(gross), 64)
	if err != nil {
		return false
	}
	return int64(math.Round(f)) == want
}
