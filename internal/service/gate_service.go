package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/lulgamer69/event-ticket-system/internal/model"
	"github.com/lulgamer69/event-ticket-system/internal/ticket"
)

// RedeemStatus is the gate's verdict for one scan.
type RedeemStatus string

const (
	RedeemOK          RedeemStatus = "OK"
	RedeemAlreadyUsed RedeemStatus = "ALREADY_USED"
	RedeemInvalid     RedeemStatus = "INVALID"
)

// RedeemResult carries the verdict and, for known tickets, the
// registration as it was before this scan.  PaymentSettled is shown to gate
// staff; entry is not refused on it.
type RedeemResult struct {
	Status         RedeemStatus        `json:"status"`
	TicketNumber   string              `json:"ticket_number"`
	Registration   *model.Registration `json:"registration,omitempty"`
	PaymentSettled bool                `json:"payment_settled"`
}

type GateService interface {
	Redeem(ctx context.Context, ticketNumber string) (*RedeemResult, error)
	RedeemImage(ctx context.Context, img io.Reader) (*RedeemResult, error)
}

type gateService struct {
	store   RegistrationStore
	decoder QRDecoder
	now     func() time.Time
}

func NewGateService(store RegistrationStore, decoder QRDecoder, now func() time.Time) GateService {
	if now == nil {
		now = time.Now
	}
	return &gateService{store: store, decoder: decoder, now: now}
}

// Redeem admits a ticket at most once.  The attended flag is flipped by a
// single conditional update; whichever caller changes the row gets OK and
// every other caller gets ALREADY_USED.
func (s *gateService) Redeem(ctx context.Context, raw string) (*RedeemResult, error) {
	t := ticket.Normalize(raw)
	res := &RedeemResult{Status: RedeemInvalid, TicketNumber: t}
	if t == "" {
		return res, nil
	}

	reg, err := s.store.GetByTicket(ctx, t)
	if errors.Is(err, sql.ErrNoRows) {
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup ticket: %w", err)
	}
	res.Registration = reg
	res.PaymentSettled = reg.PaymentStatus.Settled()

	if reg.Attended {
		res.Status = RedeemAlreadyUsed
		return res, nil
	}
	rows, err := s.store.MarkAttended(ctx, t, s.now())
	if err != nil {
		return nil, fmt.Errorf("mark attended: %w", err)
	}
	if rows == 1 {
		res.Status = RedeemOK
		log.Printf("gate: admitted %s (%d people)", t, reg.TotalPeople)
		return res, nil
	}
	res.Status = RedeemAlreadyUsed
	return res, nil
}

// RedeemImage decodes the QR code in a scanned image and redeems it.
func (s *gateService) RedeemImage(ctx context.Context, img io.Reader) (*RedeemResult, error) {
	if img == nil {
		return nil, ErrQRNotDetected
	}
	text, err := s.decoder.Decode(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQRNotDetected, err)
	}
	return s.Redeem(ctx, text)
}
