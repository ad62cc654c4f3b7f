package service

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lulgamer69/event-ticket-system/internal/ticket"
)

var (
	ErrRegistrationClosed    = errors.New("registration is closed")
	ErrDuplicateRegistration = errors.New("this child is already registered")
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrTicketAlreadyUsed     = errors.New("ticket already used")
	ErrUploadInvalid         = errors.New("payment proof must be a jpeg, png or webp image within the size limit")
	ErrGateway               = errors.New("payment gateway unavailable")
	ErrGatewayDisabled       = errors.New("online payment is not enabled")
	ErrQRNotDetected         = errors.New("qr not detected")
	ErrNothingToPay          = errors.New("nothing to pay for this ticket")
	ErrNotVerifiable         = errors.New("payment cannot be verified in its current state")
	ErrInvalidSignature      = errors.New("invalid notification signature")
	ErrMessageNotFound       = errors.New("message not found")
	ErrMessageAlreadySent    = errors.New("message already sent")
	ErrTicketSpaceExhausted  = ticket.ErrSpaceExhausted
)

// ValidationError lists the request fields that failed validation, keyed
// by their JSON name, with the rule that failed.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid fields: " + strings.Join(keys, ", ")
}

func newValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		ve.Fields[fe.Field()] = fe.Tag()
	}
	return ve
}
