package model

import "time"

// PaymentStatus is the payment lifecycle of a registration.
type PaymentStatus string

const (
	PaymentFree                 PaymentStatus = "FREE"
	PaymentPending              PaymentStatus = "PENDING"
	PaymentAwaitingVerification PaymentStatus = "AWAITING_VERIFICATION"
	PaymentVerified             PaymentStatus = "VERIFIED"
	PaymentPaid                 PaymentStatus = "PAID"
)

// Valid reports whether s is one of the known statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentFree, PaymentPending, PaymentAwaitingVerification, PaymentVerified, PaymentPaid:
		return true
	}
	return false
}

// Settled reports whether nothing more is owed for the registration.
func (s PaymentStatus) Settled() bool {
	return s == PaymentFree || s == PaymentVerified || s == PaymentPaid
}

// Registration is one family's entry for the event, stored as a single row
// of the registrations table.  ChildRoll and TicketNumber are unique.
// Attended moves from false to true exactly once and never back.
//
// Fields:
//   - ChildRoll: natural key supplied by the parent.
//   - Guest1Name..Guest3Name: adults accompanying the child; Guest1Name is required.
//   - PassCount: passes bought; the first one is included in the base three.
//   - TotalPeople: 3 + max(0, PassCount-1).
//   - AmountPaid: max(0, PassCount-1) * unit price, in whole currency units.
//   - PaymentRef: gateway order id, when the gateway flow was used.
//   - ProofPath: stored payment screenshot, when the manual flow was used.
type Registration struct {
	ID            uint64        `json:"id"`
	ChildRoll     string        `json:"child_roll"`
	ChildName     string        `json:"child_name"`
	ClassSection  string        `json:"class_section"`
	Guest1Name    string        `json:"guest1_name"`
	Guest2Name    string        `json:"guest2_name,omitempty"`
	Guest3Name    string        `json:"guest3_name,omitempty"`
	Phone         string        `json:"phone"`
	Email         string        `json:"email,omitempty"`
	PassCount     int           `json:"pass_count"`
	TotalPeople   int           `json:"total_people"`
	AmountPaid    int64         `json:"amount_paid"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentRef    *string       `json:"payment_ref,omitempty"`
	ProofPath     *string       `json:"-"`
	TicketNumber  string        `json:"ticket_number"`
	Attended      bool          `json:"attended"`
	AttendedAt    *time.Time    `json:"attended_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Guests returns the non-empty guest names in order.
func (r Registration) Guests() []string {
	out := make([]string, 0, 3)
	for _, g := range []string{r.Guest1Name, r.Guest2Name, r.Guest3Name} {
		if g != "" {
			out = append(out, g)
		}
	}
	return out
}

// RegistrationStats summarises the registrations table for the admin view.
type RegistrationStats struct {
	Registrations int64            `json:"registrations"`
	People        int64            `json:"people"`
	Attended      int64            `json:"attended"`
	AmountSettled int64            `json:"amount_settled"`
	ByStatus      map[string]int64 `json:"by_status"`
}
