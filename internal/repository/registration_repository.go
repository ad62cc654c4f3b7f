package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lulgamer69/event-ticket-system/internal/model"
)

// RegistrationRepo provides access to the registrations table.  Every
// state change that must not race (attendance, payment transitions) is a
// single conditional UPDATE whose affected-row count is returned to the
// caller.  Timestamps are written in UTC by the caller.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// DB exposes the underlying handle.
func (r *RegistrationRepo) DB() *sql.DB { return r.db }

const registrationColumns = `id, child_roll, child_name, class_section,
	guest1_name, guest2_name, guest3_name, phone, email,
	pass_count, total_people, amount_paid, payment_status, payment_ref, proof_path,
	ticket_number, attended, attended_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(s rowScanner) (*model.Registration, error) {
	var (
		reg        model.Registration
		status     string
		paymentRef sql.NullString
		proofPath  sql.NullString
		attendedAt sql.NullTime
	)
	err := s.Scan(
		&reg.ID, &reg.ChildRoll, &reg.ChildName, &reg.ClassSection,
		&reg.Guest1Name, &reg.Guest2Name, &reg.Guest3Name, &reg.Phone, &reg.Email,
		&reg.PassCount, &reg.TotalPeople, &reg.AmountPaid, &status, &paymentRef, &proofPath,
		&reg.TicketNumber, &reg.Attended, &attendedAt, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.PaymentStatus = model.PaymentStatus(status)
	if paymentRef.Valid {
		ref := paymentRef.String
		reg.PaymentRef = &ref
	}
	if proofPath.Valid {
		p := proofPath.String
		reg.ProofPath = &p
	}
	if attendedAt.Valid {
		t := attendedAt.Time.UTC()
		reg.AttendedAt = &t
	}
	reg.CreatedAt = reg.CreatedAt.UTC()
	reg.UpdatedAt = reg.UpdatedAt.UTC()
	return &reg, nil
}

// Create inserts a registration and populates its ID and timestamps.  A
// unique violation is reported as ErrDuplicateRoll or ErrDuplicateTicket
// depending on which key was hit.
func (r *RegistrationRepo) Create(ctx context.Context, reg *model.Registration) error {
	now := time.Now().UTC().Truncate(time.Second)
	const q = `INSERT INTO registrations
		(child_roll, child_name, class_section, guest1_name, guest2_name, guest3_name,
		 phone, email, pass_count, total_people, amount_paid, payment_status,
		 ticket_number, attended, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		reg.ChildRoll, reg.ChildName, reg.ClassSection, reg.Guest1Name, reg.Guest2Name, reg.Guest3Name,
		reg.Phone, reg.Email, reg.PassCount, reg.TotalPeople, reg.AmountPaid, string(reg.PaymentStatus),
		reg.TicketNumber, now, now,
	)
	if err != nil {
		if msg, ok := uniqueViolation(err); ok {
			if strings.Contains(msg, "ticket_number") {
				return ErrDuplicateTicket
			}
			return ErrDuplicateRoll
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	reg.ID = uint64(id)
	reg.Attended = false
	reg.AttendedAt = nil
	reg.CreatedAt = now
	reg.UpdatedAt = now
	return nil
}

// GetByTicket returns the registration holding the ticket number, or
// sql.ErrNoRows.
func (r *RegistrationRepo) GetByTicket(ctx context.Context, ticket string) (*model.Registration, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE ticket_number = ? LIMIT 1`, ticket)
	return scanRegistration(row)
}

// GetByRoll returns the registration for a child roll number, or
// sql.ErrNoRows.
func (r *RegistrationRepo) GetByRoll(ctx context.Context, roll string) (*model.Registration, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE child_roll = ? LIMIT 1`, roll)
	return scanRegistration(row)
}

// MarkAttended flips attended from 0 to 1 for the ticket.  It returns 1 for
// the single caller that performed the transition and 0 for everyone else,
// including callers passing an unknown ticket.
func (r *RegistrationRepo) MarkAttended(ctx context.Context, ticket string, at time.Time) (int64, error) {
	at = at.UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET attended = 1, attended_at = ?, updated_at = ?
		 WHERE ticket_number = ? AND attended = 0`,
		at, at, ticket)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdatePaymentStatus sets the payment status unconditionally.
func (r *RegistrationRepo) UpdatePaymentStatus(ctx context.Context, ticket string, status model.PaymentStatus) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET payment_status = ?, updated_at = ? WHERE ticket_number = ?`,
		string(status), time.Now().UTC().Truncate(time.Second), ticket)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TransitionPaymentStatus sets the status to `to` only when the current
// status is one of `from`.  The affected-row count tells the caller whether
// the transition happened.
func (r *RegistrationRepo) TransitionPaymentStatus(ctx context.Context, ticket string, from []model.PaymentStatus, to model.PaymentStatus) (int64, error) {
	if len(from) == 0 {
		return 0, nil
	}
	placeholders := make([]string, 0, len(from))
	args := make([]any, 0, len(from)+3)
	args = append(args, string(to), time.Now().UTC().Truncate(time.Second), ticket)
	for _, s := range from {
		placeholders = append(placeholders, "?")
		args = append(args, string(s))
	}
	q := `UPDATE registrations SET payment_status = ?, updated_at = ?
		  WHERE ticket_number = ? AND payment_status IN (` + strings.Join(placeholders, ",") + `)`
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetPaymentRef records the gateway order id for the ticket.
func (r *RegistrationRepo) SetPaymentRef(ctx context.Context, ticket, ref string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET payment_ref = ?, updated_at = ? WHERE ticket_number = ?`,
		ref, time.Now().UTC().Truncate(time.Second), ticket)
	return err
}

// SetProofPath records where the payment screenshot was stored.
func (r *RegistrationRepo) SetProofPath(ctx context.Context, ticket, path string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET proof_path = ?, updated_at = ? WHERE ticket_number = ?`,
		path, time.Now().UTC().Truncate(time.Second), ticket)
	return err
}

// ListByPaymentStatus returns registrations in any of the given statuses,
// newest first.  An empty status list returns every registration.
func (r *RegistrationRepo) ListByPaymentStatus(ctx context.Context, statuses []model.PaymentStatus) ([]model.Registration, error) {
	q := `SELECT ` + registrationColumns + ` FROM registrations`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, 0, len(statuses))
		for _, s := range statuses {
			placeholders = append(placeholders, "?")
			args = append(args, string(s))
		}
		q += ` WHERE payment_status IN (` + strings.Join(placeholders, ",") + `)`
	}
	q += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *reg)
	}
	return out, rows.Err()
}

// Stats aggregates headcounts and settled amounts.
func (r *RegistrationRepo) Stats(ctx context.Context) (model.RegistrationStats, error) {
	st := model.RegistrationStats{ByStatus: map[string]int64{}}
	const q = `SELECT COUNT(*),
		COALESCE(SUM(total_people), 0),
		COALESCE(SUM(attended), 0),
		COALESCE(SUM(CASE WHEN payment_status IN ('VERIFIED', 'PAID') THEN amount_paid ELSE 0 END), 0)
		FROM registrations`
	if err := r.db.QueryRowContext(ctx, q).Scan(&st.Registrations, &st.People, &st.Attended, &st.AmountSettled); err != nil {
		return st, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT payment_status, COUNT(*) FROM registrations GROUP BY payment_status`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return st, err
		}
		st.ByStatus[status] = n
	}
	return st, rows.Err()
}
