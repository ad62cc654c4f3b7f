package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulgamer69/event-ticket-system/internal/database"
	"github.com/lulgamer69/event-ticket-system/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, "sqlite3"))
	return db
}

func newReg(roll, ticket string, status model.PaymentStatus) *model.Registration {
	return &model.Registration{
		ChildRoll:     roll,
		ChildName:     "Child " + roll,
		ClassSection:  "LKG-A",
		Guest1Name:    "Parent",
		Phone:         "9999999999",
		PassCount:     2,
		TotalPeople:   4,
		AmountPaid:    100,
		PaymentStatus: status,
		TicketNumber:  ticket,
	}
}

func TestRegistrationRepo_CreateAndGet(t *testing.T) {
	repo := NewRegistrationRepo(openTestDB(t))
	ctx := context.Background()

	reg := newReg("R-1", "EVT-2026-000001", model.PaymentPending)
	require.NoError(t, repo.Create(ctx, reg))
	assert.NotZero(t, reg.ID)
	assert.False(t, reg.CreatedAt.IsZero())

	got, err := repo.GetByTicket(ctx, "EVT-2026-000001")
	require.NoError(t, err)
	assert.Equal(t, "R-1", got.ChildRoll)
	assert.Equal(t, model.PaymentPending, got.PaymentStatus)
	assert.Nil(t, got.PaymentRef)
	assert.Nil(t, got.AttendedAt)

	got, err = repo.GetByRoll(ctx, "R-1")
	require.NoError(t, err)
	assert.Equal(t, "EVT-2026-000001", got.TicketNumber)

	_, err = repo.GetByTicket(ctx, "EVT-2026-000404")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRegistrationRepo_UniqueKeys(t *testing.T) {
	repo := NewRegistrationRepo(openTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newReg("R-1", "EVT-2026-000001", model.PaymentFree)))

	err := repo.Create(ctx, newReg("R-1", "EVT-2026-000002", model.PaymentFree))
	assert.ErrorIs(t, err, ErrDuplicateRoll)

	err = repo.Create(ctx, newReg("R-2", "EVT-2026-000001", model.PaymentFree))
	assert.ErrorIs(t, err, ErrDuplicateTicket)
}

func TestRegistrationRepo_MarkAttendedOnce(t *testing.T) {
	repo := NewRegistrationRepo(openTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newReg("R-1", "EVT-2026-000001", model.PaymentFree)))
	at := time.Date(2026, 2, 14, 17, 30, 0, 0, time.UTC)

	n, err := repo.MarkAttended(ctx, "EVT-2026-000001", at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.MarkAttended(ctx, "EVT-2026-000001", at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.MarkAttended(ctx, "EVT-2026-000404", at)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	got, err := repo.GetByTicket(ctx, "EVT-2026-000001")
	require.NoError(t, err)
	assert.True(t, got.Attended)
	require.NotNil(t, got.AttendedAt)
	assert.True(t, got.AttendedAt.Equal(at))
}

func TestRegistrationRepo_PaymentTransitions(t *testing.T) {
	repo := NewRegistrationRepo(openTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newReg("R-1", "EVT-2026-000001", model.PaymentPending)))

	n, err := repo.TransitionPaymentStatus(ctx, "EVT-2026-000001",
		[]model.PaymentStatus{model.PaymentFree}, model.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.TransitionPaymentStatus(ctx, "EVT-2026-000001",
		[]model.PaymentStatus{model.PaymentPending, model.PaymentVerified}, model.PaymentVerified)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// re-applying the same status still matches the row
	n, err = repo.TransitionPaymentStatus(ctx, "EVT-2026-000001",
		[]model.PaymentStatus{model.PaymentPending, model.PaymentVerified}, model.PaymentVerified)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.TransitionPaymentStatus(ctx, "EVT-2026-000001", nil, model.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.UpdatePaymentStatus(ctx, "EVT-2026-000001", model.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.SetPaymentRef(ctx, "EVT-2026-000001", "EVT-2026-000001~ab"))
	require.NoError(t, repo.SetProofPath(ctx, "EVT-2026-000001", "storage/proofs/EVT-2026-000001.jpg"))
	got, err := repo.GetByTicket(ctx, "EVT-2026-000001")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
	require.NotNil(t, got.PaymentRef)
	require.NotNil(t, got.ProofPath)
	assert.Equal(t, "EVT-2026-000001~ab", *got.PaymentRef)
}

func TestRegistrationRepo_ListAndStats(t *testing.T) {
	repo := NewRegistrationRepo(openTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newReg("R-1", "EVT-2026-000001", model.PaymentFree)))
	require.NoError(t, repo.Create(ctx, newReg("R-2", "EVT-2026-000002", model.PaymentPending)))
	require.NoError(t, repo.Create(ctx, newReg("R-3", "EVT-2026-000003", model.PaymentVerified)))
	_, err := repo.MarkAttended(ctx, "EVT-2026-000003", time.Now())
	require.NoError(t, err)

	rows, err := repo.ListByPaymentStatus(ctx, []model.PaymentStatus{model.PaymentPending, model.PaymentVerified})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "R-3", rows[0].ChildRoll)

	rows, err = repo.ListByPaymentStatus(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	st, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Registrations)
	assert.Equal(t, int64(12), st.People)
	assert.Equal(t, int64(1), st.Attended)
	assert.Equal(t, int64(100), st.AmountSettled)
	assert.Equal(t, int64(1), st.ByStatus["PENDING"])
}

func TestUserAndTokenRepos(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepo(db)
	tokens := NewTokenRepo(db)
	ctx := context.Background()

	id, err := users.Create(ctx, " Gate@Example.com ", "gatekeeper-pass", model.RoleGate, 4)
	require.NoError(t, err)
	_, err = users.Create(ctx, "gate@example.com", "another-pass", model.RoleGate, 4)
	assert.ErrorIs(t, err, ErrEmailExists)

	u, err := users.GetByEmail(ctx, "GATE@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.True(t, u.IsActive)
	assert.Equal(t, model.RoleGate, u.Role)

	n, err := users.SetActive(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	u, err = users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, tokens.StoreRefresh(ctx, id, "hash-1", time.Now().Add(time.Hour)))
	got, err := tokens.ValidateRefresh(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	n, err = tokens.RevokeByHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = tokens.ValidateRefresh(ctx, "hash-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	n, err = tokens.RevokeByHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, tokens.StoreRefresh(ctx, id, "hash-2", time.Now().Add(-time.Minute)))
	_, err = tokens.ValidateRefresh(ctx, "hash-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	n, err = tokens.RevokeByHash(ctx, "hash-2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, tokens.StoreRefresh(ctx, id, "hash-3", time.Now().Add(time.Hour)))
	n, err = tokens.RevokeAllForUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = tokens.ValidateRefresh(ctx, "hash-3")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRefreshRotationInterleaved(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepo(db)
	tokens := NewTokenRepo(db)
	ctx := context.Background()

	id, err := users.Create(ctx, "admin@example.com", "admin-password", model.RoleAdmin, 4)
	require.NoError(t, err)
	require.NoError(t, tokens.StoreRefresh(ctx, id, "shared", time.Now().Add(time.Hour)))

	// both callers read the token before either revokes it
	ownerA, errA := tokens.ValidateRefresh(ctx, "shared")
	ownerB, errB := tokens.ValidateRefresh(ctx, "shared")
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, ownerA, ownerB)

	nA, err := tokens.RevokeByHash(ctx, "shared")
	require.NoError(t, err)
	nB, err := tokens.RevokeByHash(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, int64(1), nA)
	assert.Equal(t, int64(0), nB)
}
