package service

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lulgamer69/event-ticket-system/internal/config"
	"github.com/lulgamer69/event-ticket-system/internal/database"
	"github.com/lulgamer69/event-ticket-system/internal/document"
	"github.com/lulgamer69/event-ticket-system/internal/model"
	"github.com/lulgamer69/event-ticket-system/internal/payment"
	"github.com/lulgamer69/event-ticket-system/internal/queue"
	"github.com/lulgamer69/event-ticket-system/internal/repository"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func testEvent() config.EventConfig {
	return config.EventConfig{
		Name:             "Annual Day",
		TicketPrefix:     "EVT-2026-",
		TicketDigits:     6,
		UnitPrice:        100,
		Currency:         "INR",
		MaxPasses:        10,
		RegistrationEnds: time.Date(2026, 2, 10, 0, 0, 0, 0, ist),
		Location:         ist,
	}
}

func fixedNow() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC) }

func newTestDB(t *testing.T) (*sql.DB, *gorm.DB) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, "sqlite3"))
	gdb, err := database.OpenGorm("sqlite3", db)
	require.NoError(t, err)
	require.NoError(t, database.MigrateOutbox(gdb))
	return db, gdb
}

func validInput(roll string, passes int) RegisterInput {
	return RegisterInput{
		ChildRoll:    roll,
		ChildName:    "Asha Rao",
		ClassSection: "UKG-B",
		Guest1Name:   "Meera Rao",
		Guest2Name:   "Vikram Rao",
		Phone:        "+91 98765 43210",
		Email:        "meera@example.com",
		PassCount:    passes,
	}
}

// --- ticket generator ---

type seqTickets struct {
	mu    sync.Mutex
	seq   []string
	calls int
}

func (g *seqTickets) New() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.seq[g.calls%len(g.seq)]
	g.calls++
	return t, nil
}

// --- renderer ---

type fakeRenderer struct {
	mu       sync.Mutex
	dir      string
	rendered []string
	err      error
}

func (r *fakeRenderer) Render(f document.TicketFields) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.rendered = append(r.rendered, f.TicketNumber)
	return r.Path(f.TicketNumber), nil
}

func (r *fakeRenderer) Path(ticket string) string { return filepath.Join(r.dir, ticket+".pdf") }

func (r *fakeRenderer) Exists(ticket string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.rendered {
		if t == ticket {
			return true
		}
	}
	return false
}

// --- proofs / decoder / gateway ---

type mockProofs struct {
	saveFn func(ticket string, src io.Reader) (string, error)
}

func (m *mockProofs) Save(ticket string, src io.Reader) (string, error) { return m.saveFn(ticket, src) }

type mockDecoder struct {
	decodeFn func(src io.Reader) (string, error)
}

func (m *mockDecoder) Decode(src io.Reader) (string, error) { return m.decodeFn(src) }

type mockGateway struct {
	createFn func(ctx context.Context, o payment.Order) (*payment.OrderHandle, error)
}

func (m *mockGateway) CreateOrder(ctx context.Context, o payment.Order) (*payment.OrderHandle, error) {
	return m.createFn(ctx, o)
}

// --- notifier / publisher ---

type recordingNotifier struct {
	mu    sync.Mutex
	notes []model.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, notes ...model.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, notes...)
}

func (n *recordingNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.notes))
	for _, note := range n.notes {
		out = append(out, note.Channel+":"+note.Recipient)
	}
	return out
}

type mockPublisher struct {
	mu     sync.Mutex
	events []queue.OutboundMessageEvent
	err    error
}

func (p *mockPublisher) Publish(_ context.Context, events ...queue.OutboundMessageEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

// --- store wrapper counting writes ---

type countingStore struct {
	RegistrationStore
	mu      sync.Mutex
	creates int
}

func (s *countingStore) Create(ctx context.Context, reg *model.Registration) error {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()
	return s.RegistrationStore.Create(ctx, reg)
}

// --- fixture ---

type fixture struct {
	db       *sql.DB
	gdb      *gorm.DB
	repo     *repository.RegistrationRepo
	store    *countingStore
	tickets  *seqTickets
	docs     *fakeRenderer
	notifier *recordingNotifier
	deps     RegistrationDeps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, gdb := newTestDB(t)
	repo := repository.NewRegistrationRepo(db)
	f := &fixture{
		db:       db,
		gdb:      gdb,
		repo:     repo,
		store:    &countingStore{RegistrationStore: repo},
		tickets:  &seqTickets{seq: []string{"EVT-2026-000001", "EVT-2026-000002", "EVT-2026-000003", "EVT-2026-000004"}},
		docs:     &fakeRenderer{dir: t.TempDir()},
		notifier: &recordingNotifier{},
	}
	f.deps = RegistrationDeps{
		Store:     f.store,
		Tickets:   f.tickets,
		Documents: f.docs,
		Proofs: &mockProofs{saveFn: func(ticket string, src io.Reader) (string, error) {
			t.Fatalf("unexpected proof upload for %s", ticket)
			return "", nil
		}},
		Notifier: f.notifier,
		Event:    testEvent(),
		Payment:  config.PaymentConfig{Mode: "manual", PayeeName: "School Trust", PayeeAccount: "school@upi", MinorUnitFactor: 1},
		Notify:   config.NotifyConfig{StaffEmail: "office@example.com", StaffWhatsApp: "919000000000"},
		BaseURL:  "https://tickets.example.com",
		Now:      fixedNow,
	}
	return f
}

func (f *fixture) service() RegistrationService { return NewRegistrationService(f.deps) }
