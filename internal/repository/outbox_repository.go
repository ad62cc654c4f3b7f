package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/lulgamer69/event-ticket-system/internal/model"
)

// OutboxRepo is the persisted outbound message queue.  Producers insert
// QUEUED rows; the notification consumer moves them to SENT or FAILED; the
// admin view lists them and can put a row back to QUEUED.
type OutboxRepo struct {
	db *gorm.DB
}

// NewOutboxRepo returns a new OutboxRepo bound to the given gorm handle.
func NewOutboxRepo(db *gorm.DB) *OutboxRepo { return &OutboxRepo{db: db} }

// Enqueue inserts the messages in one statement.
func (r *OutboxRepo) Enqueue(ctx context.Context, msgs []model.OutboundMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&msgs).Error
}

// Get returns a message by id or gorm.ErrRecordNotFound.
func (r *OutboxRepo) Get(ctx context.Context, id string) (*model.OutboundMessage, error) {
	var msg model.OutboundMessage
	if err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// List returns messages newest first, optionally filtered by status.
func (r *OutboxRepo) List(ctx context.Context, status string, limit int) ([]model.OutboundMessage, error) {
	var msgs []model.OutboundMessage
	q := r.db.WithContext(ctx).Model(&model.OutboundMessage{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("created_at DESC").Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkSent records a successful delivery.
func (r *OutboxRepo) MarkSent(ctx context.Context, id string, at time.Time) error {
	at = at.UTC()
	return r.db.WithContext(ctx).
		Model(&model.OutboundMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     model.MessageSent,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": "",
			"sent_at":    at,
			"updated_at": at,
		}).Error
}

// MarkFailed records a failed delivery attempt.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id string, cause string) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboundMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     model.MessageFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
			"updated_at": time.Now().UTC(),
		}).Error
}

// Requeue puts a message back to QUEUED unless it was already sent.  It
// returns the number of rows changed.
func (r *OutboxRepo) Requeue(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.OutboundMessage{}).
		Where("id = ? AND status <> ?", id, model.MessageSent).
		Updates(map[string]any{
			"status":     model.MessageQueued,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
