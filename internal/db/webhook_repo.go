package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"meetpoint/internal/types"
	"meetpoint/internal/webhooks"
)

// WebhookRecord is a stored webhook subscription: a subscriber endpoint
// plus the trigger events it is interested in.
type WebhookRecord struct {
	ID              string
	UserID          string
	TeamID          string
	SubscriberURL   string
	Secret          string
	PayloadTemplate string
	AppID           string
	EventTriggers   []string
	Active          bool
	CreatedAt       time.Time
}

// Subscriber converts the stored record into the read-only view the
// dispatcher consumes.
func (w *WebhookRecord) Subscriber() webhooks.Subscriber {
	return webhooks.Subscriber{
		ID:              w.ID,
		URL:             w.SubscriberURL,
		Secret:          w.Secret,
		PayloadTemplate: w.PayloadTemplate,
		AppID:           w.AppID,
	}
}

// WebhookRepository provides data access for the webhooks table. It doubles
// as the SubscriberResolver consumed by the dispatcher.
type WebhookRepository struct {
	db DBTX
}

// NewWebhookRepository creates a WebhookRepository backed by the given
// database connection (pool or transaction).
func NewWebhookRepository(db DBTX) *WebhookRepository {
	return &WebhookRepository{db: db}
}

const webhookColumns = `id, user_id, team_id, subscriber_url, secret,
	payload_template, app_id, event_triggers, active, created_at`

// Create inserts a new webhook subscription.
func (r *WebhookRepository) Create(ctx context.Context, rec *WebhookRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO webhooks
		 (id, user_id, team_id, subscriber_url, secret, payload_template,
		  app_id, event_triggers, active, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID,
		rec.UserID,
		rec.TeamID,
		rec.SubscriberURL,
		rec.Secret,
		rec.PayloadTemplate,
		rec.AppID,
		rec.EventTriggers,
		rec.Active,
		rec.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create webhook", err)
	}
	return nil
}

// List returns all webhook subscriptions owned by a user, newest first.
func (r *WebhookRepository) List(ctx context.Context, userID string) ([]*WebhookRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+webhookColumns+`
		 FROM webhooks
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list webhooks", err)
	}
	defer rows.Close()

	var records []*WebhookRecord
	for rows.Next() {
		rec, err := scanWebhook(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan webhook row", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read webhook rows", err)
	}
	return records, nil
}

// Get returns one webhook subscription by ID, scoped to its owner.
func (r *WebhookRepository) Get(ctx context.Context, userID, id string) (*WebhookRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+webhookColumns+`
		 FROM webhooks
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	rec, err := scanWebhook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundWebhook, "webhook not found", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get webhook", err)
	}
	return rec, nil
}

// Delete removes a webhook subscription, scoped to its owner.
func (r *WebhookRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM webhooks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete webhook", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundWebhook, "webhook not found", nil)
	}
	return nil
}

// Resolve implements webhooks.SubscriberResolver: it returns the active
// subscribers interested in the trigger event, scoped by the filter. An
// empty filter matches every active subscription for the trigger.
func (r *WebhookRepository) Resolve(ctx context.Context, trigger types.TriggerEvent, filter webhooks.SubscriberFilter) ([]webhooks.Subscriber, error) {
	query := `SELECT ` + webhookColumns + `
		 FROM webhooks
		 WHERE active AND $1 = ANY(event_triggers)`
	args := []any{string(trigger)}

	if filter.UserID != "" || filter.TeamID != "" {
		query += ` AND (($2 != '' AND user_id = $2) OR ($3 != '' AND team_id = $3))`
		args = append(args, filter.UserID, filter.TeamID)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeWebhookResolver, "failed to resolve webhook subscribers", err)
	}
	defer rows.Close()

	var subs []webhooks.Subscriber
	for rows.Next() {
		rec, err := scanWebhook(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeWebhookResolver, "failed to scan subscriber row", err)
		}
		subs = append(subs, rec.Subscriber())
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeWebhookResolver, "failed to read subscriber rows", err)
	}
	return subs, nil
}

func scanWebhook(row pgx.Row) (*WebhookRecord, error) {
	var rec WebhookRecord
	var teamID *string
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&teamID,
		&rec.SubscriberURL,
		&rec.Secret,
		&rec.PayloadTemplate,
		&rec.AppID,
		&rec.EventTriggers,
		&rec.Active,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	if teamID != nil {
		rec.TeamID = *teamID
	}
	return &rec, nil
}
