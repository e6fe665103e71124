package db

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"meetpoint/internal/types"
)

// ScheduleRepository provides data access for the schedules table.
// Availability windows are stored as a JSONB column; pgx handles the
// (de)serialization through encoding/json.
type ScheduleRepository struct {
	db DBTX
}

// NewScheduleRepository creates a ScheduleRepository backed by the given
// database connection (pool or transaction).
func NewScheduleRepository(db DBTX) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts a new schedule.
func (r *ScheduleRepository) Create(ctx context.Context, s *types.Schedule) error {
	avail, err := json.Marshal(s.Availability)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode availability", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO schedules (id, user_id, name, time_zone, availability, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.Name, s.TimeZone, avail, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create schedule", err)
	}
	return nil
}

// Get returns one schedule by ID, scoped to its owner.
func (r *ScheduleRepository) Get(ctx context.Context, userID, id string) (*types.Schedule, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, user_id, name, time_zone, availability, created_at, updated_at
		 FROM schedules
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	)

	var s types.Schedule
	var avail []byte
	if err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.TimeZone, &avail, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundSchedule, "schedule not found", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get schedule", err)
	}
	if err := json.Unmarshal(avail, &s.Availability); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to decode availability", err)
	}
	return &s, nil
}

// Update persists name, time zone, and availability changes.
func (r *ScheduleRepository) Update(ctx context.Context, s *types.Schedule) error {
	avail, err := json.Marshal(s.Availability)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode availability", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE schedules
		 SET name = $3, time_zone = $4, availability = $5, updated_at = $6
		 WHERE id = $1 AND user_id = $2`,
		s.ID, s.UserID, s.Name, s.TimeZone, avail, s.UpdatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update schedule", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundSchedule, "schedule not found", nil)
	}
	return nil
}

// Delete removes a schedule, scoped to its owner.
func (r *ScheduleRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM schedules WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete schedule", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundSchedule, "schedule not found", nil)
	}
	return nil
}
