package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"meetpoint/internal/types"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations, used to map duplicate emails/usernames to 409 responses.
const uniqueViolation = "23505"

// UserRepository provides data access for the users table.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a UserRepository backed by the given database
// connection (pool or transaction).
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. Duplicate email or username surfaces as a
// conflict AppError.
func (r *UserRepository) Create(ctx context.Context, u *types.User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, username, email, time_zone, week_start, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.Email, u.TimeZone, u.WeekStart, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "users_username_key" {
				return types.NewAppError(types.ErrCodeConflictUsername, "username already exists", err)
			}
			return types.NewAppError(types.ErrCodeConflictEmail, "email already exists", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create user", err)
	}
	return nil
}

// Get returns one user by ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*types.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, username, email, time_zone, week_start, created_at
		 FROM users WHERE id = $1`,
		id,
	)

	var u types.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.TimeZone, &u.WeekStart, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get user", err)
	}
	return &u, nil
}
