package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/tournament-bot/models"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

type UserRepository interface {
	// Upsert creates the user on first contact and refreshes the chat
	// profile afterwards. Flags, balance and referrer are never reset.
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListByIDs(ctx context.Context, ids []int64) ([]models.User, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `id, username, first_name, balance, paid, confirmed, referral_code, referred_by, joined_at`

func (r *postgresUserRepository) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, first_name, referral_code, joined_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			username = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
			first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), users.first_name)
		RETURNING username, first_name, balance, paid, confirmed, referral_code, referred_by, joined_at`

	var referredBy sql.NullInt64
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Username,
		user.FirstName,
		models.ReferralCodeFor(user.ID),
		user.JoinedAt,
	).Scan(&user.Username, &user.FirstName, &user.Balance, &user.Paid, &user.Confirmed, &user.ReferralCode, &referredBy, &user.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", user.ID, err)
	}
	user.ReferredBy = int64Ptr(referredBy)
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower($1)`
	return r.scanOne(r.db.QueryRowContext(ctx, query, strings.TrimPrefix(username, "@")))
}

func (r *postgresUserRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	users := make([]models.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

func (r *postgresUserRepository) scanOne(row *sql.Row) (*models.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var referredBy sql.NullInt64
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.FirstName,
		&u.Balance,
		&u.Paid,
		&u.Confirmed,
		&u.ReferralCode,
		&referredBy,
		&u.JoinedAt,
	); err != nil {
		return nil, err
	}
	u.ReferredBy = int64Ptr(referredBy)
	return &u, nil
}
