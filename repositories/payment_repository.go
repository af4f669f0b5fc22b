package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-bot/models"
)

var (
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPaymentUserInvalid = errors.New("payment user does not exist")
)

// pendingPaymentConstraint is the partial unique index allowing a single
// pending payment per (user, tournament).
const pendingPaymentConstraint = "payments_one_pending_idx"

type PaymentRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Payment, error)
	// CreateSuperseding marks any pending payment of the same user and
	// tournament as superseded and inserts p, in one transaction.
	CreateSuperseding(ctx context.Context, p *models.Payment) error
	// Latest returns the newest non-superseded payment. A nil tournamentID
	// matches payments for any tournament.
	Latest(ctx context.Context, userID int64, tournamentID *int64) (*models.Payment, error)
	// Confirm flips the payment to confirmed and marks its owner paid in one
	// transaction. It reports false when the payment was already confirmed.
	Confirm(ctx context.Context, paymentID, userID int64, at time.Time) (bool, error)
	SumConfirmed(ctx context.Context, from, to time.Time) (models.Collection, error)
	SetProofKey(ctx context.Context, id int64, key string) error
}

type postgresPaymentRepository struct {
	db *sql.DB
}

func NewPostgresPaymentRepository(db *sql.DB) PaymentRepository {
	return &postgresPaymentRepository{db: db}
}

const paymentColumns = `id, user_id, tournament_id, amount, utr, confirmed, superseded, submitted_at, confirmed_at, proof_key`

func (r *postgresPaymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresPaymentRepository) CreateSuperseding(ctx context.Context, p *models.Payment) error {
	var err error
	// Две одновременные отправки упираются в частичный уникальный индекс;
	// повторная попытка увидит уже закоммиченную запись и вытеснит её.
	for attempt := 0; attempt < 2; attempt++ {
		err = withTx(ctx, r.db, func(tx *sql.Tx) error {
			return r.createSuperseding(ctx, tx, p)
		})
		if !isUniqueViolation(err, pendingPaymentConstraint) {
			break
		}
	}
	return err
}

func (r *postgresPaymentRepository) createSuperseding(ctx context.Context, exec SQLExecutor, p *models.Payment) error {
	supersede := `
		UPDATE payments SET superseded = TRUE
		WHERE user_id = $1
			AND tournament_id IS NOT DISTINCT FROM $2
			AND confirmed = FALSE
			AND superseded = FALSE`
	if _, err := exec.ExecContext(ctx, supersede, p.UserID, nullInt64(p.TournamentID)); err != nil {
		return fmt.Errorf("failed to supersede pending payments: %w", err)
	}

	insert := `
		INSERT INTO payments (user_id, tournament_id, amount, utr, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := exec.QueryRowContext(ctx, insert,
		p.UserID, nullInt64(p.TournamentID), p.Amount, p.UTR, p.SubmittedAt,
	).Scan(&p.ID)
	if err != nil {
		if isForeignKeyViolation(err, "payments_user_id_fkey") {
			return ErrPaymentUserInvalid
		}
		if isUniqueViolation(err, pendingPaymentConstraint) {
			return err
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	p.Confirmed = false
	p.Superseded = false
	return nil
}

func (r *postgresPaymentRepository) Latest(ctx context.Context, userID int64, tournamentID *int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 AND superseded = FALSE`
	args := []interface{}{userID}
	if tournamentID != nil {
		query += ` AND tournament_id = $2`
		args = append(args, *tournamentID)
	}
	query += ` ORDER BY submitted_at DESC, id DESC LIMIT 1`

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get latest payment for user %d: %w", userID, err)
	}
	return p, nil
}

func (r *postgresPaymentRepository) Confirm(ctx context.Context, paymentID, userID int64, at time.Time) (bool, error) {
	confirmed := false
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE payments SET confirmed = TRUE, confirmed_at = $2
			 WHERE id = $1 AND confirmed = FALSE`,
			paymentID, at)
		if err != nil {
			return fmt.Errorf("failed to confirm payment %d: %w", paymentID, err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to check affected rows: %w", err)
		} else if n == 0 {
			return nil
		}

		result, err = tx.ExecContext(ctx,
			`UPDATE users SET paid = TRUE, confirmed = TRUE WHERE id = $1`, userID)
		if err != nil {
			return fmt.Errorf("failed to mark user %d paid: %w", userID, err)
		}
		if err := checkAffectedRows(result, ErrUserNotFound); err != nil {
			return err
		}
		confirmed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return confirmed, nil
}

func (r *postgresPaymentRepository) SumConfirmed(ctx context.Context, from, to time.Time) (models.Collection, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM payments
		WHERE confirmed = TRUE AND confirmed_at >= $1 AND confirmed_at < $2`

	var c models.Collection
	if err := r.db.QueryRowContext(ctx, query, from, to).Scan(&c.TotalAmount, &c.TotalPayments); err != nil {
		return models.Collection{}, fmt.Errorf("failed to sum confirmed payments: %w", err)
	}
	return c, nil
}

func (r *postgresPaymentRepository) SetProofKey(ctx context.Context, id int64, key string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE payments SET proof_key = $1 WHERE id = $2`, key, id)
	if err != nil {
		return fmt.Errorf("failed to update payment proof key: %w", err)
	}
	return checkAffectedRows(result, ErrPaymentNotFound)
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var tournamentID sql.NullInt64
	var confirmedAt sql.NullTime
	var proofKey sql.NullString
	if err := row.Scan(
		&p.ID, &p.UserID, &tournamentID, &p.Amount, &p.UTR, &p.Confirmed, &p.Superseded,
		&p.SubmittedAt, &confirmedAt, &proofKey,
	); err != nil {
		return nil, err
	}
	p.TournamentID = int64Ptr(tournamentID)
	if confirmedAt.Valid {
		t := confirmedAt.Time
		p.ConfirmedAt = &t
	}
	if proofKey.Valid {
		k := proofKey.String
		p.ProofKey = &k
	}
	return &p, nil
}
