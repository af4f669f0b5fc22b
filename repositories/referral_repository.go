package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-bot/models"
)

var ErrReferralExists = errors.New("user already has a referrer")

type ReferralRepository interface {
	// Attribute stamps the referred user's referrer and records the edge in
	// one transaction. It reports false when the user already had one.
	Attribute(ctx context.Context, ref *models.Referral) (bool, error)
	// GrantBonus marks the edge of referredID as rewarded and credits the
	// referrer's balance. It returns nil when there is nothing to grant.
	GrantBonus(ctx context.Context, referredID, reward int64) (*models.Referral, error)
	ListByReferrer(ctx context.Context, referrerID int64, limit int) ([]models.Referral, error)
	CountByReferrer(ctx context.Context, referrerID int64) (total int, granted int, err error)
}

type postgresReferralRepository struct {
	db *sql.DB
}

func NewPostgresReferralRepository(db *sql.DB) ReferralRepository {
	return &postgresReferralRepository{db: db}
}

func (r *postgresReferralRepository) Attribute(ctx context.Context, ref *models.Referral) (bool, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE users SET referred_by = $1
			 WHERE id = $2 AND referred_by IS NULL AND id <> $1`,
			ref.ReferrerID, ref.ReferredID)
		if err != nil {
			return fmt.Errorf("failed to set referrer of user %d: %w", ref.ReferredID, err)
		}
		if err := checkAffectedRows(result, ErrReferralExists); err != nil {
			return err
		}

		insert := `
			INSERT INTO referrals (referrer_id, referred_id, code, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (referred_id) DO NOTHING
			RETURNING id`
		err = tx.QueryRowContext(ctx, insert, ref.ReferrerID, ref.ReferredID, ref.Code, ref.CreatedAt).Scan(&ref.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReferralExists
		}
		if err != nil {
			return fmt.Errorf("failed to insert referral: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrReferralExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *postgresReferralRepository) GrantBonus(ctx context.Context, referredID, reward int64) (*models.Referral, error) {
	var granted *models.Referral
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE referrals SET bonus_granted = TRUE
			WHERE referred_id = $1 AND bonus_granted = FALSE
			RETURNING id, referrer_id, referred_id, code, bonus_granted, created_at`
		ref, err := scanReferral(tx.QueryRowContext(ctx, query, referredID))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to grant referral bonus for user %d: %w", referredID, err)
		}

		result, err := tx.ExecContext(ctx, `UPDATE users SET balance = balance + $1 WHERE id = $2`, reward, ref.ReferrerID)
		if err != nil {
			return fmt.Errorf("failed to credit referrer %d: %w", ref.ReferrerID, err)
		}
		if err := checkAffectedRows(result, ErrUserNotFound); err != nil {
			return err
		}
		granted = ref
		return nil
	})
	if err != nil {
		return nil, err
	}
	return granted, nil
}

func (r *postgresReferralRepository) ListByReferrer(ctx context.Context, referrerID int64, limit int) ([]models.Referral, error) {
	query := `
		SELECT id, referrer_id, referred_id, code, bonus_granted, created_at
		FROM referrals
		WHERE referrer_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, referrerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	defer rows.Close()

	referrals := make([]models.Referral, 0)
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan referral row: %w", err)
		}
		referrals = append(referrals, *ref)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referral rows: %w", err)
	}
	return referrals, nil
}

func (r *postgresReferralRepository) CountByReferrer(ctx context.Context, referrerID int64) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE bonus_granted)
		FROM referrals
		WHERE referrer_id = $1`
	var total, granted int
	if err := r.db.QueryRowContext(ctx, query, referrerID).Scan(&total, &granted); err != nil {
		return 0, 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return total, granted, nil
}

func scanReferral(row rowScanner) (*models.Referral, error) {
	var ref models.Referral
	if err := row.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.Code, &ref.BonusGranted, &ref.CreatedAt); err != nil {
		return nil, err
	}
	return &ref, nil
}
