package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-bot/models"
)

const (
	supersedePendingSQL = `
		UPDATE payments SET superseded = TRUE
		WHERE user_id = $1
			AND tournament_id IS NOT DISTINCT FROM $2
			AND confirmed = FALSE
			AND superseded = FALSE`
	insertPaymentSQL = `
		INSERT INTO payments (user_id, tournament_id, amount, utr, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	confirmPaymentSQL = `UPDATE payments SET confirmed = TRUE, confirmed_at = $2
		WHERE id = $1 AND confirmed = FALSE`
	markUserPaidSQL = `UPDATE users SET paid = TRUE, confirmed = TRUE WHERE id = $1`
)

func newPayment(tournamentID *int64) *models.Payment {
	return &models.Payment{
		UserID:       7,
		TournamentID: tournamentID,
		Amount:       50,
		UTR:          "123456789012",
		SubmittedAt:  time.Date(2025, 8, 5, 12, 0, 0, 0, time.UTC),
	}
}

func expectSubmission(mock sqlmock.Sqlmock, p *models.Payment, tournamentArg interface{}) *sqlmock.ExpectedQuery {
	mock.ExpectBegin()
	mock.ExpectExec(supersedePendingSQL).
		WithArgs(p.UserID, tournamentArg).
		WillReturnResult(sqlmock.NewResult(0, 1))
	return mock.ExpectQuery(insertPaymentSQL).
		WithArgs(p.UserID, tournamentArg, p.Amount, p.UTR, p.SubmittedAt)
}

func pendingConflict() error {
	return &pq.Error{Code: "23505", Constraint: pendingPaymentConstraint}
}

func TestCreateSuperseding(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("inserts after superseding", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		tournamentID := int64(3)
		p := newPayment(&tournamentID)

		expectSubmission(mock, p, int64(3)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
		mock.ExpectCommit()

		require.NoError(t, NewPostgresPaymentRepository(db).CreateSuperseding(ctx, p))
		require.Equal(t, int64(42), p.ID)
		require.False(t, p.Confirmed)
		require.False(t, p.Superseded)
	})

	t.Run("standalone payment binds null tournament", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		p := newPayment(nil)

		expectSubmission(mock, p, nil).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
		mock.ExpectCommit()

		require.NoError(t, NewPostgresPaymentRepository(db).CreateSuperseding(ctx, p))
		require.Equal(t, int64(9), p.ID)
	})

	t.Run("retries once on concurrent pending insert", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		tournamentID := int64(3)
		p := newPayment(&tournamentID)

		expectSubmission(mock, p, int64(3)).WillReturnError(pendingConflict())
		mock.ExpectRollback()
		expectSubmission(mock, p, int64(3)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(43)))
		mock.ExpectCommit()

		require.NoError(t, NewPostgresPaymentRepository(db).CreateSuperseding(ctx, p))
		require.Equal(t, int64(43), p.ID)
	})

	t.Run("gives up after second conflict", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		p := newPayment(nil)

		expectSubmission(mock, p, nil).WillReturnError(pendingConflict())
		mock.ExpectRollback()
		expectSubmission(mock, p, nil).WillReturnError(pendingConflict())
		mock.ExpectRollback()

		err := NewPostgresPaymentRepository(db).CreateSuperseding(ctx, p)
		require.Error(t, err)
		require.True(t, isUniqueViolation(err, pendingPaymentConstraint))
	})

	t.Run("unknown user is not retried", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		p := newPayment(nil)

		expectSubmission(mock, p, nil).WillReturnError(&pq.Error{Code: "23503", Constraint: "payments_user_id_fkey"})
		mock.ExpectRollback()

		err := NewPostgresPaymentRepository(db).CreateSuperseding(ctx, p)
		require.ErrorIs(t, err, ErrPaymentUserInvalid)
	})

	t.Run("supersede failure rolls back", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		p := newPayment(nil)

		mock.ExpectBegin()
		mock.ExpectExec(supersedePendingSQL).
			WithArgs(p.UserID, nil).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err := NewPostgresPaymentRepository(db).CreateSuperseding(ctx, p)
		require.ErrorContains(t, err, "failed to supersede pending payments")
	})
}

func TestConfirm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	at := time.Date(2025, 8, 5, 13, 0, 0, 0, time.UTC)

	t.Run("confirms and marks user paid", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(confirmPaymentSQL).WithArgs(int64(42), at).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(markUserPaidSQL).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		confirmed, err := NewPostgresPaymentRepository(db).Confirm(ctx, 42, 7, at)
		require.NoError(t, err)
		require.True(t, confirmed)
	})

	t.Run("already confirmed leaves user untouched", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(confirmPaymentSQL).WithArgs(int64(42), at).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		confirmed, err := NewPostgresPaymentRepository(db).Confirm(ctx, 42, 7, at)
		require.NoError(t, err)
		require.False(t, confirmed)
	})

	t.Run("missing user rolls back the confirmation", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(confirmPaymentSQL).WithArgs(int64(42), at).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(markUserPaidSQL).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		confirmed, err := NewPostgresPaymentRepository(db).Confirm(ctx, 42, 7, at)
		require.ErrorIs(t, err, ErrUserNotFound)
		require.False(t, confirmed)
	})

	t.Run("commit failure is reported", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(confirmPaymentSQL).WithArgs(int64(42), at).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(markUserPaidSQL).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		confirmed, err := NewPostgresPaymentRepository(db).Confirm(ctx, 42, 7, at)
		require.ErrorContains(t, err, "failed to commit transaction")
		require.False(t, confirmed)
	})
}

func TestGetPaymentNotFound(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewPostgresPaymentRepository(db).GetByID(context.Background(), 42)
	require.ErrorIs(t, err, ErrPaymentNotFound)
}
