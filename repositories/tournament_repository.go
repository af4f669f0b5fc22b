package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-bot/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound       = errors.New("tournament not found")
	ErrTournamentInvalidCreator = errors.New("invalid creator reference")
	ErrTournamentStatusConflict = errors.New("tournament status changed concurrently")
	ErrParticipantUserInvalid   = errors.New("participant user does not exist")
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int64) (*models.Tournament, error)
	// ListUpcoming returns upcoming tournaments starting at or after now,
	// earliest first.
	ListUpcoming(ctx context.Context, now time.Time, limit int) ([]models.Tournament, error)
	ListByParticipant(ctx context.Context, userID int64, limit int) ([]models.Tournament, error)
	// AddParticipant is a set-union: it reports false when the user was
	// already registered or registration is no longer open.
	AddParticipant(ctx context.Context, tournamentID, userID int64, now time.Time) (bool, error)
	// UpdateStatus moves the tournament from one status to another only if
	// it is still in the expected one.
	UpdateStatus(ctx context.Context, id int64, from, to models.TournamentStatus) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, name, mode, start_at, map, entry_fee, prize_type, prize_details, status, created_by, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			name, mode, start_at, map, entry_fee, prize_type, prize_details, status, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Mode, t.StartAt, t.Map, t.EntryFee, t.PrizeType, t.PrizeDetails, t.Status, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err, "tournaments_created_by_fkey") {
			return ErrTournamentInvalidCreator
		}
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	if t.Participants == nil {
		t.Participants = []int64{}
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int64) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t, err := scanTournament(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}

	tournaments := []models.Tournament{*t}
	if err := r.loadParticipants(ctx, tournaments); err != nil {
		return nil, err
	}
	return &tournaments[0], nil
}

func (r *postgresTournamentRepository) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]models.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE status = $1 AND start_at >= $2
		ORDER BY start_at ASC, id ASC
		LIMIT $3`
	return r.list(ctx, query, models.StatusUpcoming, now, limit)
}

func (r *postgresTournamentRepository) ListByParticipant(ctx context.Context, userID int64, limit int) ([]models.Tournament, error) {
	query := `
		SELECT t.id, t.name, t.mode, t.start_at, t.map, t.entry_fee, t.prize_type, t.prize_details,
			t.status, t.created_by, t.created_at
		FROM tournaments t
		JOIN tournament_participants tp ON tp.tournament_id = t.id
		WHERE tp.user_id = $1
		ORDER BY tp.position DESC
		LIMIT $2`
	return r.list(ctx, query, userID, limit)
}

func (r *postgresTournamentRepository) AddParticipant(ctx context.Context, tournamentID, userID int64, now time.Time) (bool, error) {
	// Проверка статуса и времени в том же операторе, что и вставка,
	// чтобы регистрация не проскочила после старта.
	query := `
		INSERT INTO tournament_participants (tournament_id, user_id, joined_at)
		SELECT id, $2, $3
		FROM tournaments
		WHERE id = $1 AND status = $4 AND start_at > $3
		ON CONFLICT (tournament_id, user_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, tournamentID, userID, now, models.StatusUpcoming)
	if err != nil {
		if isForeignKeyViolation(err, "tournament_participants_user_id_fkey") {
			return false, ErrParticipantUserInvalid
		}
		return false, fmt.Errorf("failed to add participant %d to tournament %d: %w", userID, tournamentID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, id int64, from, to models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1 WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d status: %w", id, err)
	}
	if err := checkAffectedRows(result, ErrTournamentStatusConflict); err != nil {
		if !errors.Is(err, ErrTournamentStatusConflict) {
			return err
		}
		var exists bool
		if qErr := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tournaments WHERE id = $1)`, id).Scan(&exists); qErr != nil {
			return fmt.Errorf("failed to check tournament %d: %w", id, qErr)
		}
		if !exists {
			return ErrTournamentNotFound
		}
		return ErrTournamentStatusConflict
	}
	return nil
}

func (r *postgresTournamentRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Tournament, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}

	if err := r.loadParticipants(ctx, tournaments); err != nil {
		return nil, err
	}
	return tournaments, nil
}

// loadParticipants fills Participants in join order for every tournament
// with a single query.
func (r *postgresTournamentRepository) loadParticipants(ctx context.Context, tournaments []models.Tournament) error {
	if len(tournaments) == 0 {
		return nil
	}
	ids := make([]int64, len(tournaments))
	index := make(map[int64]int, len(tournaments))
	for i := range tournaments {
		ids[i] = tournaments[i].ID
		index[tournaments[i].ID] = i
		tournaments[i].Participants = []int64{}
	}

	query := `
		SELECT tournament_id, user_id
		FROM tournament_participants
		WHERE tournament_id = ANY($1)
		ORDER BY position ASC`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tournamentID, userID int64
		if err := rows.Scan(&tournamentID, &userID); err != nil {
			return fmt.Errorf("failed to scan participant row: %w", err)
		}
		i := index[tournamentID]
		tournaments[i].Participants = append(tournaments[i].Participants, userID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating participant rows: %w", err)
	}
	return nil
}

func scanTournament(row rowScanner) (*models.Tournament, error) {
	var t models.Tournament
	if err := row.Scan(
		&t.ID, &t.Name, &t.Mode, &t.StartAt, &t.Map, &t.EntryFee, &t.PrizeType, &t.PrizeDetails,
		&t.Status, &t.CreatedBy, &t.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
