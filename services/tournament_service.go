package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-bot/models"
	"github.com/Dosada05/tournament-bot/repositories"
)

const historyLimit = 10

type TournamentService interface {
	Create(ctx context.Context, admin Admin, draft models.TournamentDraft) (*models.Tournament, error)
	// ListActive returns upcoming tournaments that have not started yet,
	// earliest first.
	ListActive(ctx context.Context, now time.Time) ([]models.Tournament, error)
	Join(ctx context.Context, tournamentID, userID int64, now time.Time) (*models.Tournament, error)
	TransitionStatus(ctx context.Context, admin Admin, id int64, next models.TournamentStatus) (*models.Tournament, error)
	Get(ctx context.Context, id int64) (*models.Tournament, error)
	// ListForUser is the match history of a user, newest first.
	ListForUser(ctx context.Context, userID int64) ([]models.Tournament, error)
	// Participants returns registered users in join order.
	Participants(ctx context.Context, t *models.Tournament) ([]models.User, error)
	ConfirmedParticipants(ctx context.Context, t *models.Tournament) ([]models.User, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	userRepo       repositories.UserRepository
	pageSize       int
	timeout        time.Duration
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	pageSize int,
	timeout time.Duration,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		pageSize:       pageSize,
		timeout:        timeout,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, admin Admin, draft models.TournamentDraft) (*models.Tournament, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	t := &models.Tournament{
		Name:         draft.Name,
		Mode:         draft.Mode,
		StartAt:      draft.StartAt,
		Map:          draft.Map,
		EntryFee:     draft.EntryFee,
		PrizeType:    draft.PrizeType,
		PrizeDetails: draft.PrizeDetails,
		Status:       models.StatusUpcoming,
		CreatedBy:    admin.ID(),
		Participants: []int64{},
	}
	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		s.logger.Error("failed to create tournament", slog.Int64("admin_id", admin.ID()), slog.Any("error", err))
		return nil, persistence("create tournament", err)
	}

	s.logger.Info("tournament created",
		slog.Int64("tournament_id", t.ID),
		slog.String("name", t.Name),
		slog.Time("start_at", t.StartAt))
	return t, nil
}

func (s *tournamentService) ListActive(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	tournaments, err := s.tournamentRepo.ListUpcoming(ctx, now, s.pageSize)
	if err != nil {
		return nil, persistence("list active tournaments", err)
	}
	return tournaments, nil
}

func (s *tournamentService) Join(ctx context.Context, tournamentID, userID int64, now time.Time) (*models.Tournament, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	t, err := s.get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.HasParticipant(userID) {
		return t, ErrAlreadyJoined
	}
	if t.Status != models.StatusUpcoming || !now.Before(t.StartAt) {
		return t, ErrRegistrationClosed
	}

	added, err := s.tournamentRepo.AddParticipant(ctx, tournamentID, userID, now)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantUserInvalid) {
			return nil, ErrUserNotFound
		}
		return nil, persistence("join tournament", err)
	}

	// Перечитываем: участники и статус могли измениться параллельно.
	t, err = s.get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !added {
		if t.HasParticipant(userID) {
			return t, ErrAlreadyJoined
		}
		return t, ErrRegistrationClosed
	}

	s.logger.Info("user joined tournament", slog.Int64("tournament_id", tournamentID), slog.Int64("user_id", userID))
	return t, nil
}

func (s *tournamentService) TransitionStatus(ctx context.Context, admin Admin, id int64, next models.TournamentStatus) (*models.Tournament, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	if _, err := models.ParseTournamentStatus(string(next)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	t, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isValidStatusTransition(t.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, next)
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, id, t.Status, next); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNotFound):
			return nil, ErrTournamentNotFound
		case errors.Is(err, repositories.ErrTournamentStatusConflict):
			return nil, fmt.Errorf("%w: status of tournament %d changed concurrently", ErrInvalidTransition, id)
		default:
			return nil, persistence("update tournament status", err)
		}
	}

	s.logger.Info("tournament status changed",
		slog.Int64("tournament_id", id),
		slog.String("from", string(t.Status)),
		slog.String("to", string(next)),
		slog.Int64("admin_id", admin.ID()))
	t.Status = next
	return t, nil
}

func (s *tournamentService) Get(ctx context.Context, id int64) (*models.Tournament, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return s.get(ctx, id)
}

func (s *tournamentService) ListForUser(ctx context.Context, userID int64) ([]models.Tournament, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	tournaments, err := s.tournamentRepo.ListByParticipant(ctx, userID, historyLimit)
	if err != nil {
		return nil, persistence("list match history", err)
	}
	return tournaments, nil
}

func (s *tournamentService) Participants(ctx context.Context, t *models.Tournament) ([]models.User, error) {
	if len(t.Participants) == 0 {
		return []models.User{}, nil
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.userRepo.ListByIDs(ctx, t.Participants)
	if err != nil {
		return nil, persistence("list participants", err)
	}

	byID := make(map[int64]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	ordered := make([]models.User, 0, len(t.Participants))
	for _, id := range t.Participants {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}

func (s *tournamentService) ConfirmedParticipants(ctx context.Context, t *models.Tournament) ([]models.User, error) {
	users, err := s.Participants(ctx, t)
	if err != nil {
		return nil, err
	}
	confirmed := users[:0]
	for _, u := range users {
		if u.Confirmed {
			confirmed = append(confirmed, u)
		}
	}
	return confirmed, nil
}

func (s *tournamentService) get(ctx context.Context, id int64) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, persistence("get tournament", err)
	}
	return t, nil
}
