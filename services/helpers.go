package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-bot/models"
)

// persistence tags a store failure so the edge maps it to a generic error
// while logs keep the cause.
func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// withTimeout bounds a store or transport call. A non-positive timeout only
// inherits the parent deadline.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusUpcoming:  {models.StatusLive, models.StatusCancelled},
		models.StatusLive:      {models.StatusCompleted},
		models.StatusCompleted: {},
		models.StatusCancelled: {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

func validateDraft(draft models.TournamentDraft) error {
	if draft.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTournament)
	}
	if _, err := models.ParseTournamentMode(string(draft.Mode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTournament, err)
	}
	if _, err := models.ParsePrizeType(string(draft.PrizeType)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTournament, err)
	}
	if draft.Map == "" {
		return fmt.Errorf("%w: map is required", ErrInvalidTournament)
	}
	if draft.EntryFee < 0 {
		return fmt.Errorf("%w: entry fee must not be negative", ErrInvalidTournament)
	}
	if draft.StartAt.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrInvalidTournament)
	}
	return nil
}
