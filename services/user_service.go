package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-bot/models"
	"github.com/Dosada05/tournament-bot/repositories"
)

// Profile is what the chat transport tells us about a sender.
type Profile struct {
	ID        int64
	Username  string
	FirstName string
}

type UserService interface {
	// Register creates the user on first contact or refreshes the chat
	// profile. Payment flags, balance and referrer are preserved.
	Register(ctx context.Context, profile Profile) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewUserService(userRepo repositories.UserRepository, timeout time.Duration, logger *slog.Logger) UserService {
	return &userService{userRepo: userRepo, timeout: timeout, logger: logger, now: time.Now}
}

func (s *userService) Register(ctx context.Context, profile Profile) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user := &models.User{
		ID:           profile.ID,
		Username:     models.NormalizeUsername(profile.Username),
		FirstName:    profile.FirstName,
		ReferralCode: models.ReferralCodeFor(profile.ID),
		JoinedAt:     s.now(),
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		s.logger.Error("failed to register user", slog.Int64("user_id", profile.ID), slog.Any("error", err))
		return nil, persistence("register user", err)
	}
	return user, nil
}

func (s *userService) Get(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistence("get user", err)
	}
	return user, nil
}

func (s *userService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.userRepo.GetByUsername(ctx, models.NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistence("find user by username", err)
	}
	return user, nil
}
