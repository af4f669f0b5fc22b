package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-bot/models"
	"github.com/Dosada05/tournament-bot/repositories"
)

const recentReferrals = 5

type ReferralService interface {
	// Attribute links userID to the owner of code. Malformed codes, unknown
	// referrers, self-referrals and already referred users are ignored and
	// reported as false.
	Attribute(ctx context.Context, userID int64, code string, now time.Time) (bool, error)
	// GrantBonus credits the referrer of referredID once their payment is
	// confirmed. It returns nil when there was nothing to grant.
	GrantBonus(ctx context.Context, referredID int64) (*models.Referral, error)
	BonusFor(ctx context.Context, userID int64) (int64, error)
	FreeEntriesFor(ctx context.Context, userID int64, entryFee int64) (int64, error)
	Stats(ctx context.Context, userID int64) (*models.ReferralStats, error)
}

type referralService struct {
	referralRepo repositories.ReferralRepository
	userRepo     repositories.UserRepository
	reward       int64
	freeEntryFee int64
	timeout      time.Duration
	logger       *slog.Logger
}

func NewReferralService(
	referralRepo repositories.ReferralRepository,
	userRepo repositories.UserRepository,
	reward, freeEntryFee int64,
	timeout time.Duration,
	logger *slog.Logger,
) ReferralService {
	return &referralService{
		referralRepo: referralRepo,
		userRepo:     userRepo,
		reward:       reward,
		freeEntryFee: freeEntryFee,
		timeout:      timeout,
		logger:       logger,
	}
}

func (s *referralService) Attribute(ctx context.Context, userID int64, code string, now time.Time) (bool, error) {
	log := s.logger.With(slog.Int64("user_id", userID), slog.String("code", code))

	referrerID, ok := models.ParseReferralCode(code)
	if !ok {
		log.Info("ignoring malformed referral code")
		return false, nil
	}
	if referrerID == userID {
		log.Info("ignoring self-referral")
		return false, nil
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.userRepo.GetByID(ctx, referrerID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			log.Info("ignoring referral code of unknown user")
			return false, nil
		}
		return false, persistence("look up referrer", err)
	}

	created, err := s.referralRepo.Attribute(ctx, &models.Referral{
		ReferrerID: referrerID,
		ReferredID: userID,
		Code:       models.ReferralCodeFor(referrerID),
		CreatedAt:  now,
	})
	if err != nil {
		return false, persistence("attribute referral", err)
	}
	if !created {
		log.Info("ignoring referral, user already referred", slog.Any("reason", ErrDuplicateReferral))
		return false, nil
	}

	log.Info("referral recorded", slog.Int64("referrer_id", referrerID))
	return true, nil
}

func (s *referralService) GrantBonus(ctx context.Context, referredID int64) (*models.Referral, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	ref, err := s.referralRepo.GrantBonus(ctx, referredID, s.reward)
	if err != nil {
		return nil, persistence("grant referral bonus", err)
	}
	if ref != nil {
		s.logger.Info("referral bonus granted",
			slog.Int64("referrer_id", ref.ReferrerID),
			slog.Int64("referred_id", referredID),
			slog.Int64("reward", s.reward))
	}
	return ref, nil
}

func (s *referralService) BonusFor(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, granted, err := s.referralRepo.CountByReferrer(ctx, userID)
	if err != nil {
		return 0, persistence("count referrals", err)
	}
	return int64(granted) * s.reward, nil
}

func (s *referralService) FreeEntriesFor(ctx context.Context, userID int64, entryFee int64) (int64, error) {
	if entryFee <= 0 {
		return 0, nil
	}
	bonus, err := s.BonusFor(ctx, userID)
	if err != nil {
		return 0, err
	}
	return bonus / entryFee, nil
}

func (s *referralService) Stats(ctx context.Context, userID int64) (*models.ReferralStats, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	total, granted, err := s.referralRepo.CountByReferrer(ctx, userID)
	if err != nil {
		return nil, persistence("count referrals", err)
	}
	recent, err := s.referralRepo.ListByReferrer(ctx, userID, recentReferrals)
	if err != nil {
		return nil, persistence("list referrals", err)
	}

	bonus := int64(granted) * s.reward
	stats := &models.ReferralStats{
		Total:   total,
		Granted: granted,
		Bonus:   bonus,
		Recent:  recent,
	}
	if s.freeEntryFee > 0 {
		stats.FreeEntries = bonus / s.freeEntryFee
	}
	return stats, nil
}
