package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-bot/models"
	"github.com/Dosada05/tournament-bot/repositories"
	"github.com/Dosada05/tournament-bot/storage"
)

// ConfirmResult describes what a confirmation changed.
type ConfirmResult struct {
	Payment *models.Payment
	// AlreadyConfirmed is set when the payment had been confirmed before and
	// nothing was written.
	AlreadyConfirmed bool
	// Referral is the edge whose bonus this confirmation granted, if any.
	Referral *models.Referral
}

type PaymentService interface {
	// Submit records a pending payment, superseding the previous pending one
	// for the same user and tournament.
	Submit(ctx context.Context, userID int64, tournamentID *int64, utr string) (*models.Payment, error)
	// Confirm approves the newest payment of userID. A nil tournamentID
	// matches a payment for any tournament.
	Confirm(ctx context.Context, admin Admin, userID int64, tournamentID *int64) (*ConfirmResult, error)
	LatestFor(ctx context.Context, userID int64, tournamentID *int64) (*models.Payment, error)
	AttachProof(ctx context.Context, paymentID, userID int64, contentType string, body io.Reader) (*models.Payment, error)
}

type paymentService struct {
	paymentRepo    repositories.PaymentRepository
	tournamentRepo repositories.TournamentRepository
	referrals      ReferralService
	uploader       storage.FileUploader
	utrLength      int
	timeout        time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewPaymentService wires the ledger. uploader may be nil when proof
// screenshots are not configured.
func NewPaymentService(
	paymentRepo repositories.PaymentRepository,
	tournamentRepo repositories.TournamentRepository,
	referrals ReferralService,
	uploader storage.FileUploader,
	utrLength int,
	timeout time.Duration,
	logger *slog.Logger,
) PaymentService {
	return &paymentService{
		paymentRepo:    paymentRepo,
		tournamentRepo: tournamentRepo,
		referrals:      referrals,
		uploader:       uploader,
		utrLength:      utrLength,
		timeout:        timeout,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *paymentService) Submit(ctx context.Context, userID int64, tournamentID *int64, utr string) (*models.Payment, error) {
	utr = strings.TrimSpace(utr)
	if !models.IsValidUTR(utr, s.utrLength) {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidUTR, utr)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var amount int64
	if tournamentID != nil {
		t, err := s.tournamentRepo.GetByID(ctx, *tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return nil, ErrTournamentNotFound
			}
			return nil, persistence("get tournament for payment", err)
		}
		amount = t.EntryFee
	}

	p := &models.Payment{
		UserID:       userID,
		TournamentID: tournamentID,
		Amount:       amount,
		UTR:          utr,
		SubmittedAt:  s.now(),
	}
	if err := s.paymentRepo.CreateSuperseding(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrPaymentUserInvalid) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("failed to submit payment", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, persistence("submit payment", err)
	}

	s.logger.Info("payment submitted",
		slog.Int64("payment_id", p.ID),
		slog.Int64("user_id", userID),
		slog.Int64("amount", amount))
	return p, nil
}

func (s *paymentService) Confirm(ctx context.Context, admin Admin, userID int64, tournamentID *int64) (*ConfirmResult, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.latest(ctx, userID, tournamentID)
	if err != nil {
		return nil, err
	}
	if p.Confirmed {
		return &ConfirmResult{Payment: p, AlreadyConfirmed: true}, nil
	}

	at := s.now()
	changed, err := s.paymentRepo.Confirm(ctx, p.ID, userID, at)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("failed to confirm payment", slog.Int64("payment_id", p.ID), slog.Any("error", err))
		return nil, persistence("confirm payment", err)
	}
	if !changed {
		// Подтверждён параллельно другим оператором.
		current, err := s.paymentRepo.GetByID(ctx, p.ID)
		if err != nil {
			return nil, persistence("reload payment", err)
		}
		return &ConfirmResult{Payment: current, AlreadyConfirmed: true}, nil
	}

	p.Confirmed = true
	p.ConfirmedAt = &at
	result := &ConfirmResult{Payment: p}
	s.logger.Info("payment confirmed",
		slog.Int64("payment_id", p.ID),
		slog.Int64("user_id", userID),
		slog.Int64("admin_id", admin.ID()))

	ref, err := s.referrals.GrantBonus(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to grant referral bonus", slog.Int64("user_id", userID), slog.Any("error", err))
	} else {
		result.Referral = ref
	}
	return result, nil
}

func (s *paymentService) LatestFor(ctx context.Context, userID int64, tournamentID *int64) (*models.Payment, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.latest(ctx, userID, tournamentID)
	if err != nil {
		return nil, err
	}
	s.populateProofURL(p)
	return p, nil
}

func (s *paymentService) AttachProof(ctx context.Context, paymentID, userID int64, contentType string, body io.Reader) (*models.Payment, error) {
	if s.uploader == nil {
		return nil, ErrProofUploadDisabled
	}
	ext, err := storage.ExtensionFor(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedProof, err)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, persistence("get payment", err)
	}
	if p.UserID != userID {
		// Чужой платёж не раскрываем.
		return nil, ErrPaymentNotFound
	}

	key := storage.ProofKey(userID, paymentID, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, body); err != nil {
		return nil, fmt.Errorf("failed to upload payment proof: %w", err)
	}
	if err := s.paymentRepo.SetProofKey(ctx, paymentID, key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to delete orphaned proof", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, persistence("record payment proof", err)
	}

	if p.ProofKey != nil && *p.ProofKey != "" {
		if err := s.uploader.Delete(ctx, *p.ProofKey); err != nil {
			s.logger.Warn("failed to delete previous proof", slog.String("key", *p.ProofKey), slog.Any("error", err))
		}
	}
	p.ProofKey = &key
	s.populateProofURL(p)
	return p, nil
}

func (s *paymentService) latest(ctx context.Context, userID int64, tournamentID *int64) (*models.Payment, error) {
	p, err := s.paymentRepo.Latest(ctx, userID, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, persistence("get latest payment", err)
	}
	return p, nil
}

func (s *paymentService) populateProofURL(p *models.Payment) {
	if p == nil || p.ProofKey == nil || *p.ProofKey == "" || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*p.ProofKey); url != "" {
		p.ProofURL = &url
	}
}
