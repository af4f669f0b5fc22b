package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-bot/models"
	"github.com/Dosada05/tournament-bot/repositories"
)

// MonthlyTarget is the collection goal shown on the month report.
const MonthlyTarget int64 = 50000

type ReportService interface {
	// Collect sums confirmed payments whose confirmation falls in the period
	// containing anchor, in the configured time zone.
	Collect(ctx context.Context, admin Admin, period models.Period, anchor time.Time) (*models.Report, error)
}

type reportService struct {
	paymentRepo repositories.PaymentRepository
	location    *time.Location
	timeout     time.Duration
}

func NewReportService(paymentRepo repositories.PaymentRepository, location *time.Location, timeout time.Duration) ReportService {
	if location == nil {
		location = time.UTC
	}
	return &reportService{paymentRepo: paymentRepo, location: location, timeout: timeout}
}

func (s *reportService) Collect(ctx context.Context, admin Admin, period models.Period, anchor time.Time) (*models.Report, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	if _, err := models.ParsePeriod(string(period)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}

	anchor = anchor.In(s.location)
	from, to := period.Window(anchor)

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	collection, err := s.paymentRepo.SumConfirmed(ctx, from, to)
	if err != nil {
		return nil, persistence("sum confirmed payments", err)
	}
	return &models.Report{
		Period:     period,
		From:       from,
		To:         to,
		Anchor:     anchor,
		Collection: collection,
	}, nil
}
