package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/tournament-bot/models"
	"github.com/Dosada05/tournament-bot/repositories"
	"github.com/Dosada05/tournament-bot/storage"
)

// store is an in-memory stand-in for the Postgres schema. All fake
// repositories share it so cross-table effects behave like transactions.
type store struct {
	mu          sync.Mutex
	users       map[int64]*models.User
	tournaments map[int64]*models.Tournament
	payments    []*models.Payment
	referrals   []*models.Referral
	// joins keeps (tournament, user) pairs in insertion order, like position.
	joins       [][2]int64
	nextID      int64
}

func newStore() *store {
	return &store{
		users:       make(map[int64]*models.User),
		tournaments: make(map[int64]*models.Tournament),
	}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct{ s *store }

func (r fakeUserRepo) Upsert(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing, ok := r.s.users[u.ID]; ok {
		existing.Username = u.Username
		existing.FirstName = u.FirstName
		*u = *existing
		return nil
	}
	c := *u
	r.s.users[u.ID] = &c
	return nil
}

func (r fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Username, username) {
			c := *u
			return &c, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r fakeUserRepo) ListByIDs(_ context.Context, ids []int64) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

type fakeTournamentRepo struct{ s *store }

func cloneTournament(t *models.Tournament) *models.Tournament {
	c := *t
	c.Participants = append([]int64{}, t.Participants...)
	return &c
}

func (r fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[t.CreatedBy]; !ok {
		return repositories.ErrTournamentInvalidCreator
	}
	t.ID = r.s.id()
	t.CreatedAt = time.Now()
	r.s.tournaments[t.ID] = cloneTournament(t)
	return nil
}

func (r fakeTournamentRepo) GetByID(_ context.Context, id int64) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return cloneTournament(t), nil
}

func (r fakeTournamentRepo) ListUpcoming(_ context.Context, now time.Time, limit int) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Tournament, 0)
	for _, t := range r.s.tournaments {
		if t.Status == models.StatusUpcoming && !t.StartAt.Before(now) {
			out = append(out, *cloneTournament(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartAt.Before(out[j].StartAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeTournamentRepo) ListByParticipant(_ context.Context, userID int64, limit int) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Tournament, 0)
	for i := len(r.s.joins) - 1; i >= 0; i-- {
		if j := r.s.joins[i]; j[1] == userID {
			out = append(out, *cloneTournament(r.s.tournaments[j[0]]))
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeTournamentRepo) AddParticipant(_ context.Context, tournamentID, userID int64, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[userID]; !ok {
		return false, repositories.ErrParticipantUserInvalid
	}
	t, ok := r.s.tournaments[tournamentID]
	if !ok || t.Status != models.StatusUpcoming || !t.StartAt.After(now) || t.HasParticipant(userID) {
		return false, nil
	}
	t.Participants = append(t.Participants, userID)
	r.s.joins = append(r.s.joins, [2]int64{tournamentID, userID})
	return true, nil
}

func (r fakeTournamentRepo) UpdateStatus(_ context.Context, id int64, from, to models.TournamentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.Status != from {
		return repositories.ErrTournamentStatusConflict
	}
	t.Status = to
	return nil
}

type fakePaymentRepo struct{ s *store }

func sameTournament(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r fakePaymentRepo) GetByID(_ context.Context, id int64) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.payments {
		if p.ID == id {
			c := *p
			return &c, nil
		}
	}
	return nil, repositories.ErrPaymentNotFound
}

func (r fakePaymentRepo) CreateSuperseding(_ context.Context, p *models.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[p.UserID]; !ok {
		return repositories.ErrPaymentUserInvalid
	}
	for _, existing := range r.s.payments {
		if existing.UserID == p.UserID && sameTournament(existing.TournamentID, p.TournamentID) && existing.Pending() {
			existing.Superseded = true
		}
	}
	p.ID = r.s.id()
	c := *p
	r.s.payments = append(r.s.payments, &c)
	return nil
}

func (r fakePaymentRepo) Latest(_ context.Context, userID int64, tournamentID *int64) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var latest *models.Payment
	for _, p := range r.s.payments {
		if p.UserID != userID || p.Superseded {
			continue
		}
		if tournamentID != nil && !sameTournament(p.TournamentID, tournamentID) {
			continue
		}
		if latest == nil || p.SubmittedAt.After(latest.SubmittedAt) ||
			(p.SubmittedAt.Equal(latest.SubmittedAt) && p.ID > latest.ID) {
			latest = p
		}
	}
	if latest == nil {
		return nil, repositories.ErrPaymentNotFound
	}
	c := *latest
	return &c, nil
}

func (r fakePaymentRepo) Confirm(_ context.Context, paymentID, userID int64, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.payments {
		if p.ID != paymentID {
			continue
		}
		if p.Confirmed {
			return false, nil
		}
		u, ok := r.s.users[userID]
		if !ok {
			return false, repositories.ErrUserNotFound
		}
		p.Confirmed = true
		p.ConfirmedAt = &at
		u.Paid = true
		u.Confirmed = true
		return true, nil
	}
	return false, nil
}

func (r fakePaymentRepo) SumConfirmed(_ context.Context, from, to time.Time) (models.Collection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var c models.Collection
	for _, p := range r.s.payments {
		if p.Confirmed && !p.ConfirmedAt.Before(from) && p.ConfirmedAt.Before(to) {
			c.TotalAmount += p.Amount
			c.TotalPayments++
		}
	}
	return c, nil
}

func (r fakePaymentRepo) SetProofKey(_ context.Context, id int64, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.payments {
		if p.ID == id {
			p.ProofKey = &key
			return nil
		}
	}
	return repositories.ErrPaymentNotFound
}

type fakeReferralRepo struct{ s *store }

func (r fakeReferralRepo) Attribute(_ context.Context, ref *models.Referral) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[ref.ReferredID]
	if !ok || u.ReferredBy != nil || ref.ReferredID == ref.ReferrerID {
		return false, nil
	}
	referrer := ref.ReferrerID
	u.ReferredBy = &referrer
	ref.ID = r.s.id()
	c := *ref
	r.s.referrals = append(r.s.referrals, &c)
	return true, nil
}

func (r fakeReferralRepo) GrantBonus(_ context.Context, referredID, reward int64) (*models.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, ref := range r.s.referrals {
		if ref.ReferredID == referredID && !ref.BonusGranted {
			referrer, ok := r.s.users[ref.ReferrerID]
			if !ok {
				return nil, repositories.ErrUserNotFound
			}
			ref.BonusGranted = true
			referrer.Balance += reward
			c := *ref
			return &c, nil
		}
	}
	return nil, nil
}

func (r fakeReferralRepo) ListByReferrer(_ context.Context, referrerID int64, limit int) ([]models.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Referral, 0)
	for i := len(r.s.referrals) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.referrals[i].ReferrerID == referrerID {
			out = append(out, *r.s.referrals[i])
		}
	}
	return out, nil
}

func (r fakeReferralRepo) CountByReferrer(_ context.Context, referrerID int64) (int, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var total, granted int
	for _, ref := range r.s.referrals {
		if ref.ReferrerID == referrerID {
			total++
			if ref.BonusGranted {
				granted++
			}
		}
	}
	return total, granted, nil
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, reader io.Reader) (*storage.UploadResult, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = buf.Bytes()
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

// env bundles the services over one shared in-memory store.
type env struct {
	store       *store
	authorizer  *Authorizer
	admin       Admin
	users       UserService
	tournaments TournamentService
	payments    *paymentService
	referrals   ReferralService
	reports     ReportService
	uploader    *fakeUploader
	now         time.Time
}

const adminID int64 = 1000

func newEnv() *env {
	s := newStore()
	logger := discardLogger()
	authorizer := NewAuthorizer([]int64{adminID})
	admin, _ := authorizer.Admin(adminID)
	now := time.Date(2025, 7, 28, 12, 0, 0, 0, time.UTC)

	userRepo := fakeUserRepo{s}
	tournamentRepo := fakeTournamentRepo{s}
	paymentRepo := fakePaymentRepo{s}
	referralRepo := fakeReferralRepo{s}
	uploader := newFakeUploader()

	referrals := NewReferralService(referralRepo, userRepo, 25, 50, time.Second, logger)
	payments := NewPaymentService(paymentRepo, tournamentRepo, referrals, uploader, 12, time.Second, logger).(*paymentService)
	payments.now = func() time.Time { return now }

	e := &env{
		store:       s,
		authorizer:  authorizer,
		admin:       admin,
		users:       NewUserService(userRepo, time.Second, logger),
		tournaments: NewTournamentService(tournamentRepo, userRepo, 10, time.Second, logger),
		payments:    payments,
		referrals:   referrals,
		reports:     NewReportService(paymentRepo, time.UTC, time.Second),
		uploader:    uploader,
		now:         now,
	}
	e.register(adminID, "boss")
	return e
}

func (e *env) register(id int64, username string) {
	_, err := e.users.Register(context.Background(), Profile{ID: id, Username: username})
	if err != nil {
		panic(err)
	}
}

func (e *env) createTournament(name string, startAt time.Time, fee int64) *models.Tournament {
	t, err := e.tournaments.Create(context.Background(), e.admin, models.TournamentDraft{
		Name:      name,
		Mode:      models.ModeSquad,
		StartAt:   startAt,
		Map:       "Erangel",
		EntryFee:  fee,
		PrizeType: models.PrizeKillBased,
	})
	if err != nil {
		panic(err)
	}
	return t
}
