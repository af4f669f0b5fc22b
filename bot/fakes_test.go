package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/tournament-bot/announce"
	"github.com/Dosada05/tournament-bot/models"
	"github.com/Dosada05/tournament-bot/notify"
	"github.com/Dosada05/tournament-bot/services"
	"github.com/Dosada05/tournament-bot/sessions"
)

const (
	adminID   int64 = 1000
	utrLength       = 12
)

var testNow = time.Date(2025, 7, 28, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// world is the shared in-memory state behind the fake services.
type world struct {
	mu          sync.Mutex
	users       map[int64]*models.User
	tournaments map[int64]*models.Tournament
	payments    []*models.Payment
	referrals   []*models.Referral
	joins       [][2]int64
	nextID      int64
}

func newWorld() *world {
	return &world{users: map[int64]*models.User{}, tournaments: map[int64]*models.Tournament{}}
}

func (w *world) id() int64 {
	w.nextID++
	return w.nextID
}

type fakeUsers struct{ w *world }

func (f fakeUsers) Register(_ context.Context, p services.Profile) (*models.User, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	u, ok := f.w.users[p.ID]
	if !ok {
		u = &models.User{ID: p.ID, ReferralCode: models.ReferralCodeFor(p.ID), JoinedAt: testNow}
		f.w.users[p.ID] = u
	}
	if p.Username != "" {
		u.Username = models.NormalizeUsername(p.Username)
	}
	if p.FirstName != "" {
		u.FirstName = p.FirstName
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) Get(_ context.Context, id int64) (*models.User, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	u, ok := f.w.users[id]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, u := range f.w.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, services.ErrUserNotFound
}

type fakeTournaments struct{ w *world }

func (f fakeTournaments) Create(_ context.Context, admin services.Admin, d models.TournamentDraft) (*models.Tournament, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	t := &models.Tournament{
		ID: f.w.id(), Name: d.Name, Mode: d.Mode, StartAt: d.StartAt, Map: d.Map, EntryFee: d.EntryFee,
		PrizeType: d.PrizeType, PrizeDetails: d.PrizeDetails, Status: models.StatusUpcoming, CreatedBy: admin.ID(),
		Participants: []int64{},
	}
	f.w.tournaments[t.ID] = t
	return clone(t), nil
}

func (f fakeTournaments) ListActive(_ context.Context, now time.Time) ([]models.Tournament, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []models.Tournament
	for _, t := range f.w.tournaments {
		if t.Status == models.StatusUpcoming && t.StartAt.After(now) {
			out = append(out, *clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (f fakeTournaments) Join(_ context.Context, tid, uid int64, now time.Time) (*models.Tournament, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	t, ok := f.w.tournaments[tid]
	if !ok {
		return nil, services.ErrTournamentNotFound
	}
	if t.HasParticipant(uid) {
		return clone(t), services.ErrAlreadyJoined
	}
	if t.Status != models.StatusUpcoming || !now.Before(t.StartAt) {
		return clone(t), services.ErrRegistrationClosed
	}
	t.Participants = append(t.Participants, uid)
	f.w.joins = append(f.w.joins, [2]int64{tid, uid})
	return clone(t), nil
}

func (f fakeTournaments) TransitionStatus(_ context.Context, _ services.Admin, id int64, next models.TournamentStatus) (*models.Tournament, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	t, ok := f.w.tournaments[id]
	if !ok {
		return nil, services.ErrTournamentNotFound
	}
	if t.Status != models.StatusUpcoming && !(t.Status == models.StatusLive && next == models.StatusCompleted) {
		return nil, services.ErrInvalidTransition
	}
	t.Status = next
	return clone(t), nil
}

func (f fakeTournaments) Get(_ context.Context, id int64) (*models.Tournament, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	t, ok := f.w.tournaments[id]
	if !ok {
		return nil, services.ErrTournamentNotFound
	}
	return clone(t), nil
}

func (f fakeTournaments) ListForUser(_ context.Context, uid int64) ([]models.Tournament, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []models.Tournament
	for i := len(f.w.joins) - 1; i >= 0; i-- {
		if j := f.w.joins[i]; j[1] == uid {
			out = append(out, *clone(f.w.tournaments[j[0]]))
		}
	}
	return out, nil
}

func (f fakeTournaments) Participants(_ context.Context, t *models.Tournament) ([]models.User, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	out := []models.User{}
	for _, id := range t.Participants {
		if u, ok := f.w.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f fakeTournaments) ConfirmedParticipants(ctx context.Context, t *models.Tournament) ([]models.User, error) {
	users, _ := f.Participants(ctx, t)
	var out []models.User
	for _, u := range users {
		if u.Confirmed {
			out = append(out, u)
		}
	}
	return out, nil
}

func clone(t *models.Tournament) *models.Tournament {
	cp := *t
	cp.Participants = slices.Clone(t.Participants)
	return &cp
}

type fakePayments struct{ w *world }

func (f fakePayments) Submit(_ context.Context, uid int64, tid *int64, utr string) (*models.Payment, error) {
	if !models.IsValidUTR(utr, utrLength) {
		return nil, fmt.Errorf("%w: got %q", services.ErrInvalidUTR, utr)
	}
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var amount int64
	if tid != nil {
		amount = f.w.tournaments[*tid].EntryFee
	}
	p := &models.Payment{ID: f.w.id(), UserID: uid, TournamentID: tid, Amount: amount, UTR: utr, SubmittedAt: testNow}
	f.w.payments = append(f.w.payments, p)
	return p, nil
}

func (f fakePayments) Confirm(_ context.Context, _ services.Admin, uid int64, _ *int64) (*services.ConfirmResult, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for i := len(f.w.payments) - 1; i >= 0; i-- {
		p := f.w.payments[i]
		if p.UserID != uid {
			continue
		}
		if p.Confirmed {
			return &services.ConfirmResult{Payment: p, AlreadyConfirmed: true}, nil
		}
		p.Confirmed = true
		f.w.users[uid].Confirmed = true
		res := &services.ConfirmResult{Payment: p}
		for _, r := range f.w.referrals {
			if r.ReferredID == uid && !r.BonusGranted {
				r.BonusGranted = true
				res.Referral = r
			}
		}
		return res, nil
	}
	return nil, services.ErrPaymentNotFound
}

func (f fakePayments) LatestFor(context.Context, int64, *int64) (*models.Payment, error) {
	return nil, services.ErrPaymentNotFound
}

func (f fakePayments) AttachProof(context.Context, int64, int64, string, io.Reader) (*models.Payment, error) {
	return nil, services.ErrProofUploadDisabled
}

type fakeReferrals struct{ w *world }

func (f fakeReferrals) Attribute(_ context.Context, uid int64, code string, now time.Time) (bool, error) {
	referrer, ok := models.ParseReferralCode(code)
	if !ok || referrer == uid {
		return false, nil
	}
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, r := range f.w.referrals {
		if r.ReferredID == uid {
			return false, nil
		}
	}
	f.w.referrals = append(f.w.referrals, &models.Referral{ID: f.w.id(), ReferrerID: referrer, ReferredID: uid, Code: code, CreatedAt: now})
	return true, nil
}

func (f fakeReferrals) GrantBonus(context.Context, int64) (*models.Referral, error) {
	return nil, nil
}

func (f fakeReferrals) BonusFor(context.Context, int64) (int64, error) {
	return 0, nil
}

func (f fakeReferrals) FreeEntriesFor(context.Context, int64, int64) (int64, error) {
	return 0, nil
}

func (f fakeReferrals) Stats(_ context.Context, uid int64) (*models.ReferralStats, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	stats := &models.ReferralStats{}
	for _, r := range f.w.referrals {
		if r.ReferrerID == uid {
			stats.Total++
			stats.Recent = append(stats.Recent, *r)
		}
	}
	return stats, nil
}

type fakeReports struct{}

func (fakeReports) Collect(_ context.Context, _ services.Admin, period models.Period, anchor time.Time) (*models.Report, error) {
	from, to := period.Window(anchor)
	return &models.Report{Period: period, From: from, To: to, Anchor: anchor, Collection: models.Collection{TotalAmount: 150, TotalPayments: 3}}, nil
}

type sent struct {
	userID int64
	msg    notify.Message
}

type fakeNotifier struct {
	mu      sync.Mutex
	offline map[int64]bool
	sent    []sent
}

func (f *fakeNotifier) Notify(_ context.Context, userID int64, msg notify.Message) error {
	if f.offline[userID] {
		return notify.ErrRecipientOffline
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{userID: userID, msg: msg})
	return nil
}

func (f *fakeNotifier) Broadcast(ctx context.Context, recipients []int64, msg notify.Message) notify.Result {
	var res notify.Result
	for _, id := range recipients {
		res.Outcomes = append(res.Outcomes, notify.Outcome{UserID: id, Err: f.Notify(ctx, id, msg)})
	}
	return res
}

func (f *fakeNotifier) to(userID int64) []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notify.Message
	for _, s := range f.sent {
		if s.userID == userID {
			out = append(out, s.msg)
		}
	}
	return out
}

type harness struct {
	w        *world
	notifier *fakeNotifier
	sessions *sessions.Manager
	d        *Dispatcher
}

func newHarness() *harness {
	w := newWorld()
	notifier := &fakeNotifier{offline: map[int64]bool{}}
	mgr := sessions.NewManager(sessions.NewMemoryStore(), sessions.DefaultWizards(sessions.Options{
		Maps:      []string{"Erangel", "Miramar"},
		UTRLength: utrLength,
		Location:  time.UTC,
	}), 15*time.Minute, discardLogger())

	d := NewDispatcher(Deps{
		Users:       fakeUsers{w},
		Tournaments: fakeTournaments{w},
		Payments:    fakePayments{w},
		Referrals:   fakeReferrals{w},
		Reports:     fakeReports{},
		Authorizer:  services.NewAuthorizer([]int64{adminID}),
		Sessions:    mgr,
		Announcer:   announce.New(nil, time.Second, time.UTC, discardLogger()),
		Notifier:    notifier,
	}, Settings{PaymentUPIID: "pay@upi", ReferralReward: 25, UTRLength: utrLength, Location: time.UTC}, discardLogger())
	d.now = func() time.Time { return testNow }

	return &harness{w: w, notifier: notifier, sessions: mgr, d: d}
}

func (h *harness) send(userID int64, username, text string) []Reply {
	return h.d.Handle(context.Background(), Event{UserID: userID, Username: username, FirstName: username, Text: text})
}

func (h *harness) press(userID int64, data string) []Reply {
	return h.d.Handle(context.Background(), Event{UserID: userID, Data: data})
}

func (h *harness) tournament(name string, start time.Time, fee int64) *models.Tournament {
	admin, _ := services.NewAuthorizer([]int64{adminID}).Admin(adminID)
	t, _ := fakeTournaments{h.w}.Create(context.Background(), admin, models.TournamentDraft{
		Name: name, Mode: models.ModeSquad, StartAt: start, Map: "Erangel", EntryFee: fee, PrizeType: models.PrizeKillBased,
	})
	return t
}

func (h *harness) confirmUser(userID int64) {
	h.w.mu.Lock()
	defer h.w.mu.Unlock()
	h.w.users[userID].Confirmed = true
}
