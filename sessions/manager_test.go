package sessions

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-bot/models"
)

var testMaps = []string{"Erangel", "Miramar", "Sanhok", "Vikendi", "Livik", "Karakin"}

func newTestManager(t *testing.T, timeout time.Duration) (*Manager, *MemoryStore, *time.Time) {
	t.Helper()
	store := NewMemoryStore()
	wizards := DefaultWizards(Options{Maps: testMaps, UTRLength: 12, Location: time.UTC})
	m := NewManager(store, wizards, timeout, slog.New(slog.NewTextHandler(io.Discard, nil)))
	now := time.Date(2025, 7, 28, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, store, &now
}

func TestCreationWizardStepOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, _ := newTestManager(t, time.Minute)

	p, err := m.Begin(ctx, 1, models.WizardTournamentCreation, nil)
	require.NoError(t, err)
	require.Equal(t, models.StepType, p.Step)
	require.Equal(t, []string{"solo", "duo", "squad"}, p.Choices)

	inputs := []struct {
		input string
		next  models.Step
	}{
		{"squad", models.StepName},
		{"Evening Cup", models.StepDate},
		{"28/07/2025", models.StepTime},
		{"21:30", models.StepMap},
		{"erangel", models.StepEntryFee},
		{"50", models.StepPrizeType},
		{"kill_based", models.StepPrizeDetails},
		{"skip", models.StepFinish},
	}
	for _, in := range inputs {
		p, err = m.Advance(ctx, 1, in.input)
		require.NoError(t, err, in.input)
		require.Equal(t, in.next, p.Step, in.input)
	}

	s, err := m.Complete(ctx, 1)
	require.NoError(t, err)

	draft, err := Draft(s, time.UTC)
	require.NoError(t, err)
	require.Equal(t, "Evening Cup", draft.Name)
	require.Equal(t, models.ModeSquad, draft.Mode)
	require.Equal(t, "Erangel", draft.Map)
	require.EqualValues(t, 50, draft.EntryFee)
	require.Equal(t, models.PrizeKillBased, draft.PrizeType)
	require.Empty(t, draft.PrizeDetails)
	require.True(t, draft.StartAt.Equal(time.Date(2025, 7, 28, 21, 30, 0, 0, time.UTC)))

	_, err = m.Current(ctx, 1)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestDateAcceptsUnpaddedDayAndMonth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := map[string]string{
		"5/8/2025":   "2025-08-05",
		"28/7/2025":  "2025-07-28",
		"05/08/2025": "2025-08-05",
		"1/12/2025":  "2025-12-01",
	}
	for in, want := range tests {
		m, _, _ := newTestManager(t, time.Minute)
		_, err := m.Begin(ctx, 1, models.WizardTournamentCreation, nil)
		require.NoError(t, err)
		for _, step := range []string{"solo", "Cup"} {
			_, err = m.Advance(ctx, 1, step)
			require.NoError(t, err)
		}

		p, err := m.Advance(ctx, 1, in)
		require.NoError(t, err, in)
		require.Equal(t, models.StepTime, p.Step, in)

		s, err := m.Current(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, want, s.Data[models.StepDate], in)
	}
}

func TestInvalidInputIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, _ := newTestManager(t, time.Minute)

	_, err := m.Begin(ctx, 1, models.WizardTournamentCreation, nil)
	require.NoError(t, err)
	_, err = m.Advance(ctx, 1, "solo")
	require.NoError(t, err)
	_, err = m.Advance(ctx, 1, "Cup")
	require.NoError(t, err)

	before, err := m.Current(ctx, 1)
	require.NoError(t, err)

	for _, bad := range []string{"2025-07-28", "31/02/2025", "tomorrow"} {
		p, err := m.Advance(ctx, 1, bad)
		require.ErrorIs(t, err, ErrValidation)
		require.True(t, p.Invalid)
		require.Equal(t, models.StepDate, p.Step)
		require.Contains(t, p.Reason, "DD/MM/YYYY")
	}

	after, err := m.Current(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestRejectsBadValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, _ := newTestManager(t, time.Minute)

	_, err := m.Begin(ctx, 1, models.WizardTournamentCreation, nil)
	require.NoError(t, err)
	_, err = m.Advance(ctx, 1, "trio")
	require.ErrorIs(t, err, ErrValidation)

	for _, in := range []string{"duo", "Cup", "01/08/2025"} {
		_, err = m.Advance(ctx, 1, in)
		require.NoError(t, err)
	}
	_, err = m.Advance(ctx, 1, "25:00")
	require.ErrorIs(t, err, ErrValidation)
	_, err = m.Advance(ctx, 1, "09:05")
	require.NoError(t, err)
	_, err = m.Advance(ctx, 1, "Nusa")
	require.ErrorIs(t, err, ErrValidation)
	_, err = m.Advance(ctx, 1, "LIVIK")
	require.NoError(t, err)
	_, err = m.Advance(ctx, 1, "-5")
	require.ErrorIs(t, err, ErrValidation)
	_, err = m.Advance(ctx, 1, "fifty")
	require.ErrorIs(t, err, ErrValidation)
	p, err := m.Advance(ctx, 1, "0")
	require.NoError(t, err)
	require.Equal(t, models.StepPrizeType, p.Step)
}

func TestBeginOverwritesPartialSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, _ := newTestManager(t, time.Minute)

	_, err := m.Begin(ctx, 1, models.WizardTournamentCreation, nil)
	require.NoError(t, err)
	_, err = m.Advance(ctx, 1, "solo")
	require.NoError(t, err)

	p, err := m.Begin(ctx, 1, models.WizardTournamentCreation, nil)
	require.NoError(t, err)
	require.Equal(t, models.StepType, p.Step)

	s, err := m.Current(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, s.Data)
}

func TestSeededPaymentWizard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, _ := newTestManager(t, time.Minute)

	p, err := m.Begin(ctx, 7, models.WizardPaymentEntry, map[models.Step]string{models.StepTournament: "3"})
	require.NoError(t, err)
	require.Equal(t, models.StepUTR, p.Step)

	p, err = m.Advance(ctx, 7, "12345")
	require.ErrorIs(t, err, ErrValidation)
	require.True(t, p.Invalid)

	_, err = m.Complete(ctx, 7)
	require.ErrorIs(t, err, ErrWizardIncomplete)

	p, err = m.Advance(ctx, 7, "123456789012")
	require.NoError(t, err)
	require.Equal(t, models.StepFinish, p.Step)

	_, err = m.Advance(ctx, 7, "123456789012")
	require.ErrorIs(t, err, ErrWizardFinished)

	s, err := m.Complete(ctx, 7)
	require.NoError(t, err)
	id, ok := TournamentID(s)
	require.True(t, ok)
	require.EqualValues(t, 3, id)
	require.Equal(t, "123456789012", s.Value(models.StepUTR))
}

func TestRoomDetailsParsing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, _ := newTestManager(t, time.Minute)

	_, err := m.Begin(ctx, 1, models.WizardRoomEntry, nil)
	require.NoError(t, err)
	p, err := m.Advance(ctx, 1, "5")
	require.NoError(t, err)
	require.Equal(t, models.StepRoomDetails, p.Step)

	_, err = m.Advance(ctx, 1, "Room ID: 123456")
	require.ErrorIs(t, err, ErrValidation)

	_, err = m.Advance(ctx, 1, "Room ID: 123456\nPassword: ab:c1")
	require.NoError(t, err)

	s, err := m.Complete(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "123456", s.Value(models.StepRoomID))
	require.Equal(t, "ab:c1", s.Value(models.StepPassword))
}

func TestSessionTimeout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store, now := newTestManager(t, 15*time.Minute)

	_, err := m.Begin(ctx, 1, models.WizardTournamentCreation, nil)
	require.NoError(t, err)

	*now = now.Add(16 * time.Minute)
	_, err = m.Advance(ctx, 1, "solo")
	require.ErrorIs(t, err, ErrNoSession)

	_, err = store.Get(ctx, 1)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSweepRemovesExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, now := newTestManager(t, 15*time.Minute)

	_, err := m.Begin(ctx, 1, models.WizardTournamentCreation, nil)
	require.NoError(t, err)
	*now = now.Add(10 * time.Minute)
	_, err = m.Begin(ctx, 2, models.WizardRoomEntry, nil)
	require.NoError(t, err)

	*now = now.Add(6 * time.Minute)
	removed, err := m.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = m.Current(ctx, 2)
	require.NoError(t, err)
}

func TestConcurrentAdvanceIsSerialized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, _ := newTestManager(t, time.Minute)

	_, err := m.Begin(ctx, 1, models.WizardPaymentEntry, map[models.Step]string{models.StepTournament: "1"})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		finished int
		rejected int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Advance(ctx, 1, "123456789012")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				finished++
			} else {
				rejected++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, finished)
	require.Equal(t, 9, rejected)
}

func TestAbandon(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, _ := newTestManager(t, time.Minute)

	_, err := m.Begin(ctx, 1, models.WizardRoomEntry, nil)
	require.NoError(t, err)
	require.NoError(t, m.Abandon(ctx, 1))
	require.NoError(t, m.Abandon(ctx, 1))

	_, err = m.Current(ctx, 1)
	require.ErrorIs(t, err, ErrNoSession)
}
