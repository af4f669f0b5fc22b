package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/tournament-bot/models"
)

var (
	ErrWizardIncomplete = errors.New("wizard has not reached its final step")
	ErrWizardFinished   = errors.New("wizard is already complete")
	ErrUnknownWizard    = errors.New("unknown wizard kind")
)

// Prompt is what the user should be asked next.
type Prompt struct {
	Kind    models.WizardKind
	Step    models.Step
	Text    string
	Choices []string
	// Invalid is set when the last input was rejected and the same step is
	// asked again.
	Invalid bool
	Reason  string
}

type sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// Manager drives wizards on top of a Store. Calls for the same user are
// serialized; calls for different users run in parallel.
type Manager struct {
	store   Store
	wizards map[models.WizardKind]*Wizard
	timeout time.Duration
	locks   *keyedMutex
	logger  *slog.Logger
	now     func() time.Time
}

func NewManager(store Store, wizards []*Wizard, timeout time.Duration, logger *slog.Logger) *Manager {
	byKind := make(map[models.WizardKind]*Wizard, len(wizards))
	for _, w := range wizards {
		byKind[w.Kind] = w
	}
	return &Manager{
		store:   store,
		wizards: byKind,
		timeout: timeout,
		locks:   newKeyedMutex(),
		logger:  logger,
		now:     time.Now,
	}
}

// Begin starts kind for userID, discarding any previous session. Seeded
// steps are treated as already answered.
func (m *Manager) Begin(ctx context.Context, userID int64, kind models.WizardKind, seed map[models.Step]string) (Prompt, error) {
	w, ok := m.wizards[kind]
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %s", ErrUnknownWizard, kind)
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	data := make(map[models.Step]string, len(seed))
	maps.Copy(data, seed)
	s := &models.Session{
		UserID:    userID,
		Kind:      kind,
		Step:      w.firstOpen(data),
		Data:      data,
		UpdatedAt: m.now(),
	}
	if err := m.store.Put(ctx, s); err != nil {
		return Prompt{}, err
	}
	return m.prompt(w, s), nil
}

// Advance feeds input to the current step. Invalid input leaves the session
// untouched and repeats the prompt.
func (m *Manager) Advance(ctx context.Context, userID int64, input string) (Prompt, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	s, err := m.current(ctx, userID)
	if err != nil {
		return Prompt{}, err
	}
	w, ok := m.wizards[s.Kind]
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %s", ErrUnknownWizard, s.Kind)
	}
	if s.Finished() {
		return m.prompt(w, s), ErrWizardFinished
	}

	def, ok := w.def(s.Step)
	if !ok {
		return Prompt{}, fmt.Errorf("%w: step %q of %s", ErrUnknownWizard, s.Step, s.Kind)
	}
	values, err := def.parse(input)
	if err != nil {
		p := m.prompt(w, s)
		p.Invalid = true
		p.Reason = reason(err)
		return p, err
	}

	maps.Copy(s.Data, values)
	s.Step = w.next(s.Data, s.Step)
	s.UpdatedAt = m.now()
	if err := m.store.Put(ctx, s); err != nil {
		return Prompt{}, err
	}
	return m.prompt(w, s), nil
}

// Complete hands the finished session to the caller and removes it.
func (m *Manager) Complete(ctx context.Context, userID int64) (*models.Session, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	s, err := m.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.Finished() {
		return nil, ErrWizardIncomplete
	}
	if err := m.store.Delete(ctx, userID); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) Abandon(ctx context.Context, userID int64) error {
	unlock := m.locks.Lock(userID)
	defer unlock()

	return m.store.Delete(ctx, userID)
}

// Current returns the live session of userID or ErrNoSession.
func (m *Manager) Current(ctx context.Context, userID int64) (*models.Session, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	return m.current(ctx, userID)
}

// PromptFor re-renders the question of a live session.
func (m *Manager) PromptFor(s *models.Session) Prompt {
	w, ok := m.wizards[s.Kind]
	if !ok {
		return Prompt{Kind: s.Kind, Step: s.Step}
	}
	return m.prompt(w, s)
}

// Sweep removes expired sessions when the store keeps them in memory.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	sw, ok := m.store.(sweeper)
	if !ok {
		return 0, nil
	}
	return sw.Sweep(ctx, m.now().Add(-m.timeout))
}

func (m *Manager) current(ctx context.Context, userID int64) (*models.Session, error) {
	s, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m.timeout > 0 && m.now().Sub(s.UpdatedAt) > m.timeout {
		m.logger.Info("session expired",
			slog.Int64("user_id", userID),
			slog.String("kind", string(s.Kind)),
			slog.String("step", string(s.Step)))
		if err := m.store.Delete(ctx, userID); err != nil {
			return nil, err
		}
		return nil, ErrNoSession
	}
	return s, nil
}

func (m *Manager) prompt(w *Wizard, s *models.Session) Prompt {
	p := Prompt{Kind: s.Kind, Step: s.Step}
	if def, ok := w.def(s.Step); ok {
		p.Text = def.prompt
		p.Choices = def.choices
	}
	return p
}

func reason(err error) string {
	return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
}

// keyedMutex hands out one mutex per user and forgets it once nobody holds
// or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*refMutex)}
}

func (k *keyedMutex) Lock(key int64) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refMutex{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
