package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Dosada05/tournament-bot/models"
	"github.com/Dosada05/tournament-bot/notify"
	"github.com/Dosada05/tournament-bot/sessions"
)

func (d *Dispatcher) advance(ctx context.Context, log *slog.Logger, userID int64, input string) []Reply {
	p, err := d.sessions.Advance(ctx, userID, input)
	switch {
	case errors.Is(err, sessions.ErrValidation):
		r := d.promptReply(ctx, log, p)
		r.Text = "❌ " + p.Reason + "\n\n" + r.Text
		return []Reply{r}
	case errors.Is(err, sessions.ErrNoSession):
		return text("⌛ Nothing to continue. Start again from the menu with /start.")
	case err != nil:
		return d.failure(log, "advance wizard", err)
	}

	if p.Step == models.StepFinish {
		return d.finish(ctx, log, userID)
	}
	return []Reply{d.promptReply(ctx, log, p)}
}

// promptReply renders a wizard question, turning closed choices into
// buttons.
func (d *Dispatcher) promptReply(ctx context.Context, log *slog.Logger, p sessions.Prompt) Reply {
	r := Reply{Text: p.Text}
	switch p.Step {
	case models.StepType:
		for _, c := range p.Choices {
			r.Buttons = append(r.Buttons, row(button(models.TournamentMode(c).Label(), ButtonTournamentType, c)))
		}
	case models.StepMap:
		for _, c := range p.Choices {
			r.Buttons = append(r.Buttons, row(button("📍 "+c, ButtonMap, c)))
		}
	case models.StepPrizeType:
		for _, c := range p.Choices {
			r.Buttons = append(r.Buttons, row(button(models.PrizeType(c).Label(), ButtonPrize, c)))
		}
	case models.StepTournament:
		active, err := d.tournaments.ListActive(ctx, d.now())
		if err != nil {
			log.Warn("failed to list tournaments for selection", slog.Any("error", err))
			break
		}
		for _, t := range active {
			label := fmt.Sprintf("%s - %s", t.Name, t.StartAt.In(d.settings.Location).Format("02/01"))
			r.Buttons = append(r.Buttons, row(button(label, ButtonSelectTournament, strconv.FormatInt(t.ID, 10))))
		}
	}
	return r
}

func (d *Dispatcher) finish(ctx context.Context, log *slog.Logger, userID int64) []Reply {
	s, err := d.sessions.Complete(ctx, userID)
	if err != nil {
		return d.failure(log, "complete wizard", err)
	}
	log = log.With(slog.String("wizard", string(s.Kind)))

	switch s.Kind {
	case models.WizardTournamentCreation:
		return d.finishCreation(ctx, log, s)
	case models.WizardPaymentEntry:
		return d.finishPayment(ctx, log, s)
	case models.WizardRoomEntry:
		return d.finishRoom(ctx, log, s)
	default:
		log.Error("finished session of unknown wizard")
		return text("⚠️ System error! Try again later.")
	}
}

func (d *Dispatcher) finishCreation(ctx context.Context, log *slog.Logger, s *models.Session) []Reply {
	admin, denied := d.admin(log, s.UserID)
	if denied != nil {
		return denied
	}
	draft, err := sessions.Draft(s, d.settings.Location)
	if err != nil {
		return d.failure(log, "build tournament draft", err)
	}
	t, err := d.tournaments.Create(ctx, admin, draft)
	if err != nil {
		return d.failure(log, "create tournament", err)
	}

	arg := strconv.FormatInt(t.ID, 10)
	return []Reply{
		withButtons("✅ **Tournament Created Successfully!**\n\n"+d.announcer.TournamentPost(t),
			row(button("✅ Join Now", ButtonJoinTournament, arg))),
		{Text: d.announcer.TournamentAnnouncement(ctx, t)},
	}
}

func (d *Dispatcher) finishPayment(ctx context.Context, log *slog.Logger, s *models.Session) []Reply {
	id, ok := sessions.TournamentID(s)
	if !ok {
		return text("❌ Tournament not found!")
	}
	t, err := d.tournaments.Get(ctx, id)
	if err != nil {
		return d.failure(log, "get tournament", err)
	}
	return d.submitPayment(ctx, log, s.UserID, t, s.Value(models.StepUTR))
}

// finishRoom sends the room id and password to every confirmed participant
// and reports how many were reached.
func (d *Dispatcher) finishRoom(ctx context.Context, log *slog.Logger, s *models.Session) []Reply {
	if _, denied := d.admin(log, s.UserID); denied != nil {
		return denied
	}
	id, ok := sessions.TournamentID(s)
	if !ok {
		return text("❌ No tournament selected!")
	}
	t, err := d.tournaments.Get(ctx, id)
	if err != nil {
		return d.failure(log, "get tournament", err)
	}
	confirmed, err := d.tournaments.ConfirmedParticipants(ctx, t)
	if err != nil {
		return d.failure(log, "list confirmed participants", err)
	}
	if len(confirmed) == 0 {
		return text("❌ No confirmed participants found!")
	}

	recipients := make([]int64, len(confirmed))
	for i, u := range confirmed {
		recipients[i] = u.ID
	}
	msg := notify.Message{Text: d.announcer.RoomDetails(t, s.Value(models.StepRoomID), s.Value(models.StepPassword))}
	res := d.notifier.Broadcast(ctx, recipients, msg)

	log.Info("room details sent",
		slog.Int64("tournament_id", t.ID),
		slog.Int("recipients", len(recipients)),
		slog.Int("sent", res.Sent()))

	summary := fmt.Sprintf("✅ Room details sent to %d participants!", res.Sent())
	if failed := len(res.Failed()); failed > 0 {
		summary += fmt.Sprintf("\n⚠️ %d could not be reached.", failed)
	}
	return text(summary)
}
