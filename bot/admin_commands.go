package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-bot/models"
	"github.com/Dosada05/tournament-bot/notify"
)

func (d *Dispatcher) createTournament(ctx context.Context, log *slog.Logger, ev Event) []Reply {
	if _, denied := d.admin(log, ev.UserID); denied != nil {
		return denied
	}
	p, err := d.sessions.Begin(ctx, ev.UserID, models.WizardTournamentCreation, nil)
	if err != nil {
		return d.failure(log, "begin creation wizard", err)
	}
	r := d.promptReply(ctx, log, p)
	r.Text = "🎯 **Tournament Creation**\n\n" + r.Text
	return []Reply{r}
}

func (d *Dispatcher) confirm(ctx context.Context, log *slog.Logger, ev Event, args []string) []Reply {
	admin, denied := d.admin(log, ev.UserID)
	if denied != nil {
		return denied
	}
	if len(args) == 0 {
		return usage("/confirm @username")
	}

	username := models.NormalizeUsername(args[0])
	u, err := d.users.FindByUsername(ctx, username)
	if err != nil {
		return d.failure(log, "find user", err)
	}
	res, err := d.payments.Confirm(ctx, admin, u.ID, nil)
	if err != nil {
		return d.failure(log, "confirm payment", err)
	}
	if res.AlreadyConfirmed {
		return text(fmt.Sprintf("ℹ️ Payment of %s was already confirmed.", u.DisplayName()))
	}

	if err := d.notifier.Notify(ctx, u.ID, notify.Message{Text: paymentConfirmedMessage}); err != nil {
		log.Warn("payer not notified", slog.Int64("payer_id", u.ID), slog.Any("error", err))
	}
	if res.Referral != nil {
		msg := notify.Message{Text: referralBonusMessage(d.settings.ReferralReward)}
		if err := d.notifier.Notify(ctx, res.Referral.ReferrerID, msg); err != nil {
			log.Warn("referrer not notified", slog.Int64("referrer_id", res.Referral.ReferrerID), slog.Any("error", err))
		}
	}
	return text(fmt.Sprintf("✅ Payment confirmed for %s (₹%d)", u.DisplayName(), res.Payment.Amount))
}

func (d *Dispatcher) listPlayers(ctx context.Context, log *slog.Logger, ev Event) []Reply {
	if _, denied := d.admin(log, ev.UserID); denied != nil {
		return denied
	}
	tournaments, err := d.tournaments.ListActive(ctx, d.now())
	if err != nil {
		return d.failure(log, "list active tournaments", err)
	}
	if len(tournaments) == 0 {
		return text("❌ No active tournaments!")
	}

	replies := make([]Reply, 0, len(tournaments))
	for i := range tournaments {
		t := &tournaments[i]
		if len(t.Participants) == 0 {
			replies = append(replies, Reply{Text: "❌ No participants in " + t.Name})
			continue
		}
		users, err := d.tournaments.Participants(ctx, t)
		if err != nil {
			return d.failure(log, "list participants", err)
		}
		replies = append(replies, Reply{Text: participantsMessage(t, users)})
	}
	return replies
}

func (d *Dispatcher) report(ctx context.Context, log *slog.Logger, ev Event, args []string) []Reply {
	admin, denied := d.admin(log, ev.UserID)
	if denied != nil {
		return denied
	}
	if len(args) == 0 {
		return usage("/report <day|week|month>")
	}
	period, err := models.ParsePeriod(args[0])
	if err != nil {
		return usage("/report <day|week|month>")
	}
	r, err := d.reports.Collect(ctx, admin, period, d.now())
	if err != nil {
		return d.failure(log, "collect report", err)
	}
	return text(reportMessage(r))
}

// sendRoom opens the room wizard. With a single active tournament the
// selection step is skipped.
func (d *Dispatcher) sendRoom(ctx context.Context, log *slog.Logger, ev Event) []Reply {
	if _, denied := d.admin(log, ev.UserID); denied != nil {
		return denied
	}
	active, err := d.tournaments.ListActive(ctx, d.now())
	if err != nil {
		return d.failure(log, "list active tournaments", err)
	}
	if len(active) == 0 {
		return text("❌ No active tournaments found!")
	}

	var seed map[models.Step]string
	header := "📤 **Select tournament to send room details:**"
	if len(active) == 1 {
		seed = map[models.Step]string{models.StepTournament: strconv.FormatInt(active[0].ID, 10)}
		header = "📤 **Sending room details for:** " + active[0].Name
	}

	p, err := d.sessions.Begin(ctx, ev.UserID, models.WizardRoomEntry, seed)
	if err != nil {
		return d.failure(log, "begin room wizard", err)
	}
	r := d.promptReply(ctx, log, p)
	r.Text = header + "\n\n" + r.Text
	return []Reply{r}
}

func (d *Dispatcher) status(ctx context.Context, log *slog.Logger, ev Event, args []string) []Reply {
	admin, denied := d.admin(log, ev.UserID)
	if denied != nil {
		return denied
	}
	const statusUsage = "/status <tournament_id> <live|completed|cancelled>"
	if len(args) < 2 {
		return usage(statusUsage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return usage(statusUsage)
	}
	next, err := models.ParseTournamentStatus(args[1])
	if err != nil {
		return usage(statusUsage)
	}

	t, err := d.tournaments.TransitionStatus(ctx, admin, id, next)
	if err != nil {
		return d.failure(log, "change tournament status", err)
	}

	res := d.notifier.Broadcast(ctx, t.Participants, notify.Message{Text: statusChangedMessage(t)})
	return text(fmt.Sprintf("%s %s is now %s. Notified %d of %d participants.",
		statusEmoji(t.Status), t.Name, t.Status, res.Sent(), len(t.Participants)))
}

func (d *Dispatcher) winners(ctx context.Context, log *slog.Logger, ev Event, cmd Command, args []string) []Reply {
	if _, denied := d.admin(log, ev.UserID); denied != nil {
		return denied
	}
	switch cmd {
	case CmdSolo:
		if len(args) < 3 {
			return usage("/solo @username kills damage")
		}
		return text("🎮 **Solo Winner Announced!**\n\n" + d.announcer.SoloWinner(ctx, args[0], args[1], args[2]))
	case CmdDuo:
		if len(args) < 4 {
			return usage("/duo @player1 @player2 total_kills damage")
		}
		return text("🎮 **Duo Winners Announced!**\n\n" + d.announcer.DuoWinner(ctx, args[0], args[1], args[2], args[3]))
	default:
		if len(args) < 6 {
			return usage("/squad @p1 @p2 @p3 @p4 total_kills damage")
		}
		return text("🎮 **Squad Winners Announced!**\n\n" + d.announcer.SquadWinner(ctx, args[:4], args[4], args[5]))
	}
}

func (d *Dispatcher) declareWinners(ctx context.Context, log *slog.Logger, ev Event) []Reply {
	if _, denied := d.admin(log, ev.UserID); denied != nil {
		return denied
	}
	tournaments, err := d.tournaments.ListActive(ctx, d.now())
	if err != nil {
		return d.failure(log, "list active tournaments", err)
	}
	if len(tournaments) == 0 {
		return text("❌ No active tournaments to declare winners!")
	}

	var b strings.Builder
	b.WriteString("🏆 **Declare winners:**\n")
	for _, t := range tournaments {
		fmt.Fprintf(&b, "\n#%d %s (%s): ", t.ID, t.Name, t.Mode.Label())
		switch t.Mode {
		case models.ModeSolo:
			b.WriteString("/solo @username kills damage")
		case models.ModeDuo:
			b.WriteString("/duo @player1 @player2 total_kills damage")
		case models.ModeSquad:
			b.WriteString("/squad @p1 @p2 @p3 @p4 total_kills damage")
		}
	}
	return text(b.String())
}

func (d *Dispatcher) special(ctx context.Context, log *slog.Logger, ev Event, args []string) []Reply {
	if _, denied := d.admin(log, ev.UserID); denied != nil {
		return denied
	}
	if len(args) == 0 {
		return usage("/special Your custom message here")
	}
	return text("💥 **Special Notification**\n\n" + d.announcer.Special(ctx, strings.Join(args, " ")))
}
