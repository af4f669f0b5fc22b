package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/Dosada05/tournament-bot/models"
	"github.com/Dosada05/tournament-bot/notify"
	"github.com/Dosada05/tournament-bot/services"
)

func (d *Dispatcher) start(ctx context.Context, log *slog.Logger, ev Event, args []string) []Reply {
	if len(args) > 0 {
		// Атрибуция best-effort: плохой код не мешает регистрации.
		if _, err := d.referrals.Attribute(ctx, ev.UserID, args[0], d.now()); err != nil {
			log.Warn("failed to attribute referral", slog.String("code", args[0]), slog.Any("error", err))
		}
	}
	if d.authorizer.IsAdmin(ev.UserID) {
		return d.menu(ctx, ev)
	}
	return append([]Reply{{Text: welcomeMessage(firstName(ev))}}, d.menu(ctx, ev)...)
}

func (d *Dispatcher) menu(ctx context.Context, ev Event) []Reply {
	if d.authorizer.IsAdmin(ev.UserID) {
		active, err := d.tournaments.ListActive(ctx, d.now())
		if err != nil {
			d.logger.Warn("failed to load dashboard tournaments", slog.Any("error", err))
		}
		return []Reply{{Text: adminDashboardMessage(d.now().In(d.settings.Location), active)}}
	}
	return []Reply{withButtons(
		mainMenuMessage(firstName(ev), models.ReferralCodeFor(ev.UserID)),
		row(button("🎮 Active Tournament", ButtonActiveTournament, "")),
		row(button("📜 Referrals", ButtonReferrals, "")),
	)}
}

func (d *Dispatcher) activeTournaments(ctx context.Context, log *slog.Logger) []Reply {
	tournaments, err := d.tournaments.ListActive(ctx, d.now())
	if err != nil {
		return d.failure(log, "list active tournaments", err)
	}
	back := row(button("🔙 Back to Menu", ButtonBackToMenu, ""))
	if len(tournaments) == 0 {
		return []Reply{withButtons(noActiveTournamentsMessage, back)}
	}

	rows := make([][]notify.Button, 0, len(tournaments)+1)
	for _, t := range tournaments {
		rows = append(rows, row(button("✅ Join "+t.Name, ButtonJoinTournament, strconv.FormatInt(t.ID, 10))))
	}
	rows = append(rows, back)
	return []Reply{withButtons(activeTournamentsMessage(tournaments, d.settings.Location), rows...)}
}

func (d *Dispatcher) joinCommand(ctx context.Context, log *slog.Logger, ev Event, args []string) []Reply {
	if len(args) == 0 {
		return usage("/join <tournament_id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return usage("/join <tournament_id>")
	}
	return d.join(ctx, log, ev, id)
}

func (d *Dispatcher) join(ctx context.Context, log *slog.Logger, ev Event, tournamentID int64) []Reply {
	arg := strconv.FormatInt(tournamentID, 10)
	t, err := d.tournaments.Join(ctx, tournamentID, ev.UserID, d.now())
	if errors.Is(err, services.ErrAlreadyJoined) {
		return []Reply{withButtons("✅ Already joined this tournament!", row(button("💰 Pay Now", ButtonPayTournament, arg)))}
	}
	if err != nil {
		return d.failure(log, "join tournament", err)
	}

	u, err := d.users.Get(ctx, ev.UserID)
	if err != nil {
		return d.failure(log, "load user", err)
	}
	return []Reply{withButtons(joinedMessage(t, u),
		row(button("💰 Pay Now", ButtonPayTournament, arg)),
		row(button("🔙 Main Menu", ButtonBackToMenu, "")),
	)}
}

// payFor shows payment instructions and opens the payment wizard bound to
// the tournament.
func (d *Dispatcher) payFor(ctx context.Context, log *slog.Logger, ev Event, tournamentID int64) []Reply {
	t, err := d.tournaments.Get(ctx, tournamentID)
	if err != nil {
		return d.failure(log, "get tournament", err)
	}
	if !t.HasParticipant(ev.UserID) {
		arg := strconv.FormatInt(t.ID, 10)
		return []Reply{withButtons("❌ Join the tournament before paying.", row(button("✅ Join "+t.Name, ButtonJoinTournament, arg)))}
	}

	p, err := d.sessions.Begin(ctx, ev.UserID, models.WizardPaymentEntry, map[models.Step]string{
		models.StepTournament: strconv.FormatInt(t.ID, 10),
	})
	if err != nil {
		return d.failure(log, "begin payment wizard", err)
	}
	return []Reply{
		{Text: paymentInstructions(t, d.settings.PaymentUPIID, d.now())},
		d.promptReply(ctx, log, p),
	}
}

// paid handles /paid <utr>. Without an explicit tournament the payment goes
// to the most recently joined tournament that is still running.
func (d *Dispatcher) paid(ctx context.Context, log *slog.Logger, ev Event, args []string) []Reply {
	if len(args) == 0 {
		return usage("/paid <UTR>", "Example: /paid 123456789012")
	}

	var tournament *models.Tournament
	joined, err := d.tournaments.ListForUser(ctx, ev.UserID)
	if err != nil {
		return d.failure(log, "list joined tournaments", err)
	}
	for i := range joined {
		if joined[i].Status == models.StatusUpcoming || joined[i].Status == models.StatusLive {
			tournament = &joined[i]
			break
		}
	}
	return d.submitPayment(ctx, log, ev.UserID, tournament, args[0])
}

func (d *Dispatcher) submitPayment(ctx context.Context, log *slog.Logger, userID int64, t *models.Tournament, utr string) []Reply {
	var tournamentID *int64
	name := ""
	if t != nil {
		tournamentID = &t.ID
		name = t.Name
	}

	p, err := d.payments.Submit(ctx, userID, tournamentID, utr)
	if err != nil {
		return d.failure(log, "submit payment", err)
	}
	u, err := d.users.Get(ctx, userID)
	if err != nil {
		return d.failure(log, "load user", err)
	}

	res := d.notifier.Broadcast(ctx, d.authorizer.IDs(), notify.Message{
		Text: adminPaymentNotification(p, name, u, d.settings.Location),
	})
	if res.Sent() == 0 {
		log.Warn("no admin received the payment notification", slog.Int64("payment_id", p.ID))
	}
	return text(paymentSubmittedMessage(p, name, u, d.settings.Location))
}

func (d *Dispatcher) referralStats(ctx context.Context, log *slog.Logger, ev Event) []Reply {
	stats, err := d.referrals.Stats(ctx, ev.UserID)
	if err != nil {
		return d.failure(log, "load referral stats", err)
	}

	names := make(map[int64]string, len(stats.Recent))
	for _, r := range stats.Recent {
		if u, err := d.users.Get(ctx, r.ReferredID); err == nil {
			names[r.ReferredID] = u.DisplayName()
		}
	}
	msg := referralStatsMessage(stats, names, models.ReferralCodeFor(ev.UserID), d.settings.Location)
	return []Reply{withButtons(msg, row(button("🔙 Back to Menu", ButtonBackToMenu, "")))}
}

func (d *Dispatcher) matchHistory(ctx context.Context, log *slog.Logger, ev Event) []Reply {
	u, err := d.users.Get(ctx, ev.UserID)
	if err != nil {
		return d.failure(log, "load user", err)
	}
	tournaments, err := d.tournaments.ListForUser(ctx, ev.UserID)
	if err != nil {
		return d.failure(log, "load match history", err)
	}
	return []Reply{withButtons(matchHistoryMessage(u, tournaments, d.settings.Location),
		row(button("🎮 Active Tournaments", ButtonActiveTournament, "")),
		row(button("🔙 Back to Menu", ButtonBackToMenu, "")),
	)}
}

func (d *Dispatcher) help() []Reply {
	return []Reply{withButtons(helpMessage, row(button("🔙 Back to Menu", ButtonBackToMenu, "")))}
}

func firstName(ev Event) string {
	if ev.FirstName != "" {
		return ev.FirstName
	}
	if ev.Username != "" {
		return ev.Username
	}
	return "player"
}
