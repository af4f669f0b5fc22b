package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-bot/announce"
	"github.com/Dosada05/tournament-bot/notify"
	"github.com/Dosada05/tournament-bot/services"
	"github.com/Dosada05/tournament-bot/sessions"
)

// Notifier delivers messages to chats other than the one being answered.
type Notifier interface {
	Notify(ctx context.Context, userID int64, msg notify.Message) error
	Broadcast(ctx context.Context, recipients []int64, msg notify.Message) notify.Result
}

// Settings are the display values the dispatcher needs from config.
type Settings struct {
	PaymentUPIID   string
	ReferralReward int64
	UTRLength      int
	Location       *time.Location
}

type Deps struct {
	Users       services.UserService
	Tournaments services.TournamentService
	Payments    services.PaymentService
	Referrals   services.ReferralService
	Reports     services.ReportService
	Authorizer  *services.Authorizer
	Sessions    *sessions.Manager
	Announcer   *announce.Announcer
	Notifier    Notifier
}

// Dispatcher routes inbound events. A live wizard session consumes free text
// and wizard buttons; any command abandons it first.
type Dispatcher struct {
	users       services.UserService
	tournaments services.TournamentService
	payments    services.PaymentService
	referrals   services.ReferralService
	reports     services.ReportService
	authorizer  *services.Authorizer
	sessions    *sessions.Manager
	announcer   *announce.Announcer
	notifier    Notifier
	settings    Settings
	logger      *slog.Logger
	now         func() time.Time
}

func NewDispatcher(deps Deps, settings Settings, logger *slog.Logger) *Dispatcher {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &Dispatcher{
		users:       deps.Users,
		tournaments: deps.Tournaments,
		payments:    deps.Payments,
		referrals:   deps.Referrals,
		reports:     deps.Reports,
		authorizer:  deps.Authorizer,
		sessions:    deps.Sessions,
		announcer:   deps.Announcer,
		notifier:    deps.Notifier,
		settings:    settings,
		logger:      logger,
		now:         time.Now,
	}
}

// Handle processes one event and returns the replies for its chat. Failures
// are logged and turned into user-facing text; Handle never fails.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) []Reply {
	log := d.logger.With(slog.Int64("user_id", ev.UserID))

	if _, err := d.users.Register(ctx, services.Profile{
		ID:        ev.UserID,
		Username:  ev.Username,
		FirstName: ev.FirstName,
	}); err != nil {
		return d.failure(log, "register user", err)
	}

	if ev.Data != "" {
		b, err := ParseButton(ev.Data)
		if err != nil {
			log.Warn("unknown button", slog.String("data", ev.Data))
			return text("❌ This button is no longer available.")
		}
		return d.handleButton(ctx, log, ev, b)
	}

	if IsCommand(ev.Text) {
		if err := d.sessions.Abandon(ctx, ev.UserID); err != nil {
			log.Warn("failed to abandon session", slog.Any("error", err))
		}
		cmd, args, err := ParseCommand(ev.Text)
		if err != nil {
			return text("❓ Unknown command. Send /help to see what I can do.")
		}
		return d.handleCommand(ctx, log.With(slog.String("command", string(cmd))), ev, cmd, args)
	}

	return d.handleText(ctx, log, ev)
}

func (d *Dispatcher) handleCommand(ctx context.Context, log *slog.Logger, ev Event, cmd Command, args []string) []Reply {
	switch cmd {
	case CmdStart:
		return d.start(ctx, log, ev, args)
	case CmdTournaments:
		return d.activeTournaments(ctx, log)
	case CmdJoin:
		return d.joinCommand(ctx, log, ev, args)
	case CmdPaid, CmdSubmitPayment:
		return d.paid(ctx, log, ev, args)
	case CmdReferrals:
		return d.referralStats(ctx, log, ev)
	case CmdMatchHistory:
		return d.matchHistory(ctx, log, ev)
	case CmdHelp:
		return d.help()
	case CmdCancel:
		return text("❎ Cancelled. Send /start to open the menu.")
	case CmdCreateTournament:
		return d.createTournament(ctx, log, ev)
	case CmdConfirm:
		return d.confirm(ctx, log, ev, args)
	case CmdListPlayers:
		return d.listPlayers(ctx, log, ev)
	case CmdReport:
		return d.report(ctx, log, ev, args)
	case CmdToday:
		return d.report(ctx, log, ev, []string{"day"})
	case CmdThisWeek:
		return d.report(ctx, log, ev, []string{"week"})
	case CmdThisMonth:
		return d.report(ctx, log, ev, []string{"month"})
	case CmdSendRoom:
		return d.sendRoom(ctx, log, ev)
	case CmdStatus:
		return d.status(ctx, log, ev, args)
	case CmdSolo, CmdDuo, CmdSquad:
		return d.winners(ctx, log, ev, cmd, args)
	case CmdDeclareWinners:
		return d.declareWinners(ctx, log, ev)
	case CmdSpecial:
		return d.special(ctx, log, ev, args)
	default:
		return text("❓ Unknown command. Send /help to see what I can do.")
	}
}

func (d *Dispatcher) handleButton(ctx context.Context, log *slog.Logger, ev Event, b Button) []Reply {
	switch b.Action {
	case ButtonTournamentType, ButtonMap, ButtonPrize, ButtonSelectTournament:
		return d.advance(ctx, log, ev.UserID, b.Arg)
	case ButtonJoinTournament:
		id, ok := b.ID()
		if !ok {
			return text("❌ Tournament not found!")
		}
		return d.join(ctx, log, ev, id)
	case ButtonPayTournament:
		id, ok := b.ID()
		if !ok {
			return text("❌ Tournament not found!")
		}
		return d.payFor(ctx, log, ev, id)
	case ButtonActiveTournament:
		return d.activeTournaments(ctx, log)
	case ButtonReferrals:
		return d.referralStats(ctx, log, ev)
	case ButtonBackToMenu:
		if err := d.sessions.Abandon(ctx, ev.UserID); err != nil {
			log.Warn("failed to abandon session", slog.Any("error", err))
		}
		return d.menu(ctx, ev)
	default:
		return text("❌ This button is no longer available.")
	}
}

// handleText feeds free text to the live wizard, if any.
func (d *Dispatcher) handleText(ctx context.Context, log *slog.Logger, ev Event) []Reply {
	if _, err := d.sessions.Current(ctx, ev.UserID); err != nil {
		if errors.Is(err, sessions.ErrNoSession) {
			return text("🤖 Send /start for the menu or /help for commands.")
		}
		return d.failure(log, "load session", err)
	}
	return d.advance(ctx, log, ev.UserID, ev.Text)
}

// admin mints the capability or returns the denial reply.
func (d *Dispatcher) admin(log *slog.Logger, userID int64) (services.Admin, []Reply) {
	a, err := d.authorizer.Admin(userID)
	if err != nil {
		log.Warn("admin command denied")
		return services.Admin{}, text("❌ Access denied!")
	}
	return a, nil
}

func (d *Dispatcher) failure(log *slog.Logger, op string, err error) []Reply {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		return text("❌ Access denied!")
	case errors.Is(err, services.ErrTournamentNotFound):
		return text("❌ Tournament not found!")
	case errors.Is(err, services.ErrUserNotFound):
		return text("❌ User not found! Ask them to send /start first.")
	case errors.Is(err, services.ErrPaymentNotFound):
		return text("❌ No payment found for this user!")
	case errors.Is(err, services.ErrAlreadyJoined):
		return text("✅ Already joined this tournament!")
	case errors.Is(err, services.ErrRegistrationClosed):
		return text("❌ Tournament registration closed!")
	case errors.Is(err, services.ErrInvalidUTR):
		return text(fmt.Sprintf("❌ Invalid UTR! It must be exactly %d digits.", d.settings.UTRLength))
	case errors.Is(err, services.ErrInvalidTransition):
		return text("❌ That status change is not allowed. Upcoming tournaments can go live or be cancelled; live ones can be completed.")
	case errors.Is(err, services.ErrInvalidTournament):
		return text("❌ Tournament details are invalid: " + err.Error())
	default:
		log.Error("bot operation failed", slog.String("op", op), slog.Any("error", err))
		return text("⚠️ System error! Try again later.")
	}
}

func text(s string) []Reply {
	return []Reply{{Text: s}}
}

func withButtons(s string, rows ...[]notify.Button) Reply {
	return Reply{Text: s, Buttons: rows}
}

func usage(lines ...string) []Reply {
	return text("Usage: " + strings.Join(lines, "\n"))
}
