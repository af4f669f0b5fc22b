package announce

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-bot/models"
)

// Announcer formats chat announcements. When a Generator is configured the
// headline or body is enriched by it; any error or timeout falls back to the
// static template, so callers always get text.
type Announcer struct {
	gen      Generator
	timeout  time.Duration
	location *time.Location
	logger   *slog.Logger
}

func New(gen Generator, timeout time.Duration, location *time.Location, logger *slog.Logger) *Announcer {
	if location == nil {
		location = time.UTC
	}
	return &Announcer{gen: gen, timeout: timeout, location: location, logger: logger}
}

type tournamentView struct {
	Name         string
	Mode         string
	Date         string
	Time         string
	Map          string
	EntryFee     int64
	Prize        string
	PrizeDetails string
}

func (a *Announcer) view(t *models.Tournament) tournamentView {
	start := t.StartAt.In(a.location)
	return tournamentView{
		Name:         t.Name,
		Mode:         t.Mode.Label(),
		Date:         start.Format("02/01/2006"),
		Time:         start.Format("15:04"),
		Map:          t.Map,
		EntryFee:     t.EntryFee,
		Prize:        t.PrizeType.Label(),
		PrizeDetails: t.PrizeDetails,
	}
}

// TournamentPost is the deterministic post shown after creation and in lists.
func (a *Announcer) TournamentPost(t *models.Tournament) string {
	return render("tournament_post", a.view(t))
}

func (a *Announcer) TournamentAnnouncement(ctx context.Context, t *models.Tournament) string {
	prompt := fmt.Sprintf(`Create an exciting BGMI tournament announcement for:
Name: %s
Type: %s
Entry Fee: ₹%d
Map: %s

Use Hindi-English mix style, include emojis, make it engaging and encourage participation.
Keep it under 300 characters.`, t.Name, t.Mode, t.EntryFee, t.Map)

	if text, ok := a.enrich(ctx, "tournament_announcement", prompt); ok {
		return text
	}
	return render("tournament_announcement", a.view(t))
}

type roomView struct {
	tournamentView
	RoomID   string
	Password string
}

// RoomDetails is always rendered from the template: the room id and password
// must reach players verbatim.
func (a *Announcer) RoomDetails(t *models.Tournament, roomID, password string) string {
	return render("room_details", roomView{tournamentView: a.view(t), RoomID: roomID, Password: password})
}

type winnerView struct {
	Headline string
	Player   string
	Players  []string
	Kills    string
	Damage   string
}

func (a *Announcer) SoloWinner(ctx context.Context, player, kills, damage string) string {
	player = strings.TrimPrefix(player, "@")
	prompt := fmt.Sprintf(`Generate an exciting BGMI solo winner announcement for player @%s with %s kills and %s damage.
Use Hindi-English mix style, gaming slang, and make it energetic. Include emojis and victory celebration.
Keep it under 200 characters. Make it unique and catchy.`, player, kills, damage)

	headline, ok := a.enrich(ctx, "solo_winner", prompt)
	if !ok {
		headline = fmt.Sprintf(pick(soloHeadlines, player), mention(player))
	}
	return render("solo_winner", winnerView{Headline: headline, Player: player, Kills: kills, Damage: damage})
}

func (a *Announcer) DuoWinner(ctx context.Context, player1, player2, kills, damage string) string {
	players := []string{strings.TrimPrefix(player1, "@"), strings.TrimPrefix(player2, "@")}
	prompt := fmt.Sprintf(`Generate an exciting BGMI duo winner announcement for players @%s and @%s with %s total kills and %s damage.
Use Hindi-English mix style, emphasize teamwork and partnership. Include emojis and celebration.
Keep it under 200 characters. Make it unique.`, players[0], players[1], kills, damage)

	headline, ok := a.enrich(ctx, "duo_winner", prompt)
	if !ok {
		headline = fmt.Sprintf(pick(duoHeadlines, players[0]), mentions(players))
	}
	return render("duo_winner", winnerView{Headline: headline, Players: players, Kills: kills, Damage: damage})
}

func (a *Announcer) SquadWinner(ctx context.Context, players []string, kills, damage string) string {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = strings.TrimPrefix(p, "@")
	}
	prompt := fmt.Sprintf(`Generate an exciting BGMI squad winner announcement for team with players %s with %s total kills and %s damage.
Use Hindi-English mix style, emphasize squad coordination and teamwork. Include emojis and celebration.
Keep it under 200 characters. Make it energetic.`, strings.Join(names, ", "), kills, damage)

	headline, ok := a.enrich(ctx, "squad_winner", prompt)
	if !ok {
		headline = fmt.Sprintf(pick(squadHeadlines, strings.Join(names, "")), mentions(names))
	}
	return render("squad_winner", winnerView{Headline: headline, Players: names, Kills: kills, Damage: damage})
}

// Special enhances an operator's free-form notification.
func (a *Announcer) Special(ctx context.Context, message string) string {
	prompt := fmt.Sprintf(`Enhance this BGMI tournament message with gaming emojis, Hindi-English mix style, and make it more exciting: %q
Keep the original meaning but make it more energetic and engaging. Add relevant emojis.`, message)

	if text, ok := a.enrich(ctx, "special", prompt); ok {
		return text
	}
	return render("special", message)
}

func (a *Announcer) enrich(ctx context.Context, kind, prompt string) (string, bool) {
	if a.gen == nil {
		return "", false
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.Warn("ai enrichment failed, using template", slog.String("kind", kind), slog.Any("error", err))
		return "", false
	}
	return text, true
}

func render(name string, data any) string {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		// templates are parsed at init; a failure here is a programming error
		panic(fmt.Sprintf("announce: render %s: %v", name, err))
	}
	return buf.String()
}

// pick chooses a headline deterministically from the seed so the same winner
// always gets the same fallback text.
func pick(options []string, seed string) string {
	sum := 0
	for _, r := range seed {
		sum += int(r)
	}
	return options[sum%len(options)]
}
