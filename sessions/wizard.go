package sessions

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dosada05/tournament-bot/models"
)

var ErrValidation = errors.New("invalid input")

const (
	dateLayout       = "2/1/2006"
	timeLayout       = "15:04"
	storedDateLayout = "2006-01-02"
	maxNameLength    = 64
	skipKeyword      = "skip"
)

// Parser validates raw input for one step and returns the normalized values
// to store. Most steps store a single value under their own key.
type Parser func(input string) (map[models.Step]string, error)

type stepDef struct {
	step    models.Step
	prompt  string
	choices []string
	parse   Parser
}

// Wizard is the fixed step order of one multi-step dialog.
type Wizard struct {
	Kind  models.WizardKind
	Title string
	steps []stepDef
}

// Options configures the closed lists and formats the wizards accept.
type Options struct {
	Maps      []string
	UTRLength int
	Location  *time.Location
}

// DefaultWizards builds the tournament creation, payment entry and room entry
// dialogs.
func DefaultWizards(opts Options) []*Wizard {
	modes := []string{string(models.ModeSolo), string(models.ModeDuo), string(models.ModeSquad)}
	prizes := []string{string(models.PrizeKillBased), string(models.PrizeFixedAmount), string(models.PrizeRankBased)}

	creation := &Wizard{
		Kind:  models.WizardTournamentCreation,
		Title: "🎯 Tournament Creation",
		steps: []stepDef{
			{step: models.StepType, prompt: "Select tournament type:", choices: modes, parse: parseMode},
			{step: models.StepName, prompt: "🏆 Enter tournament name:", parse: parseName},
			{step: models.StepDate, prompt: "📅 Enter tournament date (DD/MM/YYYY), e.g. 28/07/2025:", parse: parseDate(opts.Location)},
			{step: models.StepTime, prompt: "🕘 Enter tournament time (HH:MM in 24-hour format), e.g. 21:30:", parse: parseClock},
			{step: models.StepMap, prompt: "📍 Select map:", choices: opts.Maps, parse: parseMap(opts.Maps)},
			{step: models.StepEntryFee, prompt: "💰 Enter entry fee as a whole number, e.g. 50:", parse: parseFee},
			{step: models.StepPrizeType, prompt: "🎁 Select prize type:", choices: prizes, parse: parsePrizeType},
			{step: models.StepPrizeDetails, prompt: "📝 Enter prize details, or send \"skip\":", parse: parsePrizeDetails},
		},
	}

	payment := &Wizard{
		Kind:  models.WizardPaymentEntry,
		Title: "💳 Payment",
		steps: []stepDef{
			{step: models.StepTournament, prompt: "Send the tournament id you paid for:", parse: parseTournamentID},
			{
				step:   models.StepUTR,
				prompt: fmt.Sprintf("🔢 Send the %d-digit UTR of your transfer, e.g. %s:", opts.UTRLength, strings.Repeat("1", opts.UTRLength)),
				parse:  parseUTR(opts.UTRLength),
			},
		},
	}

	room := &Wizard{
		Kind:  models.WizardRoomEntry,
		Title: "📤 Room Details",
		steps: []stepDef{
			{step: models.StepTournament, prompt: "Select tournament to send room details:", parse: parseTournamentID},
			{step: models.StepRoomDetails, prompt: "Please provide room details in this format:\nRoom ID: 123456\nPassword: abc123", parse: parseRoomDetails},
		},
	}

	return []*Wizard{creation, payment, room}
}

// firstOpen returns the first step not already filled by data.
func (w *Wizard) firstOpen(data map[models.Step]string) models.Step {
	for _, def := range w.steps {
		if _, ok := data[def.step]; !ok {
			return def.step
		}
	}
	return models.StepFinish
}

func (w *Wizard) next(data map[models.Step]string, current models.Step) models.Step {
	passed := false
	for _, def := range w.steps {
		if def.step == current {
			passed = true
			continue
		}
		if _, ok := data[def.step]; passed && !ok {
			return def.step
		}
	}
	return models.StepFinish
}

func (w *Wizard) def(step models.Step) (stepDef, bool) {
	for _, def := range w.steps {
		if def.step == step {
			return def, true
		}
	}
	return stepDef{}, false
}

// Steps lists the prompted steps in order.
func (w *Wizard) Steps() []models.Step {
	out := make([]models.Step, len(w.steps))
	for i, def := range w.steps {
		out[i] = def.step
	}
	return out
}

func single(step models.Step, value string) map[models.Step]string {
	return map[models.Step]string{step: value}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func parseMode(input string) (map[models.Step]string, error) {
	mode, err := models.ParseTournamentMode(input)
	if err != nil {
		return nil, invalid("choose solo, duo or squad")
	}
	return single(models.StepType, string(mode)), nil
}

func parseName(input string) (map[models.Step]string, error) {
	name := strings.TrimSpace(input)
	if name == "" {
		return nil, invalid("name must not be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, invalid("name must be at most %d characters", maxNameLength)
	}
	return single(models.StepName, name), nil
}

func parseDate(loc *time.Location) Parser {
	return func(input string) (map[models.Step]string, error) {
		d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(input), loc)
		if err != nil {
			return nil, invalid("use DD/MM/YYYY (e.g., 28/07/2025)")
		}
		return single(models.StepDate, d.Format(storedDateLayout)), nil
	}
}

func parseClock(input string) (map[models.Step]string, error) {
	t, err := time.Parse(timeLayout, strings.TrimSpace(input))
	if err != nil {
		return nil, invalid("use HH:MM (e.g., 21:30)")
	}
	return single(models.StepTime, t.Format(timeLayout)), nil
}

func parseMap(maps []string) Parser {
	return func(input string) (map[models.Step]string, error) {
		in := strings.TrimSpace(input)
		for _, m := range maps {
			if strings.EqualFold(m, in) {
				return single(models.StepMap, m), nil
			}
		}
		return nil, invalid("choose one of %s", strings.Join(maps, ", "))
	}
}

func parseFee(input string) (map[models.Step]string, error) {
	in := strings.TrimPrefix(strings.TrimSpace(input), "₹")
	fee, err := strconv.ParseInt(in, 10, 64)
	if err != nil || fee < 0 {
		return nil, invalid("enter a non-negative number (e.g., 50)")
	}
	return single(models.StepEntryFee, strconv.FormatInt(fee, 10)), nil
}

func parsePrizeType(input string) (map[models.Step]string, error) {
	p, err := models.ParsePrizeType(input)
	if err != nil {
		return nil, invalid("choose kill_based, fixed_amount or rank_based")
	}
	return single(models.StepPrizeType, string(p)), nil
}

func parsePrizeDetails(input string) (map[models.Step]string, error) {
	details := strings.TrimSpace(input)
	if strings.EqualFold(details, skipKeyword) {
		details = ""
	}
	return single(models.StepPrizeDetails, details), nil
}

func parseTournamentID(input string) (map[models.Step]string, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil || id <= 0 {
		return nil, invalid("send a tournament id (e.g., 12)")
	}
	return single(models.StepTournament, strconv.FormatInt(id, 10)), nil
}

func parseUTR(length int) Parser {
	return func(input string) (map[models.Step]string, error) {
		utr := strings.TrimSpace(input)
		if !models.IsValidUTR(utr, length) {
			return nil, invalid("UTR must be exactly %d digits", length)
		}
		return single(models.StepUTR, utr), nil
	}
}

func parseRoomDetails(input string) (map[models.Step]string, error) {
	var roomID, password string
	for _, line := range strings.Split(strings.TrimSpace(input), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch {
		case strings.Contains(key, "room") || key == "id":
			roomID = value
		case strings.Contains(key, "pass"):
			password = value
		}
	}
	if roomID == "" || password == "" {
		return nil, invalid("use:\nRoom ID: 123456\nPassword: abc123")
	}
	return map[models.Step]string{
		models.StepRoomDetails: roomID + "\n" + password,
		models.StepRoomID:      roomID,
		models.StepPassword:    password,
	}, nil
}

// Draft converts a finished creation session into a tournament draft.
func Draft(s *models.Session, loc *time.Location) (models.TournamentDraft, error) {
	if s.Kind != models.WizardTournamentCreation || !s.Finished() {
		return models.TournamentDraft{}, ErrWizardIncomplete
	}
	startAt, err := time.ParseInLocation(storedDateLayout+" "+timeLayout, s.Value(models.StepDate)+" "+s.Value(models.StepTime), loc)
	if err != nil {
		return models.TournamentDraft{}, fmt.Errorf("failed to combine start date and time: %w", err)
	}
	fee, err := strconv.ParseInt(s.Value(models.StepEntryFee), 10, 64)
	if err != nil {
		return models.TournamentDraft{}, fmt.Errorf("failed to read entry fee: %w", err)
	}
	return models.TournamentDraft{
		Name:         s.Value(models.StepName),
		Mode:         models.TournamentMode(s.Value(models.StepType)),
		StartAt:      startAt,
		Map:          s.Value(models.StepMap),
		EntryFee:     fee,
		PrizeType:    models.PrizeType(s.Value(models.StepPrizeType)),
		PrizeDetails: s.Value(models.StepPrizeDetails),
	}, nil
}

// TournamentID reads the tournament a payment or room session is bound to.
func TournamentID(s *models.Session) (int64, bool) {
	id, err := strconv.ParseInt(s.Value(models.StepTournament), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
