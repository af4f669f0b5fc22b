package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-bot/notify"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnknownButton  = errors.New("unknown button")
)

// Event is one inbound update from the chat gateway: either a text message
// (possibly a command) or a button press carrying Data.
type Event struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Text      string `json:"text,omitempty"`
	Data      string `json:"data,omitempty"`
}

// Reply is a message for the chat the event came from.
type Reply struct {
	Text    string            `json:"text"`
	Buttons [][]notify.Button `json:"buttons,omitempty"`
}

type Command string

const (
	CmdStart            Command = "start"
	CmdCreateTournament Command = "createtournament"
	CmdJoin             Command = "join"
	CmdPaid             Command = "paid"
	CmdSubmitPayment    Command = "submitpayment"
	CmdConfirm          Command = "confirm"
	CmdListPlayers      Command = "listplayers"
	CmdReport           Command = "report"
	CmdToday            Command = "today"
	CmdThisWeek         Command = "thisweek"
	CmdThisMonth        Command = "thismonth"
	CmdSendRoom         Command = "sendroom"
	CmdStatus           Command = "status"
	CmdSolo             Command = "solo"
	CmdDuo              Command = "duo"
	CmdSquad            Command = "squad"
	CmdDeclareWinners   Command = "declarewinners"
	CmdSpecial          Command = "special"
	CmdTournaments      Command = "tournaments"
	CmdReferrals        Command = "referrals"
	CmdMatchHistory     Command = "matchhistory"
	CmdHelp             Command = "help"
	CmdCancel           Command = "cancel"
)

// IsCommand reports whether text is addressed to the command router rather
// than to a wizard.
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// ParseCommand splits "/name@bot arg1 arg2" into the command and its args.
func ParseCommand(text string) (Command, []string, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownCommand, text)
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")

	switch cmd := Command(strings.ToLower(name)); cmd {
	case CmdStart, CmdCreateTournament, CmdJoin, CmdPaid, CmdSubmitPayment, CmdConfirm,
		CmdListPlayers, CmdReport, CmdToday, CmdThisWeek, CmdThisMonth, CmdSendRoom,
		CmdStatus, CmdSolo, CmdDuo, CmdSquad, CmdDeclareWinners, CmdSpecial,
		CmdTournaments, CmdReferrals, CmdMatchHistory, CmdHelp, CmdCancel:
		return cmd, fields[1:], nil
	default:
		return "", nil, fmt.Errorf("%w: /%s", ErrUnknownCommand, name)
	}
}

type ButtonAction string

const (
	ButtonTournamentType   ButtonAction = "tournament_type_"
	ButtonMap              ButtonAction = "map_"
	ButtonPrize            ButtonAction = "prize_"
	ButtonJoinTournament   ButtonAction = "join_tournament_"
	ButtonPayTournament    ButtonAction = "pay_tournament_"
	ButtonSelectTournament ButtonAction = "select_tournament_"
	ButtonActiveTournament ButtonAction = "active_tournament"
	ButtonReferrals        ButtonAction = "referrals"
	ButtonBackToMenu       ButtonAction = "back_to_menu"
)

// exact actions carry no argument; the rest are prefixes.
var (
	exactButtons  = []ButtonAction{ButtonActiveTournament, ButtonReferrals, ButtonBackToMenu}
	prefixButtons = []ButtonAction{
		ButtonTournamentType, ButtonMap, ButtonPrize,
		ButtonJoinTournament, ButtonPayTournament, ButtonSelectTournament,
	}
)

// Button is a parsed button press.
type Button struct {
	Action ButtonAction
	Arg    string
}

func ParseButton(data string) (Button, error) {
	for _, a := range exactButtons {
		if data == string(a) {
			return Button{Action: a}, nil
		}
	}
	for _, a := range prefixButtons {
		if arg, ok := strings.CutPrefix(data, string(a)); ok && arg != "" {
			return Button{Action: a, Arg: arg}, nil
		}
	}
	return Button{}, fmt.Errorf("%w: %q", ErrUnknownButton, data)
}

// ID reads the numeric argument of tournament buttons.
func (b Button) ID() (int64, bool) {
	id, err := strconv.ParseInt(b.Arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (a ButtonAction) With(arg string) string {
	return string(a) + arg
}

func button(text string, action ButtonAction, arg string) notify.Button {
	return notify.Button{Text: text, Data: action.With(arg)}
}

func row(buttons ...notify.Button) []notify.Button {
	return buttons
}
