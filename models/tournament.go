package models

import (
	"fmt"
	"strings"
	"time"
)

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusUpcoming  TournamentStatus = "upcoming"
	StatusLive      TournamentStatus = "live"
	StatusCompleted TournamentStatus = "completed"
	StatusCancelled TournamentStatus = "cancelled"
)

func ParseTournamentStatus(s string) (TournamentStatus, error) {
	switch status := TournamentStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case StatusUpcoming, StatusLive, StatusCompleted, StatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("unknown tournament status %q", s)
	}
}

// TournamentMode is the squad size a tournament is played in.
type TournamentMode string

const (
	ModeSolo  TournamentMode = "solo"
	ModeDuo   TournamentMode = "duo"
	ModeSquad TournamentMode = "squad"
)

func ParseTournamentMode(s string) (TournamentMode, error) {
	switch mode := TournamentMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case ModeSolo, ModeDuo, ModeSquad:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown tournament mode %q", s)
	}
}

// Label is the human readable mode shown in chat messages.
func (m TournamentMode) Label() string {
	switch m {
	case ModeSolo:
		return "🧍 SOLO"
	case ModeDuo:
		return "👥 DUO"
	case ModeSquad:
		return "👨‍👩‍👧‍👦 SQUAD"
	default:
		return "🎮 " + strings.ToUpper(string(m))
	}
}

type PrizeType string

const (
	PrizeKillBased   PrizeType = "kill_based"
	PrizeFixedAmount PrizeType = "fixed_amount"
	PrizeRankBased   PrizeType = "rank_based"
)

func ParsePrizeType(s string) (PrizeType, error) {
	switch p := PrizeType(strings.ToLower(strings.TrimSpace(s))); p {
	case PrizeKillBased, PrizeFixedAmount, PrizeRankBased:
		return p, nil
	default:
		return "", fmt.Errorf("unknown prize type %q", s)
	}
}

func (p PrizeType) Label() string {
	switch p {
	case PrizeKillBased:
		return "💀 Kill-Based"
	case PrizeFixedAmount:
		return "💰 Fixed Amount"
	case PrizeRankBased:
		return "🏆 Rank-Based"
	default:
		return string(p)
	}
}

// Tournament представляет турнир.
type Tournament struct {
	ID           int64            `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	Mode         TournamentMode   `json:"mode" db:"mode"`
	StartAt      time.Time        `json:"start_at" db:"start_at"`
	Map          string           `json:"map" db:"map"`
	EntryFee     int64            `json:"entry_fee" db:"entry_fee"`
	PrizeType    PrizeType        `json:"prize_type" db:"prize_type"`
	PrizeDetails string           `json:"prize_details,omitempty" db:"prize_details"`
	Status       TournamentStatus `json:"status" db:"status"`
	CreatedBy    int64            `json:"created_by" db:"created_by"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`

	// Участники в порядке регистрации (из tournament_participants).
	Participants []int64 `json:"participants" db:"-"`
}

// HasParticipant reports whether userID is already registered.
func (t *Tournament) HasParticipant(userID int64) bool {
	for _, id := range t.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// PrizePool is the sum of entry fees of everyone who joined.
func (t *Tournament) PrizePool() int64 {
	return int64(len(t.Participants)) * t.EntryFee
}

// TournamentDraft is the data collected by the creation wizard.
type TournamentDraft struct {
	Name         string
	Mode         TournamentMode
	StartAt      time.Time
	Map          string
	EntryFee     int64
	PrizeType    PrizeType
	PrizeDetails string
}
