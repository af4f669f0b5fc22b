package models

import "time"

// WizardKind identifies which multi-step dialog a session belongs to.
type WizardKind string

const (
	WizardNone               WizardKind = "none"
	WizardTournamentCreation WizardKind = "tournament_creation"
	WizardRoomEntry          WizardKind = "room_entry"
	WizardPaymentEntry       WizardKind = "payment_entry"
)

// Step is a single prompt of a wizard.
type Step string

const (
	StepType         Step = "type"
	StepName         Step = "name"
	StepDate         Step = "date"
	StepTime         Step = "time"
	StepMap          Step = "map"
	StepEntryFee     Step = "entry_fee"
	StepPrizeType    Step = "prize_type"
	StepPrizeDetails Step = "prize_details"
	StepTournament   Step = "tournament"
	StepRoomDetails  Step = "room_details"
	StepUTR          Step = "utr"
	StepFinish       Step = "finish"
)

// Step data keys that are not prompted for but filled by the wizard itself.
const (
	StepRoomID   Step = "room_id"
	StepPassword Step = "password"
)

// Session holds one user's in-progress wizard.
type Session struct {
	UserID    int64           `json:"user_id"`
	Kind      WizardKind      `json:"kind"`
	Step      Step            `json:"step"`
	Data      map[Step]string `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (s *Session) Finished() bool {
	return s.Step == StepFinish
}

func (s *Session) Value(step Step) string {
	if s.Data == nil {
		return ""
	}
	return s.Data[step]
}
