package models

import "time"

// Payment is a manually submitted proof of transfer (UTR) awaiting or
// holding operator confirmation.
type Payment struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	TournamentID *int64     `json:"tournament_id,omitempty"`
	Amount       int64      `json:"amount"`
	UTR          string     `json:"utr"`
	Confirmed    bool       `json:"confirmed"`
	Superseded   bool       `json:"superseded"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	ProofKey     *string    `json:"-"`
	ProofURL     *string    `json:"proof_url,omitempty"`
}

// Pending reports whether the payment still waits for an operator.
func (p *Payment) Pending() bool {
	return !p.Confirmed && !p.Superseded
}

// IsValidUTR reports whether utr is exactly length ASCII digits.
func IsValidUTR(utr string, length int) bool {
	if len(utr) != length {
		return false
	}
	for i := 0; i < len(utr); i++ {
		if utr[i] < '0' || utr[i] > '9' {
			return false
		}
	}
	return true
}
