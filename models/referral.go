package models

import "time"

type Referral struct {
	ID           int64     `json:"id"`
	ReferrerID   int64     `json:"referrer_id"`
	ReferredID   int64     `json:"referred_id"`
	Code         string    `json:"code"`
	BonusGranted bool      `json:"bonus_granted"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReferralStats is what a user sees on the referrals screen.
type ReferralStats struct {
	Total       int        `json:"total"`
	Granted     int        `json:"granted"`
	Bonus       int64      `json:"bonus"`
	FreeEntries int64      `json:"free_entries"`
	Recent      []Referral `json:"recent"`
}
