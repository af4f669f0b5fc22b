package models

import (
	"strconv"
	"strings"
	"time"
)

const ReferralCodePrefix = "REF"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	Balance      int64     `json:"balance"`
	Paid         bool      `json:"paid"`
	Confirmed    bool      `json:"confirmed"`
	ReferralCode string    `json:"referral_code"`
	ReferredBy   *int64    `json:"referred_by,omitempty"`
	JoinedAt     time.Time `json:"joined_at"`
}

// DisplayName prefers the chat handle and falls back to the first name.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "user " + strconv.FormatInt(u.ID, 10)
}

// ReferralCodeFor derives the code a user shares with friends.
func ReferralCodeFor(userID int64) string {
	return ReferralCodePrefix + strconv.FormatInt(userID, 10)
}

// ParseReferralCode extracts the referrer id from a REF<id> code.
func ParseReferralCode(code string) (int64, bool) {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, ReferralCodePrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(code[len(ReferralCodePrefix):], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// NormalizeUsername strips the leading @ users tend to type.
func NormalizeUsername(username string) string {
	return strings.TrimPrefix(strings.TrimSpace(username), "@")
}
