package models

import (
	"fmt"
	"strings"
	"time"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	default:
		return "", fmt.Errorf("unknown report period %q", s)
	}
}

// Window returns the half-open [from, to) interval of the period containing
// anchor, evaluated in anchor's location.
func (p Period) Window(anchor time.Time) (from, to time.Time) {
	loc := anchor.Location()
	y, m, d := anchor.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch p {
	case PeriodWeek:
		// Weekday: Sunday=0, неделя начинается с понедельника.
		offset := (int(day.Weekday()) + 6) % 7
		from = day.AddDate(0, 0, -offset)
		return from, from.AddDate(0, 0, 7)
	case PeriodMonth:
		from = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		if m == time.December {
			return from, time.Date(y+1, time.January, 1, 0, 0, 0, 0, loc)
		}
		return from, time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	default:
		return day, day.AddDate(0, 0, 1)
	}
}

// Collection is the raw aggregate over confirmed payments.
type Collection struct {
	TotalAmount   int64 `json:"total_amount"`
	TotalPayments int64 `json:"total_payments"`
}

// Report is a collection bound to the window it was computed for.
type Report struct {
	Period Period    `json:"period"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Anchor time.Time `json:"anchor"`
	Collection
}

// Average is the mean amount per confirmed payment; zero payments yield zero.
func (r Report) Average() int64 {
	return r.TotalAmount / max(r.TotalPayments, 1)
}

// DailyAverage spreads the total over the days of the period: a whole week,
// or the days of the month elapsed up to the anchor.
func (r Report) DailyAverage() int64 {
	switch r.Period {
	case PeriodWeek:
		return r.TotalAmount / 7
	case PeriodMonth:
		return r.TotalAmount / int64(max(r.Anchor.Day(), 1))
	default:
		return r.TotalAmount
	}
}
