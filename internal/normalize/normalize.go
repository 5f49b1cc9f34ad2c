// Package normalize fills defaults and derived fields on records before they
// leave the service layer. Every function is pure; output never depends on
// whether a record came from the remote store or the local queue.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"mttsite/internal/model"
)

const (
	isoDate     = "2006-01-02"
	clock24     = "15:04"
	displayDate = "January 2, 2006"
	displayTime = "3:04 PM"
)

// NormalizeFees returns zero fees for a missing object. The struct decoding of
// a partial object already leaves the absent side at 0.
func NormalizeFees(f *model.Fees) model.Fees {
	if f == nil {
		return model.Fees{}
	}
	return *f
}

// FormatDisplayDate renders 2024-03-09 as "March 9, 2024". Input that is not
// an ISO date is returned as is.
func FormatDisplayDate(date string) string {
	t, err := time.Parse(isoDate, date)
	if err != nil {
		return date
	}
	return t.Format(displayDate)
}

// FormatDisplayTime renders 14:05 as "2:05 PM".
func FormatDisplayTime(clock string) string {
	t, err := time.Parse(clock24, clock)
	if err != nil {
		return clock
	}
	return t.Format(displayTime)
}

// DeriveStatus compares calendar days in now's location: today and later are
// upcoming. Dates that do not parse are past.
func DeriveStatus(date string, now time.Time) string {
	d, err := time.ParseInLocation(isoDate, date, now.Location())
	if err != nil {
		return model.EventPast
	}
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, now.Location())
	if d.Before(today) {
		return model.EventPast
	}
	return model.EventUpcoming
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases title and collapses every run of other characters into "-".
func Slugify(title string) string {
	return nonSlug.ReplaceAllString(strings.ToLower(title), "-")
}

func Event(e model.Event, now time.Time) model.Event {
	fees := NormalizeFees(e.Fees)
	e.Fees = &fees
	e.Status = DeriveStatus(e.Date, now)
	e.DisplayDate = FormatDisplayDate(e.Date)
	e.DisplayTime = FormatDisplayTime(e.Time)
	return e
}

func Registration(r model.Registration) model.Registration {
	if r.Status == "" {
		r.Status = model.RegistrationPending
	}
	if r.PaymentStatus == "" {
		r.PaymentStatus = model.PaymentPending
	}
	if r.MembershipType == "" {
		r.MembershipType = model.MembershipNonIEEE
	}
	return r
}

func Blog(b model.Blog) model.Blog {
	if b.Slug == "" {
		b.Slug = Slugify(b.Title)
	}
	return b
}
