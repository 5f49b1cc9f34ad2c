package normalize

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"mttsite/internal/model"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2025, time.March, 10, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, model.EventUpcoming, DeriveStatus("2025-03-10", now))
	assert.Equal(t, model.EventUpcoming, DeriveStatus("2025-03-11", now))
	assert.Equal(t, model.EventPast, DeriveStatus("2025-03-09", now))
	assert.Equal(t, model.EventPast, DeriveStatus("", now))
	assert.Equal(t, model.EventPast, DeriveStatus("10/03/2025", now))
}

func TestDeriveStatusUsesNowLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 2025-03-10 01:00 in IST is still 2025-03-09 in UTC
	now := time.Date(2025, time.March, 10, 1, 0, 0, 0, ist)
	assert.Equal(t, model.EventUpcoming, DeriveStatus("2025-03-10", now))
	assert.Equal(t, model.EventPast, DeriveStatus("2025-03-10", now.AddDate(0, 0, 1)))
}

func TestDeriveStatusProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		now := time.Unix(rapid.Int64Range(0, 4102444800).Draw(t, "now"), 0).UTC()
		offset := rapid.IntRange(-400, 400).Draw(t, "offset")
		date := now.AddDate(0, 0, offset).Format("2006-01-02")

		want := model.EventUpcoming
		if offset < 0 {
			want = model.EventPast
		}
		if got := DeriveStatus(date, now); got != want {
			t.Fatalf("DeriveStatus(%s, %s) = %s, want %s", date, now, got, want)
		}
		if DeriveStatus(date, now) != DeriveStatus(date, now) {
			t.Fatal("not deterministic")
		}
	})
}

func TestFormatDisplay(t *testing.T) {
	assert.Equal(t, "January 1, 2099", FormatDisplayDate("2099-01-01"))
	assert.Equal(t, "March 9, 2024", FormatDisplayDate("2024-03-09"))
	assert.Equal(t, "soon", FormatDisplayDate("soon"))

	assert.Equal(t, "10:00 AM", FormatDisplayTime("10:00"))
	assert.Equal(t, "12:30 PM", FormatDisplayTime("12:30"))
	assert.Equal(t, "12:05 AM", FormatDisplayTime("00:05"))
	assert.Equal(t, "11:59 PM", FormatDisplayTime("23:59"))
	assert.Equal(t, "9:30 AM", FormatDisplayTime("9:30"))
	assert.Equal(t, "25:00", FormatDisplayTime("25:00"))
}

func TestNormalizeFees(t *testing.T) {
	assert.Equal(t, model.Fees{}, NormalizeFees(nil))

	var e model.Event
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","fees":{"ieee":500}}`), &e))
	assert.Equal(t, model.Fees{IEEE: 500, NonIEEE: 0}, NormalizeFees(e.Fees))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", Slugify("Hello World"))
	assert.Equal(t, "c-and-go-", Slugify("C++ and  Go!"))
	assert.Equal(t, "-ieee-2024", Slugify("  IEEE 2024"))
	assert.Equal(t, "", Slugify(""))
}

func TestSlugifyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := Slugify(rapid.String().Draw(t, "title"))
		for i, c := range s {
			ok := c == '-' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
			if !ok {
				t.Fatalf("unexpected rune %q in %q", c, s)
			}
			if c == '-' && i > 0 && s[i-1] == '-' {
				t.Fatalf("double dash in %q", s)
			}
		}
	})
}

func TestEventIsOriginIndependent(t *testing.T) {
	now := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	e := Event(model.Event{Title: "Workshop", Date: "2099-01-01", Time: "10:00"}, now)

	require.NotNil(t, e.Fees)
	assert.Equal(t, model.Fees{}, *e.Fees)
	assert.Equal(t, model.EventUpcoming, e.Status)
	assert.Equal(t, "January 1, 2099", e.DisplayDate)
	assert.Equal(t, "10:00 AM", e.DisplayTime)

	// a stale stored status is always recomputed
	stale := Event(model.Event{Date: "2020-01-01", Status: model.EventUpcoming}, now)
	assert.Equal(t, model.EventPast, stale.Status)
}

func TestRegistrationAndBlogDefaults(t *testing.T) {
	r := Registration(model.Registration{})
	assert.Equal(t, model.RegistrationPending, r.Status)
	assert.Equal(t, model.PaymentPending, r.PaymentStatus)
	assert.Equal(t, model.MembershipNonIEEE, r.MembershipType)

	b := Blog(model.Blog{Title: "First Post"})
	assert.Equal(t, "first-post", b.Slug)
	b = Blog(model.Blog{Title: "First Post", Slug: "custom"})
	assert.Equal(t, "custom", b.Slug)
}
