package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type form struct {
	Title string  `json:"title" validate:"required,max=10"`
	Date  string  `json:"date" validate:"required,isodate"`
	Time  string  `json:"time" validate:"required,clock"`
	Email string  `json:"email" validate:"omitempty,email"`
	Kind  string  `json:"membershipType" validate:"omitempty,oneof=ieee non-ieee"`
	Fee   float64 `validate:"gte=0"`
}

func valid() form {
	return form{Title: "Workshop", Date: "2099-01-01", Time: "9:05", Email: "a@b.co", Kind: "ieee"}
}

func TestValidatePasses(t *testing.T) {
	require.NoError(t, Validate(context.Background(), valid()))
}

func TestValidateMessages(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*form)
		field  string
		want   string
	}{
		{"missing title", func(f *form) { f.Title = "" }, "title", ErrFieldRequired},
		{"long title", func(f *form) { f.Title = "a very long title" }, "title", ErrFieldExceedsMaxLen},
		{"bad date", func(f *form) { f.Date = "2099-13-01" }, "date", ErrInvalidDate},
		{"bad time", func(f *form) { f.Time = "24:00" }, "time", ErrInvalidTime},
		{"bad email", func(f *form) { f.Email = "nope" }, "email", ErrInvalidEmail},
		{"bad kind", func(f *form) { f.Kind = "gold" }, "membershipType", ErrUnknownValue},
		{"negative fee", func(f *form) { f.Fee = -1 }, "Fee", ErrFieldBelowMinVal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := valid()
			tc.mutate(&f)
			err := Validate(context.Background(), f)

			var errs Errors
			require.True(t, errors.As(err, &errs))
			require.Len(t, errs, 1)
			assert.Equal(t, tc.field, errs[0].Field)
			assert.Equal(t, tc.want, errs[0].Message)
		})
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	err := Validate(context.Background(), form{Time: "10:00"})

	var errs Errors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs, 2)
	assert.Equal(t, "title is required; date is required", err.Error())
}
