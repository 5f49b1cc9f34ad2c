package validator

import (
	"context"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator"
)

var (
	global     *validator.Validate
	clockRegex = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)
)

const (
	ErrFieldRequired      = "is required"
	ErrFieldExceedsMaxLen = "exceeds maximum length"
	ErrFieldBelowMinLen   = "is below minimum length"
	ErrFieldExceedsMaxVal = "exceeds maximum value"
	ErrFieldBelowMinVal   = "is below minimum value"
	ErrInvalidEmail       = "must be a valid email address"
	ErrInvalidURL         = "must be a valid URL"
	ErrInvalidDate        = "must be a date in YYYY-MM-DD format"
	ErrInvalidTime        = "must be a time in HH:MM format"
	ErrUnknownValue       = "has a value that is not allowed"
	ErrUnknownValidation  = "is invalid"
)

var messages = map[string]string{
	"required": ErrFieldRequired,
	"max":      ErrFieldExceedsMaxLen,
	"min":      ErrFieldBelowMinLen,
	"lt":       ErrFieldExceedsMaxVal,
	"lte":      ErrFieldExceedsMaxVal,
	"gt":       ErrFieldBelowMinVal,
	"gte":      ErrFieldBelowMinVal,
	"email":    ErrInvalidEmail,
	"url":      ErrInvalidURL,
	"isodate":  ErrInvalidDate,
	"clock":    ErrInvalidTime,
	"oneof":    ErrUnknownValue,
}

func init() {
	SetValidator(New())
}

// New registers the date/time tags and reports fields by their json name.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("isodate", validateISODate)
	_ = v.RegisterValidation("clock", validateClock)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

func validateClock(fl validator.FieldLevel) bool {
	return clockRegex.MatchString(fl.Field().String())
}

type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// Errors lists every failing field, in struct order.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + " " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// Validate returns Errors for rule violations and any other error unchanged.
func Validate(ctx context.Context, structure any) error {
	err := Validator().StructCtx(ctx, structure)
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return err
	}
	out := make(Errors, 0, len(vErrors))
	for _, ve := range vErrors {
		msg, known := messages[ve.Tag()]
		if !known {
			msg = ErrUnknownValidation
		}
		out = append(out, FieldError{Field: ve.Field(), Tag: ve.Tag(), Message: msg})
	}
	return out
}
