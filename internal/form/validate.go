package form

import (
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"sprintdesk/internal/i18n"
)

// Validator returns a message for an invalid value and "" for a valid one.
type Validator[V any] func(v V, dict i18n.Translator) string

// Required rejects blank strings after trimming.
func Required() Validator[string] {
	return func(v string, dict i18n.Translator) string {
		if strings.TrimSpace(v) == "" {
			return dict.T("validation.required")
		}
		return ""
	}
}

// Length bounds the trimmed rune count to [min, max].
func Length(min, max int) Validator[string] {
	return func(v string, dict i18n.Translator) string {
		n := utf8.RuneCountInString(strings.TrimSpace(v))
		switch {
		case n < min:
			return dict.T("validation.tooShort")
		case max > 0 && n > max:
			return dict.T("validation.tooLong")
		}
		return ""
	}
}

func MaxLength(max int) Validator[string] {
	return Length(0, max)
}

// Email accepts a bare address. Empty values pass; pair with Required.
func Email() Validator[string] {
	return func(v string, dict i18n.Translator) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return ""
		}
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Address != v || !strings.Contains(v[strings.LastIndex(v, "@")+1:], ".") {
			return dict.T("validation.email")
		}
		return ""
	}
}

// NotEmpty requires at least one selected element.
func NotEmpty[T any]() Validator[[]T] {
	return func(v []T, dict i18n.Translator) string {
		if len(v) == 0 {
			return dict.T("validation.selectOne")
		}
		return ""
	}
}

// Rule is a cross-field check over the whole draft.
type Rule[D any] struct {
	Field string
	Check func(d D, dict i18n.Translator) string
}

// DateRange requires end on or after start when both are set.
func DateRange[D any](field string, start, end func(D) *time.Time) Rule[D] {
	return Rule[D]{
		Field: field,
		Check: func(d D, dict i18n.Translator) string {
			s, e := start(d), end(d)
			if s == nil || e == nil || s.IsZero() || e.IsZero() {
				return ""
			}
			if e.Before(*s) {
				return dict.T("validation.dateRange")
			}
			return ""
		},
	}
}

// OneOf restricts a value to allowed. Empty values pass.
func OneOf(allowed ...string) Validator[string] {
	return func(v string, dict i18n.Translator) string {
		if v == "" || slices.Contains(allowed, v) {
			return ""
		}
		return dict.T("validation.oneOf")
	}
}

// Subset requires every element to be in allowed.
func Subset(allowed ...string) Validator[[]string] {
	return func(v []string, dict i18n.Translator) string {
		for _, each := range v {
			if !slices.Contains(allowed, each) {
				return dict.T("validation.oneOf")
			}
		}
		return ""
	}
}

// Present rejects nil pointers.
func Present[T any]() Validator[*T] {
	return func(v *T, dict i18n.Translator) string {
		if v == nil {
			return dict.T("validation.required")
		}
		return ""
	}
}
