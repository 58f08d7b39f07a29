package listing

import (
	"cmp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
)

type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// ParseDirection accepts "asc" or "desc"; anything else is ascending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return Desc
	}
	return Asc
}

type valueKind int

const (
	kindMissing valueKind = iota
	kindText
	kindNumber
	kindTime
)

// Value is a sort key extracted from an entity.
type Value struct {
	kind valueKind
	text string
	num  float64
	ts   int64
}

func Missing() Value { return Value{} }

// Text is compared with the controller's collator. Empty is missing.
func Text(s string) Value {
	if s == "" {
		return Missing()
	}
	return Value{kind: kindText, text: s}
}

func Number(n float64) Value { return Value{kind: kindNumber, num: n} }

// Int treats nil as missing.
func Int(p *int) Value {
	if p == nil {
		return Missing()
	}
	return Number(float64(*p))
}

// Time treats nil and the zero time as missing.
func Time(t *time.Time) Value {
	if t == nil || t.IsZero() {
		return Missing()
	}
	return Value{kind: kindTime, ts: t.UnixNano()}
}

// At is Time for non-pointer timestamps.
func At(t time.Time) Value { return Time(&t) }

// Sentinel decides where missing values sort in ascending order.
type Sentinel int

const (
	MissingLow Sentinel = iota
	MissingHigh
)

// Field is a named sort key.
type Field[E any] struct {
	Name    string
	Key     func(E) Value
	Missing Sentinel
}

func (f Field[E]) compare(c *collate.Collator, a, b E) int {
	return compareValues(c, f.Key(a), f.Key(b), f.Missing)
}

func compareValues(c *collate.Collator, a, b Value, missing Sentinel) int {
	am, bm := a.kind == kindMissing, b.kind == kindMissing
	switch {
	case am && bm:
		return 0
	case am:
		if missing == MissingHigh {
			return 1
		}
		return -1
	case bm:
		if missing == MissingHigh {
			return -1
		}
		return 1
	}
	switch a.kind {
	case kindText:
		if c == nil {
			return strings.Compare(a.text, b.text)
		}
		return c.CompareString(a.text, b.text)
	case kindTime:
		return cmp.Compare(a.ts, b.ts)
	default:
		return cmp.Compare(a.num, b.num)
	}
}

// Contains reports whether query occurs in any of fields, ignoring case.
// An empty query matches everything.
func Contains(query string, fields ...string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	fold := cases.Fold()
	q := fold.String(query)
	for _, f := range fields {
		if strings.Contains(fold.String(f), q) {
			return true
		}
	}
	return false
}

// Unset reports whether a criteria field places no constraint.
func Unset(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}

// Equal reports whether v satisfies the constraint.
func Equal(constraint, v string) bool {
	return Unset(constraint) || constraint == v
}

// EqualPtr is Equal for optional references; nil only matches an unset constraint.
func EqualPtr(constraint string, v *string) bool {
	if Unset(constraint) {
		return true
	}
	return v != nil && *v == constraint
}

// Within reports whether t lies in [from, to]; zero bounds are open.
func Within(t *time.Time, from, to time.Time) bool {
	if from.IsZero() && to.IsZero() {
		return true
	}
	if t == nil {
		return false
	}
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
