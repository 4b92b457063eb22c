package leitner

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Box is a Leitner retention bucket. The zero value is BoxNew.
type Box int

const (
	BoxNew Box = iota
	Box1Day
	Box3Days
	Box7Days
	BoxMastered
)

var boxNames = [...]string{
	BoxNew:      "new",
	Box1Day:     "1day",
	Box3Days:    "3days",
	Box7Days:    "7days",
	BoxMastered: "mastered",
}

// intervalDays is the review interval per box. Mastered has none.
var intervalDays = [...]int{
	BoxNew:   1,
	Box1Day:  1,
	Box3Days: 3,
	Box7Days: 7,
}

// Boxes lists every box in review order.
func Boxes() []Box {
	return []Box{BoxNew, Box1Day, Box3Days, Box7Days, BoxMastered}
}

func (b Box) Valid() bool {
	return b >= BoxNew && b <= BoxMastered
}

func (b Box) String() string {
	if !b.Valid() {
		return fmt.Sprintf("Box(%d)", int(b))
	}
	return boxNames[b]
}

func ParseBox(s string) (Box, error) {
	for i, name := range boxNames {
		if name == s {
			return Box(i), nil
		}
	}
	return BoxNew, fmt.Errorf("unknown leitner box %q", s)
}

// Interval returns the review interval in days. ok is false for mastered.
func (b Box) Interval() (days int, ok bool) {
	if b == BoxMastered || !b.Valid() {
		return 0, false
	}
	return intervalDays[b], true
}

func (b Box) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid leitner box %d", int(b))
	}
	return []byte(boxNames[b]), nil
}

func (b *Box) UnmarshalText(text []byte) error {
	parsed, err := ParseBox(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Value stores the box by name.
func (b Box) Value() (driver.Value, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid leitner box %d", int(b))
	}
	return boxNames[b], nil
}

func (b *Box) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return b.UnmarshalText([]byte(v))
	case []byte:
		return b.UnmarshalText(v)
	case nil:
		*b = BoxNew
		return nil
	default:
		return fmt.Errorf("cannot scan %T into leitner.Box", src)
	}
}

// ── Scheduling ──────────────────────────────────────────

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// IsDue reports whether a word in box b, last reviewed on lastReviewed,
// should be reviewed on today. Mastered words are always due.
func IsDue(b Box, lastReviewed *time.Time, today time.Time) bool {
	if b == BoxMastered {
		return true
	}
	if lastReviewed == nil {
		return true
	}
	days, ok := b.Interval()
	if !ok {
		return false
	}
	due := Day(*lastReviewed).AddDate(0, 0, days)
	return !Day(today).Before(due)
}

// Advance moves one box forward and saturates at mastered.
func Advance(b Box) Box {
	if b >= BoxMastered {
		return BoxMastered
	}
	return b + 1
}

// Reset sends a forgotten word back to the 1day box.
func Reset(Box) Box {
	return Box1Day
}

type Outcome string

const (
	OutcomeAdvance Outcome = "advance"
	OutcomeReset   Outcome = "reset"
)

func (o Outcome) Valid() bool {
	return o == OutcomeAdvance || o == OutcomeReset
}

// Apply returns the box after a review with the given outcome and the
// review date to record.
func Apply(b Box, outcome Outcome, today time.Time) (Box, time.Time, error) {
	switch outcome {
	case OutcomeAdvance:
		return Advance(b), Day(today), nil
	case OutcomeReset:
		return Reset(b), Day(today), nil
	default:
		return b, time.Time{}, fmt.Errorf("unknown review outcome %q", outcome)
	}
}
