// Package schedule turns raw schedule strings from task definitions into a
// typed trigger policy. Three input forms are recognized, tried in order:
//
//	"*/5 * * * *"      five-field cron expression, recurring
//	"24.12.25 18.00"   absolute instant (dd.mm.yy hh.mm, year offset from 2000)
//	"12.30"            daily wall-clock time (hh.mm), rendered as a cron expression
//
// An empty string means the task has no automatic trigger and is runnable only
// on manual invocation.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Kind discriminates the Schedule variants.
type Kind string

const (
	// KindNone means no automatic trigger.
	KindNone Kind = "none"
	// KindRecurring fires repeatedly per a five-field cron expression.
	KindRecurring Kind = "recurring"
	// KindOneTime fires exactly once at an absolute instant.
	KindOneTime Kind = "onetime"
)

var (
	// ErrInvalidDate is returned for dd.mm.yy hh.mm strings whose components
	// do not form a valid calendar date/time.
	ErrInvalidDate = errors.New("invalid date format, expected dd.mm.yy hh.mm")
	// ErrInvalidTime is returned for hh.mm strings out of wall-clock range.
	ErrInvalidTime = errors.New("invalid time format, expected hh.mm")
	// ErrInvalidDuration is returned when the string matches none of the
	// recognized forms.
	ErrInvalidDuration = errors.New("invalid schedule format")
)

// Schedule is the immutable trigger policy derived from a raw schedule string.
// It carries no execution state.
type Schedule struct {
	Kind Kind
	Expr string    // cron expression, set for KindRecurring
	At   time.Time // absolute instant, set for KindOneTime
}

// cronParser accepts standard five-field expressions plus descriptors
// like @daily.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Parse classifies a raw schedule string. The forms are tried in strict
// priority order; the first matching form wins. loc is the timezone applied
// to absolute instants.
//
// A nil error with KindNone means the task should never be triggered
// automatically. Parsing is pure and idempotent.
func Parse(raw string, loc *time.Location) (Schedule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Schedule{Kind: KindNone}, nil
	}
	if loc == nil {
		loc = time.Local
	}

	if fields := strings.Fields(raw); len(fields) == 5 {
		if _, err := cronParser.Parse(raw); err == nil {
			return Schedule{Kind: KindRecurring, Expr: raw}, nil
		}
		// Five fields that do not parse as cron may still be a date form.
	}

	hasDot := strings.Contains(raw, ".")
	hasSpace := strings.Contains(raw, " ")

	switch {
	case hasDot && hasSpace:
		at, err := parseInstant(raw, loc)
		if err != nil {
			return Schedule{}, err
		}
		return Schedule{Kind: KindOneTime, At: at}, nil
	case hasDot:
		expr, err := parseDaily(raw)
		if err != nil {
			return Schedule{}, err
		}
		return Schedule{Kind: KindRecurring, Expr: expr}, nil
	default:
		return Schedule{}, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
	}
}

// Delay returns the time remaining until the schedule's absolute instant.
// The result may be negative for instants already in the past; arming a
// trigger for a non-positive delay is the scheduler's decision, not the
// parser's.
func (s Schedule) Delay(now time.Time) time.Duration {
	return s.At.Sub(now)
}

// parseInstant parses "dd.mm.yy hh.mm" into an absolute time. The two-digit
// year is an offset from 2000.
func parseInstant(raw string, loc *time.Location) (time.Time, error) {
	parts := strings.Fields(raw)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}

	dateParts := strings.Split(parts[0], ".")
	timeParts := strings.Split(parts[1], ".")
	if len(dateParts) != 3 || len(timeParts) != 2 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}

	nums := make([]int, 0, 5)
	for _, p := range append(dateParts, timeParts...) {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
		}
		nums = append(nums, n)
	}

	day, month, year := nums[0], nums[1], 2000+nums[2]
	hour, minute := nums[3], nums[4]
	if nums[2] < 0 || nums[2] > 99 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}

	at := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	// time.Date normalizes out-of-range components (e.g. 31.02 becomes 02.03);
	// a round-trip mismatch means the input was not a real calendar time.
	if at.Year() != year || at.Month() != time.Month(month) || at.Day() != day ||
		at.Hour() != hour || at.Minute() != minute {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}

	return at, nil
}

// parseDaily parses "hh.mm" into the equivalent cron expression "mm hh * * *".
func parseDaily(raw string) (string, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}

	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
