package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ScheduleKind selects which balance age a step threshold applies to.
type ScheduleKind int

const (
	// ScheduleAge gates on days since the oldest open item became outstanding.
	ScheduleAge ScheduleKind = iota
	// SchedulePastDueAge gates on days since the oldest overdue component
	// passed its due date.
	SchedulePastDueAge
)

// Schedule is a parsed step predicate, "age:N" or "past_due_age:N". An empty
// schedule string parses to age:0, due as soon as any balance exists.
type Schedule struct {
	Kind ScheduleKind
	Days int
}

var ErrInvalidSchedule = errors.New("invalid_schedule")

// ParseSchedule parses the persisted schedule string form.
func ParseSchedule(raw string) (Schedule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Schedule{Kind: ScheduleAge, Days: 0}, nil
	}

	key, value, found := strings.Cut(raw, ":")
	if !found {
		return Schedule{}, fmt.Errorf("%w: %q", ErrInvalidSchedule, raw)
	}
	days, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || days < 0 {
		return Schedule{}, fmt.Errorf("%w: %q", ErrInvalidSchedule, raw)
	}

	switch strings.TrimSpace(key) {
	case "age":
		return Schedule{Kind: ScheduleAge, Days: days}, nil
	case "past_due_age":
		return Schedule{Kind: SchedulePastDueAge, Days: days}, nil
	default:
		return Schedule{}, fmt.Errorf("%w: %q", ErrInvalidSchedule, raw)
	}
}

// Due evaluates the predicate against a balance snapshot.
func (s Schedule) Due(balance AccountBalance) bool {
	switch s.Kind {
	case ScheduleAge:
		return balance.Age >= s.Days
	case SchedulePastDueAge:
		return balance.PastDueAge != nil && *balance.PastDueAge >= s.Days
	default:
		return false
	}
}

// String renders the persisted form.
func (s Schedule) String() string {
	if s.Kind == SchedulePastDueAge {
		return fmt.Sprintf("past_due_age:%d", s.Days)
	}
	return fmt.Sprintf("age:%d", s.Days)
}
