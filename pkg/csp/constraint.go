package csp

import (
	"fmt"
	"strings"

	"github.com/limaJavier/athletescheduling/pkg/model"

	"github.com/samber/lo"
)

type Kind string

const (
	KindTime           Kind = "TIME"
	KindAthletic       Kind = "ATHLETIC"
	KindCreditLimit    Kind = "CREDIT_LIMIT"
	KindPreferredDays  Kind = "PREFERRED_DAYS"
	KindPreferredTimes Kind = "PREFERRED_TIMES"
	KindAvoidMornings  Kind = "AVOID_MORNINGS"
	KindAvoidEvenings  Kind = "AVOID_EVENINGS"
	KindBackToBack     Kind = "BACK_TO_BACK"
	KindMaxDailyHours  Kind = "MAX_DAILY_HOURS"
)

// Constraint is a closed set of variants; each carries only the data its predicate needs.
//
// Satisfied must treat unbound variables the same way the permutation generators treat unset attributes:
// a predicate that cannot be evaluated yet holds. Global constraints evaluate whatever part of their
// scope is already bound, which keeps them monotone for pruning.
type Constraint interface {
	Kind() Kind
	Variables() []string
	Severity() model.Severity
	Description() string
	Satisfied(assignment Assignment, problem *Model) bool

	sealed()
}

type scope struct {
	variables   []string
	severity    model.Severity
	description string
}

func (scope scope) Variables() []string { return scope.variables }
func (scope scope) Severity() model.Severity { return scope.severity }
func (scope scope) Description() string { return scope.description }
func (scope) sealed() {}

// Binary: the two sections must not share any minute
type TimeConstraint struct{ scope }

func (TimeConstraint) Kind() Kind { return KindTime }

func (constraint TimeConstraint) Satisfied(assignment Assignment, problem *Model) bool {
	section1, ok1 := problem.Assigned(assignment, constraint.variables[0])
	section2, ok2 := problem.Assigned(assignment, constraint.variables[1])
	return !ok1 || !ok2 || !model.AnyOverlap(section1.TimeSlots, section2.TimeSlots)
}

// Unary: the section must not meet during any of the (mandatory) commitments
type AthleticConstraint struct {
	scope
	Commitments []model.AthleticCommitment
}

func (AthleticConstraint) Kind() Kind { return KindAthletic }

func (constraint AthleticConstraint) Satisfied(assignment Assignment, problem *Model) bool {
	section, ok := problem.Assigned(assignment, constraint.variables[0])
	return !ok || !lo.SomeBy(constraint.Commitments, func(commitment model.AthleticCommitment) bool {
		return model.AnyOverlap(section.TimeSlots, commitment.TimeSlots)
	})
}

// Global: assigned credits must lie in [Min, Max]. The ceiling is checked on every partial assignment,
// the floor only once every variable is bound. Max <= 0 disables the ceiling.
type CreditLimitConstraint struct {
	scope
	Min, Max int
}

func (CreditLimitConstraint) Kind() Kind { return KindCreditLimit }

func (constraint CreditLimitConstraint) Satisfied(assignment Assignment, problem *Model) bool {
	credits, bound := 0, 0
	for _, variable := range constraint.variables {
		if _, ok := assignment[variable]; ok {
			credits += problem.Credits(variable)
			bound++
		}
	}
	if constraint.Max > 0 && credits > constraint.Max {
		return false
	}
	return bound < len(constraint.variables) || credits >= constraint.Min
}

// Unary: every meeting must fall on one of the preferred days
type PreferredDaysConstraint struct {
	scope
	Days []model.Weekday
}

func (PreferredDaysConstraint) Kind() Kind { return KindPreferredDays }

func (constraint PreferredDaysConstraint) Satisfied(assignment Assignment, problem *Model) bool {
	section, ok := problem.Assigned(assignment, constraint.variables[0])
	return !ok || lo.EveryBy(section.TimeSlots, func(slot model.TimeSlot) bool {
		return lo.Contains(constraint.Days, slot.Day)
	})
}

// Unary: every meeting must fit inside one of the preferred windows
type PreferredTimesConstraint struct {
	scope
	Ranges []model.TimeRange
}

func (PreferredTimesConstraint) Kind() Kind { return KindPreferredTimes }

func (constraint PreferredTimesConstraint) Satisfied(assignment Assignment, problem *Model) bool {
	section, ok := problem.Assigned(assignment, constraint.variables[0])
	return !ok || lo.EveryBy(section.TimeSlots, func(slot model.TimeSlot) bool {
		return lo.SomeBy(constraint.Ranges, func(window model.TimeRange) bool { return model.WithinRange(slot, window) })
	})
}

// Unary: no meeting may start before Cutoff (minute of day)
type AvoidMorningsConstraint struct {
	scope
	Cutoff int
}

func (AvoidMorningsConstraint) Kind() Kind { return KindAvoidMornings }

func (constraint AvoidMorningsConstraint) Satisfied(assignment Assignment, problem *Model) bool {
	section, ok := problem.Assigned(assignment, constraint.variables[0])
	return !ok || lo.EveryBy(section.TimeSlots, func(slot model.TimeSlot) bool { return slot.StartMinutes() >= constraint.Cutoff })
}

// Unary: no meeting may end after Cutoff (minute of day)
type AvoidEveningsConstraint struct {
	scope
	Cutoff int
}

func (AvoidEveningsConstraint) Kind() Kind { return KindAvoidEvenings }

func (constraint AvoidEveningsConstraint) Satisfied(assignment Assignment, problem *Model) bool {
	section, ok := problem.Assigned(assignment, constraint.variables[0])
	return !ok || lo.EveryBy(section.TimeSlots, func(slot model.TimeSlot) bool { return slot.EndMinutes() <= constraint.Cutoff })
}

// Binary: the two sections must not run back-to-back
type BackToBackConstraint struct{ scope }

func (BackToBackConstraint) Kind() Kind { return KindBackToBack }

func (constraint BackToBackConstraint) Satisfied(assignment Assignment, problem *Model) bool {
	section1, ok1 := problem.Assigned(assignment, constraint.variables[0])
	section2, ok2 := problem.Assigned(assignment, constraint.variables[1])
	return !ok1 || !ok2 || !model.AnyBackToBack(section1.TimeSlots, section2.TimeSlots)
}

// Global: class hours per day must not exceed MaxHours
type MaxDailyHoursConstraint struct {
	scope
	MaxHours float64
}

func (MaxDailyHoursConstraint) Kind() Kind { return KindMaxDailyHours }

func (constraint MaxDailyHoursConstraint) Satisfied(assignment Assignment, problem *Model) bool {
	slots := make([]model.TimeSlot, 0)
	for _, variable := range constraint.variables {
		if section, ok := problem.Assigned(assignment, variable); ok {
			slots = append(slots, section.TimeSlots...)
		}
	}
	for _, daySlots := range model.GroupByDay(slots) {
		if model.WeeklyHours(daySlots) > constraint.MaxHours {
			return false
		}
	}
	return true
}

// ConflictType maps a constraint kind onto the conflict vocabulary shared with the detector
func ConflictType(kind Kind) model.ConflictType {
	switch kind {
	case KindTime:
		return model.TimeConflict
	case KindAthletic:
		return model.AthleticConflict
	case KindCreditLimit:
		return model.CreditLimit
	}
	return model.PreferenceViolation
}

// ToConflict describes a violated constraint under the given assignment
func ToConflict(constraint Constraint, assignment Assignment, problem *Model) model.Conflict {
	bound := lo.Filter(constraint.Variables(), func(variable string, _ int) bool {
		_, ok := assignment[variable]
		return ok
	})
	codes := lo.Map(bound, func(variable string, _ int) string { return problem.Code(variable) })
	sections := lo.Map(bound, func(variable string, _ int) string { return assignment[variable] })

	// Unary and binary constraints name the sections involved; global ones are described as a whole
	message := constraint.Description()
	if len(constraint.Variables()) <= 2 && len(codes) > 0 {
		message = fmt.Sprintf("%v: %v", message, strings.Join(lo.Map(bound, func(variable string, i int) string {
			return fmt.Sprintf("%v section %v", codes[i], sections[i])
		}), ", "))
	}
	return model.Conflict{
		Type:     ConflictType(constraint.Kind()),
		Severity: constraint.Severity(),
		Message:  message,
		Courses:  codes,
		Sections: sections,
	}
}
