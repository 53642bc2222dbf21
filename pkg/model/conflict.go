package model

import (
	"slices"

	"github.com/samber/lo"
)

type ConflictType string

const (
	TimeConflict        ConflictType = "TIME_CONFLICT"
	AthleticConflict    ConflictType = "ATHLETIC_CONFLICT"
	PrerequisiteMissing ConflictType = "PREREQUISITE_MISSING"
	CorequisiteMissing  ConflictType = "COREQUISITE_MISSING"
	CapacityFull        ConflictType = "CAPACITY_FULL"
	CreditLimit         ConflictType = "CREDITS"
	PreferenceViolation ConflictType = "PREFERENCE"
	Unscheduled         ConflictType = "UNSCHEDULED" // Placement stopped before reaching the course
)

type Severity string

const (
	Critical Severity = "CRITICAL"
	High     Severity = "HIGH"
	Medium   Severity = "MEDIUM"
	Low      Severity = "LOW"
)

// Rank orders severities, CRITICAL being the highest
func (severity Severity) Rank() int {
	switch severity {
	case Critical:
		return 4
	case High:
		return 3
	case Medium:
		return 2
	case Low:
		return 1
	}
	return 0
}

// Hard reports whether the severity must hold in any accepted solution
func (severity Severity) Hard() bool {
	return severity == Critical || severity == High
}

// Conflict is a derived finding over a proposed schedule; it is never stored as engine state
type Conflict struct {
	Type        ConflictType `json:"type"`
	Severity    Severity     `json:"severity"`
	Message     string       `json:"message"`
	Courses     []string     `json:"affectedCourseCodes"`
	Sections    []string     `json:"affectedSections,omitempty"`
	Suggestions []string     `json:"suggestions,omitempty"`
}

type WarningType string

const (
	HeavyLoad      WarningType = "HEAVY_LOAD"
	BusyDay        WarningType = "BUSY_DAY"
	CreditOverload WarningType = "CREDIT_OVERLOAD"
	DroppedInput   WarningType = "DROPPED_INPUT"
)

// Warning is a non-blocking observation
type Warning struct {
	Type    WarningType `json:"type"`
	Message string      `json:"message"`
	Courses []string    `json:"affectedCourseCodes,omitempty"`
}

func HasSeverity(conflicts []Conflict, severity Severity) bool {
	return lo.SomeBy(conflicts, func(conflict Conflict) bool { return conflict.Severity == severity })
}

func FilterByType(conflicts []Conflict, conflictType ConflictType) []Conflict {
	return lo.Filter(conflicts, func(conflict Conflict, _ int) bool { return conflict.Type == conflictType })
}

// SortConflicts orders by decreasing severity, keeping detection order among equals
func SortConflicts(conflicts []Conflict) {
	slices.SortStableFunc(conflicts, func(a, b Conflict) int {
		return b.Severity.Rank() - a.Severity.Rank()
	})
}
