package model

import "github.com/samber/lo"

// ScheduleConstraints gathers every restriction and preference of a single scheduling request
type ScheduleConstraints struct {
	StudentId  string `json:"studentId,omitempty"`
	MinCredits int    `json:"minCredits" validate:"gte=0"`
	MaxCredits int    `json:"maxCredits" validate:"omitempty,gtefield=MinCredits"` // Zero means no ceiling

	AvoidMornings       bool        `json:"avoidMornings,omitempty"`
	AvoidEvenings       bool        `json:"avoidEvenings,omitempty"`
	AvoidBackToBack     bool        `json:"avoidBackToBack,omitempty"`
	MaxDailyHours       float64     `json:"maxDailyHours,omitempty" validate:"gte=0,lte=24"`
	PreferredDays       []Weekday   `json:"preferredDays,omitempty" validate:"dive,weekday"`
	PreferredTimeRanges []TimeRange `json:"preferredTimeRanges,omitempty" validate:"dive"`

	AthleticCommitments []AthleticCommitment `json:"athleticCommitments,omitempty" validate:"dive"`

	// Completions maps a course id to the course codes the student already completed towards it.
	// A nil map disables prerequisite checking.
	Completions map[string][]string `json:"completions,omitempty"`
}

func (constraints ScheduleConstraints) CreditCeiling() (int, bool) {
	return constraints.MaxCredits, constraints.MaxCredits > 0
}

func (constraints ScheduleConstraints) MandatoryCommitments() []AthleticCommitment {
	return lo.Filter(constraints.AthleticCommitments, func(commitment AthleticCommitment, _ int) bool {
		return commitment.Mandatory
	})
}

// HasPreferences reports whether any soft preference was requested
func (constraints ScheduleConstraints) HasPreferences() bool {
	return constraints.AvoidMornings ||
		constraints.AvoidEvenings ||
		constraints.AvoidBackToBack ||
		constraints.MaxDailyHours > 0 ||
		len(constraints.PreferredDays) > 0 ||
		len(constraints.PreferredTimeRanges) > 0
}
