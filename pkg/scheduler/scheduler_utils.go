package scheduler

import (
	"fmt"

	"github.com/limaJavier/athletescheduling/pkg/model"

	"github.com/samber/lo"
)

func creditsWithinBounds(credits int, constraints model.ScheduleConstraints) bool {
	maxCredits, bounded := constraints.CreditCeiling()
	return credits >= constraints.MinCredits && (!bounded || credits <= maxCredits)
}

// creditConflicts applies the plain [min, max] rule: either bound broken is a blocking conflict
func (engine *engine) creditConflicts(credits int, constraints model.ScheduleConstraints) []model.Conflict {
	maxCredits, bounded := constraints.CreditCeiling()
	switch {
	case credits < constraints.MinCredits:
		shortfall := constraints.MinCredits - credits
		return []model.Conflict{{
			Type:        model.CreditLimit,
			Severity:    model.Critical,
			Message:     fmt.Sprintf("Total of %d credits is %d short of the %d-credit minimum", credits, shortfall, constraints.MinCredits),
			Courses:     []string{},
			Suggestions: []string{fmt.Sprintf("Add %d credits to reach the %d-credit minimum", shortfall, constraints.MinCredits)},
		}}
	case bounded && credits > maxCredits:
		excess := credits - maxCredits
		return []model.Conflict{{
			Type:        model.CreditLimit,
			Severity:    model.Critical,
			Message:     fmt.Sprintf("Total of %d credits exceeds the %d-credit maximum by %d", credits, maxCredits, excess),
			Courses:     []string{},
			Suggestions: []string{fmt.Sprintf("Drop %d credits or request overload approval", excess)},
		}}
	}
	return []model.Conflict{}
}

// creditReview applies the validation rule: a shortfall blocks, a moderate overload only warns and an
// overload beyond the approval threshold blocks
func (engine *engine) creditReview(credits int, constraints model.ScheduleConstraints) ([]model.Conflict, []model.Warning, []string) {
	maxCredits, bounded := constraints.CreditCeiling()
	if credits < constraints.MinCredits || !bounded || credits <= maxCredits {
		conflicts := engine.creditConflicts(credits, constraints)
		return conflicts, []model.Warning{}, lo.FlatMap(conflicts, func(conflict model.Conflict, _ int) []string { return conflict.Suggestions })
	}

	excess := credits - maxCredits
	suggestion := fmt.Sprintf("Drop %d credits or request overload approval", excess)
	if credits <= engine.options.OverloadCredits {
		return []model.Conflict{}, []model.Warning{{
			Type:    model.CreditOverload,
			Message: fmt.Sprintf("Total of %d credits exceeds the %d-credit maximum; loads up to %d credits are allowed as an overload", credits, maxCredits, engine.options.OverloadCredits),
		}}, []string{suggestion}
	}
	return []model.Conflict{{
		Type:        model.CreditLimit,
		Severity:    model.High,
		Message:     fmt.Sprintf("Total of %d credits exceeds the %d-credit overload limit and requires approval", credits, engine.options.OverloadCredits),
		Courses:     []string{},
		Suggestions: []string{suggestion},
	}}, []model.Warning{}, []string{}
}

func droppedWarnings(dropped []string) []model.Warning {
	return lo.Map(dropped, func(reference string, _ int) model.Warning {
		return model.Warning{
			Type:    model.DroppedInput,
			Message: fmt.Sprintf("Ignored %v", reference),
		}
	})
}
