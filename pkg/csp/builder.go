package csp

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/limaJavier/athletescheduling/pkg/model"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	DefaultMorningCutoff = "10:00"
	DefaultEveningCutoff = "18:00"
)

type BuildOptions struct {
	IncludeClosed bool   // Keep full or closed sections in the domains
	MorningCutoff string // Sections starting earlier count as morning classes
	EveningCutoff string // Sections ending later count as evening classes
}

// Builder turns a request's courses and constraints into a CSP instance
type Builder interface {
	// Build creates one variable per course. candidates (course id -> section ids) optionally narrows each
	// domain; unknown courses or sections are dropped and recorded in Model.Dropped.
	Build(courses []model.Course, constraints model.ScheduleConstraints, candidates map[string][]string) *Model
}

type builder struct {
	options BuildOptions
	logger  *zap.Logger
}

func NewBuilder(options BuildOptions, logger *zap.Logger) Builder {
	if model.TimeToMinutes(options.MorningCutoff) < 0 {
		options.MorningCutoff = DefaultMorningCutoff
	}
	if model.TimeToMinutes(options.EveningCutoff) < 0 {
		options.EveningCutoff = DefaultEveningCutoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &builder{options: options, logger: logger}
}

type builderState struct {
	variables     []Variable
	constraints   model.ScheduleConstraints
	morningCutoff int
	eveningCutoff int
}

func (builder *builder) Build(courses []model.Course, constraints model.ScheduleConstraints, candidates map[string][]string) *Model {
	variables, dropped := builder.buildVariables(courses, candidates)

	state := builderState{
		variables:     variables,
		constraints:   constraints,
		morningCutoff: model.TimeToMinutes(builder.options.MorningCutoff),
		eveningCutoff: model.TimeToMinutes(builder.options.EveningCutoff),
	}

	// Constraints functions
	generators := []func(state builderState) []Constraint{
		timeConstraints,
		athleticConstraints,
		creditConstraints,
		preferenceConstraints,
	}

	// Run generators on different goroutines; each writes its own slot so the result order stays deterministic
	results := make([][]Constraint, len(generators))
	var wg sync.WaitGroup
	for i, generator := range generators {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = generator(state)
		}()
	}
	wg.Wait()

	problem := NewModel(variables, slices.Concat(results...))
	problem.Dropped = dropped

	builder.logger.Debug("csp model built",
		zap.String("student", constraints.StudentId),
		zap.Int("variables", len(variables)),
		zap.Int("constraints", len(problem.Constraints)),
		zap.Strings("dropped", dropped),
	)
	return problem
}

func (builder *builder) buildVariables(courses []model.Course, candidates map[string][]string) ([]Variable, []string) {
	variables := make([]Variable, 0, len(courses))
	dropped := make([]string, 0)
	seen := make(map[string]bool)

	for _, course := range courses {
		if seen[course.Id] {
			dropped = append(dropped, fmt.Sprintf("duplicate course %v", course.Id))
			continue
		}
		seen[course.Id] = true

		sections := course.Sections
		if ids, ok := candidates[course.Id]; ok {
			for _, id := range ids {
				if _, exists := course.Section(id); !exists {
					dropped = append(dropped, fmt.Sprintf("unknown section %v of course %v", id, course.Id))
				}
			}
			sections = lo.Filter(sections, func(section model.Section, _ int) bool { return lo.Contains(ids, section.Id) })
		}
		if !builder.options.IncludeClosed {
			sections = lo.Filter(sections, func(section model.Section, _ int) bool { return section.Open() })
		}

		variables = append(variables, Variable{
			Id:     course.Id,
			Course: course,
			Domain: lo.Map(sections, func(section model.Section, _ int) string { return section.Id }),
		})
	}

	// Candidates naming courses outside the request are dropped as well
	for _, courseId := range lo.Keys(candidates) {
		if !seen[courseId] {
			dropped = append(dropped, fmt.Sprintf("unknown course %v", courseId))
		}
	}
	slices.Sort(dropped)

	return variables, dropped
}

func timeConstraints(state builderState) []Constraint {
	constraints := make([]Constraint, 0)
	for i := 0; i < len(state.variables)-1; i++ {
		for j := i + 1; j < len(state.variables); j++ {
			variable1, variable2 := state.variables[i], state.variables[j]
			constraints = append(constraints, TimeConstraint{scope{
				variables:   []string{variable1.Id, variable2.Id},
				severity:    model.Critical,
				description: fmt.Sprintf("%v and %v must not meet at the same time", variable1.Course.Code, variable2.Course.Code),
			}})
		}
	}
	return constraints
}

func athleticConstraints(state builderState) []Constraint {
	constraints := make([]Constraint, 0)
	mandatory := state.constraints.MandatoryCommitments()
	if len(mandatory) == 0 {
		return constraints
	}
	for _, variable := range state.variables {
		for _, commitment := range mandatory {
			constraints = append(constraints, AthleticConstraint{
				scope: scope{
					variables:   []string{variable.Id},
					severity:    model.Critical,
					description: fmt.Sprintf("%v must not meet during mandatory %v", variable.Course.Code, commitment.Label()),
				},
				Commitments: []model.AthleticCommitment{commitment},
			})
		}
	}
	return constraints
}

func creditConstraints(state builderState) []Constraint {
	if len(state.variables) == 0 {
		return []Constraint{}
	}
	minCredits := state.constraints.MinCredits
	maxCredits, bounded := state.constraints.CreditCeiling()
	description := fmt.Sprintf("Total credits must be at least %d", minCredits)
	if bounded {
		description = fmt.Sprintf("Total credits must be between %d and %d", minCredits, maxCredits)
	}
	return []Constraint{CreditLimitConstraint{
		scope: scope{
			variables:   lo.Map(state.variables, func(variable Variable, _ int) string { return variable.Id }),
			severity:    model.High,
			description: description,
		},
		Min: minCredits,
		Max: maxCredits,
	}}
}

func preferenceConstraints(state builderState) []Constraint {
	preferences := state.constraints
	constraints := make([]Constraint, 0)
	if !preferences.HasPreferences() {
		return constraints
	}

	for _, variable := range state.variables {
		unary := func(description string) scope {
			return scope{variables: []string{variable.Id}, severity: model.Low, description: fmt.Sprintf("%v %v", variable.Course.Code, description)}
		}
		if len(preferences.PreferredDays) > 0 {
			days := strings.Join(lo.Map(preferences.PreferredDays, func(day model.Weekday, _ int) string { return string(day) }), "/")
			constraints = append(constraints, PreferredDaysConstraint{unary("should meet only on " + days), preferences.PreferredDays})
		}
		if len(preferences.PreferredTimeRanges) > 0 {
			windows := strings.Join(lo.Map(preferences.PreferredTimeRanges, func(window model.TimeRange, _ int) string {
				return window.Start + "-" + window.End
			}), ", ")
			constraints = append(constraints, PreferredTimesConstraint{unary("should meet within " + windows), preferences.PreferredTimeRanges})
		}
		if preferences.AvoidMornings {
			constraints = append(constraints, AvoidMorningsConstraint{unary("should not start before " + model.MinutesToTime(state.morningCutoff)), state.morningCutoff})
		}
		if preferences.AvoidEvenings {
			constraints = append(constraints, AvoidEveningsConstraint{unary("should not end after " + model.MinutesToTime(state.eveningCutoff)), state.eveningCutoff})
		}
	}

	if preferences.AvoidBackToBack {
		for i := 0; i < len(state.variables)-1; i++ {
			for j := i + 1; j < len(state.variables); j++ {
				variable1, variable2 := state.variables[i], state.variables[j]
				constraints = append(constraints, BackToBackConstraint{scope{
					variables:   []string{variable1.Id, variable2.Id},
					severity:    model.Low,
					description: fmt.Sprintf("%v and %v should not run back-to-back", variable1.Course.Code, variable2.Course.Code),
				}})
			}
		}
	}

	if preferences.MaxDailyHours > 0 && len(state.variables) > 0 {
		constraints = append(constraints, MaxDailyHoursConstraint{
			scope: scope{
				variables:   lo.Map(state.variables, func(variable Variable, _ int) string { return variable.Id }),
				severity:    model.Low,
				description: fmt.Sprintf("At most %.1f class hours per day", preferences.MaxDailyHours),
			},
			MaxHours: preferences.MaxDailyHours,
		})
	}

	return constraints
}
