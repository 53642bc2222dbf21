package csp

import (
	"testing"

	"github.com/limaJavier/athletescheduling/pkg/model"

	. "github.com/onsi/gomega"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(day model.Weekday, start, end string) model.TimeSlot {
	return model.TimeSlot{Day: day, Start: start, End: end}
}

func section(id string, slots ...model.TimeSlot) model.Section {
	return model.Section{Id: id, Capacity: 30, Enrolled: 10, TimeSlots: slots}
}

func course(id string, credits int, sections ...model.Section) model.Course {
	for i := range sections {
		sections[i].CourseId = id
	}
	return model.Course{Id: id, Code: id, Credits: credits, Sections: sections}
}

func kinds(constraints []Constraint) map[Kind]int {
	return lo.CountValuesBy(constraints, func(constraint Constraint) Kind { return constraint.Kind() })
}

func TestBuildVariables(t *testing.T) {
	//** Arrange
	full := section("2", slot(model.Tuesday, "09:00", "10:00"))
	full.Enrolled = full.Capacity
	closed := section("3", slot(model.Wednesday, "09:00", "10:00"))
	closed.Closed = true
	courses := []model.Course{
		course("MATH101", 3, section("1", slot(model.Monday, "09:00", "10:00")), full, closed),
		course("HIST201", 3, section("A", slot(model.Monday, "11:00", "12:00")), section("B", slot(model.Friday, "11:00", "12:00"))),
		course("MATH101", 3),
	}
	candidates := map[string][]string{
		"HIST201": {"B", "Z"},
		"CHEM999": {"1"},
	}

	//** Act
	problem := NewBuilder(BuildOptions{}, nil).Build(courses, model.ScheduleConstraints{MinCredits: 3, MaxCredits: 18}, candidates)

	//** Assert
	require.Len(t, problem.Variables, 2)
	assert.Equal(t, []string{"1"}, problem.Variables[0].Domain)
	assert.Equal(t, []string{"B"}, problem.Variables[1].Domain)
	assert.Equal(t, []string{
		"duplicate course MATH101",
		"unknown course CHEM999",
		"unknown section Z of course HIST201",
	}, problem.Dropped)

	t.Run("Closed sections kept on request", func(t *testing.T) {
		problem := NewBuilder(BuildOptions{IncludeClosed: true}, nil).Build(courses[:1], model.ScheduleConstraints{}, nil)

		assert.Equal(t, []string{"1", "2", "3"}, problem.Variables[0].Domain)
	})
}

func TestBuildConstraints(t *testing.T) {
	courses := []model.Course{
		course("A", 3, section("1", slot(model.Monday, "09:00", "10:00"))),
		course("B", 3, section("1", slot(model.Tuesday, "09:00", "10:00"))),
		course("C", 4, section("1", slot(model.Wednesday, "09:00", "10:00"))),
	}
	commitments := []model.AthleticCommitment{
		{Type: model.Practice, Mandatory: true, TimeSlots: []model.TimeSlot{slot(model.Monday, "15:00", "17:00")}},
		{Type: model.Meeting, TimeSlots: []model.TimeSlot{slot(model.Friday, "08:00", "09:00")}},
	}

	t.Run("Hard constraints only", func(t *testing.T) {
		g := NewWithT(t)

		problem := NewBuilder(BuildOptions{}, nil).Build(courses, model.ScheduleConstraints{
			MinCredits:          6,
			MaxCredits:          12,
			AthleticCommitments: commitments,
		}, nil)

		g.Expect(kinds(problem.Constraints)).To(Equal(map[Kind]int{
			KindTime:        3,
			KindAthletic:    3,
			KindCreditLimit: 1,
		}))
		g.Expect(problem.Constraints).To(HaveEach(WithTransform(func(constraint Constraint) bool {
			return constraint.Severity().Hard()
		}, BeTrue())))
		g.Expect(problem.ConstraintsOn("A")).To(HaveLen(2 + 1 + 1))
	})

	t.Run("Preferences are soft", func(t *testing.T) {
		g := NewWithT(t)

		problem := NewBuilder(BuildOptions{}, nil).Build(courses, model.ScheduleConstraints{
			AvoidMornings:       true,
			AvoidEvenings:       true,
			AvoidBackToBack:     true,
			MaxDailyHours:       4,
			PreferredDays:       []model.Weekday{model.Monday, model.Wednesday},
			PreferredTimeRanges: []model.TimeRange{{Start: "10:00", End: "16:00"}},
		}, nil)

		soft := lo.Filter(problem.Constraints, func(constraint Constraint, _ int) bool { return !constraint.Severity().Hard() })
		g.Expect(soft).To(HaveEach(WithTransform(func(constraint Constraint) model.Severity { return constraint.Severity() }, Equal(model.Low))))
		g.Expect(kinds(soft)).To(Equal(map[Kind]int{
			KindPreferredDays:  3,
			KindPreferredTimes: 3,
			KindAvoidMornings:  3,
			KindAvoidEvenings:  3,
			KindBackToBack:     3,
			KindMaxDailyHours:  1,
		}))
	})

	t.Run("Empty preferences add nothing", func(t *testing.T) {
		constraints := model.ScheduleConstraints{PreferredDays: []model.Weekday{}, AthleticCommitments: commitments}
		require.False(t, constraints.HasPreferences())

		problem := NewBuilder(BuildOptions{}, nil).Build(courses, constraints, nil)

		assert.Empty(t, preferenceConstraints(builderState{constraints: constraints, variables: problem.Variables}))
		assert.True(t, lo.EveryBy(problem.Constraints, func(constraint Constraint) bool { return constraint.Severity().Hard() }))
	})
}

func TestConstraintPredicates(t *testing.T) {
	courses := []model.Course{
		course("A", 4, section("1", slot(model.Monday, "08:00", "09:00")), section("2", slot(model.Monday, "10:00", "11:00"))),
		course("B", 4, section("1", slot(model.Monday, "09:00", "10:00")), section("2", slot(model.Monday, "08:30", "09:30"))),
	}
	problem := NewBuilder(BuildOptions{}, nil).Build(courses, model.ScheduleConstraints{MinCredits: 8, MaxCredits: 8, AvoidBackToBack: true, AvoidMornings: true}, nil)
	find := func(kind Kind) Constraint {
		constraint, ok := lo.Find(problem.Constraints, func(constraint Constraint) bool { return constraint.Kind() == kind })
		require.True(t, ok)
		return constraint
	}

	t.Run("Unbound variables satisfy every predicate", func(t *testing.T) {
		for _, constraint := range problem.Constraints {
			if constraint.Kind() == KindCreditLimit {
				continue
			}
			assert.True(t, constraint.Satisfied(Assignment{}, problem), constraint.Description())
		}
	})

	t.Run("Time", func(t *testing.T) {
		assert.False(t, find(KindTime).Satisfied(Assignment{"A": "1", "B": "2"}, problem))
		assert.True(t, find(KindTime).Satisfied(Assignment{"A": "1", "B": "1"}, problem))
	})

	t.Run("Back to back", func(t *testing.T) {
		assert.False(t, find(KindBackToBack).Satisfied(Assignment{"A": "1", "B": "1"}, problem))
		assert.False(t, find(KindBackToBack).Satisfied(Assignment{"A": "2", "B": "1"}, problem))
		assert.True(t, find(KindBackToBack).Satisfied(Assignment{"A": "2", "B": "2"}, problem))
	})

	t.Run("Mornings", func(t *testing.T) {
		assert.False(t, find(KindAvoidMornings).Satisfied(Assignment{"A": "1"}, problem))
		assert.True(t, find(KindAvoidMornings).Satisfied(Assignment{"A": "2"}, problem))
	})

	t.Run("Credit floor waits for a complete assignment", func(t *testing.T) {
		credits := find(KindCreditLimit)
		assert.True(t, credits.Satisfied(Assignment{"A": "1"}, problem))
		assert.True(t, credits.Satisfied(Assignment{"A": "1", "B": "1"}, problem))

		ceiling := CreditLimitConstraint{scope: scope{variables: []string{"A", "B"}, severity: model.High}, Min: 0, Max: 6}
		assert.True(t, ceiling.Satisfied(Assignment{"A": "1"}, problem))
		assert.False(t, ceiling.Satisfied(Assignment{"A": "1", "B": "1"}, problem))

		floor := CreditLimitConstraint{scope: scope{variables: []string{"A", "B"}, severity: model.High}, Min: 12}
		assert.False(t, floor.Satisfied(Assignment{"A": "1", "B": "1"}, problem))
	})

	t.Run("Conflict conversion", func(t *testing.T) {
		conflict := ToConflict(find(KindTime), Assignment{"A": "1", "B": "2"}, problem)

		assert.Equal(t, model.TimeConflict, conflict.Type)
		assert.Equal(t, model.Critical, conflict.Severity)
		assert.Equal(t, []string{"A", "B"}, conflict.Courses)
		assert.Equal(t, []string{"1", "2"}, conflict.Sections)
		assert.Contains(t, conflict.Message, "A section 1, B section 2")
	})
}
