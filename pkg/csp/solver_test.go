package csp

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/limaJavier/athletescheduling/pkg/model"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solve(t *testing.T, options Options, courses []model.Course, constraints model.ScheduleConstraints) (*Model, Solution) {
	t.Helper()
	problem := NewBuilder(BuildOptions{}, nil).Build(courses, constraints, nil)
	return problem, NewBacktrackingSolver(options, nil).Solve(context.Background(), problem)
}

func TestSolveFeasible(t *testing.T) {
	t.Run("Most constrained course is placed first", func(t *testing.T) {
		//** Arrange
		courses := []model.Course{
			course("A", 3, section("1", slot(model.Monday, "09:00", "10:00")), section("2", slot(model.Tuesday, "09:00", "10:00"))),
			course("B", 3, section("1", slot(model.Monday, "09:00", "10:00"))),
		}

		//** Act
		_, solution := solve(t, Options{}, courses, model.ScheduleConstraints{MinCredits: 3, MaxCredits: 18})

		//** Assert
		assert.Equal(t, Complete, solution.State)
		assert.True(t, solution.IsValid)
		assert.Equal(t, Assignment{"A": "2", "B": "1"}, solution.Assignment)
		assert.Empty(t, solution.Conflicts)
		assert.False(t, solution.Exhausted)
	})

	t.Run("Mandatory athletic blocks are never selected", func(t *testing.T) {
		courses := []model.Course{
			course("BIO110", 4, section("1", slot(model.Tuesday, "15:00", "16:30")), section("2", slot(model.Wednesday, "15:00", "16:30"))),
		}
		constraints := model.ScheduleConstraints{AthleticCommitments: []model.AthleticCommitment{
			{Type: model.Practice, Mandatory: true, TimeSlots: []model.TimeSlot{slot(model.Tuesday, "15:30", "18:00")}},
		}}

		_, solution := solve(t, Options{}, courses, constraints)

		assert.True(t, solution.IsValid)
		assert.Equal(t, "2", solution.Assignment["BIO110"])
	})

	t.Run("Optional athletic blocks do not constrain the search", func(t *testing.T) {
		courses := []model.Course{
			course("BIO110", 4, section("1", slot(model.Tuesday, "15:00", "16:30"))),
		}
		constraints := model.ScheduleConstraints{AthleticCommitments: []model.AthleticCommitment{
			{Type: model.Meeting, Priority: 4, TimeSlots: []model.TimeSlot{slot(model.Tuesday, "15:30", "18:00")}},
		}}

		_, solution := solve(t, Options{}, courses, constraints)

		assert.True(t, solution.IsValid)
		assert.Equal(t, "1", solution.Assignment["BIO110"])
	})
}

func TestSolvePreferences(t *testing.T) {
	courses := []model.Course{
		course("A", 3, section("1", slot(model.Monday, "08:00", "09:00")), section("2", slot(model.Monday, "11:00", "12:00"))),
		course("B", 3, section("1", slot(model.Monday, "12:00", "13:00")), section("2", slot(model.Thursday, "12:00", "13:00"))),
	}

	t.Run("Least constraining values win", func(t *testing.T) {
		g := NewWithT(t)

		_, solution := solve(t, Options{}, courses, model.ScheduleConstraints{AvoidMornings: true, AvoidBackToBack: true})

		g.Expect(solution.IsValid).To(BeTrue())
		g.Expect(solution.Assignment).To(Equal(Assignment{"A": "2", "B": "2"}))
		g.Expect(solution.Violated).To(BeEmpty())
	})

	t.Run("Soft violations never invalidate", func(t *testing.T) {
		g := NewWithT(t)

		_, solution := solve(t, Options{}, courses, model.ScheduleConstraints{PreferredDays: []model.Weekday{model.Friday}})

		g.Expect(solution.IsValid).To(BeTrue())
		g.Expect(solution.State).To(Equal(Complete))
		g.Expect(solution.Conflicts).To(HaveLen(2))
		g.Expect(solution.Conflicts).To(HaveEach(And(
			HaveField("Type", model.PreferenceViolation),
			HaveField("Severity", model.Low),
		)))
		g.Expect(solution.Score).To(BeNumerically("<", 100))
	})

	t.Run("Slack raises the score of flexible schedules", func(t *testing.T) {
		g := NewWithT(t)

		_, flexible := solve(t, Options{}, courses, model.ScheduleConstraints{})
		_, rigid := solve(t, Options{}, []model.Course{
			course("A", 3, section("2", slot(model.Monday, "11:00", "12:00"))),
			course("B", 3, section("2", slot(model.Thursday, "12:00", "13:00"))),
		}, model.ScheduleConstraints{})

		g.Expect(flexible.Score).To(BeNumerically(">", rigid.Score))
		g.Expect(rigid.Score).To(BeNumerically("==", 100))
	})

	t.Run("Fewer violations outrank flexibility", func(t *testing.T) {
		g := NewWithT(t)
		// x1 keeps every section of Y open but sits back-to-back with all of them; x2 leaves only the early one
		crowded := make([]model.Section, 0)
		for i := range 12 {
			crowded = append(crowded, section(fmt.Sprintf("s%02d", i), slot(model.Monday, "10:00", "11:00")))
		}
		crowded = append(crowded, section("early", slot(model.Monday, "08:00", "09:00")))

		_, solution := solve(t, Options{}, []model.Course{
			course("X", 3, section("x1", slot(model.Monday, "09:00", "10:00")), section("x2", slot(model.Monday, "10:00", "11:00"))),
			course("Y", 3, crowded...),
		}, model.ScheduleConstraints{AvoidBackToBack: true})

		g.Expect(solution.State).To(Equal(Complete))
		g.Expect(solution.Assignment).To(Equal(Assignment{"X": "x2", "Y": "early"}))
		g.Expect(solution.Violated).To(BeEmpty())
		g.Expect(solution.Conflicts).To(BeEmpty())
		g.Expect(solution.Score).To(BeNumerically(">=", 100))
	})

	t.Run("Slack bonus stays below one preference", func(t *testing.T) {
		for _, slack := range []float64{0, 1, 12, 1e6} {
			assert.Less(t, slackBonus(slack), penalties[model.Low], slack)
		}
	})
}

func TestSolveDegraded(t *testing.T) {
	t.Run("Overlapping single-section courses", func(t *testing.T) {
		//** Arrange
		courses := []model.Course{
			course("A", 3, section("A1", slot(model.Monday, "09:00", "10:00"))),
			course("B", 4, section("B1", slot(model.Monday, "09:00", "10:00"))),
			course("C", 3, section("C1", slot(model.Wednesday, "14:00", "15:00"))),
		}

		//** Act
		_, solution := solve(t, Options{}, courses, model.ScheduleConstraints{MinCredits: 3, MaxCredits: 18})

		//** Assert
		assert.False(t, solution.IsValid)
		assert.Equal(t, Failed, solution.State)
		assert.Equal(t, Assignment{"A": "A1", "B": "B1", "C": "C1"}, solution.Assignment)
		require.Len(t, solution.Conflicts, 1)
		assert.Equal(t, model.TimeConflict, solution.Conflicts[0].Type)
		assert.Equal(t, model.Critical, solution.Conflicts[0].Severity)
		assert.Equal(t, []string{"A", "B"}, solution.Conflicts[0].Courses)
	})

	t.Run("Credit ceiling cannot be met", func(t *testing.T) {
		courses := []model.Course{
			course("A", 4, section("1", slot(model.Monday, "09:00", "10:00"))),
			course("B", 4, section("1", slot(model.Tuesday, "09:00", "10:00"))),
		}

		_, solution := solve(t, Options{}, courses, model.ScheduleConstraints{MaxCredits: 6})

		assert.False(t, solution.IsValid)
		assert.Len(t, solution.Assignment, 2)
		require.Len(t, solution.Conflicts, 1)
		assert.Equal(t, model.CreditLimit, solution.Conflicts[0].Type)
		assert.Equal(t, model.High, solution.Conflicts[0].Severity)
	})

	t.Run("Lowest violated weight is preferred", func(t *testing.T) {
		// B2 collides with both A and C, B1 only with A
		courses := []model.Course{
			course("A", 3, section("1", slot(model.Monday, "09:00", "10:00"))),
			course("B", 3, section("2", slot(model.Monday, "09:00", "11:00")), section("1", slot(model.Monday, "09:30", "10:00"))),
			course("C", 3, section("1", slot(model.Monday, "10:00", "11:00"))),
		}

		_, solution := solve(t, Options{}, courses, model.ScheduleConstraints{})

		assert.False(t, solution.IsValid)
		assert.Equal(t, "1", solution.Assignment["B"])
		assert.Len(t, model.FilterByType(solution.Conflicts, model.TimeConflict), 1)
	})

	t.Run("Courses without usable sections are reported", func(t *testing.T) {
		closed := section("1", slot(model.Friday, "09:00", "10:00"))
		closed.Closed = true
		courses := []model.Course{
			course("BIO110", 4, section("1", slot(model.Tuesday, "15:00", "16:30"))),
			course("ART100", 3, closed),
			course("ENG101", 3, section("1", slot(model.Thursday, "09:00", "10:00"))),
		}
		constraints := model.ScheduleConstraints{AthleticCommitments: []model.AthleticCommitment{
			{Type: model.Game, Title: "Away game", Mandatory: true, TimeSlots: []model.TimeSlot{slot(model.Tuesday, "12:00", "22:00")}},
		}}

		_, solution := solve(t, Options{}, courses, constraints)

		assert.False(t, solution.IsValid)
		assert.Equal(t, []string{"BIO110", "ART100"}, solution.Unassignable)
		assert.Equal(t, Assignment{"ENG101": "1"}, solution.Assignment)
		assert.Equal(t, []model.ConflictType{model.AthleticConflict, model.CapacityFull}, []model.ConflictType{
			solution.Conflicts[0].Type, solution.Conflicts[1].Type,
		})
	})

	t.Run("Nothing assignable", func(t *testing.T) {
		closed := section("1", slot(model.Friday, "09:00", "10:00"))
		closed.Closed = true

		_, solution := solve(t, Options{}, []model.Course{course("ART100", 3, closed)}, model.ScheduleConstraints{})

		assert.Equal(t, Unassigned, solution.State)
		assert.Empty(t, solution.Assignment)
		assert.Len(t, solution.Conflicts, 1)
	})
}

// chain builds n courses, each with sections on every weekday at the same hour, so that only
// distinct-day assignments are conflict free
func chain(n int) []model.Course {
	courses := make([]model.Course, 0, n)
	for i := range n {
		sections := make([]model.Section, 0, len(model.Weekdays))
		for _, day := range model.Weekdays {
			sections = append(sections, section(string(day), slot(day, "09:00", "10:00")))
		}
		courses = append(courses, course(fmt.Sprintf("C%02d", i), 3, sections...))
	}
	return courses
}

func TestSolveBudget(t *testing.T) {
	t.Run("Node cap yields a best-effort proposal", func(t *testing.T) {
		g := NewWithT(t)
		// Binding A to its first section leaves C without a free day; only A=TUE, B=MON, C=WED is clean
		courses := []model.Course{
			course("A", 3, section("1", slot(model.Monday, "09:00", "10:00")), section("2", slot(model.Tuesday, "09:00", "10:00"))),
			course("B", 3, section("1", slot(model.Monday, "09:00", "10:00")), section("2", slot(model.Wednesday, "09:00", "10:00"))),
			course("C", 3, section("1", slot(model.Wednesday, "09:00", "10:00")), section("2", slot(model.Monday, "09:00", "10:00"))),
		}

		_, solution := solve(t, Options{MaxNodes: 1}, courses, model.ScheduleConstraints{})

		g.Expect(solution.Exhausted).To(BeTrue())
		g.Expect(solution.State).To(Equal(Partial))
		g.Expect(solution.IsValid).To(BeFalse())
		g.Expect(solution.Assignment).To(HaveLen(3))
		g.Expect(solution.Conflicts).To(ConsistOf(HaveField("Type", model.TimeConflict)))

		_, unbounded := solve(t, Options{}, courses, model.ScheduleConstraints{})
		g.Expect(unbounded.IsValid).To(BeTrue())
		g.Expect(unbounded.Assignment).To(Equal(Assignment{"A": "2", "B": "1", "C": "1"}))
	})

	t.Run("Cancelled context stops the search", func(t *testing.T) {
		g := NewWithT(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		problem := NewBuilder(BuildOptions{}, nil).Build(chain(4), model.ScheduleConstraints{}, nil)

		solution := NewBacktrackingSolver(Options{Timeout: time.Minute}, nil).Solve(ctx, problem)

		g.Expect(solution.Exhausted).To(BeTrue())
		g.Expect(solution.Assignment).To(HaveLen(4))
		// The greedy completion happens to be clean on this instance
		g.Expect(solution.State).To(Equal(Complete))
		g.Expect(solution.IsValid).To(BeTrue())
	})

	t.Run("Pigeonhole instance is refuted before search", func(t *testing.T) {
		g := NewWithT(t)

		problem, solution := solve(t, Options{}, chain(8), model.ScheduleConstraints{})

		g.Expect(solution.IsValid).To(BeFalse())
		g.Expect(solution.State).To(Equal(Failed))
		g.Expect(solution.Exhausted).To(BeFalse())
		g.Expect(solution.Ranked).To(BeZero())
		g.Expect(solution.Assignment).To(HaveLen(len(problem.Variables)))
		g.Expect(model.FilterByType(solution.Conflicts, model.TimeConflict)).To(HaveLen(1))
	})
}

func TestSolveIsDeterministic(t *testing.T) {
	courses := chain(6)
	constraints := model.ScheduleConstraints{AvoidBackToBack: true, PreferredDays: []model.Weekday{model.Monday, model.Wednesday, model.Friday}}

	_, first := solve(t, Options{}, courses, constraints)
	_, second := solve(t, Options{}, courses, constraints)

	assert.Equal(t, first.Assignment, second.Assignment)
	assert.Equal(t, first.Conflicts, second.Conflicts)
	assert.Equal(t, first.Score, second.Score)
}

func TestPatternMatching(t *testing.T) {
	courses := []model.Course{
		course("A", 3, section("1", slot(model.Monday, "09:00", "10:00"), slot(model.Wednesday, "09:00", "10:00"))),
		course("B", 3, section("1", slot(model.Wednesday, "09:00", "10:00"), slot(model.Monday, "09:00", "10:00"))),
		course("C", 3, section("1")),
	}
	problem := NewBuilder(BuildOptions{}, nil).Build(courses, model.ScheduleConstraints{}, nil)
	domains := map[string][]string{"A": {"1"}, "B": {"1"}, "C": {"1"}}

	covers, err := patternMatchingCovers(problem, domains)

	require.NoError(t, err)
	assert.False(t, covers)

	t.Run("Distinct patterns", func(t *testing.T) {
		problem := NewBuilder(BuildOptions{}, nil).Build(courses[:1], model.ScheduleConstraints{}, nil)

		covers, err := patternMatchingCovers(problem, domains)

		require.NoError(t, err)
		assert.True(t, covers)
	})
}
