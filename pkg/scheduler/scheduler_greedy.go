package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/limaJavier/athletescheduling/pkg/model"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

type greedyScheduler struct {
	*engine
}

// NewGreedyScheduler places courses one at a time, in request order, taking the first section that fits.
// It never revisits a choice, which makes it fast but unable to resolve conflicts a different ordering would avoid.
func NewGreedyScheduler(options Options, logger *zap.Logger) Scheduler {
	return &greedyScheduler{engine: newEngine(options, logger)}
}

func (scheduler *greedyScheduler) GenerateSchedule(ctx context.Context, courses []model.Course, constraints model.ScheduleConstraints) model.ScheduleResult {
	return scheduler.Generate(ctx, model.ScheduleRequest{Courses: courses, Constraints: constraints})
}

func (scheduler *greedyScheduler) Generate(ctx context.Context, request model.ScheduleRequest) model.ScheduleResult {
	return scheduler.generate(ctx, request, scheduler.place)
}

func (scheduler *greedyScheduler) place(ctx context.Context, request model.ScheduleRequest) proposal {
	// The model builder resolves candidates, duplicates and closed sections the same way for both strategies
	problem := scheduler.builder.Build(request.Courses, request.Constraints, request.Candidates)
	mandatory := request.Constraints.MandatoryCommitments()

	entries := make([]model.ScheduleEntry, 0, len(problem.Variables))
	conflicts := make([]model.Conflict, 0)

	for _, variable := range problem.Variables {
		if ctx.Err() != nil {
			conflict := unplacedConflict(variable.Course, model.Unscheduled, "was not placed before the request was cancelled")
			conflict.Suggestions = []string{fmt.Sprintf("Submit the request again to place %v", variable.Course.Code)}
			conflicts = append(conflicts, conflict)
			continue
		}

		sections := lo.FilterMap(variable.Domain, func(id string, _ int) (model.Section, bool) {
			return problem.Section(variable.Id, id)
		})
		open := lo.Filter(sections, func(section model.Section, _ int) bool { return section.Open() })
		athleticSafe := lo.Filter(open, func(section model.Section, _ int) bool {
			return !lo.SomeBy(mandatory, func(commitment model.AthleticCommitment) bool {
				return model.AnyOverlap(section.TimeSlots, commitment.TimeSlots)
			})
		})
		section, found := lo.Find(athleticSafe, func(section model.Section) bool {
			return !lo.SomeBy(entries, func(entry model.ScheduleEntry) bool {
				return model.AnyOverlap(section.TimeSlots, entry.Section.TimeSlots)
			})
		})

		switch {
		case found:
			entries = append(entries, model.ScheduleEntry{Course: variable.Course, Section: section})
		case len(open) == 0:
			conflicts = append(conflicts, unplacedConflict(variable.Course, model.CapacityFull, "has no open section"))
		case len(athleticSafe) == 0:
			conflicts = append(conflicts, unplacedConflict(variable.Course, model.AthleticConflict, "has no section clear of mandatory athletic commitments"))
		default:
			blocking := lo.FilterMap(entries, func(entry model.ScheduleEntry, _ int) (string, bool) {
				return entry.Course.Code, lo.SomeBy(athleticSafe, func(section model.Section) bool {
					return model.AnyOverlap(section.TimeSlots, entry.Section.TimeSlots)
				})
			})
			conflict := unplacedConflict(variable.Course, model.TimeConflict, "has every eligible section overlapping "+strings.Join(blocking, ", "))
			conflict.Courses = append(conflict.Courses, blocking...)
			conflicts = append(conflicts, conflict)
		}
	}

	scheduler.logger.Debug("greedy placement finished",
		zap.String("student", request.Constraints.StudentId),
		zap.Int("placed", len(entries)),
		zap.Int("unplaced", len(conflicts)),
	)

	return proposal{entries: entries, conflicts: conflicts, dropped: problem.Dropped}
}

func unplacedConflict(course model.Course, conflictType model.ConflictType, reason string) model.Conflict {
	return model.Conflict{
		Type:        conflictType,
		Severity:    model.Critical,
		Message:     fmt.Sprintf("%v %v and could not be scheduled", course.Code, reason),
		Courses:     []string{course.Code},
		Suggestions: []string{fmt.Sprintf("Consider %v in a later term or pick different courses", course.Code)},
	}
}
