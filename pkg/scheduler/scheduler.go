package scheduler

import (
	"context"
	"fmt"

	"github.com/limaJavier/athletescheduling/pkg/conflict"
	"github.com/limaJavier/athletescheduling/pkg/csp"
	"github.com/limaJavier/athletescheduling/pkg/model"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const DefaultOverloadCredits = 21

type Options struct {
	Detector        conflict.Options
	Build           csp.BuildOptions
	Solver          csp.Options
	OverloadCredits int // Credits above the ceiling up to this value only warn during validation
}

// Scheduler is the engine's contract surface. None of its operations fail with a Go error: input problems
// produce a failed result with a message and rule violations are reported as conflicts.
type Scheduler interface {
	GenerateSchedule(ctx context.Context, courses []model.Course, constraints model.ScheduleConstraints) model.ScheduleResult
	// Generate behaves like GenerateSchedule, additionally narrowing each course to the request's candidate sections
	Generate(ctx context.Context, request model.ScheduleRequest) model.ScheduleResult
	DetectConflicts(schedule []model.ScheduleEntry, constraints model.ScheduleConstraints) []model.Conflict
	ValidateSchedule(request model.ValidationRequest) model.ValidationResponse
}

// proposal is what a placement strategy hands back before the final detection pass
type proposal struct {
	entries   []model.ScheduleEntry
	conflicts []model.Conflict // Findings the detector cannot reproduce (unplaced courses, preferences)
	dropped   []string
	score     float64
}

type placement func(ctx context.Context, request model.ScheduleRequest) proposal

// engine holds what both strategies share: request validation, the detector and the validation rules
type engine struct {
	options  Options
	detector conflict.Detector
	builder  csp.Builder
	validate *validator.Validate
	logger   *zap.Logger
}

func newEngine(options Options, logger *zap.Logger) *engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.OverloadCredits <= 0 {
		options.OverloadCredits = DefaultOverloadCredits
	}
	validate, err := model.NewValidator()
	if err != nil {
		// Tag registration only fails on programming errors
		logger.Panic("cannot build request validator", zap.Error(err))
	}
	return &engine{
		options:  options,
		detector: conflict.NewDetector(options.Detector, logger),
		builder:  csp.NewBuilder(options.Build, logger),
		validate: validate,
		logger:   logger,
	}
}

type generateInput struct {
	Courses     []model.Course `validate:"dive"`
	Constraints model.ScheduleConstraints
}

func (engine *engine) generate(ctx context.Context, request model.ScheduleRequest, place placement) model.ScheduleResult {
	constraints := request.Constraints

	//** Reject unusable requests before any search
	if len(request.Courses) == 0 {
		return failedResult("No courses were requested", nil, 0)
	}
	if err := engine.validate.Struct(generateInput{Courses: request.Courses, Constraints: constraints}); err != nil {
		engine.logger.Debug("rejected schedule request", zap.String("student", constraints.StudentId), zap.Error(err))
		return failedResult(model.DescribeValidationError(err), nil, 0)
	}
	if credits := model.CourseCredits(lo.UniqBy(request.Courses, func(course model.Course) string { return course.Id })); !creditsWithinBounds(credits, constraints) {
		conflicts := engine.creditConflicts(credits, constraints)
		return failedResult(conflicts[0].Message, conflicts, 0)
	}

	//** Place sections
	proposal := place(ctx, request)

	//** Final check over the assembled schedule
	report := engine.detector.Detect(conflict.Input{
		StudentId:   constraints.StudentId,
		Entries:     proposal.entries,
		Commitments: constraints.AthleticCommitments,
		Completions: constraints.Completions,
	})
	totalCredits := model.TotalCredits(proposal.entries)

	conflicts := append(report.Conflicts, proposal.conflicts...)
	conflicts = append(conflicts, engine.creditConflicts(totalCredits, constraints)...)
	model.SortConflicts(conflicts)

	warnings := append(report.Warnings, droppedWarnings(proposal.dropped)...)
	if len(proposal.dropped) > 0 {
		engine.logger.Warn("dropped unresolvable references", zap.String("student", constraints.StudentId), zap.Strings("dropped", proposal.dropped))
	}

	success := !model.HasSeverity(conflicts, model.Critical)
	return model.ScheduleResult{
		Success:      success,
		Schedule:     proposal.entries,
		Conflicts:    conflicts,
		Warnings:     warnings,
		TotalCredits: totalCredits,
		Score:        proposal.score,
		Message:      resultMessage(success, proposal.entries, conflicts, totalCredits),
	}
}

func (engine *engine) DetectConflicts(schedule []model.ScheduleEntry, constraints model.ScheduleConstraints) []model.Conflict {
	report := engine.detector.Detect(conflict.Input{
		StudentId:   constraints.StudentId,
		Entries:     schedule,
		Commitments: constraints.AthleticCommitments,
		Completions: constraints.Completions,
	})
	return append(report.Conflicts, engine.creditConflicts(model.TotalCredits(schedule), constraints)...)
}

func (engine *engine) ValidateSchedule(request model.ValidationRequest) model.ValidationResponse {
	if err := engine.validate.Struct(request); err != nil {
		return model.ValidationResponse{
			IsValid:      false,
			Conflicts:    []model.Conflict{},
			Warnings:     []model.Warning{},
			TotalCredits: model.TotalCredits(request.Schedule),
			Suggestions:  []string{model.DescribeValidationError(err)},
		}
	}

	constraints := request.Constraints
	if request.StudentId != "" {
		constraints.StudentId = request.StudentId
	}
	report := engine.detector.Detect(conflict.Input{
		StudentId:   constraints.StudentId,
		Entries:     request.Schedule,
		Commitments: constraints.AthleticCommitments,
		Completions: constraints.Completions,
	})
	totalCredits := model.TotalCredits(request.Schedule)

	creditConflicts, creditWarnings, creditSuggestions := engine.creditReview(totalCredits, constraints)
	conflicts := append(report.Conflicts, creditConflicts...)
	model.SortConflicts(conflicts)
	warnings := append(report.Warnings, creditWarnings...)

	// Conflict suggestions first, in severity order, then credit advice
	suggestions := lo.Uniq(append(lo.FlatMap(conflicts, func(conflict model.Conflict, _ int) []string {
		return conflict.Suggestions
	}), creditSuggestions...))

	isValid := !model.HasSeverity(conflicts, model.Critical) && len(creditConflicts) == 0
	engine.logger.Debug("schedule validated",
		zap.String("student", constraints.StudentId),
		zap.Bool("valid", isValid),
		zap.Int("conflicts", len(conflicts)),
		zap.Int("credits", totalCredits),
	)

	return model.ValidationResponse{
		IsValid:      isValid,
		Conflicts:    conflicts,
		Warnings:     warnings,
		TotalCredits: totalCredits,
		Suggestions:  suggestions,
	}
}

func failedResult(message string, conflicts []model.Conflict, credits int) model.ScheduleResult {
	if conflicts == nil {
		conflicts = []model.Conflict{}
	}
	return model.ScheduleResult{
		Success:      false,
		Schedule:     []model.ScheduleEntry{},
		Conflicts:    conflicts,
		Warnings:     []model.Warning{},
		TotalCredits: credits,
		Message:      message,
	}
}

func resultMessage(success bool, entries []model.ScheduleEntry, conflicts []model.Conflict, credits int) string {
	if success {
		if len(conflicts) == 0 {
			return fmt.Sprintf("Scheduled %d courses (%d credits) without conflicts", len(entries), credits)
		}
		return fmt.Sprintf("Scheduled %d courses (%d credits) with %d non-blocking issues", len(entries), credits, len(conflicts))
	}
	critical := lo.CountBy(conflicts, func(conflict model.Conflict) bool { return conflict.Severity == model.Critical })
	return fmt.Sprintf("Best-effort schedule of %d courses (%d credits) has %d critical conflicts", len(entries), credits, critical)
}
