package scheduler

import (
	"context"

	"github.com/limaJavier/athletescheduling/pkg/csp"
	"github.com/limaJavier/athletescheduling/pkg/model"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

type cspScheduler struct {
	*engine
	solver csp.Solver
}

// NewCSPScheduler searches the whole section space for the best conflict-free assignment and falls back to
// the least-violating one when none exists
func NewCSPScheduler(options Options, logger *zap.Logger) Scheduler {
	engine := newEngine(options, logger)
	return &cspScheduler{
		engine: engine,
		solver: csp.NewBacktrackingSolver(options.Solver, engine.logger),
	}
}

func (scheduler *cspScheduler) GenerateSchedule(ctx context.Context, courses []model.Course, constraints model.ScheduleConstraints) model.ScheduleResult {
	return scheduler.Generate(ctx, model.ScheduleRequest{Courses: courses, Constraints: constraints})
}

func (scheduler *cspScheduler) Generate(ctx context.Context, request model.ScheduleRequest) model.ScheduleResult {
	return scheduler.generate(ctx, request, scheduler.place)
}

func (scheduler *cspScheduler) place(ctx context.Context, request model.ScheduleRequest) proposal {
	problem := scheduler.builder.Build(request.Courses, request.Constraints, request.Candidates)
	solution := scheduler.solver.Solve(ctx, problem)

	scheduler.logger.Debug("csp placement finished",
		zap.String("student", request.Constraints.StudentId),
		zap.String("state", string(solution.State)),
		zap.Bool("valid", solution.IsValid),
		zap.Int("nodes", solution.Nodes),
		zap.Int("ranked", solution.Ranked),
		zap.Bool("exhausted", solution.Exhausted),
	)

	// The final detector pass reproduces time, athletic and credit findings on its own; only preferences and
	// courses the solver could not place are carried over
	unplaced := lo.Map(solution.Unassignable, func(variable string, _ int) string { return problem.Code(variable) })
	conflicts := lo.Filter(solution.Conflicts, func(conflict model.Conflict, _ int) bool {
		return conflict.Type == model.PreferenceViolation ||
			(len(conflict.Courses) > 0 && lo.Every(unplaced, conflict.Courses))
	})

	return proposal{
		entries:   problem.Entries(solution.Assignment),
		conflicts: conflicts,
		dropped:   problem.Dropped,
		score:     solution.Score,
	}
}
