package csp

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/limaJavier/athletescheduling/pkg/model"

	"go.uber.org/zap"
)

type State string

const (
	Unassigned State = "UNASSIGNED" // No variable could be bound
	Partial    State = "PARTIAL"    // Search was cut short before a hard-constraint-clean assignment was found
	Complete   State = "COMPLETE"   // Every variable bound, every hard constraint satisfied
	Failed     State = "FAILED"     // Search space exhausted without a hard-constraint-clean assignment
)

const (
	DefaultMaxNodes     = 200_000
	DefaultMaxSolutions = 64
	DefaultTimeout      = 2 * time.Second
)

type Options struct {
	MaxNodes     int           // Node expansions allowed across both search phases
	MaxSolutions int           // Valid solutions compared before settling on the best one
	Timeout      time.Duration // Wall-clock cap on the search
}

type Solution struct {
	Assignment   Assignment
	IsValid      bool // True only if no CRITICAL or HIGH constraint is violated and every variable is bound
	Conflicts    []model.Conflict
	Violated     []Constraint
	Score        float64
	State        State
	Nodes        int
	Ranked       int      // Valid solutions compared
	Exhausted    bool     // Budget, deadline or cancellation stopped the search
	Unassignable []string // Variables left without any usable section
}

// Solver searches a Model for the best section assignment. Solve never fails: when no assignment satisfies
// every hard constraint it returns the least-violating one it found.
type Solver interface {
	Solve(ctx context.Context, problem *Model) Solution
}

type backtrackingSolver struct {
	options Options
	logger  *zap.Logger
}

func NewBacktrackingSolver(options Options, logger *zap.Logger) Solver {
	if options.MaxNodes <= 0 {
		options.MaxNodes = DefaultMaxNodes
	}
	if options.MaxSolutions <= 0 {
		options.MaxSolutions = DefaultMaxSolutions
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &backtrackingSolver{options: options, logger: logger}
}

// Violation weights used by the degraded search; a single violation of a given severity outweighs any
// number of violations of the severities below it within realistic request sizes.
var weights = map[model.Severity]int{
	model.Critical: 1_000_000,
	model.High:     10_000,
	model.Medium:   100,
	model.Low:      1,
}

// Score penalties, used only to rank solutions
var penalties = map[model.Severity]float64{
	model.Critical: 100,
	model.High:     50,
	model.Medium:   15,
	model.Low:      5,
}

type candidate struct {
	assignment Assignment
	violated   []Constraint
	cost       int
	score      float64
}

type search struct {
	ctx      context.Context
	problem  *Model
	options  Options
	deadline time.Time

	nodes     int
	exhausted bool

	best    *candidate // Best hard-constraint-clean complete assignment
	ranked  int
	perfect bool // A solution without any violation was found; later ones could only differ in slack

	fallback *candidate // Best assignment of the degraded search
}

func (solver *backtrackingSolver) Solve(ctx context.Context, problem *Model) Solution {
	search := &search{
		ctx:      ctx,
		problem:  problem,
		options:  solver.options,
		deadline: time.Now().Add(solver.options.Timeout),
	}

	//** Node consistency: unary hard constraints (athletic safety) prune the root domains
	domains := make(map[string][]string, len(problem.Variables))
	unassignable := make([]string, 0)
	for _, variable := range problem.Variables {
		domains[variable.Id] = search.unaryConsistent(variable)
		if len(domains[variable.Id]) == 0 {
			unassignable = append(unassignable, variable.Id)
		}
	}

	//** Pre-flight: a course-to-meeting-pattern matching smaller than the course count proves no valid assignment exists
	feasible := len(unassignable) == 0
	if feasible {
		if ok, err := patternMatchingCovers(problem, domains); err != nil {
			solver.logger.Warn("pre-flight matching failed", zap.Error(err))
		} else if !ok {
			feasible = false
			solver.logger.Debug("pre-flight matching proves the instance infeasible")
		}
	}

	//** Strict search: backtracking with forward checking over hard constraints
	if feasible {
		search.backtrack(Assignment{}, domains)
	}

	var solution Solution
	if search.best != nil {
		solution = search.solution(search.best, Complete)
	} else {
		//** Degraded search: minimise the weight of violated constraints
		order := slices.Clone(problem.Variables)
		order = slices.DeleteFunc(order, func(variable Variable) bool { return len(domains[variable.Id]) == 0 })
		slices.SortStableFunc(order, func(a, b Variable) int { return len(domains[a.Id]) - len(domains[b.Id]) })

		search.minimize(order, 0, Assignment{}, domains)

		fallback := search.fallback
		if fallback == nil {
			fallback = search.evaluate(Assignment{})
		}

		state := Failed
		clean := len(unassignable) == 0 && len(fallback.assignment) == len(problem.Variables) &&
			!slices.ContainsFunc(fallback.violated, func(constraint Constraint) bool { return constraint.Severity().Hard() })
		switch {
		case len(fallback.assignment) == 0 && len(problem.Variables) > 0:
			state = Unassigned
		case clean:
			// The budget ran out before the strict search found it, but the greedy completion is sound
			state = Complete
		case search.exhausted:
			state = Partial
		}
		solution = search.solution(fallback, state)
		if !clean {
			solver.logger.Info("no assignment satisfies every hard constraint, returning best effort",
				zap.Int("violated", len(fallback.violated)),
				zap.Int("unassignable", len(unassignable)),
				zap.Bool("exhausted", search.exhausted),
			)
		}
	}

	solution.Unassignable = unassignable
	solution.Conflicts = append(solution.Conflicts, unassignableConflicts(problem, unassignable)...)

	solver.logger.Debug("csp search finished",
		zap.String("state", string(solution.State)),
		zap.Int("nodes", search.nodes),
		zap.Int("ranked", search.ranked),
		zap.Bool("exhausted", search.exhausted),
		zap.Float64("score", solution.Score),
	)
	return solution
}

// stop reports whether the node budget, deadline or context forbids expanding another node
func (search *search) stop() bool {
	if search.exhausted {
		return true
	}
	if search.nodes >= search.options.MaxNodes || time.Now().After(search.deadline) || search.ctx.Err() != nil {
		search.exhausted = true
	}
	return search.exhausted
}

func (search *search) unaryConsistent(variable Variable) []string {
	hard := make([]Constraint, 0)
	for _, constraint := range search.problem.ConstraintsOn(variable.Id) {
		if len(constraint.Variables()) == 1 && constraint.Severity().Hard() {
			hard = append(hard, constraint)
		}
	}
	domain := make([]string, 0, len(variable.Domain))
	for _, value := range variable.Domain {
		assignment := Assignment{variable.Id: value}
		if !slices.ContainsFunc(hard, func(constraint Constraint) bool { return !constraint.Satisfied(assignment, search.problem) }) {
			domain = append(domain, value)
		}
	}
	return domain
}

func (search *search) backtrack(assignment Assignment, domains map[string][]string) {
	if search.stop() {
		return
	}
	search.nodes++

	if len(assignment) == len(search.problem.Variables) {
		search.record(assignment)
		return
	}

	variable := search.selectVariable(assignment, domains)
	for _, value := range search.orderValues(variable, assignment, domains[variable]) {
		assignment[variable] = value
		if search.hardConsistent(assignment, variable) {
			if pruned, ok := search.forwardCheck(assignment, variable, domains); ok {
				search.backtrack(assignment, pruned)
			}
		}
		delete(assignment, variable)

		if search.exhausted || search.perfect || search.ranked >= search.options.MaxSolutions {
			return
		}
	}
}

// selectVariable applies the most-constrained-variable heuristic; ties keep declaration order
func (search *search) selectVariable(assignment Assignment, domains map[string][]string) string {
	selected, smallest := "", math.MaxInt
	for _, variable := range search.problem.Variables {
		if _, bound := assignment[variable.Id]; bound {
			continue
		}
		if size := len(domains[variable.Id]); size < smallest {
			selected, smallest = variable.Id, size
		}
	}
	return selected
}

// orderValues prefers values violating the fewest soft constraints; ties keep catalog order
func (search *search) orderValues(variable string, assignment Assignment, domain []string) []string {
	violations := make(map[string]int, len(domain))
	for _, value := range domain {
		assignment[variable] = value
		for _, constraint := range search.problem.ConstraintsOn(variable) {
			if !constraint.Severity().Hard() && !constraint.Satisfied(assignment, search.problem) {
				violations[value]++
			}
		}
	}
	delete(assignment, variable)

	ordered := slices.Clone(domain)
	slices.SortStableFunc(ordered, func(a, b string) int { return violations[a] - violations[b] })
	return ordered
}

func (search *search) hardConsistent(assignment Assignment, variable string) bool {
	for _, constraint := range search.problem.ConstraintsOn(variable) {
		if constraint.Severity().Hard() && !constraint.Satisfied(assignment, search.problem) {
			return false
		}
	}
	return true
}

// forwardCheck removes from every unbound domain the values that break a hard constraint shared with the
// newly bound variable. It reports false as soon as a domain becomes empty.
func (search *search) forwardCheck(assignment Assignment, bound string, domains map[string][]string) (map[string][]string, bool) {
	pruned := make(map[string][]string, len(domains))
	for _, variable := range search.problem.Variables {
		if _, ok := assignment[variable.Id]; ok {
			pruned[variable.Id] = domains[variable.Id]
			continue
		}

		shared := make([]Constraint, 0)
		for _, constraint := range search.problem.ConstraintsOn(variable.Id) {
			if constraint.Severity().Hard() && slices.Contains(constraint.Variables(), bound) {
				shared = append(shared, constraint)
			}
		}

		domain := make([]string, 0, len(domains[variable.Id]))
		for _, value := range domains[variable.Id] {
			assignment[variable.Id] = value
			if !slices.ContainsFunc(shared, func(constraint Constraint) bool { return !constraint.Satisfied(assignment, search.problem) }) {
				domain = append(domain, value)
			}
		}
		delete(assignment, variable.Id)

		if len(domain) == 0 {
			return nil, false
		}
		pruned[variable.Id] = domain
	}
	return pruned, true
}

// better ranks by violated soft weight first; slack only breaks ties
func better(a, b *candidate) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	return a.score > b.score
}

// record keeps a complete assignment if it satisfies every hard constraint and ranks above the current best
func (search *search) record(assignment Assignment) {
	evaluated := search.evaluate(assignment)
	if slices.ContainsFunc(evaluated.violated, func(constraint Constraint) bool { return constraint.Severity().Hard() }) {
		return
	}
	search.ranked++
	if search.best == nil || better(evaluated, search.best) {
		search.best = evaluated
	}
	if len(evaluated.violated) == 0 {
		search.perfect = true
	}
}

// minimize is a branch and bound over the athletically safe domains. Hard constraints are weighted rather
// than enforced so that an answer exists even for infeasible requests. When the budget runs out before the
// first leaf, the remaining variables are bound greedily so the caller still gets a complete proposal.
func (search *search) minimize(order []Variable, depth int, assignment Assignment, domains map[string][]string) {
	if depth == len(order) {
		evaluated := search.evaluate(assignment)
		if search.fallback == nil || better(evaluated, search.fallback) {
			search.fallback = evaluated
		}
		return
	}
	if search.stop() && search.fallback != nil {
		return
	}
	search.nodes++

	variable := order[depth].Id
	costs := make(map[string]int, len(domains[variable]))
	for _, value := range domains[variable] {
		assignment[variable] = value
		costs[value] = search.cost(assignment)
	}
	delete(assignment, variable)

	values := slices.Clone(domains[variable])
	slices.SortStableFunc(values, func(a, b string) int { return costs[a] - costs[b] })

	for _, value := range values {
		// Partial cost only grows as more variables are bound, so it bounds every completion
		if search.fallback != nil && costs[value] >= search.fallback.cost {
			break
		}
		assignment[variable] = value
		search.minimize(order, depth+1, assignment, domains)
		delete(assignment, variable)

		if search.exhausted {
			return
		}
	}
}

func (search *search) cost(assignment Assignment) int {
	cost := 0
	for _, constraint := range search.problem.Constraints {
		if !constraint.Satisfied(assignment, search.problem) {
			cost += weights[constraint.Severity()]
		}
	}
	return cost
}

func (search *search) evaluate(assignment Assignment) *candidate {
	violated := search.problem.Violations(assignment)
	evaluated := &candidate{
		assignment: assignment.Clone(),
		violated:   violated,
		score:      100 + slackBonus(search.slack(assignment)),
	}
	for _, constraint := range violated {
		evaluated.cost += weights[constraint.Severity()]
		evaluated.score -= penalties[constraint.Severity()]
	}
	return evaluated
}

// slack rewards flexibility: the average number of alternative sections per bound course that could be
// swapped in without breaking a hard constraint
func (search *search) slack(assignment Assignment) float64 {
	if len(assignment) == 0 {
		return 0
	}
	trial := assignment.Clone()
	alternatives := 0
	for _, variable := range search.problem.Variables {
		current, ok := assignment[variable.Id]
		if !ok {
			continue
		}
		for _, value := range variable.Domain {
			if value == current {
				continue
			}
			trial[variable.Id] = value
			if search.hardConsistent(trial, variable.Id) {
				alternatives++
			}
		}
		trial[variable.Id] = current
	}
	return float64(alternatives) / float64(len(assignment))
}

// slackBonus maps the unbounded average slack onto [0, LOW penalty), so the score never ranks a schedule
// with more preference violations above one with fewer
func slackBonus(slack float64) float64 {
	return penalties[model.Low] * slack / (slack + 1)
}

func (search *search) solution(selected *candidate, state State) Solution {
	conflicts := make([]model.Conflict, 0, len(selected.violated))
	for _, constraint := range selected.violated {
		conflicts = append(conflicts, ToConflict(constraint, selected.assignment, search.problem))
	}
	return Solution{
		Assignment: selected.assignment,
		IsValid:    state == Complete,
		Conflicts:  conflicts,
		Violated:   selected.violated,
		Score:      selected.score,
		State:      state,
		Nodes:      search.nodes,
		Ranked:     search.ranked,
		Exhausted:  search.exhausted,
	}
}

func unassignableConflicts(problem *Model, unassignable []string) []model.Conflict {
	conflicts := make([]model.Conflict, 0, len(unassignable))
	for _, id := range unassignable {
		variable, _ := problem.Variable(id)
		code := variable.Course.Code
		if len(variable.Domain) == 0 {
			conflicts = append(conflicts, model.Conflict{
				Type:        model.CapacityFull,
				Severity:    model.Critical,
				Message:     "No open section is available for " + code,
				Courses:     []string{code},
				Suggestions: []string{"Request a capacity override or waitlist a section of " + code},
			})
			continue
		}
		conflicts = append(conflicts, model.Conflict{
			Type:        model.AthleticConflict,
			Severity:    model.Critical,
			Message:     "Every open section of " + code + " meets during a mandatory athletic commitment",
			Courses:     []string{code},
			Suggestions: []string{"Take " + code + " in a later term or discuss an exception with athletics compliance"},
		})
	}
	return conflicts
}
