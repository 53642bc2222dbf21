package csp

import (
	"maps"

	"github.com/limaJavier/athletescheduling/pkg/model"
)

// Variable stands for one desired course; its domain holds candidate section ids in catalog order
type Variable struct {
	Id     string
	Course model.Course
	Domain []string
}

// Assignment maps course id -> section id. It is partial during search and complete on success.
type Assignment map[string]string

func (assignment Assignment) Clone() Assignment {
	return maps.Clone(assignment)
}

// Model is an immutable CSP instance built for a single request
type Model struct {
	Variables   []Variable
	Constraints []Constraint
	Dropped     []string // Input references that could not be resolved while building the model

	positions   map[string]int
	sections    map[[2]string]model.Section
	constraints map[string][]Constraint // Constraints per variable, in declaration order
}

func NewModel(variables []Variable, constraints []Constraint) *Model {
	problem := &Model{
		Variables:   variables,
		Constraints: constraints,
		Dropped:     make([]string, 0),
		positions:   make(map[string]int, len(variables)),
		sections:    make(map[[2]string]model.Section),
		constraints: make(map[string][]Constraint, len(variables)),
	}
	for position, variable := range variables {
		problem.positions[variable.Id] = position
		for _, section := range variable.Course.Sections {
			problem.sections[[2]string{variable.Id, section.Id}] = section
		}
	}
	for _, constraint := range constraints {
		for _, variable := range constraint.Variables() {
			problem.constraints[variable] = append(problem.constraints[variable], constraint)
		}
	}
	return problem
}

func (problem *Model) Variable(id string) (Variable, bool) {
	position, ok := problem.positions[id]
	if !ok {
		return Variable{}, false
	}
	return problem.Variables[position], true
}

func (problem *Model) Section(variable, section string) (model.Section, bool) {
	value, ok := problem.sections[[2]string{variable, section}]
	return value, ok
}

// Assigned returns the section currently bound to the variable, if any
func (problem *Model) Assigned(assignment Assignment, variable string) (model.Section, bool) {
	section, ok := assignment[variable]
	if !ok {
		return model.Section{}, false
	}
	return problem.Section(variable, section)
}

func (problem *Model) ConstraintsOn(variable string) []Constraint {
	return problem.constraints[variable]
}

func (problem *Model) Credits(variable string) int {
	if found, ok := problem.Variable(variable); ok {
		return found.Course.Credits
	}
	return 0
}

func (problem *Model) Code(variable string) string {
	if found, ok := problem.Variable(variable); ok {
		return found.Course.Code
	}
	return variable
}

// Entries resolves an assignment into schedule entries, in variable declaration order
func (problem *Model) Entries(assignment Assignment) []model.ScheduleEntry {
	entries := make([]model.ScheduleEntry, 0, len(assignment))
	for _, variable := range problem.Variables {
		if section, ok := problem.Assigned(assignment, variable.Id); ok {
			entries = append(entries, model.ScheduleEntry{Course: variable.Course, Section: section})
		}
	}
	return entries
}

// Violations lists the constraints the assignment breaks, in declaration order
func (problem *Model) Violations(assignment Assignment) []Constraint {
	violated := make([]Constraint, 0)
	for _, constraint := range problem.Constraints {
		if !constraint.Satisfied(assignment, problem) {
			violated = append(violated, constraint)
		}
	}
	return violated
}
