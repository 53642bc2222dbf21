package conflict

import (
	"fmt"
	"slices"
	"strings"

	"github.com/limaJavier/athletescheduling/pkg/model"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	DefaultHeavyLoadCredits = 18
	DefaultBusyDaySections  = 3
)

type Options struct {
	HeavyLoadCredits int // Credits above this value raise a heavy-load warning
	BusyDaySections  int // Sections sharing a single day at or above this value raise a busy-day warning
}

type Input struct {
	StudentId   string
	Entries     []model.ScheduleEntry
	Commitments []model.AthleticCommitment
	Completions map[string][]string // Course id -> completed course codes; nil disables prerequisite checks
}

type Report struct {
	HasConflicts bool             `json:"hasConflicts"`
	Conflicts    []model.Conflict `json:"conflicts"`
	Warnings     []model.Warning  `json:"warnings"`
}

// Detector turns a proposed set of sections into typed, severity-tagged conflicts without searching.
// Its result is purely a function of its input.
type Detector interface {
	Detect(input Input) Report
}

type detector struct {
	options Options
	logger  *zap.Logger
}

func NewDetector(options Options, logger *zap.Logger) Detector {
	if options.HeavyLoadCredits <= 0 {
		options.HeavyLoadCredits = DefaultHeavyLoadCredits
	}
	if options.BusyDaySections <= 0 {
		options.BusyDaySections = DefaultBusyDaySections
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &detector{options: options, logger: logger}
}

func (detector *detector) Detect(input Input) Report {
	graph := buildConflictGraph(input.Entries)

	conflicts := slices.Concat(
		timeConflicts(graph),
		athleticConflicts(input.Entries, input.Commitments),
		prerequisiteConflicts(input.Entries, input.Completions),
		capacityConflicts(input.Entries),
		corequisiteConflicts(input.Entries, input.Completions),
	)
	warnings := slices.Concat(
		detector.loadWarnings(input.Entries),
		detector.busyDayWarnings(input.Entries),
	)

	detector.logger.Debug("conflict detection finished",
		zap.String("student", input.StudentId),
		zap.Int("sections", len(input.Entries)),
		zap.Int("edges", len(graph.overlaps)),
		zap.Int("conflicts", len(conflicts)),
		zap.Int("warnings", len(warnings)),
	)

	return Report{
		HasConflicts: len(conflicts) > 0,
		Conflicts:    conflicts,
		Warnings:     warnings,
	}
}

func timeConflicts(graph *conflictGraph) []model.Conflict {
	conflicts := make([]model.Conflict, 0)

	for _, edge := range graph.Edges() {
		entry1, entry2 := graph.entries[edge[0]], graph.entries[edge[1]]

		overlaps := lo.Map(graph.Overlaps(edge[0], edge[1]), func(pair [2]model.TimeSlot, _ int) string {
			return fmt.Sprintf("%v overlaps %v", pair[0], pair[1])
		})

		// Moving the section that clashes with more of the schedule is suggested first
		suggested := []int{edge[0], edge[1]}
		if graph.Degree(edge[1]) > graph.Degree(edge[0]) {
			suggested = []int{edge[1], edge[0]}
		}
		suggestions := lo.Map(suggested, func(i int, _ int) string {
			if degree := graph.Degree(i); degree > 1 {
				return fmt.Sprintf("Switch to a different section of %v, which overlaps %d scheduled sections", graph.entries[i].Course.Code, degree)
			}
			return fmt.Sprintf("Switch to a different section of %v", graph.entries[i].Course.Code)
		})

		conflicts = append(conflicts, model.Conflict{
			Type:     model.TimeConflict,
			Severity: model.Critical,
			Message: fmt.Sprintf("%v (section %v) and %v (section %v) meet at the same time: %v",
				entry1.Course.Code, entry1.Section.Id, entry2.Course.Code, entry2.Section.Id, strings.Join(overlaps, ", ")),
			Courses:     []string{entry1.Course.Code, entry2.Course.Code},
			Sections:    []string{entry1.Section.Id, entry2.Section.Id},
			Suggestions: suggestions,
		})
	}

	return conflicts
}

func athleticConflicts(entries []model.ScheduleEntry, commitments []model.AthleticCommitment) []model.Conflict {
	conflicts := make([]model.Conflict, 0)

	for _, entry := range entries {
		for _, commitment := range commitments {
			pairs := model.OverlappingPairs(entry.Section.TimeSlots, commitment.TimeSlots)
			if len(pairs) == 0 {
				continue
			}
			when := strings.Join(lo.Map(pairs, func(pair [2]model.TimeSlot, _ int) string { return pair[0].String() }), ", ")

			conflict := model.Conflict{
				Type:     model.AthleticConflict,
				Courses:  []string{entry.Course.Code},
				Sections: []string{entry.Section.Id},
			}
			if commitment.Mandatory {
				conflict.Severity = model.Critical
				conflict.Message = fmt.Sprintf("%v (section %v) conflicts with mandatory %v at %v", entry.Course.Code, entry.Section.Id, commitment.Label(), when)
				conflict.Suggestions = []string{fmt.Sprintf("Choose a section of %v that does not meet during %v", entry.Course.Code, commitment.Label())}
			} else {
				conflict.Severity = model.High
				conflict.Message = fmt.Sprintf("%v (section %v) overlaps optional %v at %v", entry.Course.Code, entry.Section.Id, commitment.Label(), when)
				if commitment.Priority > 0 {
					conflict.Message += fmt.Sprintf(" (priority %d/5)", commitment.Priority)
				}
				conflict.Suggestions = []string{fmt.Sprintf("Confirm with the coaching staff whether %v can be missed", commitment.Label())}
			}
			conflicts = append(conflicts, conflict)
		}
	}

	return conflicts
}

func prerequisiteConflicts(entries []model.ScheduleEntry, completions map[string][]string) []model.Conflict {
	conflicts := make([]model.Conflict, 0)
	if completions == nil {
		return conflicts
	}

	for _, entry := range entries {
		if len(entry.Course.Prerequisites) == 0 {
			continue
		}
		missing := lo.Without(entry.Course.Prerequisites, completions[entry.Course.Id]...)
		if len(missing) == 0 {
			continue
		}
		conflicts = append(conflicts, model.Conflict{
			Type:        model.PrerequisiteMissing,
			Severity:    model.Critical,
			Message:     fmt.Sprintf("%v requires %v, which has not been completed", entry.Course.Code, strings.Join(missing, ", ")),
			Courses:     []string{entry.Course.Code},
			Sections:    []string{entry.Section.Id},
			Suggestions: lo.Map(missing, func(code string, _ int) string { return fmt.Sprintf("Complete %v before enrolling in %v", code, entry.Course.Code) }),
		})
	}

	return conflicts
}

func capacityConflicts(entries []model.ScheduleEntry) []model.Conflict {
	conflicts := make([]model.Conflict, 0)

	for _, entry := range entries {
		if entry.Section.Open() {
			continue
		}
		reason := fmt.Sprintf("is full (%d/%d enrolled)", entry.Section.Enrolled, entry.Section.Capacity)
		if entry.Section.Closed {
			reason = "is closed for enrollment"
		}
		conflicts = append(conflicts, model.Conflict{
			Type:        model.CapacityFull,
			Severity:    model.High,
			Message:     fmt.Sprintf("Section %v of %v %v", entry.Section.Id, entry.Course.Code, reason),
			Courses:     []string{entry.Course.Code},
			Sections:    []string{entry.Section.Id},
			Suggestions: []string{fmt.Sprintf("Choose an open section of %v or join its waitlist", entry.Course.Code)},
		})
	}

	return conflicts
}

func corequisiteConflicts(entries []model.ScheduleEntry, completions map[string][]string) []model.Conflict {
	conflicts := make([]model.Conflict, 0)

	for i, entry := range entries {
		if len(entry.Course.Corequisites) == 0 {
			continue
		}
		// Corequisites are satisfied by any other chosen course, or by a completed one
		others := make([]string, 0, len(entries))
		for j, other := range entries {
			if j != i {
				others = append(others, other.Course.Code)
			}
		}
		missing := lo.Without(lo.Without(entry.Course.Corequisites, others...), completions[entry.Course.Id]...)
		if len(missing) == 0 {
			continue
		}
		conflicts = append(conflicts, model.Conflict{
			Type:        model.CorequisiteMissing,
			Severity:    model.High,
			Message:     fmt.Sprintf("%v must be taken together with %v", entry.Course.Code, strings.Join(missing, ", ")),
			Courses:     append([]string{entry.Course.Code}, missing...),
			Sections:    []string{entry.Section.Id},
			Suggestions: lo.Map(missing, func(code string, _ int) string { return fmt.Sprintf("Add a section of %v to this schedule", code) }),
		})
	}

	return conflicts
}

func (detector *detector) loadWarnings(entries []model.ScheduleEntry) []model.Warning {
	credits := model.TotalCredits(entries)
	if credits <= detector.options.HeavyLoadCredits {
		return []model.Warning{}
	}
	return []model.Warning{{
		Type:    model.HeavyLoad,
		Message: fmt.Sprintf("Heavy load: %d credits exceeds the recommended %d for a student-athlete", credits, detector.options.HeavyLoadCredits),
	}}
}

func (detector *detector) busyDayWarnings(entries []model.ScheduleEntry) []model.Warning {
	warnings := make([]model.Warning, 0)

	for _, day := range model.Weekdays {
		meeting := lo.Filter(entries, func(entry model.ScheduleEntry, _ int) bool {
			return lo.SomeBy(entry.Section.TimeSlots, func(slot model.TimeSlot) bool { return slot.Day == day })
		})
		meeting = lo.UniqBy(meeting, sectionKey)
		if len(meeting) < detector.options.BusyDaySections {
			continue
		}
		codes := lo.Map(meeting, func(entry model.ScheduleEntry, _ int) string { return entry.Course.Code })
		warnings = append(warnings, model.Warning{
			Type:    model.BusyDay,
			Message: fmt.Sprintf("%d classes meet on %v: %v", len(meeting), day, strings.Join(codes, ", ")),
			Courses: codes,
		})
	}

	return warnings
}

func sectionKey(entry model.ScheduleEntry) string {
	return entry.Course.Id + "/" + entry.Section.Id
}
