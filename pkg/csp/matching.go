package csp

import (
	"slices"
	"strings"

	"github.com/limaJavier/athletescheduling/pkg/model"

	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

// patternMatchingCovers pairs every course with a distinct meeting pattern among its remaining sections.
// Two sections sharing a non-empty pattern always overlap, so a largest matching smaller than the number of
// courses proves that no conflict-free assignment exists. A full matching proves nothing.
// Courses offering a section without meetings are left out since such a section never overlaps.
func patternMatchingCovers(problem *Model, domains map[string][]string) (bool, error) {
	variables := make([]string, 0, len(problem.Variables))
	patterns := make(map[string][]string) // Variable -> patterns offered by its domain
	for _, variable := range problem.Variables {
		offered := make([]string, 0, len(domains[variable.Id]))
		timeless := false
		for _, value := range domains[variable.Id] {
			section, _ := problem.Section(variable.Id, value)
			if len(section.TimeSlots) == 0 {
				timeless = true
				break
			}
			offered = append(offered, pattern(section.TimeSlots))
		}
		if timeless {
			continue
		}
		variables = append(variables, variable.Id)
		patterns[variable.Id] = lo.Uniq(offered)
	}
	if len(variables) < 2 {
		return true, nil
	}

	signatures := lo.Uniq(lo.Flatten(lo.Values(patterns)))
	slices.Sort(signatures)

	// Build neighbors predicate based on offered patterns
	neighbors := func(variableAny any, signatureAny any) (bool, error) {
		return lo.Contains(patterns[variableAny.(string)], signatureAny.(string)), nil
	}

	variablesAny := lo.Map(variables, func(variable string, _ int) any { return variable })
	signaturesAny := lo.Map(signatures, func(signature string, _ int) any { return signature })

	graph, err := bipartitegraph.NewBipartiteGraph(variablesAny, signaturesAny, neighbors)
	if err != nil {
		return false, err
	}

	return len(graph.LargestMatching()) == len(variables), nil
}

// pattern is a canonical rendering of a section's meetings, independent of location and listing order
func pattern(slots []model.TimeSlot) string {
	rendered := lo.Map(slots, func(slot model.TimeSlot, _ int) string {
		return model.TimeSlot{Day: slot.Day, Start: slot.Start, End: slot.End}.String()
	})
	slices.Sort(rendered)
	return strings.Join(lo.Uniq(rendered), ";")
}
