package conflict

import (
	"github.com/limaJavier/athletescheduling/pkg/model"

	"github.com/katalvlaran/lvlath/core"
	"github.com/samber/lo"
)

// conflictGraph is an undirected graph with one vertex per distinct scheduled section (course/section key),
// where an edge means the two sections share at least one minute. The same section listed twice collapses
// into a single vertex.
type conflictGraph struct {
	graph    *core.Graph
	entries  []model.ScheduleEntry // First occurrence of each vertex, in schedule order
	keys     []string
	overlaps map[[2]string][][2]model.TimeSlot // Overlapping sub-slots per edge, keyed in schedule order
}

func buildConflictGraph(entries []model.ScheduleEntry) *conflictGraph {
	graph := &conflictGraph{
		graph:    lo.Must(core.NewGraph()),
		entries:  lo.UniqBy(entries, sectionKey),
		overlaps: make(map[[2]string][][2]model.TimeSlot),
	}
	graph.keys = lo.Map(graph.entries, func(entry model.ScheduleEntry, _ int) string { return sectionKey(entry) })

	for _, key := range graph.keys {
		lo.Must0(graph.graph.AddVertex(key))
	}
	for i := 0; i < len(graph.entries)-1; i++ {
		for j := i + 1; j < len(graph.entries); j++ {
			pairs := model.OverlappingPairs(graph.entries[i].Section.TimeSlots, graph.entries[j].Section.TimeSlots)
			if len(pairs) == 0 {
				continue
			}
			lo.Must(graph.graph.AddEdge(graph.keys[i], graph.keys[j], 0))
			graph.overlaps[[2]string{graph.keys[i], graph.keys[j]}] = pairs
		}
	}

	return graph
}

func (graph *conflictGraph) Conflicting(i, j int) bool {
	return graph.graph.HasEdge(graph.keys[i], graph.keys[j])
}

// Overlaps returns the overlapping sub-slots between vertices i and j, oriented as (slot of i, slot of j)
func (graph *conflictGraph) Overlaps(i, j int) [][2]model.TimeSlot {
	if i < j {
		return graph.overlaps[[2]string{graph.keys[i], graph.keys[j]}]
	}
	pairs := graph.overlaps[[2]string{graph.keys[j], graph.keys[i]}]
	flipped := make([][2]model.TimeSlot, len(pairs))
	for k, pair := range pairs {
		flipped[k] = [2]model.TimeSlot{pair[1], pair[0]}
	}
	return flipped
}

// Degree counts the sections overlapping with vertex i
func (graph *conflictGraph) Degree(i int) int {
	_, _, undirected, err := graph.graph.Degree(graph.keys[i])
	if err != nil {
		return 0
	}
	return undirected
}

// Edges lists every edge once, in (i, j) lexicographic order
func (graph *conflictGraph) Edges() [][2]int {
	edges := make([][2]int, 0, len(graph.overlaps))
	for i := 0; i < len(graph.entries)-1; i++ {
		for j := i + 1; j < len(graph.entries); j++ {
			if graph.Conflicting(i, j) {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return edges
}
