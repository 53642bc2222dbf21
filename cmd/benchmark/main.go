package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/limaJavier/athletescheduling/internal/csvio"
	"github.com/limaJavier/athletescheduling/pkg/config"
	"github.com/limaJavier/athletescheduling/pkg/csp"
	"github.com/limaJavier/athletescheduling/pkg/model"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const resultsPath = "benchmark_results.csv"

// Meeting patterns sections are drawn from
var patterns = [][]model.Weekday{
	{model.Monday, model.Wednesday, model.Friday},
	{model.Tuesday, model.Thursday},
	{model.Monday, model.Wednesday},
	{model.Friday},
}

type InstanceMetadata struct {
	Seed        uint64
	Courses     int
	Sections    int
	Commitments int
}

type BenchmarkResult struct {
	Id          string  `csv:"id"`
	Engine      string  `csv:"engine"`
	Seed        uint64  `csv:"seed"`
	Courses     int     `csv:"courses"`
	Sections    int     `csv:"sections"`
	Commitments int     `csv:"commitments"`
	Duration    int64   `csv:"duration_us"`
	Nodes       int     `csv:"nodes"`
	State       string  `csv:"state"`
	Success     bool    `csv:"success"`
	Conflicts   int     `csv:"conflicts"`
	Score       float64 `csv:"score"`
}

func main() {
	seedPtr := flag.Uint64("seed", 1, "Seed of the first generated instance")
	instancesPtr := flag.Int("instances", 5, "Instances generated per size")
	configPathPtr := flag.String("config", "", "Path to a JSON or YAML configuration file")
	outFilePathPtr := flag.String("out", resultsPath, "Path to the CSV report")
	catalogDirPtr := flag.String("catalogs", "", "Directory where each generated catalog is saved as CSV, so it can be replayed with the CLI; if empty, catalogs are discarded")
	flag.Parse()

	settings, err := config.Load(*configPathPtr, "")
	if err != nil {
		log.Fatalf("cannot load configuration: %v", err)
	}
	settings.LogLevel = "error"
	logger, err := settings.Logger()
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}

	results := make([]*BenchmarkResult, 0)
	for _, size := range []int{4, 6, 8, 12, 16} {
		for offset := range *instancesPtr {
			seed := *seedPtr + uint64(size*1000+offset)
			courses, constraints := generateInstance(seed, size)
			metadata := InstanceMetadata{
				Seed:        seed,
				Courses:     len(courses),
				Sections:    lo.SumBy(courses, func(course model.Course) int { return len(course.Sections) }),
				Commitments: len(constraints.AthleticCommitments),
			}
			fmt.Printf("Benchmarking instance %v with %v courses and %v sections\n", seed, metadata.Courses, metadata.Sections)
			if *catalogDirPtr != "" {
				if err := csvio.ExportCatalog(courses, filepath.Join(*catalogDirPtr, fmt.Sprintf("catalog_%d.csv", seed))); err != nil {
					log.Fatalf("cannot save catalog: %v", err)
				}
			}

			for _, mode := range config.ValidModes {
				settings.Mode = mode
				results = append(results, measureScheduler(settings, logger, metadata, courses, constraints))
			}
			results = append(results, measureSolver(settings, logger, metadata, courses, constraints))
		}
	}

	if err := toCsv(results, *outFilePathPtr); err != nil {
		log.Fatalf("cannot write benchmark results: %v", err)
	}
}

// generateInstance builds a random catalog of size courses with one to three sections each, plus a
// weekday practice block and a weekly game
func generateInstance(seed uint64, size int) ([]model.Course, model.ScheduleConstraints) {
	random := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	courses := make([]model.Course, 0, size)
	for i := range size {
		id := fmt.Sprintf("C%03d", i)
		course := model.Course{
			Id:       id,
			Code:     fmt.Sprintf("CRS %d", 100+i),
			Credits:  2 + random.IntN(3),
			Sections: make([]model.Section, 0),
		}
		for j := range 1 + random.IntN(3) {
			days := patterns[random.IntN(len(patterns))]
			start := 8*60 + random.IntN(22)*30
			length := 50 + random.IntN(3)*25
			course.Sections = append(course.Sections, model.Section{
				Id:       fmt.Sprintf("%02d", j+1),
				CourseId: id,
				Capacity: 30,
				Enrolled: random.IntN(32),
				TimeSlots: lo.Map(days, func(day model.Weekday, _ int) model.TimeSlot {
					return model.TimeSlot{Day: day, Start: model.MinutesToTime(start), End: model.MinutesToTime(start + length)}
				}),
			})
		}
		courses = append(courses, course)
	}

	practice := model.AthleticCommitment{
		Id:        "practice",
		Type:      model.Practice,
		Mandatory: true,
		Priority:  5,
		TimeSlots: lo.Map(model.Weekdays[:5], func(day model.Weekday, _ int) model.TimeSlot {
			return model.TimeSlot{Day: day, Start: "15:30", End: "17:30"}
		}),
	}
	game := model.AthleticCommitment{
		Id:        "game",
		Type:      model.Game,
		Mandatory: random.IntN(2) == 0,
		Priority:  4,
		TimeSlots: []model.TimeSlot{{Day: model.Weekdays[random.IntN(5)], Start: "18:00", End: "21:00"}},
	}

	return courses, model.ScheduleConstraints{
		AvoidBackToBack:     random.IntN(2) == 0,
		AvoidMornings:       random.IntN(2) == 0,
		AthleticCommitments: []model.AthleticCommitment{practice, game},
	}
}

func measureScheduler(settings config.Config, logger *zap.Logger, metadata InstanceMetadata, courses []model.Course, constraints model.ScheduleConstraints) *BenchmarkResult {
	engine, err := settings.Scheduler(logger)
	if err != nil {
		log.Fatalf("cannot initialize scheduler: %v", err)
	}

	start := time.Now()
	result := engine.GenerateSchedule(context.Background(), courses, constraints)
	duration := time.Since(start)

	return &BenchmarkResult{
		Id:          uuid.NewString(),
		Engine:      settings.Mode,
		Seed:        metadata.Seed,
		Courses:     metadata.Courses,
		Sections:    metadata.Sections,
		Commitments: metadata.Commitments,
		Duration:    duration.Microseconds(),
		Success:     result.Success,
		Conflicts:   len(result.Conflicts),
		Score:       result.Score,
	}
}

// measureSolver times the search alone, which is the only place node counts are observable
func measureSolver(settings config.Config, logger *zap.Logger, metadata InstanceMetadata, courses []model.Course, constraints model.ScheduleConstraints) *BenchmarkResult {
	options := settings.SchedulerOptions()
	problem := csp.NewBuilder(options.Build, logger).Build(courses, constraints, nil)
	solver := csp.NewBacktrackingSolver(options.Solver, logger)

	start := time.Now()
	solution := solver.Solve(context.Background(), problem)
	duration := time.Since(start)

	return &BenchmarkResult{
		Id:          uuid.NewString(),
		Engine:      "solver",
		Seed:        metadata.Seed,
		Courses:     metadata.Courses,
		Sections:    metadata.Sections,
		Commitments: metadata.Commitments,
		Duration:    duration.Microseconds(),
		Nodes:       solution.Nodes,
		State:       string(solution.State),
		Success:     solution.IsValid,
		Conflicts:   len(solution.Conflicts),
		Score:       solution.Score,
	}
}

func toCsv(results []*BenchmarkResult, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create CSV file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&results, file); err != nil {
		return fmt.Errorf("cannot write CSV records: %w", err)
	}
	return nil
}
