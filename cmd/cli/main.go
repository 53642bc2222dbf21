package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/limaJavier/athletescheduling/internal/csvio"
	"github.com/limaJavier/athletescheduling/pkg/config"
	"github.com/limaJavier/athletescheduling/pkg/model"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var validOperations = []string{"generate", "detect", "validate"}

// output wraps every operation's result with the id used in the logs of the run
type output struct {
	RequestId string `json:"requestId"`
	Operation string `json:"operation"`
	Result    any    `json:"result"`
}

func main() {
	// Define arguments
	operationPtr := flag.String("op", "generate", `Operation to run. Allowed values are:
- "generate" (build a schedule from the requested courses),
- "detect" (list the conflicts of the selected sections) and
- "validate" (review the selected sections as a registration would), where "generate" is the default`)
	modePtr := flag.String("mode", "", "Scheduling mode. Allowed values are: \"csp\" and \"greedy\"; if empty, the configured mode is used")
	filePathPtr := flag.String("file", "", "Path to the JSON request file")
	catalogPathPtr := flag.String("catalog", "", "Path to a CSV catalog replacing the request's courses")
	calendarPathPtr := flag.String("calendar", "", "Path to a CSV athletic calendar replacing the request's commitments")
	configPathPtr := flag.String("config", "", "Path to a JSON or YAML configuration file")
	envPathPtr := flag.String("env", ".env", "Path to a dotenv file with SCHEDULER_* overrides")
	outFilePathPtr := flag.String("out", "", "Path to the file where the output will be written; if empty, it'll be written into the Standard Output")
	csvPathPtr := flag.String("csv", "", "Path to a CSV file where the generated schedule, or the conflicts found by \"detect\" and \"validate\", will be exported")
	minPriorityPtr := flag.Int("min-priority", 0, "Athletic commitments below this priority are ignored")
	flag.Parse()
	operation := strings.ToLower(*operationPtr)
	mode := strings.ToLower(*modePtr)
	filePath := *filePathPtr
	outFile := *outFilePathPtr
	csvFile := *csvPathPtr

	// Validate arguments
	if !slices.Contains(validOperations, operation) {
		log.Fatalf("%v is not a valid operation", operation)
	} else if mode != "" && !slices.Contains(config.ValidModes, mode) {
		log.Fatalf("%v is not a valid mode", mode)
	} else if filePath == "" && *catalogPathPtr == "" {
		log.Fatal("an input file or a catalog must be specified")
	}

	// Load configuration
	settings, err := config.Load(*configPathPtr, *envPathPtr)
	if err != nil {
		log.Fatalf("cannot load configuration: %v", err)
	}
	if mode != "" {
		settings.Mode = mode
	}
	logger, err := settings.Logger()
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}

	requestId := uuid.NewString()
	logger = logger.With(zap.String("requestId", requestId), zap.String("operation", operation))

	// Extract input
	request, err := buildRequest(filePath, *catalogPathPtr, *calendarPathPtr)
	if err != nil {
		log.Fatalf("cannot build request: %v", err)
	}
	for _, selection := range request.Dropped {
		logger.Warn("selection ignored", zap.String("course", selection.CourseId), zap.String("section", selection.SectionId))
	}
	request.Constraints.AthleticCommitments = lo.Filter(request.Constraints.AthleticCommitments, func(commitment model.AthleticCommitment, _ int) bool {
		return commitment.Priority >= *minPriorityPtr
	})

	// Initialize engine
	engine, err := settings.Scheduler(logger)
	if err != nil {
		log.Fatalf("cannot initialize scheduler: %v", err)
	}

	// Run operation
	var result any
	switch operation {
	case "generate":
		generated := engine.Generate(context.Background(), request)
		logger.Info("schedule generated",
			zap.Bool("success", generated.Success),
			zap.Int("sections", len(generated.Schedule)),
			zap.Int("conflicts", len(generated.Conflicts)),
		)
		if csvFile != "" {
			if err := csvio.ExportSchedule(generated.Schedule, csvFile); err != nil {
				log.Fatalf("an error occurred while exporting the schedule: %v", err)
			}
		}
		result = generated
	case "detect":
		conflicts := engine.DetectConflicts(request.Schedule, request.Constraints)
		exportConflicts(conflicts, csvFile)
		result = conflicts
	case "validate":
		validated := engine.ValidateSchedule(model.ValidationRequest{
			StudentId:   request.Constraints.StudentId,
			Schedule:    request.Schedule,
			Constraints: request.Constraints,
		})
		exportConflicts(validated.Conflicts, csvFile)
		result = validated
	}

	// Marshal output into json
	outputJson, err := json.MarshalIndent(output{RequestId: requestId, Operation: operation, Result: result}, "", "  ")
	if err != nil {
		log.Fatalf("an error occurred while building output json: %v", err)
	}

	// Verify outfile is empty, if so then write the results to the Standard Output
	if outFile == "" {
		fmt.Println(string(outputJson))
	} else if err := os.WriteFile(outFile, outputJson, 0666); err != nil {
		log.Fatalf("an error occurred while writing to the output file: %v", err)
	}

	logger.Sync()
	if generated, ok := result.(model.ScheduleResult); ok && !generated.Success {
		os.Exit(20)
	} else if validated, ok := result.(model.ValidationResponse); ok && !validated.IsValid {
		os.Exit(20)
	}
}

func exportConflicts(conflicts []model.Conflict, csvFile string) {
	if csvFile == "" {
		return
	}
	if err := csvio.ExportConflicts(conflicts, csvFile); err != nil {
		log.Fatalf("an error occurred while exporting the conflicts: %v", err)
	}
}

// buildRequest reads the JSON request and applies the CSV overrides. Selections are resolved again
// against the catalog when one replaces the request's courses.
func buildRequest(filePath, catalogPath, calendarPath string) (model.ScheduleRequest, error) {
	request := model.ScheduleRequest{}
	if filePath != "" {
		var err error
		if request, err = model.RequestFromJson(filePath); err != nil {
			return model.ScheduleRequest{}, err
		}
	}

	if catalogPath != "" {
		courses, err := csvio.LoadCatalog(catalogPath)
		if err != nil {
			return model.ScheduleRequest{}, err
		}
		selections := lo.Map(request.Schedule, func(entry model.ScheduleEntry, _ int) model.RawSelection {
			return model.RawSelection{CourseId: entry.Course.Id, SectionId: entry.Section.Id}
		})
		request = model.ProcessRawRequest(model.RawScheduleRequest{
			Courses:     courses,
			Constraints: request.Constraints,
			Candidates:  request.Candidates,
			Selections:  append(selections, request.Dropped...),
		})
	}

	if calendarPath != "" {
		commitments, err := csvio.LoadCalendar(calendarPath)
		if err != nil {
			return model.ScheduleRequest{}, err
		}
		request.Constraints.AthleticCommitments = commitments
	}

	return request, nil
}
