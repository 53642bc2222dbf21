package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/limaJavier/athletescheduling/pkg/conflict"
	"github.com/limaJavier/athletescheduling/pkg/csp"
	"github.com/limaJavier/athletescheduling/pkg/model"
	"github.com/limaJavier/athletescheduling/pkg/scheduler"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "SCHEDULER_"

const (
	ModeCSP    = "csp"
	ModeGreedy = "greedy"
)

var (
	ErrUnknownMode   = errors.New("unknown scheduling mode")
	ErrInvalidConfig = errors.New("invalid configuration")
)

var ValidModes = []string{ModeCSP, ModeGreedy}

type Config struct {
	HeavyLoadCredits int
	BusyDaySections  int
	OverloadCredits  int
	MorningCutoff    string
	EveningCutoff    string
	IncludeClosed    bool

	MaxNodes     int
	MaxSolutions int
	Timeout      time.Duration

	Mode     string
	LogLevel string
}

func Default() Config {
	return Config{
		HeavyLoadCredits: conflict.DefaultHeavyLoadCredits,
		BusyDaySections:  conflict.DefaultBusyDaySections,
		OverloadCredits:  scheduler.DefaultOverloadCredits,
		MorningCutoff:    csp.DefaultMorningCutoff,
		EveningCutoff:    csp.DefaultEveningCutoff,
		MaxNodes:         csp.DefaultMaxNodes,
		MaxSolutions:     csp.DefaultMaxSolutions,
		Timeout:          csp.DefaultTimeout,
		Mode:             ModeCSP,
		LogLevel:         "info",
	}
}

// Load starts from the defaults, applies file (JSON or YAML, chosen by extension) and finally every
// SCHEDULER_* environment variable, optionally read from envFile first. Missing files are skipped.
func Load(file string, envFile string) (Config, error) {
	config := Default()

	if file != "" {
		values, err := readFile(file)
		if err != nil {
			return Config{}, err
		}
		if err := decode(values, &config); err != nil {
			return Config{}, fmt.Errorf("cannot decode %v: %w", file, err)
		}
	}

	if envFile != "" {
		// Variables already present in the environment take precedence over the file
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("cannot load %v: %w", envFile, err)
		}
	}
	if err := decode(environment(os.Environ()), &config); err != nil {
		return Config{}, fmt.Errorf("cannot decode environment: %w", err)
	}

	return config, config.Validate()
}

func readFile(file string) (map[string]any, error) {
	bytes, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("cannot read %v: %w", file, err)
	}

	values := make(map[string]any)
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bytes, &values)
	default:
		err = json.Unmarshal(bytes, &values)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse %v: %w", file, err)
	}
	return values, nil
}

// environment keeps the SCHEDULER_* variables, keyed the way field names are matched
func environment(variables []string) map[string]any {
	values := make(map[string]any)
	for _, variable := range variables {
		key, value, ok := strings.Cut(variable, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		values[strings.TrimPrefix(key, EnvPrefix)] = value
	}
	return values
}

// normalize lets "heavy_load_credits", "heavy-load-credits" and "heavyLoadCredits" all reach HeavyLoadCredits
func normalize(values map[string]any) map[string]any {
	normalized := make(map[string]any, len(values))
	for key, value := range values {
		normalized[strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(key))] = value
	}
	return normalized
}

func decode(values map[string]any, config *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           config,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(normalize(values))
}

func (config Config) Validate() error {
	problems := make([]string, 0)
	if !slices.Contains(ValidModes, config.Mode) {
		return fmt.Errorf("%w: %q", ErrUnknownMode, config.Mode)
	}
	if config.HeavyLoadCredits <= 0 {
		problems = append(problems, "heavy-load credits must be positive")
	}
	if config.BusyDaySections <= 0 {
		problems = append(problems, "busy-day sections must be positive")
	}
	if config.OverloadCredits < config.HeavyLoadCredits {
		problems = append(problems, fmt.Sprintf("overload credits (%d) must not be below heavy-load credits (%d)", config.OverloadCredits, config.HeavyLoadCredits))
	}
	if model.TimeToMinutes(config.MorningCutoff) < 0 || model.TimeToMinutes(config.EveningCutoff) < 0 {
		problems = append(problems, "cutoffs must be HH:MM values")
	}
	if config.MaxNodes <= 0 || config.MaxSolutions <= 0 || config.Timeout <= 0 {
		problems = append(problems, "search budget must be positive")
	}
	if _, err := zap.ParseAtomicLevel(config.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("unknown log level %q", config.LogLevel))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func (config Config) SchedulerOptions() scheduler.Options {
	return scheduler.Options{
		Detector: conflict.Options{
			HeavyLoadCredits: config.HeavyLoadCredits,
			BusyDaySections:  config.BusyDaySections,
		},
		Build: csp.BuildOptions{
			IncludeClosed: config.IncludeClosed,
			MorningCutoff: config.MorningCutoff,
			EveningCutoff: config.EveningCutoff,
		},
		Solver: csp.Options{
			MaxNodes:     config.MaxNodes,
			MaxSolutions: config.MaxSolutions,
			Timeout:      config.Timeout,
		},
		OverloadCredits: config.OverloadCredits,
	}
}

// Logger builds a production zap logger at the configured level, writing to stderr
func (config Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(config.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = level
	zapConfig.OutputPaths = []string{"stderr"}
	return zapConfig.Build()
}

// Scheduler returns the engine matching the configured mode
func (config Config) Scheduler(logger *zap.Logger) (scheduler.Scheduler, error) {
	switch config.Mode {
	case ModeCSP:
		return scheduler.NewCSPScheduler(config.SchedulerOptions(), logger), nil
	case ModeGreedy:
		return scheduler.NewGreedyScheduler(config.SchedulerOptions(), logger), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, config.Mode)
}
