package harness

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// SuiteOptions configures RunSuite.
type SuiteOptions struct {
	// UpdateGolden rewrites golden files instead of comparing them.
	UpdateGolden bool

	// Logger receives session logs. Default: discarded.
	Logger *slog.Logger
}

// ScenarioOutcome is the result of one scenario file.
type ScenarioOutcome struct {
	Path          string   `json:"path"`
	Name          string   `json:"name"`
	Pass          bool     `json:"pass"`
	GoldenUpdated bool     `json:"golden_updated,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// SuiteResult summarizes a RunSuite call.
type SuiteResult struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

// FindScenarioFiles expands paths into scenario files. Directories are
// walked for .yaml and .yml files; files are taken as given.
func FindScenarioFiles(paths []string, filter string) ([]string, error) {
	var files []string

	keep := func(path string) (bool, error) {
		if filter == "" {
			return true, nil
		}
		base := filepath.Base(path)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		matched, err := filepath.Match(filter, name)
		if err != nil {
			return false, fmt.Errorf("invalid filter pattern: %w", err)
		}
		return matched, nil
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return nil, &ScenarioNotFoundError{Path: p}
		}
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			ok, err := keep(p)
			if err != nil {
				return nil, err
			}
			if ok {
				files = append(files, p)
			}
			continue
		}

		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == "golden" {
					return filepath.SkipDir
				}
				return nil
			}
			ext := filepath.Ext(path)
			if ext != ".yaml" && ext != ".yml" {
				return nil
			}
			ok, err := keep(path)
			if err != nil {
				return err
			}
			if ok {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// RunSuite loads and runs every scenario file, comparing or updating golden
// traces stored next to them (see GoldenPath).
//
// A scenario passes when its assertions hold and, if a golden file exists
// or the scenario sets golden: true, its snapshot matches the golden file.
func RunSuite(reg *Registry, files []string, opts SuiteOptions) *SuiteResult {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	result := &SuiteResult{
		Scenarios: make([]ScenarioOutcome, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		outcome := runScenarioFile(reg, file, opts, logger)
		result.Scenarios = append(result.Scenarios, outcome)
		if outcome.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	return result
}

func runScenarioFile(reg *Registry, file string, opts SuiteOptions, logger *slog.Logger) ScenarioOutcome {
	outcome := ScenarioOutcome{Path: file, Name: filepath.Base(file)}
	fail := func(format string, args ...any) ScenarioOutcome {
		outcome.Pass = false
		outcome.Errors = append(outcome.Errors, fmt.Sprintf(format, args...))
		return outcome
	}

	scenario, err := LoadScenario(file)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	outcome.Name = scenario.Name

	result, err := RunWithLogger(reg, scenario, logger.With("scenario", scenario.Name))
	if err != nil {
		return fail("execution failed: %v", err)
	}
	outcome.Errors = append(outcome.Errors, result.Errors...)
	outcome.Pass = result.Pass

	snapshot, err := Snapshot(scenario, result)
	if err != nil {
		return fail("%v", err)
	}

	goldenPath := GoldenPath(file)
	if opts.UpdateGolden {
		if err := WriteGolden(goldenPath, snapshot); err != nil {
			return fail("failed to update golden file: %v", err)
		}
		outcome.GoldenUpdated = true
		return outcome
	}

	if _, err := os.Stat(goldenPath); os.IsNotExist(err) {
		if scenario.Golden {
			return fail("golden file %s missing (run with --update to create it)", goldenPath)
		}
		return outcome
	}

	match, err := CompareGolden(goldenPath, snapshot)
	if err != nil {
		return fail("golden comparison failed: %v", err)
	}
	if !match {
		return fail("trace does not match golden file (run with --update to regenerate)")
	}
	return outcome
}
