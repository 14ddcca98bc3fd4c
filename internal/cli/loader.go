package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/slotgraph/internal/harness"
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No scenario files found
	ErrCodeLoadFailed  = "E004" // Scenario failed to parse or validate
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeRunFailed   = "E006" // Scenario aborted
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeJournal     = "E010" // Journal open/read error
	ErrCodeDigest      = "E011" // Journal digest mismatch
)

// scenarioExts lists the extensions LoadScenario understands.
var scenarioExts = map[string]bool{".yaml": true, ".yml": true, ".cue": true}

// LoadError is a failure to find or load a scenario file.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadedScenario pairs a scenario with the file it came from.
type LoadedScenario struct {
	Path     string
	Scenario *harness.Scenario
}

// FindScenarioFiles expands paths into scenario files. Directories are
// walked recursively; files are taken as given. When filter is set, only
// files whose base name (without extension) matches the glob are kept.
// Results are sorted.
func FindScenarioFiles(paths []string, filter string) ([]string, error) {
	var files []string

	keep := func(path string) (bool, error) {
		ext := filepath.Ext(path)
		if !scenarioExts[ext] {
			return false, nil
		}
		if filter == "" {
			return true, nil
		}
		name := strings.TrimSuffix(filepath.Base(path), ext)
		matched, err := filepath.Match(filter, name)
		if err != nil {
			return false, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("invalid filter pattern: %v", err)}
		}
		return matched, nil
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Path: root, Message: "path not found"}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Path: root, Message: err.Error()}
		}

		if !info.IsDir() {
			ok, err := keep(root)
			if err != nil {
				return nil, err
			}
			if ok {
				files = append(files, root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				// Golden traces live beside scenarios.
				if d.Name() == "golden" && path != root {
					return filepath.SkipDir
				}
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
			if le, ok := err.(*LoadError); ok {
				return nil, le
			}
			return nil, &LoadError{Code: ErrCodeScanError, Path: root, Message: err.Error()}
		}
	}

	sort.Strings(files)
	return files, nil
}

// LoadScenarios loads every file, collecting load errors rather than
// stopping at the first. Scenario names must be unique across files.
func LoadScenarios(files []string) ([]LoadedScenario, []error) {
	var (
		loaded []LoadedScenario
		errs   []error
		seen   = make(map[string]string)
	)
	for _, path := range files {
		sc, err := harness.LoadScenario(path)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeLoadFailed, Path: path, Message: err.Error()})
			continue
		}
		if prev, dup := seen[sc.Name]; dup {
			errs = append(errs, &LoadError{
				Code:    ErrCodeLoadFailed,
				Path:    path,
				Message: fmt.Sprintf("scenario name %q already used by %s", sc.Name, prev),
			})
			continue
		}
		seen[sc.Name] = path
		loaded = append(loaded, LoadedScenario{Path: path, Scenario: sc})
	}
	return loaded, errs
}
