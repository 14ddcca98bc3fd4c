package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	File  string `json:"file"`
	Name  string `json:"name,omitempty"`
	Steps int    `json:"steps"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate scenario files without running them",
		Long: `Parse and validate YAML or CUE scenario files.

Checks syntax, unknown fields (YAML), concreteness (CUE), required fields
per step op and assertion type, and that scenario names are unique.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, err := FindScenarioFiles(paths, "")
	if err != nil {
		return loadFailure(formatter, err)
	}
	if len(files) == 0 {
		_ = formatter.Error(ErrCodeNoFiles, "no scenario files found", paths)
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	loaded, loadErrs := LoadScenarios(files)

	result := ValidationResult{Valid: len(loadErrs) == 0}
	for _, l := range loaded {
		formatter.VerboseLog("Valid: %s (%s)", l.Path, l.Scenario.Name)
		result.Files = append(result.Files, FileValidation{
			File:  l.Path,
			Name:  l.Scenario.Name,
			Steps: len(l.Scenario.Steps),
		})
	}
	for _, err := range loadErrs {
		fv := FileValidation{Error: err.Error()}
		if le, ok := err.(*LoadError); ok {
			fv.File = le.Path
			fv.Error = le.Message
		}
		result.Files = append(result.Files, fv)
	}

	if formatter.JSON() {
		if result.Valid {
			return formatter.Success(result)
		}
		msg := fmt.Sprintf("%d invalid scenario file(s)", len(loadErrs))
		if err := formatter.Failure(ErrCodeLoadFailed, msg, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	w := formatter.Writer
	for _, fv := range result.Files {
		if fv.Error == "" {
			fmt.Fprintf(w, "✓ %s: %s (%d steps)\n", fv.File, fv.Name, fv.Steps)
		} else {
			fmt.Fprintf(w, "✗ %s: %s\n", fv.File, fv.Error)
		}
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid scenario file(s)", len(loadErrs)))
	}
	fmt.Fprintln(w, "✓ All scenario files valid")
	return nil
}
