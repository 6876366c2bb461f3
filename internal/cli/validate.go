package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/txcomplete/internal/config"
	"github.com/roach88/txcomplete/internal/harness"
)

// ValidationError describes one file that failed validation.
type ValidationError struct {
	File    string `json:"file"`
	Kind    string `json:"kind"` // "scenario" | "config"
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate scenario and config files without running them",
		Long: `Validate scenario YAML files and CUE config files.

Directories are searched recursively. .yaml and .yml files are checked
as scenarios (strict fields, cross-references, callback ID syntax);
.cue files are checked against the config schema.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	files, err := collectFiles(paths)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read paths", err)
	}
	if len(files) == 0 {
		_ = formatter.Error(ErrCodeGeneric, "no scenario or config files found", paths)
		return NewExitError(ExitCommandError, "no scenario or config files found")
	}

	result := ValidationResult{Valid: true, Files: len(files)}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		if verr := validateFile(file); verr != nil {
			result.Valid = false
			result.Errors = append(result.Errors, *verr)
		}
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("✓ %d file(s) valid", result.Files))
}

// collectFiles expands directories into the scenario and config files
// they contain. Explicit file arguments are kept whatever their extension.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		err := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if path == p || fileKind(path) != "" {
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

func fileKind(path string) string {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return "scenario"
	case ".cue":
		return "config"
	default:
		return ""
	}
}

func validateFile(path string) *ValidationError {
	kind := fileKind(path)
	switch kind {
	case "scenario":
		if _, err := harness.LoadScenario(path); err != nil {
			return &ValidationError{File: path, Kind: kind, Code: ErrCodeScenarioLoad, Message: err.Error()}
		}
	case "config":
		if _, err := config.Load(path); err != nil {
			verr := &ValidationError{File: path, Kind: kind, Code: ErrCodeConfig, Message: err.Error()}
			var cfgErr *config.Error
			if errors.As(err, &cfgErr) {
				verr.Message = cfgErr.Message
				verr.Line = lineOf(cfgErr.Pos)
			}
			return verr
		}
	default:
		return &ValidationError{File: path, Code: ErrCodeInvalid, Message: "unsupported file type (want .yaml, .yml or .cue)"}
	}
	return nil
}

// lineOf extracts the line number from a CUE position.
func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeInvalid,
				Message: fmt.Sprintf("%d file(s) invalid", len(result.Errors)),
			},
		}); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, e := range result.Errors {
			if e.Line > 0 {
				fmt.Fprintf(w, "✗ %s:%d: %s\n", e.File, e.Line, e.Message)
			} else {
				fmt.Fprintf(w, "✗ %s: %s\n", e.File, e.Message)
			}
		}
		fmt.Fprintf(w, "\n%d of %d file(s) invalid\n", len(result.Errors), result.Files)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d file(s) invalid", len(result.Errors)))
}
