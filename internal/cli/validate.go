package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhomyk/AgenticQA-sub001/internal/schema"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var datasetPath, schemaPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a dataset against a schema",
		Long: `Validate every record of a YAML dataset against a declared schema.

Each record fails fast on its first violation, but all failing records
are reported. Exit code 1 means the dataset is invalid; exit code 2
means the inputs could not be read.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, datasetPath, schemaPath)
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "path to the dataset YAML file")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the schema YAML file")
	cmd.MarkFlagRequired("dataset")
	cmd.MarkFlagRequired("schema")

	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command, datasetPath, schemaPath string) error {
	f := formatter(opts, cmd)

	ds, err := LoadDataset(datasetPath)
	if err != nil {
		_ = f.ErrorOut(ErrCodeLoadFailed, err.Error(), nil)
		return err
	}
	s, err := LoadSchema(schemaPath)
	if err != nil {
		_ = f.ErrorOut(ErrCodeLoadFailed, err.Error(), nil)
		return err
	}

	f.VerboseLog("Validating %d record(s) from %s", len(ds.Records), datasetPath)

	result := schema.Validate(ds, s)
	if result.Passed {
		if f.Format == "json" {
			return f.JSON(result)
		}
		fmt.Fprintln(f.Writer, "✓ Dataset valid")
		return nil
	}

	if f.Format == "json" {
		if err := f.FailureJSON(result, ErrCodeValidation,
			fmt.Sprintf("%d violation(s)", len(result.Violations))); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(f.Writer, "✗ Validation failed")
		fmt.Fprintln(f.Writer)
		for _, v := range result.Violations {
			fmt.Fprintf(f.Writer, "  %s\n", v.String())
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d violation(s)", len(result.Violations)))
}
