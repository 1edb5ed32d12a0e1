package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhomyk/AgenticQA-sub001/internal/baseline"
)

// NewBaselineCommand creates the baseline command group.
func NewBaselineCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage golden baselines",
		Long: `Golden baselines are named, versioned reference digests of known-good
datasets. Creating a baseline under an existing name appends a new
version; history is never rewritten.`,
	}

	cmd.AddCommand(newBaselineCreateCommand(rootOpts))
	cmd.AddCommand(newBaselineShowCommand(rootOpts))
	cmd.AddCommand(newBaselineListCommand(rootOpts))
	return cmd
}

func newBaselineCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var datasetPath, description string

	cmd := &cobra.Command{
		Use:           "create <name>",
		Short:         "Capture a dataset as the next baseline version",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)

			ds, err := LoadDataset(datasetPath)
			if err != nil {
				_ = f.ErrorOut(ErrCodeLoadFailed, err.Error(), nil)
				return err
			}

			st, err := openStore(rootOpts)
			if err != nil {
				_ = f.ErrorOut(ErrCodeStoreFailed, err.Error(), nil)
				return err
			}
			defer st.Close()

			baselines := baseline.NewStore(st, cliLogger(rootOpts, cmd))
			b, err := baselines.Create(cmd.Context(), args[0], ds, description)
			if err != nil {
				_ = f.ErrorOut(ErrCodeStoreFailed, err.Error(), nil)
				return WrapExitError(ExitFailure, "create baseline failed", err)
			}

			if f.Format == "json" {
				return f.JSON(b)
			}
			fmt.Fprintf(f.Writer, "created baseline %s v%d (%d records, root %s)\n",
				b.Name, b.Version, len(b.LeafChecksums), b.RootChecksum)
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "path to the dataset YAML file")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")
	cmd.MarkFlagRequired("dataset")
	return cmd
}

func newBaselineShowCommand(rootOpts *RootOptions) *cobra.Command {
	var version int64

	cmd := &cobra.Command{
		Use:           "show <name>",
		Short:         "Show a baseline (latest version by default)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)

			st, err := openStore(rootOpts)
			if err != nil {
				_ = f.ErrorOut(ErrCodeStoreFailed, err.Error(), nil)
				return err
			}
			defer st.Close()

			baselines := baseline.NewStore(st, cliLogger(rootOpts, cmd))

			var b *baseline.Baseline
			if version > 0 {
				b, err = baselines.GetVersion(cmd.Context(), args[0], version)
			} else {
				b, err = baselines.Get(cmd.Context(), args[0])
			}
			if err != nil {
				_ = f.ErrorOut(ErrCodeStoreFailed, err.Error(), nil)
				return WrapExitError(ExitFailure, "read baseline failed", err)
			}
			if b == nil {
				msg := fmt.Sprintf("baseline %q not found", args[0])
				_ = f.ErrorOut(ErrCodeNotFound, msg, nil)
				return NewExitError(ExitCommandError, msg)
			}

			if f.Format == "json" {
				return f.JSON(b)
			}
			fmt.Fprintf(f.Writer, "name:        %s\n", b.Name)
			fmt.Fprintf(f.Writer, "version:     %d\n", b.Version)
			fmt.Fprintf(f.Writer, "created_at:  %s\n", b.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
			if b.Description != "" {
				fmt.Fprintf(f.Writer, "description: %s\n", b.Description)
			}
			fmt.Fprintf(f.Writer, "root:        %s\n", b.RootChecksum)
			fmt.Fprintf(f.Writer, "records:     %d\n", len(b.LeafChecksums))
			return nil
		},
	}

	cmd.Flags().Int64Var(&version, "version", 0, "specific version (0 = latest)")
	return cmd
}

func newBaselineListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List the latest version of every baseline",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)

			st, err := openStore(rootOpts)
			if err != nil {
				_ = f.ErrorOut(ErrCodeStoreFailed, err.Error(), nil)
				return err
			}
			defer st.Close()

			baselines := baseline.NewStore(st, cliLogger(rootOpts, cmd))
			all, err := baselines.List(cmd.Context())
			if err != nil {
				_ = f.ErrorOut(ErrCodeStoreFailed, err.Error(), nil)
				return WrapExitError(ExitFailure, "list baselines failed", err)
			}

			if f.Format == "json" {
				return f.JSON(all)
			}
			if len(all) == 0 {
				fmt.Fprintln(f.Writer, "no baselines")
				return nil
			}
			for _, b := range all {
				fmt.Fprintf(f.Writer, "%s v%d  %d records  %s\n",
					b.Name, b.Version, len(b.LeafChecksums), b.RootChecksum)
			}
			return nil
		},
	}
}
