package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nhomyk/AgenticQA-sub001/internal/checksum"
)

// digestOutput is the digest command's payload.
type digestOutput struct {
	Root    string            `json:"root"`
	Records int               `json:"records"`
	Leaves  map[string]string `json:"leaves,omitempty"`
}

// NewDigestCommand creates the digest command.
func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	var datasetPath string
	var showLeaves bool

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Compute the checksum digest of a dataset",
		Long: `Compute per-record leaf checksums and the order-independent root
checksum of a YAML dataset. The root changes whenever any record is
added, removed, or modified, but not when records are reordered.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(rootOpts, cmd, datasetPath, showLeaves)
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "path to the dataset YAML file")
	cmd.Flags().BoolVar(&showLeaves, "leaves", false, "include per-record checksums")
	cmd.MarkFlagRequired("dataset")

	return cmd
}

func runDigest(opts *RootOptions, cmd *cobra.Command, datasetPath string, showLeaves bool) error {
	f := formatter(opts, cmd)

	ds, err := LoadDataset(datasetPath)
	if err != nil {
		_ = f.ErrorOut(ErrCodeLoadFailed, err.Error(), nil)
		return err
	}

	digest, err := checksum.Compute(cmd.Context(), ds)
	if err != nil {
		_ = f.ErrorOut(ErrCodeDigest, err.Error(), nil)
		return WrapExitError(ExitFailure, "digest failed", err)
	}

	out := digestOutput{Root: digest.Root, Records: len(digest.Leaves)}
	if showLeaves {
		out.Leaves = digest.Leaves
	}

	if f.Format == "json" {
		return f.JSON(out)
	}

	fmt.Fprintf(f.Writer, "root: %s\n", out.Root)
	fmt.Fprintf(f.Writer, "records: %d\n", out.Records)
	if showLeaves {
		ids := make([]string, 0, len(out.Leaves))
		for id := range out.Leaves {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(f.Writer, "  %s: %s\n", id, out.Leaves[id])
		}
	}
	return nil
}
