package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhomyk/AgenticQA-sub001/internal/audit"
)

// NewAuditCommand creates the audit command group.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and verify audit chains",
		Long: `Audit chains are append-only, hash-linked logs of validation runs.
Verification recomputes every entry's hash from its content and its
predecessor; any mismatch localizes the first tampered entry.`,
	}

	cmd.AddCommand(newAuditVerifyCommand(rootOpts))
	cmd.AddCommand(newAuditListCommand(rootOpts))
	return cmd
}

func newAuditVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "verify <chain-id>",
		Short:         "Verify a chain's integrity",
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

			chain := audit.NewChain(st, args[0], cliLogger(rootOpts, cmd))
			result, err := chain.Verify(cmd.Context())
			if err != nil {
				_ = f.ErrorOut(ErrCodeStoreFailed, err.Error(), nil)
				return WrapExitError(ExitFailure, "verify failed", err)
			}

			if result.OK {
				if f.Format == "json" {
					return f.JSON(result)
				}
				fmt.Fprintln(f.Writer, "✓ Chain intact")
				return nil
			}

			if f.Format == "json" {
				if err := f.FailureJSON(result, ErrCodeTampered,
					fmt.Sprintf("chain broken at entry %d", result.BrokenAt)); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(f.Writer, "✗ Chain broken at entry %d\n", result.BrokenAt)
			}
			return NewExitError(ExitFailure, fmt.Sprintf("chain %s broken at entry %d", args[0], result.BrokenAt))
		},
	}
}

func newAuditListCommand(rootOpts *RootOptions) *cobra.Command {
	var actor, phase, since, until string
	var minRisk int64

	cmd := &cobra.Command{
		Use:           "list <chain-id>",
		Short:         "List a chain's entries, optionally filtered",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)

			filter, err := buildFilter(actor, phase, since, until, minRisk)
			if err != nil {
				_ = f.ErrorOut(ErrCodeGeneric, err.Error(), nil)
				return WrapExitError(ExitCommandError, "invalid filter", err)
			}

			st, err := openStore(rootOpts)
			if err != nil {
				_ = f.ErrorOut(ErrCodeStoreFailed, err.Error(), nil)
				return err
			}
			defer st.Close()

			chain := audit.NewChain(st, args[0], cliLogger(rootOpts, cmd))
			entries, err := chain.Query(cmd.Context(), filter)
			if err != nil {
				_ = f.ErrorOut(ErrCodeStoreFailed, err.Error(), nil)
				return WrapExitError(ExitFailure, "query failed", err)
			}

			if f.Format == "json" {
				return f.JSON(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(f.Writer, "no entries")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(f.Writer, "#%d  %s  %s  %s  risk=%d  findings=%d\n",
					e.Sequence, e.Timestamp.Format(time.RFC3339), e.Actor, e.Phase, e.RiskScore, len(e.Findings))
				if f.Verbose {
					for _, finding := range e.Findings {
						fmt.Fprintf(f.Writer, "    - %s\n", finding)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "filter by actor")
	cmd.Flags().StringVar(&phase, "phase", "", "filter by phase (pre|post)")
	cmd.Flags().StringVar(&since, "since", "", "filter by start time (RFC3339)")
	cmd.Flags().StringVar(&until, "until", "", "filter by end time (RFC3339)")
	cmd.Flags().Int64Var(&minRisk, "min-risk", 0, "filter by minimum risk score")
	return cmd
}

func buildFilter(actor, phase, since, until string, minRisk int64) (audit.Filter, error) {
	filter := audit.Filter{Actor: actor, MinRisk: minRisk}

	switch strings.ToLower(phase) {
	case "":
	case string(audit.PhasePre):
		filter.Phase = audit.PhasePre
	case string(audit.PhasePost):
		filter.Phase = audit.PhasePost
	default:
		return audit.Filter{}, fmt.Errorf("invalid phase %q: must be pre or post", phase)
	}

	if since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return audit.Filter{}, fmt.Errorf("invalid --since: %w", err)
		}
		filter.Since = t
	}
	if until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return audit.Filter{}, fmt.Errorf("invalid --until: %w", err)
		}
		filter.Until = t
	}
	return filter, nil
}
