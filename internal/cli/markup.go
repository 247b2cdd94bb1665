package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/flowchart-backend/internal/flowchart"
	"github.com/yungbote/flowchart-backend/internal/mermaid"
)

var errInvalid = errors.New("flowchart is not valid")

func newRepairCommand(opts *options) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "repair [file|-]",
		Short: "Repair flowchart markup read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			markup, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			log, err := opts.logger(false)
			if err != nil {
				return err
			}
			// Repair needs no engine, store or renderer.
			svc := flowchart.NewService(log, nil, nil, nil, flowchart.ServiceConfig{})
			out, err := svc.Repair(cmd.Context(), markup, description)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				payload := map[string]any{
					"mermaid_code": out.Code,
					"outcome":      out.Kind(),
					"degraded":     out.Degraded,
					"report":       out.Report,
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Code)
			switch out.Kind() {
			case flowchart.OutcomeFallback:
				warnColor.Fprintln(cmd.ErrOrStderr(), "warning: markup could not be repaired; printed the fallback diagram:", out.Reason)
			case flowchart.OutcomeRepaired:
				okColor.Fprintln(cmd.ErrOrStderr(), "repaired")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "What the diagram describes; seeds the fallback")
	return cmd
}

func newValidateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file|-]",
		Short: "Check flowchart markup; exits non-zero when invalid",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			markup, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			report := mermaid.Validate(markup)
			if opts.jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{"valid": report.OK(), "errors": report.Messages(), "report": report}); err != nil {
					return err
				}
			} else {
				printReport(cmd, report)
			}
			if !report.OK() {
				return errInvalid
			}
			return nil
		},
	}
}

func printReport(cmd *cobra.Command, report mermaid.Report) {
	out := cmd.OutOrStdout()
	if report.OK() {
		okColor.Fprintln(out, "valid")
		return
	}
	errColor.Fprintln(out, "invalid")
	for _, p := range report.Problems {
		fmt.Fprintln(out, "  structure:", p)
	}
	for _, e := range report.SyntaxErrors {
		fmt.Fprintf(out, "  %s (%s)\n", e.String(), e.Kind)
	}
}

func newModesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List detail levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := flowchart.Modes()
			if opts.jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(modes)
			}
			for _, m := range modes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-13s %s\n", okColor.Sprint(m.Level), m.Name, m.Summary)
			}
			return nil
		},
	}
}

