package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/flowchart-backend/internal/client"
	"github.com/yungbote/flowchart-backend/internal/flowchart"
	"github.com/yungbote/flowchart-backend/internal/platform/envutil"
)

func newGenerateCommand(opts *options) *cobra.Command {
	var req flowchart.Request
	cmd := &cobra.Command{
		Use:   "generate <description>",
		Short: "Generate a flowchart from a description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Description = strings.Join(args, " ")
			if opts.serverURL != "" {
				c, err := client.New(client.Options{
					BaseURL:    opts.serverURL,
					Timeout:    envutil.Duration("FLOWCHART_CLIENT_TIMEOUT", 90*time.Second),
					MaxRetries: envutil.Int("FLOWCHART_CLIENT_MAX_RETRIES", 2),
				})
				if err != nil {
					return err
				}
				resp, err := c.Generate(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printResponse(cmd, opts, resp)
			}

			a, err := opts.buildApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeApp(a.Close)

			resp, err := a.Service.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResponse(cmd, opts, resp)
		},
	}
	cmd.Flags().StringVarP(&req.Level, "level", "l", "", "Detail level: 1, 2, 3 or basic, intermediate, advanced")
	cmd.Flags().StringVarP(&req.OutputFormat, "format", "f", "", "Artifacts to write: mermaid, png or both")
	cmd.Flags().StringVarP(&req.Filename, "out", "o", "", "Artifact base name (default: flowchart_<timestamp>)")
	return cmd
}

func printResponse(cmd *cobra.Command, opts *options, resp *flowchart.Response) error {
	out := cmd.OutOrStdout()
	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Fprintln(out, resp.MermaidCode)

	errOut := cmd.ErrOrStderr()
	if resp.Degraded {
		warnColor.Fprintln(errOut, "warning: generation failed; printed the fallback diagram")
	}
	for _, f := range []string{resp.MermaidFile, resp.PNGFile} {
		if f != "" {
			okColor.Fprintln(errOut, "wrote", f)
		}
	}
	if resp.RenderError != "" {
		warnColor.Fprintln(errOut, "render failed:", resp.RenderError)
	}
	if resp.ExportError != "" {
		warnColor.Fprintln(errOut, "export failed:", resp.ExportError)
	}
	return nil
}
