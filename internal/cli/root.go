// Package cli implements the flowchart command-line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yungbote/flowchart-backend/internal/app"
	"github.com/yungbote/flowchart-backend/internal/config"
	"github.com/yungbote/flowchart-backend/internal/platform/envutil"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
)

var Version = "0.1.0"

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
)

type options struct {
	configPath string
	verbose    bool
	jsonOut    bool
	serverURL  string
}

// NewRootCommand builds the command tree. Each call returns an independent tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "flowchart",
		Short: "Generate, repair and validate Mermaid flowcharts",
		Long: `flowchart turns process descriptions into Mermaid flowcharts using a configured
text-generation engine, and repairs or validates existing flowchart markup.

Generation never fails on bad model output: markup is repaired when possible and
replaced by a deterministic fallback diagram otherwise.

Examples:
  flowchart generate "Login: Enter credentials → Validate → Success? → Dashboard | Error"
  flowchart generate --level 3 --format both --out login "User login with MFA"
  flowchart generate --server http://localhost:8080 "Checkout flow"
  flowchart repair broken.mmd
  cat chart.mmd | flowchart validate
  flowchart serve
  flowchart mcp`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML or JSON config file (default: $FLOWCHART_CONFIG_PATH or ./config/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print results as JSON")
	root.PersistentFlags().StringVar(&opts.serverURL, "server", "", "Send generate requests to a running flowchart server instead of a local engine")

	root.AddCommand(
		newServeCommand(opts),
		newGenerateCommand(opts),
		newRepairCommand(opts),
		newValidateCommand(opts),
		newModesCommand(opts),
		newMCPCommand(opts),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		errColor.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func (o *options) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		if err := os.Setenv("FLOWCHART_CONFIG_PATH", o.configPath); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

// logger returns a real logger for long-running commands or --verbose, and a no-op otherwise
// so one-shot output stays clean.
func (o *options) logger(always bool) (*logger.Logger, error) {
	if !always && !o.verbose {
		return logger.NewNop(), nil
	}
	return logger.New(envutil.String("development", "LOG_MODE"))
}

func (o *options) buildApp(ctx context.Context, alwaysLog bool) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := o.logger(alwaysLog)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return app.New(ctx, log, cfg, Version)
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(args[0])
	return string(b), err
}
