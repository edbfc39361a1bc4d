// Package cli wires the portal client into a command-line tool: session
// commands, the case-submission wizard, and the lawyer dashboard reads.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/huquq-center/insaf/internal/auth"
	"github.com/huquq-center/insaf/internal/config"
	"github.com/huquq-center/insaf/internal/observability"
	"github.com/huquq-center/insaf/internal/openapi"
	"github.com/huquq-center/insaf/internal/portal"
	"github.com/huquq-center/insaf/internal/transport"
	"github.com/huquq-center/insaf/internal/wizard"
)

// App holds the wired dependencies shared by all commands.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *observability.Metrics
	store     *auth.FileStore
	session   *auth.Session
	api       *auth.Client
	index     *openapi.Index
	engine    *wizard.Engine
	svc       *portal.Service
	constants *portal.ConstantsCache

	tracingShutdown func(context.Context) error
}

// Execute runs the root command and returns the process exit code.
func Execute(version, commit string) int {
	root := NewRootCmd(version, commit)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCmd builds the full command tree.
func NewRootCmd(version, commit string) *cobra.Command {
	app := &App{}
	var configPath string

	root := &cobra.Command{
		Use:           "insaf",
		Short:         "Client for the detainee case portal",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd.Context(), configPath, version)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.shutdown(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to configuration file")

	root.AddCommand(
		newLoginCmd(app),
		newLogoutCmd(app),
		newWhoamiCmd(app),
		newDraftCmd(app),
		newCasesCmd(app),
		newTrackCmd(app),
		newMessagesCmd(app),
		newNotificationsCmd(app),
		newVisitsCmd(app),
		newProfileCmd(app),
		newConstantsCmd(app),
	)
	return root
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".insaf", "config.yaml")
}

func (a *App) init(ctx context.Context, configPath, version string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	a.logger = logger

	a.tracingShutdown, err = observability.InitTracing(ctx, cfg.Observability.Tracing, "insaf-client", version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	if cfg.Observability.Metrics.Enabled {
		a.metrics = observability.InitMetrics(prometheus.DefaultRegisterer)
	}

	fs := afero.NewOsFs()
	a.store = auth.NewFileStore(fs, cfg.Storage.StateDir, logger)

	tc := transport.New(cfg.Portal.BaseURL, cfg.Portal.Timeout, logger, a.metrics)
	a.session = auth.NewSession(tc, a.store, cfg.Portal.DefaultLang, logger)
	a.api = auth.NewClient(tc, a.session, a.store, cfg.Portal.DefaultLang, logger, a.metrics)

	if cfg.Portal.SpecFile != "" {
		a.index, err = openapi.NewIndexFromFile(cfg.Portal.SpecFile)
	} else {
		a.index, err = openapi.NewIndex()
	}
	if err != nil {
		return err
	}

	wizardStore := wizard.NewFileStore(fs, filepath.Join(cfg.Storage.StateDir, "wizard"), logger)
	a.engine = wizard.NewEngine(wizardStore, logger, a.metrics)

	a.svc = portal.NewService(a.api, a.index, logger, a.metrics)
	a.constants = portal.NewConstantsCache(a.api, a.index, a.metrics)
	return nil
}

func (a *App) shutdown(ctx context.Context) error {
	if a.tracingShutdown != nil {
		if err := a.tracingShutdown(ctx); err != nil {
			a.logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return nil
}

// printJSON renders a value as indented JSON on the command's stdout.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
