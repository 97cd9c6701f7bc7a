package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/chatflow/internal/client"
	"github.com/rendis/chatflow/internal/flows"
	"github.com/rendis/chatflow/internal/logging"
)

// app carries the resolved configuration to subcommands.
type app struct {
	cfg    Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: defaultConfig(), logger: logging.Discard()}
	var (
		apiURL   string
		token    string
		logLevel string
		timeout  time.Duration
	)

	root := &cobra.Command{
		Use:           "flowctl",
		Short:         "flowctl validates, renders and manages chat automation flows",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()

			// Layer 4: flags override.
			flags := cmd.Flags()
			if flags.Changed("api-url") {
				cfg.APIURL = apiURL
			}
			if flags.Changed("token") {
				cfg.Token = token
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("timeout") {
				cfg.Timeout = duration(timeout)
			}

			a.cfg = cfg
			a.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&apiURL, "api-url", "", "Flow Storage API base URL (default http://localhost:4200)")
	pf.StringVar(&token, "token", "", "bearer token for the Flow Storage API")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.DurationVar(&timeout, "timeout", 0, "timeout for remote commands (0 means none)")

	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newDiagramCmd(a))
	root.AddCommand(newScheduleCmd())
	root.AddCommand(newConditionCmd())
	root.AddCommand(newMessagesCmd())
	root.AddCommand(newListCmd(a))
	root.AddCommand(newGetCmd(a))
	root.AddCommand(newCreateCmd(a))
	root.AddCommand(newPushCmd(a))
	root.AddCommand(newDuplicateCmd(a))
	root.AddCommand(newToggleCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newVersionCmd())

	return root
}

// manager builds a flows.Manager against the configured API.
func (a *app) manager() (*flows.Manager, error) {
	api, err := client.New(client.Config{
		BaseURL:    a.cfg.APIURL,
		Token:      client.StaticToken(a.cfg.Token),
		HTTPClient: &http.Client{Timeout: time.Duration(a.cfg.Timeout)},
		Logger:     a.logger,
	})
	if err != nil {
		return nil, err
	}
	return flows.NewManager(api, nil, a.logger), nil
}

// remoteContext bounds ctx by the configured timeout.
func (a *app) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(a.cfg.Timeout))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the flowctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
