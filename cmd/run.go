package cmd

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/embedterm/cli"
	"github.com/grovetools/embedterm/config"
	"github.com/grovetools/embedterm/logging"
	"github.com/grovetools/embedterm/pkg/cwdsync"
	"github.com/grovetools/embedterm/pkg/embedterm"
	"github.com/grovetools/embedterm/pkg/profiling"
	"github.com/grovetools/embedterm/pkg/session"
	"github.com/grovetools/embedterm/pkg/xwin"
	"github.com/grovetools/embedterm/util/pathutil"
	"github.com/spf13/cobra"
)

const configReloadDebounce = 250 * time.Millisecond

// NewRunCmd creates the `run` command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Embed a terminal into an existing X window",
		Long: `Starts an xterm inside the given X window and attaches it to a tmux
session on a private socket. The terminal is respawned if it dies and
follows the window's size. The configuration is reloaded when it changes.

Examples:
  # Embed into a window picked with xwininfo
  embedterm run --into 0x3a00005

  # Start in a specific directory with a status view
  embedterm run --into 0x3a00005 --cwd ~/src --tui
`,
		RunE: runRunE,
	}

	cmd.Flags().String("into", "", "X window id of the container (decimal or 0x hex)")
	cmd.Flags().String("cwd", "", "Initial working directory (default: current directory)")
	cmd.Flags().String("display", "", "X display to connect to (default: $DISPLAY)")
	cmd.Flags().Bool("tui", false, "Show an interactive status view")
	_ = cmd.MarkFlagRequired("into")

	return cmd
}

func runRunE(cmd *cobra.Command, args []string) error {
	logger := cli.GetLogger(cmd)

	into, _ := cmd.Flags().GetString("into")
	cwd, _ := cmd.Flags().GetString("cwd")
	display, _ := cmd.Flags().GetString("display")
	showTUI, _ := cmd.Flags().GetBool("tui")

	windowID, err := parseWindowID(into)
	if err != nil {
		return err
	}

	span := profiling.Start("config.load")
	cfg, layers, err := cli.LoadConfig(cmd)
	span.Stop()
	if err != nil {
		return err
	}

	span = profiling.Start("x11.connect")
	x, err := xwin.Connect(display, cfg.Emulator.Class)
	span.Stop()
	if err != nil {
		return err
	}

	sc, err := session.NewContext("", cfg.Multiplexer.SessionName, logger)
	if err != nil {
		x.Close()
		return err
	}

	container := newWatchedContainer(x, windowID, x.Focus, logger)
	host := newCLIHost(logger, logging.NewPrettyLogger())
	host.quiet = showTUI

	span = profiling.Start("panel.new")
	panel, err := embedterm.New(embedterm.Options{
		Config:    cfg,
		Session:   sc,
		Bridge:    x,
		Container: container,
		Host:      host,
		Logger:    logger,
	})
	span.Stop()
	if err != nil {
		x.Close()
		return err
	}
	defer panel.Shutdown()

	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	if cwd != "" {
		if expanded, err := pathutil.Expand(cwd); err == nil {
			cwd = expanded
		}
		if canonical, err := pathutil.Canonical(cwd); err == nil {
			cwd = canonical
		}
		panel.SetLogicalCwd(cwd, cwdsync.OriginHost)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := config.NewWatcher(logger, configReloadDebounce, panel.ApplyConfig, layers...)
	if err != nil {
		logger.WithError(err).Warn("Configuration reload disabled")
	} else {
		go watcher.Start(ctx)
	}

	go container.watch(ctx, containerPollInterval, panel)

	logger.WithField("window", into).Info("Embedding terminal")

	if !showTUI {
		<-ctx.Done()
		logger.Info("Shutting down")
		return nil
	}

	// the status view owns the screen; the file sink still records everything
	restore := logging.RedirectGlobalOutput(io.Discard)
	defer restore()

	program := tea.NewProgram(
		newStatusModel(panel, host),
		tea.WithContext(ctx),
		tea.WithFilter(panel.Filter()),
	)
	if _, err := program.Run(); err != nil && !stderrors.Is(err, tea.ErrProgramKilled) && !stderrors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
