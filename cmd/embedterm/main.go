package main

import (
	"context"
	"os"

	"github.com/grovetools/embedterm/cli"
	"github.com/grovetools/embedterm/cmd"
	"github.com/grovetools/embedterm/pkg/profiling"
	"github.com/grovetools/embedterm/version"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"embedterm",
		"Embed a tmux-backed terminal into an X11 window",
	)
	cli.SetVersionTemplate(rootCmd, version.GetInfo())
	profiling.NewFlags().Register(rootCmd)

	rootCmd.AddCommand(cmd.NewRunCmd())
	rootCmd.AddCommand(cmd.NewDoctorCmd())
	rootCmd.AddCommand(cmd.NewPathsCmd())
	rootCmd.AddCommand(cmd.NewConfigCmd())
	rootCmd.AddCommand(cmd.NewLogsCmd())
	rootCmd.AddCommand(cli.NewVersionCommand("embedterm"))

	cli.ApplyStyledHelpRecursive(rootCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		cli.NewErrorHandler(cli.GetOptions(rootCmd).Verbose).Handle(err)
		os.Exit(1)
	}
}
