package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/grovetools/embedterm/cli"
	"github.com/grovetools/embedterm/command"
	"github.com/grovetools/embedterm/config"
	"github.com/grovetools/embedterm/errors"
	"github.com/grovetools/embedterm/logging"
	"github.com/grovetools/embedterm/pkg/paths"
	"github.com/grovetools/embedterm/pkg/profiling"
	"github.com/grovetools/embedterm/pkg/xwin"
	"github.com/spf13/cobra"
)

// DoctorCheck is one line of the doctor report.
type DoctorCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

type doctorEnv struct {
	lookPath command.LookPath
	display  string
	dial     func(display string) error
	mkdir    func(path string) error
}

func defaultDoctorEnv() doctorEnv {
	return doctorEnv{
		lookPath: exec.LookPath,
		display:  os.Getenv("DISPLAY"),
		dial: func(display string) error {
			x, err := xwin.Connect(display, "")
			if err != nil {
				return err
			}
			return x.Close()
		},
		mkdir: func(path string) error { return os.MkdirAll(path, 0o700) },
	}
}

// NewDoctorCmd creates the `doctor` command.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that embedterm can run on this machine",
		Long: `Checks for the terminal emulator and multiplexer binaries, an X display,
and a writable session directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			span := profiling.Start("doctor.checks")
			checks := runDoctorChecks(cfg, defaultDoctorEnv())
			span.Stop()

			if cli.GetOptions(cmd).JSONOutput {
				data, err := json.MarshalIndent(checks, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			} else {
				printDoctorChecks(logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()), checks)
			}
			return doctorResult(cfg, checks)
		},
	}
}

func runDoctorChecks(cfg *config.Config, env doctorEnv) []DoctorCheck {
	var checks []DoctorCheck

	for _, bin := range []string{cfg.Emulator.Binary, cfg.Multiplexer.Binary} {
		check := DoctorCheck{Name: bin}
		if path, err := env.lookPath(bin); err != nil {
			check.Detail = "not found in PATH"
		} else {
			check.OK, check.Detail = true, path
		}
		checks = append(checks, check)
	}

	display := DoctorCheck{Name: "display"}
	switch {
	case env.display == "":
		display.Detail = "DISPLAY is not set"
	case env.dial(env.display) != nil:
		display.Detail = fmt.Sprintf("cannot connect to %s", env.display)
	default:
		display.OK, display.Detail = true, env.display
	}
	checks = append(checks, display)

	root := paths.SessionRoot()
	sessions := DoctorCheck{Name: "session directory", Detail: root}
	if err := env.mkdir(root); err != nil {
		sessions.Detail = fmt.Sprintf("%s: %v", root, err)
	} else {
		sessions.OK = true
	}
	checks = append(checks, sessions)

	return checks
}

func printDoctorChecks(pretty *logging.PrettyLogger, checks []DoctorCheck) {
	pretty.InfoPretty("embedterm doctor")
	pretty.Divider()
	passed := 0
	for _, c := range checks {
		if c.OK {
			passed++
			pretty.Success(fmt.Sprintf("%s: %s", c.Name, c.Detail))
		} else {
			pretty.WarnPretty(fmt.Sprintf("%s: %s", c.Name, c.Detail))
		}
	}
	pretty.Divider()
	pretty.Field("passed", fmt.Sprintf("%d/%d", passed, len(checks)))
}

// doctorResult turns failed checks into the error the CLI exits with.
func doctorResult(cfg *config.Config, checks []DoctorCheck) error {
	var missing []string
	for _, c := range checks {
		if c.OK {
			continue
		}
		switch c.Name {
		case cfg.Emulator.Binary, cfg.Multiplexer.Binary:
			missing = append(missing, c.Name)
		case "display":
			return errors.DisplayUnavailable(fmt.Errorf("%s", c.Detail))
		default:
			return errors.New(errors.ErrCodePermissionDenied, c.Detail)
		}
	}
	if len(missing) > 0 {
		return errors.MissingDependency(missing)
	}
	return nil
}
