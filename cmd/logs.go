package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/embedterm/cli"
	"github.com/grovetools/embedterm/logging"
	"github.com/grovetools/embedterm/pkg/paths"
	"github.com/grovetools/embedterm/tui/theme"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the embedterm log",
		Long: `Prints today's log file, or the most recent one when today has none.

Examples:
  # Follow the log while a panel is running
  embedterm logs -f

  # Last 100 lines as JSON
  embedterm logs --tail 100 --json
`,
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().Int("tail", 50, "Number of lines to show from the end of the log (-1: all)")
	cmd.Flags().String("component", "embedterm", "Component whose log to show")

	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	logger := cli.GetLogger(cmd)
	opts := cli.GetOptions(cmd)
	follow, _ := cmd.Flags().GetBool("follow")
	tailLines, _ := cmd.Flags().GetInt("tail")
	component, _ := cmd.Flags().GetString("component")

	path := logging.LogFilePath(component, time.Now())
	if _, err := os.Stat(path); err != nil {
		latest, err := findLatestLogFile(paths.LogDir(), component)
		if err != nil && !follow {
			return err
		}
		if latest != "" {
			path = latest
		}
	}
	logger.WithField("path", path).Debug("Reading log file")

	out := cmd.OutOrStdout()
	emit := func(line string) {
		if opts.JSONOutput {
			fmt.Fprintln(out, line)
			return
		}
		fmt.Fprintln(out, formatLogLine(line))
	}

	if _, err := os.Stat(path); err == nil {
		lines, err := readLastLines(path, tailLines)
		if err != nil {
			return err
		}
		for _, line := range lines {
			emit(line)
		}
	}
	if !follow {
		return nil
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return fmt.Errorf("cannot follow %s: %w", path, err)
	}
	defer t.Cleanup()

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				logger.Debugf("Error reading line from %s: %v", path, line.Err)
				continue
			}
			emit(line.Text)
		}
	}
}

// readLastLines returns the last n lines of path, or all of them when n < 0.
func readLastLines(path string, n int) ([]string, error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    false,
		MustExist: true,
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer t.Cleanup()

	var lines []string
	for line := range t.Lines {
		if line.Err != nil {
			continue
		}
		if line.Text == "" {
			continue
		}
		lines = append(lines, line.Text)
		if n >= 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, nil
}

// findLatestLogFile returns the newest non-empty <component>-*.log in dir.
func findLatestLogFile(dir, component string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, component+"-*.log"))
	if err != nil {
		return "", err
	}

	var latestPath string
	var latestMod time.Time
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.Size() == 0 {
			continue
		}
		if latestPath == "" || info.ModTime().After(latestMod) {
			latestPath, latestMod = path, info.ModTime()
		}
	}

	if latestPath == "" {
		return "", fmt.Errorf("no log files found in %s", dir)
	}
	return latestPath, nil
}

// formatLogLine pretty-prints JSON log lines; text lines pass through.
func formatLogLine(line string) string {
	var logMap map[string]interface{}
	if err := json.Unmarshal([]byte(line), &logMap); err != nil {
		return line
	}

	ts, _ := logMap["time"].(string)
	level, _ := logMap["level"].(string)
	msg, _ := logMap["msg"].(string)
	component, _ := logMap["component"].(string)

	parsedTime, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		parsedTime, _ = time.Parse(time.RFC3339, ts)
	}
	timeStr := parsedTime.Format("15:04:05")

	var levelStyle lipgloss.Style
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = theme.DefaultTheme.Error
	case "warning":
		levelStyle = theme.DefaultTheme.Warning
	case "info":
		levelStyle = theme.DefaultTheme.Info
	default:
		levelStyle = theme.DefaultTheme.Muted
	}

	var keys []string
	for k := range logMap {
		if k != "time" && k != "level" && k != "msg" && k != "component" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s=%v", theme.DefaultTheme.Muted.Render(k), logMap[k]))
	}

	return strings.TrimRight(fmt.Sprintf("%s %s %s [%s] %s",
		timeStr,
		levelStyle.Render(strings.ToUpper(level)),
		msg,
		theme.DefaultTheme.Muted.Render(component),
		strings.Join(fields, " "),
	), " ")
}
