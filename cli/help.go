package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/embedterm/tui/theme"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	maxHelpWidth = 72
	minHelpWidth = 40
)

// helpWidth is the terminal width clamped to a readable range.
func helpWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < minHelpWidth || width > maxHelpWidth {
		return maxHelpWidth
	}
	return width
}

// SetStyledHelp installs the styled help renderer on cmd.
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		writeHelp(c.OutOrStdout(), c, helpWidth()-2)
	})
}

// ApplyStyledHelpRecursive installs styled help on cmd and every subcommand and
// silences cobra's usage dump; errors are reported by ErrorHandler.
func ApplyStyledHelpRecursive(cmd *cobra.Command) {
	SetStyledHelp(cmd)
	cmd.SetUsageFunc(func(*cobra.Command) error { return nil })
	for _, sub := range cmd.Commands() {
		ApplyStyledHelpRecursive(sub)
	}
}

type helpStyles struct {
	title, section, command, flag, muted lipgloss.Style
	subcommand                           lipgloss.Style
}

func newHelpStyles(t *theme.Theme) helpStyles {
	return helpStyles{
		title:      lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Orange),
		section:    lipgloss.NewStyle().Italic(true).Foreground(t.Colors.Orange),
		command:    lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Cyan),
		subcommand: lipgloss.NewStyle().Foreground(t.Colors.Green),
		flag:       lipgloss.NewStyle().Foreground(t.Colors.Violet),
		muted:      t.Muted,
	}
}

func writeHelp(w io.Writer, cmd *cobra.Command, width int) {
	s := newHelpStyles(theme.DefaultTheme)

	fmt.Fprintln(w, " "+s.title.Render(strings.ToUpper(cmd.CommandPath())))
	for _, line := range strings.Split(wrapText(cmd.Short, width), "\n") {
		if line != "" {
			fmt.Fprintln(w, " "+s.muted.Italic(true).Render(line))
		}
	}

	description, examples := parseDescription(cmd.Long)
	if description != "" && description != cmd.Short {
		fmt.Fprintln(w)
		for _, line := range strings.Split(wrapText(description, width), "\n") {
			fmt.Fprintln(w, " "+line)
		}
	}

	if cmd.Runnable() || cmd.HasSubCommands() {
		fmt.Fprintln(w, "\n "+s.section.Render("USAGE"))
		if cmd.Runnable() {
			fmt.Fprintln(w, " "+cmd.UseLine())
		}
		if cmd.HasSubCommands() {
			fmt.Fprintf(w, " %s [command]\n", cmd.CommandPath())
		}
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(w, "\n "+s.section.Render("COMMANDS"))
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() {
				fmt.Fprintf(w, " %s  %s\n", s.command.Render(rightPad(sub.Name(), sub.NamePadding())), sub.Short)
			}
		}
	}

	writeFlags(w, cmd, s)

	if cmd.Example != "" {
		examples = cmd.Example
	}
	if examples != "" {
		fmt.Fprintln(w, "\n "+s.section.Render("EXAMPLES"))
		root := cmd.Root().Name()
		for _, line := range strings.Split(examples, "\n") {
			fmt.Fprintln(w, styleExample(strings.TrimSpace(line), root, s))
		}
	}

	if cmd.HasSubCommands() {
		fmt.Fprintf(w, "\n Use \"%s [command] --help\" for more information.\n", cmd.CommandPath())
	}
}

// writeFlags lists local flags in detail for leaf commands and inline for
// commands that only group others.
func writeFlags(w io.Writer, cmd *cobra.Command, s helpStyles) {
	var flags []*pflag.Flag
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			flags = append(flags, f)
		}
	})
	if len(flags) == 0 {
		return
	}

	if cmd.HasAvailableSubCommands() {
		names := make([]string, len(flags))
		for i, f := range flags {
			names[i] = "--" + f.Name
		}
		fmt.Fprintln(w, "\n "+s.muted.Render("Flags: "+strings.Join(names, ", ")))
		return
	}

	fmt.Fprintln(w, "\n "+s.section.Render("FLAGS"))
	pad := 0
	for _, f := range flags {
		pad = max(pad, len(flagName(f)))
	}
	for _, f := range flags {
		usage, choices := parseChoices(f.Usage)
		switch f.DefValue {
		case "", "false", "[]", "0":
		default:
			usage += s.muted.Render(fmt.Sprintf(" (default: %s)", f.DefValue))
		}
		fmt.Fprintf(w, " %s  %s\n", s.flag.Render(rightPad(flagName(f), pad)), usage)
		for _, choice := range choices {
			fmt.Fprintf(w, " %s  %s\n", strings.Repeat(" ", pad), s.muted.Render("• "+choice))
		}
	}
}

func flagName(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	}
	return "    --" + f.Name
}

func rightPad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

// styleExample colors an example line: comments muted, the program name, its
// subcommand and flags each in their own style.
func styleExample(line, root string, s helpStyles) string {
	if line == "" {
		return ""
	}
	if strings.HasPrefix(line, "#") {
		return " " + s.muted.Render(line)
	}
	parts := strings.Fields(line)
	for i, part := range parts {
		switch {
		case i == 0 && part == root:
			parts[i] = s.command.Render(part)
		case i == 1 && !strings.HasPrefix(part, "-"):
			parts[i] = s.subcommand.Render(part)
		case strings.HasPrefix(part, "-"):
			parts[i] = s.flag.Render(part)
		}
	}
	return "   " + strings.Join(parts, " ")
}

// wrapText wraps each paragraph of text at width, keeping existing line breaks.
func wrapText(text string, width int) string {
	if width <= 0 {
		width = maxHelpWidth
	}
	var out []string
	for _, paragraph := range strings.Split(text, "\n") {
		if len(paragraph) <= width {
			out = append(out, paragraph)
			continue
		}
		line := ""
		for _, word := range strings.Fields(paragraph) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= width:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// parseDescription splits a long description at its "Examples:" heading.
func parseDescription(long string) (description, examples string) {
	for _, marker := range []string{"\nExamples:\n", "\nExample:\n"} {
		if before, after, ok := strings.Cut(long, marker); ok {
			return strings.TrimSpace(before), strings.TrimSpace(after)
		}
	}
	return long, ""
}

// parseChoices pulls an inline choice list ("Format: a, b, or c (default a)")
// out of a flag usage string. Lists of fewer than three items are left alone.
func parseChoices(usage string) (description string, choices []string) {
	head, rest, ok := strings.Cut(usage, ": ")
	if !ok {
		return usage, nil
	}
	list, suffix := rest, ""
	if i := strings.Index(rest, " ("); i != -1 {
		list, suffix = rest[:i], rest[i:]
	}

	parts := strings.Split(list, ", ")
	if len(parts) < 3 {
		return usage, nil
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(strings.TrimPrefix(p, "or "))
	}
	return head + ":" + suffix, parts
}
