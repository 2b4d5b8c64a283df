package theme

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/embedterm/config"
)

const defaultThemeName = "kanagawa"

// --- Kanagawa Dragon (dark) palette ---
const (
	kanagawaDarkGreen      = "#98BB6C"
	kanagawaDarkYellow     = "#FF9E3B"
	kanagawaDarkRed        = "#FF5D62"
	kanagawaDarkOrange     = "#FFA066"
	kanagawaDarkCyan       = "#7E9CD8"
	kanagawaDarkViolet     = "#957FB8"
	kanagawaDarkLightText  = "#DCD7BA"
	kanagawaDarkMutedText  = "#727169"
	kanagawaDarkBorder     = "#363646"
	kanagawaDarkBackground = "#1F1F28"
)

// --- Kanagawa Wave (light-inspired) palette ---
const (
	kanagawaLightGreen      = "#4E7C5A"
	kanagawaLightYellow     = "#A68A64"
	kanagawaLightRed        = "#C34043"
	kanagawaLightOrange     = "#CC6B4E"
	kanagawaLightCyan       = "#5B8BBE"
	kanagawaLightViolet     = "#674D7A"
	kanagawaLightLightText  = "#2B2F42"
	kanagawaLightMutedText  = "#6C7086"
	kanagawaLightBorder     = "#B5BDC5"
	kanagawaLightBackground = "#F7F7FB"
)

// --- Gruvbox palette ---
const (
	gruvboxDarkGreen       = "#B8BB26"
	gruvboxLightGreen      = "#98971A"
	gruvboxDarkYellow      = "#FABD2F"
	gruvboxLightYellow     = "#D79921"
	gruvboxDarkRed         = "#FB4934"
	gruvboxLightRed        = "#CC241D"
	gruvboxDarkOrange      = "#FE8019"
	gruvboxLightOrange     = "#D65D0E"
	gruvboxDarkCyan        = "#83A598"
	gruvboxLightCyan       = "#458588"
	gruvboxDarkViolet      = "#B16286"
	gruvboxLightViolet     = "#8F3F71"
	gruvboxDarkLightText   = "#EBDBB2"
	gruvboxLightLightText  = "#3C3836"
	gruvboxDarkMutedText   = "#BDAE93"
	gruvboxLightMutedText  = "#928374"
	gruvboxDarkBorder      = "#504945"
	gruvboxLightBorder     = "#D5C4A1"
	gruvboxDarkBackground  = "#282828"
	gruvboxLightBackground = "#FBF1C7"
)

// --- Terminal (ANSI-friendly) palette ---
const (
	terminalGreen     = "2"
	terminalYellow    = "3"
	terminalRed       = "1"
	terminalOrange    = "208"
	terminalCyan      = "6"
	terminalViolet    = "5"
	terminalLightText = "7"
	terminalMutedText = "8"
	terminalBorder    = "8"
)

// Colors encapsulates the palette used by console output. lipgloss.TerminalColor
// allows a mix of adaptive and static colors.
type Colors struct {
	Green     lipgloss.TerminalColor
	Yellow    lipgloss.TerminalColor
	Red       lipgloss.TerminalColor
	Orange    lipgloss.TerminalColor
	Cyan      lipgloss.TerminalColor
	Violet    lipgloss.TerminalColor
	LightText lipgloss.TerminalColor
	MutedText lipgloss.TerminalColor
	Border    lipgloss.TerminalColor
}

// EmulatorColors are the concrete colors handed to the embedded terminal emulator.
// Empty fields leave the emulator's own default in place.
type EmulatorColors struct {
	Background string
	Foreground string
	Cursor     string
}

// Theme holds the console styles used by the CLI and log formatter.
type Theme struct {
	Name     string
	Colors   Colors
	Emulator EmulatorColors

	Header  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Code    lipgloss.Style
	Box     lipgloss.Style
	Accent  lipgloss.Style
}

type palette struct {
	colors   Colors
	emulator EmulatorColors
}

var themeRegistry = map[string]func() palette{
	"kanagawa":       newKanagawaDark,
	"kanagawa-light": newKanagawaLight,
	"gruvbox":        newGruvboxDark,
	"gruvbox-light":  newGruvboxLight,
	"terminal":       newTerminal,
}

var themeAliases = map[string]string{
	"kanagawa-dark":   "kanagawa",
	"kanagawa-dragon": "kanagawa",
	"kanagawa-wave":   "kanagawa-light",
	"gruvbox-dark":    "gruvbox",
}

// DefaultTheme is the theme selected by EMBEDTERM_THEME or the configuration file.
var DefaultTheme = NewThemeWithName(getThemeName())

// NewThemeWithName constructs a theme from a specific palette name.
// Unknown names fall back to kanagawa.
func NewThemeWithName(name string) *Theme {
	key := resolveName(name)
	p := themeRegistry[key]()
	return newThemeFromPalette(key, p)
}

// Names lists the registered palette names.
func Names() []string {
	return []string{"kanagawa", "kanagawa-light", "gruvbox", "gruvbox-light", "terminal"}
}

// ForConfig returns the emulator colors for a theme section, applying its overrides.
func ForConfig(cfg config.ThemeConfig) EmulatorColors {
	colors := NewThemeWithName(cfg.Name).Emulator
	if cfg.Background != "" {
		colors.Background = cfg.Background
	}
	if cfg.Foreground != "" {
		colors.Foreground = cfg.Foreground
	}
	if cfg.Cursor != "" {
		colors.Cursor = cfg.Cursor
	}
	return colors
}

// RenderHeader renders a header with the default styling.
func RenderHeader(title string) string {
	return DefaultTheme.Header.Render(title)
}

// RenderStatus renders text with the appropriate status style.
func RenderStatus(status, text string) string {
	switch status {
	case "success":
		return DefaultTheme.Success.Render(text)
	case "error":
		return DefaultTheme.Error.Render(text)
	case "warning":
		return DefaultTheme.Warning.Render(text)
	case "info":
		return DefaultTheme.Info.Render(text)
	default:
		return text
	}
}

func newThemeFromPalette(name string, p palette) *Theme {
	colors := p.colors
	return &Theme{
		Name:     name,
		Colors:   colors,
		Emulator: p.emulator,

		Header: lipgloss.NewStyle().
			Bold(true).
			MarginTop(1).
			MarginBottom(1),

		Success: lipgloss.NewStyle().
			Foreground(colors.Green).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(colors.Red).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(colors.Yellow).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(colors.Cyan).
			Bold(true),

		Bold: lipgloss.NewStyle().
			Bold(true),

		Muted: lipgloss.NewStyle().
			Faint(true),

		Code: lipgloss.NewStyle().
			Foreground(colors.LightText).
			MarginLeft(2),

		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Border).
			Padding(0, 1),

		Accent: lipgloss.NewStyle().
			Foreground(colors.Violet).
			Bold(true),
	}
}

func resolveName(name string) string {
	key := normalizeThemeName(name)
	if alias, ok := themeAliases[key]; ok {
		key = alias
	}
	if _, ok := themeRegistry[key]; ok {
		return key
	}
	return defaultThemeName
}

func normalizeThemeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.ReplaceAll(normalized, "_", "-")
	return normalized
}

func getThemeName() string {
	if theme := normalizeThemeName(os.Getenv("EMBEDTERM_THEME")); theme != "" {
		return theme
	}

	cfg, err := config.LoadDefault()
	if err != nil || cfg == nil {
		return defaultThemeName
	}
	if theme := normalizeThemeName(cfg.Theme.Name); theme != "" {
		return theme
	}
	return defaultThemeName
}

func newKanagawaDark() palette {
	return palette{
		colors: Colors{
			Green:     lipgloss.AdaptiveColor{Light: kanagawaLightGreen, Dark: kanagawaDarkGreen},
			Yellow:    lipgloss.AdaptiveColor{Light: kanagawaLightYellow, Dark: kanagawaDarkYellow},
			Red:       lipgloss.AdaptiveColor{Light: kanagawaLightRed, Dark: kanagawaDarkRed},
			Orange:    lipgloss.AdaptiveColor{Light: kanagawaLightOrange, Dark: kanagawaDarkOrange},
			Cyan:      lipgloss.AdaptiveColor{Light: kanagawaLightCyan, Dark: kanagawaDarkCyan},
			Violet:    lipgloss.AdaptiveColor{Light: kanagawaLightViolet, Dark: kanagawaDarkViolet},
			LightText: lipgloss.AdaptiveColor{Light: kanagawaLightLightText, Dark: kanagawaDarkLightText},
			MutedText: lipgloss.AdaptiveColor{Light: kanagawaLightMutedText, Dark: kanagawaDarkMutedText},
			Border:    lipgloss.AdaptiveColor{Light: kanagawaLightBorder, Dark: kanagawaDarkBorder},
		},
		emulator: EmulatorColors{
			Background: kanagawaDarkBackground,
			Foreground: kanagawaDarkLightText,
			Cursor:     kanagawaDarkOrange,
		},
	}
}

func newKanagawaLight() palette {
	p := newKanagawaDark()
	p.emulator = EmulatorColors{
		Background: kanagawaLightBackground,
		Foreground: kanagawaLightLightText,
		Cursor:     kanagawaLightOrange,
	}
	return p
}

func newGruvboxDark() palette {
	return palette{
		colors: Colors{
			Green:     lipgloss.AdaptiveColor{Light: gruvboxLightGreen, Dark: gruvboxDarkGreen},
			Yellow:    lipgloss.AdaptiveColor{Light: gruvboxLightYellow, Dark: gruvboxDarkYellow},
			Red:       lipgloss.AdaptiveColor{Light: gruvboxLightRed, Dark: gruvboxDarkRed},
			Orange:    lipgloss.AdaptiveColor{Light: gruvboxLightOrange, Dark: gruvboxDarkOrange},
			Cyan:      lipgloss.AdaptiveColor{Light: gruvboxLightCyan, Dark: gruvboxDarkCyan},
			Violet:    lipgloss.AdaptiveColor{Light: gruvboxLightViolet, Dark: gruvboxDarkViolet},
			LightText: lipgloss.AdaptiveColor{Light: gruvboxLightLightText, Dark: gruvboxDarkLightText},
			MutedText: lipgloss.AdaptiveColor{Light: gruvboxLightMutedText, Dark: gruvboxDarkMutedText},
			Border:    lipgloss.AdaptiveColor{Light: gruvboxLightBorder, Dark: gruvboxDarkBorder},
		},
		emulator: EmulatorColors{
			Background: gruvboxDarkBackground,
			Foreground: gruvboxDarkLightText,
			Cursor:     gruvboxDarkOrange,
		},
	}
}

func newGruvboxLight() palette {
	p := newGruvboxDark()
	p.emulator = EmulatorColors{
		Background: gruvboxLightBackground,
		Foreground: gruvboxLightLightText,
		Cursor:     gruvboxLightOrange,
	}
	return p
}

// The terminal palette leaves the emulator on its own colors.
func newTerminal() palette {
	return palette{
		colors: Colors{
			Green:     lipgloss.Color(terminalGreen),
			Yellow:    lipgloss.Color(terminalYellow),
			Red:       lipgloss.Color(terminalRed),
			Orange:    lipgloss.Color(terminalOrange),
			Cyan:      lipgloss.Color(terminalCyan),
			Violet:    lipgloss.Color(terminalViolet),
			LightText: lipgloss.Color(terminalLightText),
			MutedText: lipgloss.Color(terminalMutedText),
			Border:    lipgloss.Color(terminalBorder),
		},
	}
}
