package tmux

import "strings"

// SanitizeForTmuxSession creates a valid tmux session name from a string.
// It replaces spaces and special characters with hyphens, converts to lowercase,
// and ensures the name is a reasonable length.
func SanitizeForTmuxSession(title string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, title)

	sanitized = strings.ToLower(sanitized)

	for strings.Contains(sanitized, "--") {
		sanitized = strings.ReplaceAll(sanitized, "--", "-")
	}

	// tmux rejects targets that start with a separator
	sanitized = strings.Trim(sanitized, "-_")

	if sanitized == "" {
		sanitized = "embedterm"
	}

	if len(sanitized) > 50 {
		sanitized = strings.TrimRight(sanitized[:50], "-_")
	}

	return sanitized
}

// KeyName converts a chord such as "ctrl+d" into the tmux key name "C-d".
// Unknown modifiers are kept as-is so tmux can reject them.
func KeyName(chord string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(chord)), "+")
	key := parts[len(parts)-1]
	switch key {
	case "enter", "return":
		key = "Enter"
	case "tab":
		key = "Tab"
	case "esc", "escape":
		key = "Escape"
	case "space":
		key = "Space"
	case "backspace":
		key = "BSpace"
	}

	var b strings.Builder
	for _, mod := range parts[:len(parts)-1] {
		switch mod {
		case "ctrl", "control":
			b.WriteString("C-")
		case "alt", "meta":
			b.WriteString("M-")
		case "shift":
			b.WriteString("S-")
		default:
			b.WriteString(mod + "-")
		}
	}
	b.WriteString(key)
	return b.String()
}
