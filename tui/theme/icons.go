package theme

import "os"

// Status icons used by CLI output. EMBEDTERM_ICONS=ascii selects plain fallbacks.
var (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "⚠"
	IconInfo    = "•"
)

func init() {
	if os.Getenv("EMBEDTERM_ICONS") == "ascii" {
		IconSuccess = "[ok]"
		IconError = "[x]"
		IconWarning = "[!]"
		IconInfo = "-"
	}
}
