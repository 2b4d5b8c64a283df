package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/grovetools/embedterm/errors"
)

var (
	sessionNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)
	hexColorRegex    = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// Validate checks semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Emulator.Binary) == "" {
		return errors.New(errors.ErrCodeConfigValidation, "emulator.binary cannot be empty")
	}
	if strings.TrimSpace(c.Multiplexer.Binary) == "" {
		return errors.New(errors.ErrCodeConfigValidation, "multiplexer.binary cannot be empty")
	}
	if !sessionNameRegex.MatchString(c.Multiplexer.SessionName) || len(c.Multiplexer.SessionName) > 50 {
		return errors.New(errors.ErrCodeConfigValidation, "invalid multiplexer.session_name").
			WithDetail("session_name", c.Multiplexer.SessionName)
	}

	if err := validateTheme(&c.Theme); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid theme configuration")
	}
	if err := validateTiming(&c.Timing, &c.Respawn); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid timing configuration")
	}
	if err := validateGeometry(&c.Geometry); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid geometry configuration")
	}

	for _, chord := range c.Intercept.Chords {
		if strings.TrimSpace(chord) == "" {
			return errors.New(errors.ErrCodeConfigValidation, "intercept.chords cannot contain empty entries")
		}
	}

	return nil
}

func validateTheme(t *ThemeConfig) error {
	for name, value := range map[string]string{
		"background": t.Background,
		"foreground": t.Foreground,
		"cursor":     t.Cursor,
	} {
		if value != "" && !hexColorRegex.MatchString(value) {
			return fmt.Errorf("%s must be a #rrggbb color, got %q", name, value)
		}
	}
	return nil
}

func validateTiming(t *TimingConfig, r *RespawnConfig) error {
	durations := []struct {
		name  string
		value Duration
	}{
		{"timing.cwd_poll", t.CwdPoll},
		{"timing.size_reconcile", t.SizeReconcile},
		{"timing.spawn_retry", t.SpawnRetry},
		{"timing.ready_delay", t.ReadyDelay},
		{"timing.discover_delay", t.DiscoverDelay},
		{"respawn.cooldown", r.Cooldown},
		{"respawn.grace_period", r.GracePeriod},
		{"respawn.shutdown_grace", r.ShutdownGrace},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	if r.DegradedAfter < 1 || r.UnavailableAfter < 1 {
		return fmt.Errorf("respawn thresholds must be at least 1")
	}
	return nil
}

func validateGeometry(g *GeometryConfig) error {
	if g.Alpha <= 0 || g.Alpha > 1 {
		return fmt.Errorf("alpha must be in (0, 1], got %v", g.Alpha)
	}
	if g.CellWidth <= 0 || g.CellHeight <= 0 {
		return fmt.Errorf("seed cell size must be positive")
	}
	if g.MinCols < 1 || g.MinCols > g.MaxCols {
		return fmt.Errorf("column bounds [%d, %d] are invalid", g.MinCols, g.MaxCols)
	}
	if g.MinRows < 1 || g.MinRows > g.MaxRows {
		return fmt.Errorf("row bounds [%d, %d] are invalid", g.MinRows, g.MaxRows)
	}
	if g.DefaultCols < 1 || g.DefaultRows < 1 {
		return fmt.Errorf("default grid must be positive")
	}
	return nil
}
