package config

import (
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// Duration is a time.Duration that reads and writes as a Go duration string ("800ms").
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// JSONSchema describes Duration as a duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration string, e.g. 800ms or 1.5s",
	}
}

// EmulatorConfig configures the terminal emulator that renders into the host container.
type EmulatorConfig struct {
	Binary    string   `yaml:"binary,omitempty" toml:"binary,omitempty" json:"binary,omitempty" jsonschema:"description=Terminal emulator executable (default: xterm)"`
	Class     string   `yaml:"class,omitempty" toml:"class,omitempty" json:"class,omitempty" jsonschema:"description=WM_CLASS substring used to pick the emulator window among the container's children"`
	Font      string   `yaml:"font,omitempty" toml:"font,omitempty" json:"font,omitempty" jsonschema:"description=Font face passed to the emulator"`
	FontSize  int      `yaml:"font_size,omitempty" toml:"font_size,omitempty" json:"font_size,omitempty" jsonschema:"minimum=4,maximum=96,description=Font size in points"`
	ExtraArgs []string `yaml:"extra_args,omitempty" toml:"extra_args,omitempty" json:"extra_args,omitempty" jsonschema:"description=Additional emulator arguments inserted before the child command"`
}

// MultiplexerConfig configures the session multiplexer driven over the private socket.
type MultiplexerConfig struct {
	Binary      string `yaml:"binary,omitempty" toml:"binary,omitempty" json:"binary,omitempty" jsonschema:"description=Multiplexer executable (default: tmux)"`
	SessionName string `yaml:"session_name,omitempty" toml:"session_name,omitempty" json:"session_name,omitempty" jsonschema:"pattern=^[a-zA-Z0-9][a-zA-Z0-9_-]*$,description=Logical session name inside the private socket namespace"`
}

// ThemeConfig selects the emulator palette. Explicit colors override the named theme.
type ThemeConfig struct {
	Name       string `yaml:"name,omitempty" toml:"name,omitempty" json:"name,omitempty" jsonschema:"enum=kanagawa,enum=kanagawa-light,enum=gruvbox,enum=gruvbox-light,enum=terminal,description=Named palette"`
	Background string `yaml:"background,omitempty" toml:"background,omitempty" json:"background,omitempty" jsonschema:"description=Background color override (#rrggbb)"`
	Foreground string `yaml:"foreground,omitempty" toml:"foreground,omitempty" json:"foreground,omitempty" jsonschema:"description=Foreground color override (#rrggbb)"`
	Cursor     string `yaml:"cursor,omitempty" toml:"cursor,omitempty" json:"cursor,omitempty" jsonschema:"description=Cursor color override (#rrggbb)"`
}

// TimingConfig holds the timer intervals of the supervisor loop.
type TimingConfig struct {
	CwdPoll       Duration `yaml:"cwd_poll,omitempty" toml:"cwd_poll,omitempty" json:"cwd_poll,omitempty" jsonschema:"description=Interval between working directory polls and liveness checks"`
	SizeReconcile Duration `yaml:"size_reconcile,omitempty" toml:"size_reconcile,omitempty" json:"size_reconcile,omitempty" jsonschema:"description=Interval of the periodic geometry reconciliation"`
	SpawnRetry    Duration `yaml:"spawn_retry,omitempty" toml:"spawn_retry,omitempty" json:"spawn_retry,omitempty" jsonschema:"description=Delay between checks for a mapped container before spawning"`
	ReadyDelay    Duration `yaml:"ready_delay,omitempty" toml:"ready_delay,omitempty" json:"ready_delay,omitempty" jsonschema:"description=Delay after spawn before probing for the session"`
	DiscoverDelay Duration `yaml:"discover_delay,omitempty" toml:"discover_delay,omitempty" json:"discover_delay,omitempty" jsonschema:"description=Delay after readiness before discovering the emulator window"`
}

// RespawnConfig bounds crash recovery.
type RespawnConfig struct {
	Cooldown         Duration `yaml:"cooldown,omitempty" toml:"cooldown,omitempty" json:"cooldown,omitempty" jsonschema:"description=Minimum time between respawn attempts"`
	GracePeriod      Duration `yaml:"grace_period,omitempty" toml:"grace_period,omitempty" json:"grace_period,omitempty" jsonschema:"description=Wait after SIGTERM before SIGKILL during respawn"`
	ShutdownGrace    Duration `yaml:"shutdown_grace,omitempty" toml:"shutdown_grace,omitempty" json:"shutdown_grace,omitempty" jsonschema:"description=Wait after SIGTERM before SIGKILL during shutdown"`
	DegradedAfter    int      `yaml:"degraded_after,omitempty" toml:"degraded_after,omitempty" json:"degraded_after,omitempty" jsonschema:"minimum=1,description=Consecutive unrecovered respawns before a degraded notice is shown"`
	UnavailableAfter int      `yaml:"unavailable_after,omitempty" toml:"unavailable_after,omitempty" json:"unavailable_after,omitempty" jsonschema:"minimum=1,description=Consecutive failed session recreations before the session is reported unavailable"`
}

// GeometryConfig tunes the cell-size estimator and the grid clamp.
type GeometryConfig struct {
	Alpha       float64 `yaml:"alpha,omitempty" toml:"alpha,omitempty" json:"alpha,omitempty" jsonschema:"exclusiveMinimum=0,maximum=1,description=Smoothing factor of the cell size estimate"`
	CellWidth   float64 `yaml:"cell_width,omitempty" toml:"cell_width,omitempty" json:"cell_width,omitempty" jsonschema:"exclusiveMinimum=0,description=Seed cell width in pixels"`
	CellHeight  float64 `yaml:"cell_height,omitempty" toml:"cell_height,omitempty" json:"cell_height,omitempty" jsonschema:"exclusiveMinimum=0,description=Seed cell height in pixels"`
	MinCols     int     `yaml:"min_cols,omitempty" toml:"min_cols,omitempty" json:"min_cols,omitempty" jsonschema:"minimum=1"`
	MaxCols     int     `yaml:"max_cols,omitempty" toml:"max_cols,omitempty" json:"max_cols,omitempty" jsonschema:"minimum=1"`
	MinRows     int     `yaml:"min_rows,omitempty" toml:"min_rows,omitempty" json:"min_rows,omitempty" jsonschema:"minimum=1"`
	MaxRows     int     `yaml:"max_rows,omitempty" toml:"max_rows,omitempty" json:"max_rows,omitempty" jsonschema:"minimum=1"`
	DefaultCols int     `yaml:"default_cols,omitempty" toml:"default_cols,omitempty" json:"default_cols,omitempty" jsonschema:"minimum=1,description=Grid assumed when the session has not reported a size yet"`
	DefaultRows int     `yaml:"default_rows,omitempty" toml:"default_rows,omitempty" json:"default_rows,omitempty" jsonschema:"minimum=1"`
}

// InterceptConfig lists the chords forwarded to the session while the terminal has focus.
type InterceptConfig struct {
	Chords []string `yaml:"chords,omitempty" toml:"chords,omitempty" json:"chords,omitempty" jsonschema:"description=Key chords (e.g. ctrl+d) forwarded to the session instead of host shortcuts"`
}

// Config is the embedterm configuration.
type Config struct {
	Emulator    EmulatorConfig    `yaml:"emulator,omitempty" toml:"emulator,omitempty" json:"emulator,omitempty"`
	Multiplexer MultiplexerConfig `yaml:"multiplexer,omitempty" toml:"multiplexer,omitempty" json:"multiplexer,omitempty"`
	Theme       ThemeConfig       `yaml:"theme,omitempty" toml:"theme,omitempty" json:"theme,omitempty"`
	Timing      TimingConfig      `yaml:"timing,omitempty" toml:"timing,omitempty" json:"timing,omitempty"`
	Respawn     RespawnConfig     `yaml:"respawn,omitempty" toml:"respawn,omitempty" json:"respawn,omitempty"`
	Geometry    GeometryConfig    `yaml:"geometry,omitempty" toml:"geometry,omitempty" json:"geometry,omitempty"`
	Intercept   InterceptConfig   `yaml:"intercept,omitempty" toml:"intercept,omitempty" json:"intercept,omitempty"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Emulator: EmulatorConfig{
			Binary:   "xterm",
			Class:    "xterm",
			Font:     "Monospace",
			FontSize: 11,
		},
		Multiplexer: MultiplexerConfig{
			Binary:      "tmux",
			SessionName: "embedterm",
		},
		Theme: ThemeConfig{
			Name: "kanagawa",
		},
		Timing: TimingConfig{
			CwdPoll:       Duration(800 * time.Millisecond),
			SizeReconcile: Duration(1200 * time.Millisecond),
			SpawnRetry:    Duration(50 * time.Millisecond),
			ReadyDelay:    Duration(600 * time.Millisecond),
			DiscoverDelay: Duration(200 * time.Millisecond),
		},
		Respawn: RespawnConfig{
			Cooldown:         Duration(time.Second),
			GracePeriod:      Duration(600 * time.Millisecond),
			ShutdownGrace:    Duration(time.Second),
			DegradedAfter:    3,
			UnavailableAfter: 3,
		},
		Geometry: GeometryConfig{
			Alpha:       0.35,
			CellWidth:   8,
			CellHeight:  16,
			MinCols:     20,
			MaxCols:     400,
			MinRows:     5,
			MaxRows:     200,
			DefaultCols: 80,
			DefaultRows: 24,
		},
		Intercept: InterceptConfig{
			Chords: []string{"ctrl+d"},
		},
	}
}

// UnmarshalExtension decodes a top-level extension section (e.g. "logging")
// into target. A missing key leaves target untouched.
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder for extension '%s': %w", key, err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension '%s': %w", key, err)
	}

	return nil
}
