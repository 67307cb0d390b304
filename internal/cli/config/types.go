// Package config loads realmweave CLI configuration.
//
// Values come from built-in defaults, realmweave.yaml, REALMWEAVE_*
// environment variables and explicitly set flags, in increasing order of
// precedence.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	// Output is the renderer mode: auto, text, markdown, json or yaml.
	Output string `koanf:"output"`
	// OutputSuffix names the default output directory: <input><suffix>.
	OutputSuffix     string       `koanf:"output_suffix"`
	StatePath        string       `koanf:"state_path"`
	NoState          bool         `koanf:"no_state"`
	ApplyTypeMapping bool         `koanf:"apply_type_mapping"`
	LogLevel         string       `koanf:"log_level"`
	LogFormat        string       `koanf:"log_format"`
	Verify           VerifyConfig `koanf:"verify"`
	Watch            WatchConfig  `koanf:"watch"`

	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot string `koanf:"-"`
	// ConfigFile is the config file that was read, if any.
	ConfigFile string `koanf:"-"`
}

// VerifyConfig selects the verifiers run after weaving.
type VerifyConfig struct {
	Structural bool `koanf:"structural"`
	TypeCheck  bool `koanf:"typecheck"`
	// Command is an external verifier; the original and woven directories
	// are appended to it.
	Command []string `koanf:"command"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce"`
}

// Default configuration values.
const (
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultOutputSuffix = ".woven"
	DefaultStateFile    = ".realmweave/state.db"
	DefaultLogLevel     = "warn"
	DefaultLogFormat    = "text"
	DefaultDebounce     = 200 * time.Millisecond
)

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Output:       DefaultOutput,
		OutputSuffix: DefaultOutputSuffix,
		StatePath:    DefaultStateFile,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		Verify:       VerifyConfig{Structural: true},
		Watch:        WatchConfig{Debounce: DefaultDebounce},
	}
}
