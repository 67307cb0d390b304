package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/realmweave/internal/cli/output"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !output.ValidMode(c.Output) {
		return fmt.Errorf("invalid output mode %q (valid: %s)", c.Output, strings.Join(output.Modes(), ", "))
	}
	if c.OutputSuffix == "" {
		return fmt.Errorf("output_suffix must not be empty")
	}
	if strings.ContainsAny(c.OutputSuffix, `/\`) {
		return fmt.Errorf("output_suffix must not contain a path separator: %q", c.OutputSuffix)
	}
	if !c.NoState && c.StatePath == "" {
		return fmt.Errorf("state_path is required unless no_state is set")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q (valid: text, json)", c.LogFormat)
	}
	if len(c.Verify.Command) > 0 && strings.TrimSpace(c.Verify.Command[0]) == "" {
		return fmt.Errorf("verify.command must name a program")
	}
	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive, got %s", c.Watch.Debounce)
	}
	return nil
}
