// Package output renders command results for terminals, scripts and agents.
//
// In auto mode a terminal gets styled text and anything else gets markdown.
// JSON and YAML modes emit the command's report value as-is.
package output

import "strings"

// OutputMode selects how results are rendered.
type OutputMode string

// Output modes.
const (
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
	ModeYAML     OutputMode = "yaml"
)

// Modes lists the accepted mode names.
func Modes() []string {
	return []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON), string(ModeYAML)}
}

// Mode parses a mode name. Empty and unknown names yield ModeAuto; "md" and
// "yml" are accepted as aliases.
func Mode(s string) OutputMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ModeText
	case "markdown", "md":
		return ModeMarkdown
	case "json":
		return ModeJSON
	case "yaml", "yml":
		return ModeYAML
	default:
		return ModeAuto
	}
}

// ValidMode reports whether s names a mode. The empty string is valid and
// means auto.
func ValidMode(s string) bool {
	if s == "" {
		return true
	}
	switch strings.ToLower(s) {
	case "auto", "text", "markdown", "md", "json", "yaml", "yml":
		return true
	}
	return false
}

// Structured reports whether m emits machine-readable documents.
func (m OutputMode) Structured() bool { return m == ModeJSON || m == ModeYAML }
