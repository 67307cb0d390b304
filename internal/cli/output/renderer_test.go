package output

import (
	"bytes"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newTest(mode OutputMode, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, mode), out, errOut
}

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"TEXT", ModeText},
		{"md", ModeMarkdown},
		{"markdown", ModeMarkdown},
		{"json", ModeJSON},
		{"yml", ModeYAML},
		{"bogus", ModeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.in))
		})
	}

	assert.True(t, ValidMode(""))
	assert.True(t, ValidMode("yaml"))
	assert.False(t, ValidMode("csv"))
	assert.True(t, ModeJSON.Structured())
	assert.False(t, ModeText.Structured())
}

func TestEffectiveMode(t *testing.T) {
	r, _, _ := newTest(ModeAuto, true)
	assert.Equal(t, ModeText, r.EffectiveMode())

	r, _, _ = newTest(ModeAuto, false)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())

	r, _, _ = newTest(ModeJSON, true)
	assert.Equal(t, ModeJSON, r.EffectiveMode())
}

func TestMarkdownOutput(t *testing.T) {
	r, out, errOut := newTest(ModeAuto, false)

	r.Header(2, "Types")
	r.KeyValue("Table", "Person")
	r.Success("woven")
	r.Table([]string{"Property", "Column"}, [][]string{{"Email", "Email2"}})
	r.Warning("careful")

	s := out.String()
	assert.Contains(t, s, "## Types")
	assert.Contains(t, s, "- **Table:** Person")
	assert.Contains(t, s, "**OK** woven")
	assert.Contains(t, s, "| Email | Email2 |")
	assert.Contains(t, errOut.String(), "> **Warning:** careful")
	assert.False(t, ansi.MatchString(s))
}

func TestTextOutputWithoutTTYHasNoANSI(t *testing.T) {
	r, out, _ := newTest(ModeText, false)

	r.Header(1, "Types")
	r.Success("done")
	r.Table([]string{"A"}, [][]string{{"x"}})

	assert.Contains(t, out.String(), "Types")
	assert.Contains(t, out.String(), "✓ done")
	assert.False(t, ansi.MatchString(out.String()))
}

func TestStructured(t *testing.T) {
	report := WeaveReport{Input: "models", Outcome: "woven", Phases: []string{"unwoven", "woven"}}

	r, out, _ := newTest(ModeJSON, false)
	ok, err := r.Structured(report)
	require.NoError(t, err)
	assert.True(t, ok)
	var decoded WeaveReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, report, decoded)

	r, out, _ = newTest(ModeYAML, false)
	ok, err = r.Structured(report)
	require.NoError(t, err)
	assert.True(t, ok)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "woven", doc["outcome"])

	r, out, _ = newTest(ModeMarkdown, false)
	ok, err = r.Structured(report)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "### x", FormatHeader(3, "x"))
	assert.Equal(t, "# x", FormatHeader(0, "x"))
	assert.Equal(t, "- **k:** v", FormatKeyValue("k", "v"))
	assert.Equal(t, "```go\npackage x\n```", FormatCodeBlock("go", "package x\n"))
}
