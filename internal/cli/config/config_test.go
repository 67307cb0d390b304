package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches to dir for the rest of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, "realmweave.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "", "output mode")
	flags.String("state", "", "state database")
	flags.Bool("typecheck", false, "type-check verifier")
	flags.StringSlice("verify-command", nil, "external verifier")
	flags.Duration("debounce", 0, "watch debounce")
	flags.StringP("out", "o", "", "command option")
	return flags
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, ".woven", cfg.OutputSuffix)
	assert.True(t, cfg.Verify.Structural)
	assert.False(t, cfg.Verify.TypeCheck)
	assert.Empty(t, cfg.Verify.Command)
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Empty(t, cfg.ConfigFile)
	assert.True(t, filepath.IsAbs(cfg.StatePath))
	assert.True(t, strings.HasSuffix(cfg.StatePath, filepath.Join(".realmweave", "state.db")))
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, `output: json
output_suffix: .gen
apply_type_mapping: true
state_path: state/history.db
verify:
  structural: false
  typecheck: true
  command: [go, vet]
watch:
  debounce: 1s
`)

	cfg, err := Load(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, ".gen", cfg.OutputSuffix)
	assert.True(t, cfg.ApplyTypeMapping)
	assert.False(t, cfg.Verify.Structural)
	assert.True(t, cfg.Verify.TypeCheck)
	assert.Equal(t, []string{"go", "vet"}, cfg.Verify.Command)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, cfgPath, cfg.ConfigFile)
	assert.Equal(t, filepath.Join(dir, "state", "history.db"), cfg.StatePath)
}

func TestLoad_FindsConfigUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "output: yaml\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	chdir(t, nested)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.Output)
	resolvedRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, resolvedRoot, gotRoot)
}

func TestLoad_EnvPrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "output: json\nverify:\n  typecheck: false\n")

	t.Setenv("REALMWEAVE_OUTPUT", "markdown")
	t.Setenv("REALMWEAVE_VERIFY_TYPECHECK", "true")
	t.Setenv("REALMWEAVE_VERIFY_COMMAND", "diff -r")
	t.Setenv("REALMWEAVE_WATCH_DEBOUNCE", "50ms")

	cfg, err := Load(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "markdown", cfg.Output, "env var should override config file")
	assert.True(t, cfg.Verify.TypeCheck)
	assert.Equal(t, []string{"diff", "-r"}, cfg.Verify.Command)
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoad_FlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "output: json\n")
	t.Setenv("REALMWEAVE_OUTPUT", "markdown")

	flags := testFlags()
	require.NoError(t, flags.Set("output", "yaml"))
	require.NoError(t, flags.Set("typecheck", "true"))
	require.NoError(t, flags.Set("verify-command", "cmp,-s"))
	require.NoError(t, flags.Set("debounce", "2s"))
	require.NoError(t, flags.Set("out", "elsewhere"))

	cfg, err := Load(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.Output, "flag value should override config file and env var")
	assert.True(t, cfg.Verify.TypeCheck)
	assert.Equal(t, []string{"cmp", "-s"}, cfg.Verify.Command)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
}

func TestLoad_FlagNotSetUsesEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "output: json\n")
	t.Setenv("REALMWEAVE_OUTPUT", "markdown")

	cfg, err := Load(cfgPath, testFlags())
	require.NoError(t, err)

	assert.Equal(t, "markdown", cfg.Output, "env var should be used when flag is not set")
}

func TestLoad_StateFlagRelativeToWorkingDir(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")
	work := t.TempDir()
	chdir(t, work)

	flags := testFlags()
	require.NoError(t, flags.Set("state", "mine.db"))

	cfg, err := Load(cfgPath, flags)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "mine.db"), cfg.StatePath)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errSub  string
	}{
		{"bad output", "output: csv\n", "invalid output mode"},
		{"bad level", "log_level: loud\n", "invalid log_level"},
		{"bad suffix", "output_suffix: a/b\n", "path separator"},
		{"bad debounce", "watch:\n  debounce: 0s\n", "watch.debounce"},
		{"malformed yaml", "output: [\n", "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgPath := writeConfig(t, t.TempDir(), tt.content)
			_, err := Load(cfgPath, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no state path with no_state", func(c *Config) { c.StatePath = ""; c.NoState = true }, ""},
		{"missing state path", func(c *Config) { c.StatePath = "" }, "state_path is required"},
		{"empty suffix", func(c *Config) { c.OutputSuffix = "" }, "output_suffix must not be empty"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "invalid log_format"},
		{"empty command", func(c *Config) { c.Verify.Command = []string{" "} }, "verify.command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "output_suffix", envKey("REALMWEAVE_OUTPUT_SUFFIX"))
	assert.Equal(t, "verify.structural", envKey("REALMWEAVE_VERIFY_STRUCTURAL"))
	assert.Equal(t, "watch.debounce", envKey("REALMWEAVE_WATCH_DEBOUNCE"))
	assert.Equal(t, "no_state", envKey("REALMWEAVE_NO_STATE"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogLevel = "info"
	cfg.LogFormat = "json"

	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	cfg.LogLevel = "nope"
	_, err = cfg.NewLogger(&buf)
	assert.Error(t, err)
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, GetLogger(ctx), "fallback logger")
	assert.Equal(t, Default(), FromContext(ctx))

	cfg := Default()
	cfg.Output = "json"
	ctx = WithConfig(ctx, cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
