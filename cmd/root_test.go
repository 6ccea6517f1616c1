package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamokeah/shamzam/internal/buildinfo"
	"github.com/adamokeah/shamzam/internal/conf"
)

// runCLI executes the root command against a config file pointing at a
// temp catalog and returns stdout.
func runCLI(t *testing.T, configFile string, args ...string) (string, error) {
	t.Helper()

	v, err := conf.New()
	require.NoError(t, err)

	root := RootCommand(v, buildinfo.New("1.2.3", "2026-10-01"))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configFile}, args...))

	err = root.ExecuteContext(t.Context())
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "database:\n  sqlite:\n    path: " + filepath.Join(dir, "catalog.db") + "\n" +
		"recognition:\n  apitoken: secret-token-123\n" +
		"telemetry:\n  metrics:\n    enabled: false\n" +
		"logging:\n  level: error\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func TestTrackLifecycle(t *testing.T) {
	configFile := writeConfig(t)
	audio := filepath.Join(t.TempDir(), "song.wav")
	require.NoError(t, os.WriteFile(audio, []byte("AAAA"), 0o600))

	out, err := runCLI(t, configFile, "track", "add", audio, "--title", "Blinding Lights", "--artist", "The Weeknd")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Added track 1: The Weeknd - Blinding Lights")

	out, err = runCLI(t, configFile, "track", "add", audio, "--title", "Blinding Lights", "--artist", "The Weeknd")
	require.NoError(t, err, out)

	out, err = runCLI(t, configFile, "track", "list", "--format", "csv")
	require.NoError(t, err, out)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{"ID,Title,Artist", "1,Blinding Lights,The Weeknd", "2,Blinding Lights,The Weeknd"}, lines)

	out, err = runCLI(t, configFile, "track", "delete", "--title", "Blinding Lights", "--artist", "The Weeknd")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Deleted 2 track(s)")

	_, err = runCLI(t, configFile, "track", "delete", "--id", "1")
	require.Error(t, err)

	_, err = runCLI(t, configFile, "track", "reset")
	require.Error(t, err)

	out, err = runCLI(t, configFile, "track", "reset", "--yes")
	require.NoError(t, err, out)

	out, err = runCLI(t, configFile, "track", "add", audio, "--title", "good 4 u", "--artist", "Olivia Rodrigo")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Added track 1:")
}

func TestTrackDeleteFlagValidation(t *testing.T) {
	configFile := writeConfig(t)

	_, err := runCLI(t, configFile, "track", "delete")
	require.Error(t, err)

	_, err = runCLI(t, configFile, "track", "delete", "--id", "1", "--title", "x")
	require.Error(t, err)

	_, err = runCLI(t, configFile, "track", "delete", "--title", "x")
	require.Error(t, err)
}

func TestConfigCommandRedacts(t *testing.T) {
	configFile := writeConfig(t)

	out, err := runCLI(t, configFile, "config")
	require.NoError(t, err, out)
	assert.Contains(t, out, "apitoken:")
	assert.NotContains(t, out, "secret-token-123")

	out, err = runCLI(t, configFile, "config", "--show-secrets")
	require.NoError(t, err, out)
	assert.Contains(t, out, "secret-token-123")
}

func TestMissingConfigFile(t *testing.T) {
	_, err := runCLI(t, filepath.Join(t.TempDir(), "missing.yaml"), "track", "list")
	require.Error(t, err)
}

func TestVersionFlag(t *testing.T) {
	out, err := runCLI(t, writeConfig(t), "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3")
}
