package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inDir points the working directory lookup at dir for the test.
func inDir(t *testing.T, dir string) {
	t.Helper()
	prev := platformDir.getwd
	platformDir.getwd = func() (string, error) { return dir, nil }
	t.Cleanup(func() { platformDir.getwd = prev })
}

func TestDefaultConfigDir_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}

	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/pinagent", got)
	})

	t.Run("falls back to ~/.config when XDG unset", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "pinagent"), got)
	})
}

func TestResolveConfigDir(t *testing.T) {
	withLocal := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(withLocal, DefaultConfigDirName), 0o755))
	withoutLocal := t.TempDir()

	tests := []struct {
		name    string
		flag    string
		envVal  string
		cwd     string
		want    string
		wantSub string
	}{
		{name: "flag wins over env", flag: "/explicit/config", envVal: "/env/config", cwd: withLocal, want: "/explicit/config"},
		{name: "env wins when flag empty", envVal: "/env/config", cwd: withLocal, want: "/env/config"},
		{name: "repository directory when present", cwd: withLocal, want: filepath.Join(withLocal, DefaultConfigDirName)},
		{name: "platform default otherwise", cwd: withoutLocal, wantSub: "pinagent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.envVal)
			inDir(t, tt.cwd)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Contains(t, got, tt.wantSub)
				assert.NotContains(t, got, withoutLocal)
			}
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	cwd := t.TempDir()
	inDir(t, cwd)

	tests := []struct {
		name      string
		flag      string
		configVal string
		envVal    string
		want      string
	}{
		{name: "flag wins over all", flag: "/flag/data", configVal: "/config/data", envVal: "/env/data", want: "/flag/data"},
		{name: "config.yml wins over env", configVal: "/config/data", envVal: "/env/data", want: "/config/data"},
		{name: "env wins when flag and config empty", envVal: "/env/data", want: "/env/data"},
		{name: "CWD default when all empty", want: filepath.Join(cwd, DefaultDataDirName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.envVal)
			got, err := ResolveDataDir(tt.flag, tt.configVal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelativePathsBecomeAbsolute(t *testing.T) {
	t.Setenv(EnvConfigDir, "")
	t.Setenv(EnvDataDir, "")

	got, err := ResolveConfigDir("relative/path")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)

	got, err = ResolveDataDir("", "relative/config")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvConfigDir, "")
	t.Setenv(EnvDataDir, "")

	var seen string
	dirs, err := Resolve("/cfg", "", func(dir string) string {
		seen = dir
		return "/from/config"
	})
	require.NoError(t, err)
	assert.Equal(t, "/cfg", seen)
	assert.Equal(t, Dirs{Config: "/cfg", Data: "/from/config"}, dirs)
}
