package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserConfigDir_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}

	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		got, err := UserConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/wasteledger", got)
	})

	t.Run("falls back to ~/.config when XDG unset", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := UserConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "wasteledger"), got)
	})
}

func TestUserDataDir_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}

	t.Run("uses XDG_DATA_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
		got, err := UserDataDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-data/wasteledger", got)
	})

	t.Run("falls back to ~/.local/share when XDG unset", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "")
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := UserDataDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".local", "share", "wasteledger"), got)
	})
}

func TestUserDirs_HomeError(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}
	orig := platformDir.homeDir
	platformDir.homeDir = func() (string, error) { return "", errors.New("no home") }
	t.Cleanup(func() { platformDir.homeDir = orig })

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")

	_, err := UserConfigDir()
	assert.Error(t, err)
	_, err = UserDataDir()
	assert.Error(t, err)
}

func TestResolveConfigDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name   string
		flag   string
		envVal string
		want   Resolved
	}{
		{
			name:   "flag wins over env",
			flag:   "/explicit/config",
			envVal: "/env/config",
			want:   Resolved{"/explicit/config", SourceFlag},
		},
		{
			name:   "env wins when flag empty",
			envVal: "/env/config",
			want:   Resolved{"/env/config", SourceEnv},
		},
		{
			name: "CWD default when both empty",
			want: Resolved{filepath.Join(cwd, DefaultConfigDirName), SourceDefault},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.envVal)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name        string
		flag        string
		configValue string
		envVal      string
		want        Resolved
	}{
		{
			name:        "flag wins over all",
			flag:        "/flag/data",
			configValue: "/config/data",
			envVal:      "/env/data",
			want:        Resolved{"/flag/data", SourceFlag},
		},
		{
			name:        "config.yaml wins over env",
			configValue: "/config/data",
			envVal:      "/env/data",
			want:        Resolved{"/config/data", SourceConfig},
		},
		{
			name:   "env wins when flag and config empty",
			envVal: "/env/data",
			want:   Resolved{"/env/data", SourceEnv},
		},
		{
			name: "CWD default when all empty",
			want: Resolved{filepath.Join(cwd, DefaultDataDirName), SourceDefault},
		},
		{
			name:        "relative config value resolves against CWD",
			configValue: "ledger/data",
			want:        Resolved{filepath.Join(cwd, "ledger", "data"), SourceConfig},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.envVal)
			got, err := ResolveDataDir(tt.flag, tt.configValue)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvedPathsAreAbsolute(t *testing.T) {
	t.Setenv(EnvConfigDir, "relative/env")
	got, err := ResolveConfigDir("")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got.Path), "expected absolute path, got %s", got.Path)

	got, err = ResolveConfigDir("relative/path")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got.Path), "expected absolute path, got %s", got.Path)
}
