// Package paths resolves the configuration and ledger data directories.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// CWD-relative directory names. A repository that carries its own
// .pinagent directory (the usual layout for scheduled CI runs) uses it
// without any flag.
const (
	DefaultConfigDirName = ".pinagent"
	DefaultDataDirName   = ".pinagent-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "PINAGENT_CONFIG_DIR"
	EnvDataDir   = "PINAGENT_DATA_DIR"
)

const appName = "pinagent"

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// Dirs are the resolved directories for one invocation.
type Dirs struct {
	Config string
	Data   string
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/pinagent (fallback ~/.config/pinagent)
// macOS:   ~/Library/Application Support/pinagent
// Windows: %APPDATA%/pinagent
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > PINAGENT_CONFIG_DIR > ./.pinagent when present >
// DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	local := filepath.Join(cwd, DefaultConfigDirName)
	if fi, err := os.Stat(local); err == nil && fi.IsDir() {
		return local, nil
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the ledger directory following the precedence
// chain: flag > configValue > PINAGENT_DATA_DIR > $(CWD)/.pinagent-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// Resolve resolves both directories. dataFromConfig, when non-nil, reads
// the data directory configured inside the resolved config directory.
func Resolve(configFlag, dataFlag string, dataFromConfig func(configDir string) string) (Dirs, error) {
	configDir, err := ResolveConfigDir(configFlag)
	if err != nil {
		return Dirs{}, fmt.Errorf("resolve config dir: %w", err)
	}
	var configured string
	if dataFromConfig != nil {
		configured = dataFromConfig(configDir)
	}
	dataDir, err := ResolveDataDir(dataFlag, configured)
	if err != nil {
		return Dirs{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return Dirs{Config: configDir, Data: dataDir}, nil
}
