package cli

import (
	"github.com/mesh-intelligence/pinagent/internal/config"
	"github.com/mesh-intelligence/pinagent/internal/logger"
	"github.com/mesh-intelligence/pinagent/internal/paths"
	"github.com/mesh-intelligence/pinagent/pkg/ledger"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// env is the loaded state every ledger-touching command starts from.
type env struct {
	dirs paths.Dirs
	cfg  *config.Config
	log  logger.Logger
}

// loadEnv resolves directories, loads configuration and builds the logger.
// Failures are user errors: they come from flags, files or variables.
func loadEnv(f *rootFlags) (*env, error) {
	dirs, err := paths.Resolve(f.configDir, f.dataDir, config.DataDir)
	if err != nil {
		return nil, sysError("resolve directories: %w", err)
	}
	cfg, err := config.Load(dirs.Config)
	if err != nil {
		return nil, userError("load config: %w", err)
	}
	cfg.Ledger.DataDir = dirs.Data

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, userError("create logger: %w", err)
	}
	return &env{dirs: dirs, cfg: cfg, log: log}, nil
}

func (e *env) openLedger() (types.Ledger, error) {
	l, err := ledger.Open(e.cfg.Ledger)
	if err != nil {
		return nil, sysError("open ledger: %w", err)
	}
	return l, nil
}
