package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultConfigYAML is written by init when config.yml is missing.
const DefaultConfigYAML = `# pinagent configuration
# Credentials come from the environment (or a .env file next to this one):
#   PINTEREST_TOKEN or PINTEREST_REFRESH_TOKEN + PINTEREST_APP_ID + PINTEREST_APP_SECRET
#   HF_API_TOKEN, GITHUB_TOKEN, GITHUB_REPOSITORY
# Any key can be overridden with PINAGENT_<KEY>, e.g. PINAGENT_DAILY_PINS_REPINS.

site: ${SITE_URL}

daily_pins:
  repins: 3
  new_pins: 4

filters:
  min_saves: 5
  post_batch: 200

ai:
  enabled: true

image_host:
  branch: gh-pages
  dir: images

pacing:
  scale: 1.0
  disabled: false

ledger:
  backend: sqlite
  # data_dir: .pinagent-db
  # redis_url: redis://localhost:6379/0

log:
  level: info
`

// DefaultBoardsYAML is written by init when boards.yml is missing.
const DefaultBoardsYAML = `# Destination boards, in priority order: the first board with a keyword
# matching a post title wins. IDs may reference environment variables.
boards:
  # travel:
  #   id: ${BOARD_TRAVEL_ID}
  #   keywords: [travel, paris, rome]
`

// WriteDefaults creates dir and writes any missing config files. It returns
// the paths it wrote.
func WriteDefaults(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	var written []string
	for name, content := range map[string]string{
		ConfigFile: DefaultConfigYAML,
		BoardsFile: DefaultBoardsYAML,
	} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return written, fmt.Errorf("stat %s: %w", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
