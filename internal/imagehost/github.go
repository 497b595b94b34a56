// Package imagehost publishes generated media to a GitHub repository branch
// and returns its raw content URL.
package imagehost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/mesh-intelligence/pinagent/internal/logger"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// Defaults for the GitHub host.
const (
	DefaultAPIURL = "https://api.github.com"
	DefaultRawURL = "https://raw.githubusercontent.com"
	DefaultBranch = "gh-pages"
	DefaultDir    = "images"
)

// ErrNotConfigured is returned when the token or repository is missing.
var ErrNotConfigured = errors.New("image host requires GITHUB_TOKEN and GITHUB_REPOSITORY")

// GitHubConfig configures the GitHub host.
type GitHubConfig struct {
	Token string
	// Repository is "owner/name".
	Repository string
	Branch     string
	Dir        string
	APIURL     string
	RawURL     string
}

// GitHub uploads media through the repository contents API.
type GitHub struct {
	cfg  GitHubConfig
	http *http.Client
	log  logger.Logger
	now  func() time.Time
}

// NewGitHub creates a GitHub host, filling defaults for empty fields.
func NewGitHub(cfg GitHubConfig, httpClient *http.Client, log logger.Logger) *GitHub {
	if cfg.Branch == "" {
		cfg.Branch = DefaultBranch
	}
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.RawURL == "" {
		cfg.RawURL = DefaultRawURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.RawURL = strings.TrimRight(cfg.RawURL, "/")
	if log == nil {
		log = logger.NewNop()
	}
	return &GitHub{cfg: cfg, http: httpClient, log: log, now: time.Now}
}

type putContentRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
}

// Upload commits m to <dir>/<unix>_<name> on the branch and returns the raw
// URL of the new file.
func (g *GitHub) Upload(ctx context.Context, m types.Media) (string, error) {
	owner, repo, ok := strings.Cut(g.cfg.Repository, "/")
	if g.cfg.Token == "" || !ok || owner == "" || repo == "" {
		return "", ErrNotConfigured
	}
	if len(m.Data) == 0 {
		return "", errors.New("upload: empty media")
	}

	dest := path.Join(g.cfg.Dir, fmt.Sprintf("%d_%s", g.now().Unix(), path.Base(m.Name)))
	payload, err := json.Marshal(putContentRequest{
		Message: "Add generated image " + path.Base(dest),
		Content: base64.StdEncoding.EncodeToString(m.Data),
		Branch:  g.cfg.Branch,
	})
	if err != nil {
		return "", fmt.Errorf("encode upload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.cfg.APIURL, owner, repo, dest)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "token "+g.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", dest, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("upload %s: status %d: %s", dest, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	raw := fmt.Sprintf("%s/%s/%s/%s/%s", g.cfg.RawURL, owner, repo, g.cfg.Branch, dest)
	g.log.Info("uploaded image", logger.String("url", raw), logger.Int("bytes", len(m.Data)))
	return raw, nil
}
