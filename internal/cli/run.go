package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pinagent/internal/agent"
	"github.com/mesh-intelligence/pinagent/internal/config"
	"github.com/mesh-intelligence/pinagent/internal/httpclient"
	"github.com/mesh-intelligence/pinagent/internal/imagehost"
	"github.com/mesh-intelligence/pinagent/internal/logger"
	"github.com/mesh-intelligence/pinagent/internal/media"
	"github.com/mesh-intelligence/pinagent/internal/metrics"
	"github.com/mesh-intelligence/pinagent/internal/pacing"
	"github.com/mesh-intelligence/pinagent/internal/pinterest"
	"github.com/mesh-intelligence/pinagent/internal/scraper"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

type runOutput struct {
	agent.Result
	Repinned int `json:"repinned"`
	Created  int `json:"created"`
}

func newRunCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one publishing pass",
		Long: "Repin popular pins onto the configured boards and create pins for new\n" +
			"blog posts, skipping anything already recorded in the ledger.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(f)
			if err != nil {
				return err
			}
			defer e.log.Sync() //nolint:errcheck
			if err := e.cfg.CheckRun(); err != nil {
				return userError("%w", err)
			}

			l, err := e.openLedger()
			if err != nil {
				return err
			}
			defer l.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rec := metrics.New()
			a := agent.New(agentConfig(e.cfg), buildDeps(e.cfg, l, rec, e.log))

			res, err := a.Run(ctx)
			switch {
			case errors.Is(err, agent.ErrMissingCredential):
				return userError("%w", err)
			case err != nil:
				return sysError("%w", err)
			}

			if err := rec.Push(ctx, e.cfg.Metrics.PushgatewayURL, e.cfg.Metrics.Job); err != nil {
				e.log.Warn("failed to push metrics", logger.Error(err))
			}
			return printResult(cmd, f.jsonMode, res)
		},
	}
}

func agentConfig(cfg *config.Config) agent.Config {
	return agent.Config{
		RepinQuota:  cfg.DailyPins.Repins,
		NewPinQuota: cfg.DailyPins.NewPins,
		SiteURL:     cfg.Site,
		Boards:      cfg.Boards,
		MinSaves:    cfg.Filters.MinSaves,
		PostBatch:   cfg.Filters.PostBatch,
		UseAI:       cfg.AI.Enabled,
	}
}

// buildDeps wires the production collaborators from configuration.
func buildDeps(cfg *config.Config, l types.Ledger, rec *metrics.Recorder, log logger.Logger) agent.Deps {
	web := httpclient.New(httpclient.Config{})
	api := httpclient.New(httpclient.Config{RatePerSecond: cfg.Pinterest.RatePerSecond, Burst: 1})

	pins := pinterest.New(api, cfg.Pinterest.BaseURL, log)
	tokens := pinterest.NewTokenProvider(pinterest.Credentials{
		AccessToken:  cfg.Pinterest.AccessToken,
		RefreshToken: cfg.Pinterest.RefreshToken,
		AppID:        cfg.Pinterest.AppID,
		AppSecret:    cfg.Pinterest.AppSecret,
	}, api, cfg.Pinterest.BaseURL, log)

	deps := agent.Deps{
		Ledger:     l,
		Posts:      scraper.New(web, log),
		Pins:       pins,
		Publisher:  pins,
		Tokens:     tokens,
		LocalMedia: media.NewCompositor(web, log),
		Pacer:      newPacer(cfg.Pacing, log),
		Metrics:    rec,
		Logger:     log,
	}

	ai := media.NewAIGenerator(httpclient.New(httpclient.Config{Timeout: httpclient.AITimeout}),
		cfg.AI.Token, cfg.AI.BaseURL, cfg.AI.Model, log)
	if cfg.AI.Enabled && ai.Enabled() {
		deps.AIMedia = ai
	}
	if cfg.ImageHost.Token != "" && cfg.ImageHost.Repository != "" {
		deps.Host = imagehost.NewGitHub(imagehost.GitHubConfig{
			Token:      cfg.ImageHost.Token,
			Repository: cfg.ImageHost.Repository,
			Branch:     cfg.ImageHost.Branch,
			Dir:        cfg.ImageHost.Dir,
		}, web, log)
	}
	return deps
}

func newPacer(cfg config.Pacing, log logger.Logger) *pacing.Scheduler {
	windows := pacing.DefaultWindows
	if cfg.Scale > 0 && cfg.Scale != 1 {
		windows = pacing.Scale(windows, cfg.Scale)
	}
	var opts []pacing.Option
	if cfg.Disabled {
		opts = append(opts, pacing.WithoutSleep())
	}
	return pacing.New(windows, nil, nil, log, opts...)
}

func printResult(cmd *cobra.Command, jsonMode bool, res agent.Result) error {
	out := cmd.OutOrStdout()
	if jsonMode {
		if res.RepinnedIDs == nil {
			res.RepinnedIDs = []string{}
		}
		if res.CreatedIDs == nil {
			res.CreatedIDs = []string{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runOutput{Result: res, Repinned: res.Repinned(), Created: res.Created()})
	}
	fmt.Fprintf(out, "Repinned %d, created %d\n", res.Repinned(), res.Created())
	if res.Repinned() > 0 {
		fmt.Fprintf(out, "  repins: %s\n", strings.Join(res.RepinnedIDs, ", "))
	}
	if res.Created() > 0 {
		fmt.Fprintf(out, "  new pins: %s\n", strings.Join(res.CreatedIDs, ", "))
	}
	return nil
}
