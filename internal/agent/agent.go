// Package agent runs one publishing pass: a repin stream and a new-content
// stream executed concurrently against a shared dedup ledger.
//
// Every per-candidate failure is a counted skip. The only errors Run returns
// are run-level: a missing credential or an unusable ledger.
package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/mesh-intelligence/pinagent/internal/filter"
	"github.com/mesh-intelligence/pinagent/internal/logger"
	"github.com/mesh-intelligence/pinagent/internal/retry"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// Run-level errors.
var (
	ErrMissingCredential = errors.New("missing publishing credential")
	ErrLedgerUnavailable = errors.New("ledger unavailable")
)

// Stream names used in logs and metrics.
const (
	StreamRepin = "repin"
	StreamNew   = "new"
)

// Skip reasons.
const (
	SkipDuplicate     = "duplicate"
	SkipNoMetadata    = "no_metadata"
	SkipNoDestination = "no_destination"
	SkipNoMedia       = "no_media"
	SkipNoImageURL    = "no_image_url"
	SkipPublishFailed = "publish_failed"
	SkipLedgerError   = "ledger_error"
)

// PostSource discovers blog posts and extracts their metadata.
type PostSource interface {
	// DiscoverPosts returns up to limit posts. It returns an empty slice
	// when the site is unreachable.
	DiscoverPosts(ctx context.Context, site string, limit int) []types.BlogPost
	ExtractMeta(ctx context.Context, postURL string) (types.PostMeta, error)
}

// PinSource finds repin candidates. Lookups never fail; an unreachable API
// yields an empty result.
type PinSource interface {
	SearchBoards(ctx context.Context, token, query string) []types.SourceBoard
	BoardPins(ctx context.Context, token, boardID string) []types.RemotePin
	SearchPins(ctx context.Context, token, query string) []types.RemotePin
}

// Publisher creates pins and repins existing ones.
type Publisher interface {
	CreatePin(ctx context.Context, token string, pin types.NewPin) (types.PublishedPin, error)
	Repin(ctx context.Context, token, boardID, pinID string) (types.PublishedPin, error)
}

// TokenProvider returns a currently valid access token.
type TokenProvider interface {
	EnsureValid(ctx context.Context) (string, error)
}

// MediaGenerator produces an image for a caption, optionally starting from
// a background reference.
type MediaGenerator interface {
	Generate(ctx context.Context, backgroundRef, caption string) (types.Media, error)
}

// MediaHost publishes media and returns its public URL.
type MediaHost interface {
	Upload(ctx context.Context, m types.Media) (string, error)
}

// Pacer blocks between publishes.
type Pacer interface {
	Wait(ctx context.Context, position, total int) (time.Duration, error)
}

// Metrics receives run counters.
type Metrics interface {
	Published(stream string)
	Skipped(stream, reason string)
	ObserveRun(d time.Duration)
}

// Config holds the run parameters.
type Config struct {
	// RepinQuota and NewPinQuota are the per-run publish targets.
	RepinQuota  int
	NewPinQuota int
	// SiteURL is the blog that posts are discovered on and pins link to.
	SiteURL string
	Boards  types.BoardSet
	// MinSaves is the quality threshold for repin candidates.
	MinSaves int
	// PostBatch bounds the number of posts fetched per run.
	PostBatch int
	// UseAI enables the AI media path when an AI generator is configured.
	UseAI bool
	// AttemptsPerSlot bounds the searches made to fill one repin slot.
	AttemptsPerSlot int
}

// Default run parameters.
const (
	DefaultPostBatch       = 200
	DefaultMinSaves        = 5
	DefaultAttemptsPerSlot = 10
)

func (c *Config) setDefaults() {
	if c.PostBatch <= 0 {
		c.PostBatch = DefaultPostBatch
	}
	if c.AttemptsPerSlot <= 0 {
		c.AttemptsPerSlot = DefaultAttemptsPerSlot
	}
}

// Deps are the collaborators of an Agent. AIMedia and Host may be nil.
type Deps struct {
	Ledger     types.Ledger
	Posts      PostSource
	Pins       PinSource
	Publisher  Publisher
	Tokens     TokenProvider
	AIMedia    MediaGenerator
	LocalMedia MediaGenerator
	Host       MediaHost
	Pacer      Pacer
	Metrics    Metrics
	Logger     logger.Logger
	// Rand returns a fresh generator; each stream gets its own.
	Rand func() *rand.Rand
	// Sleep is used for retry backoff.
	Sleep retry.SleepFunc
}

// Retry budgets per operation.
var (
	metaPolicy       = retry.Policy{MaxAttempts: 2, BaseDelay: 2 * time.Second}
	aiMediaPolicy    = retry.Policy{MaxAttempts: 2, BaseDelay: 5 * time.Second}
	localMediaPolicy = retry.Policy{MaxAttempts: 1, BaseDelay: time.Second}
	publishPolicy    = retry.Policy{MaxAttempts: 2, BaseDelay: 3 * time.Second}
	repinPolicy      = retry.Policy{MaxAttempts: 3, BaseDelay: 3 * time.Second}
)

// Agent runs publishing passes.
type Agent struct {
	cfg  Config
	deps Deps
	log  logger.Logger
}

// New creates an Agent.
func New(cfg Config, deps Deps) *Agent {
	cfg.setDefaults()
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Rand == nil {
		deps.Rand = func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
	if deps.Sleep == nil {
		deps.Sleep = retry.Sleep
	}
	return &Agent{cfg: cfg, deps: deps, log: deps.Logger}
}

// Run executes both streams and waits for them. Partial results are
// returned even when every candidate was skipped.
func (a *Agent) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	runID := uuid.Must(uuid.NewV7()).String()
	log := a.log.With(logger.String("run_id", runID))

	log.Info("starting run",
		logger.Int("repin_quota", a.cfg.RepinQuota),
		logger.Int("new_pin_quota", a.cfg.NewPinQuota),
		logger.Strings("boards", a.cfg.Boards.Keys()),
	)

	if a.deps.Tokens == nil {
		log.Error("no credential provider configured")
		return Result{}, ErrMissingCredential
	}
	if _, err := a.deps.Tokens.EnsureValid(ctx); err != nil {
		log.Error("failed to obtain access token", logger.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrMissingCredential, err)
	}
	if a.deps.Ledger == nil {
		return Result{}, ErrLedgerUnavailable
	}
	if _, err := a.deps.Ledger.Counts(ctx); err != nil {
		log.Error("ledger is not readable", logger.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}

	type streamResult struct {
		stream string
		ids    []string
	}
	p := pool.NewWithResults[streamResult]()
	p.Go(func() streamResult {
		s := a.newStream(StreamRepin, log)
		return streamResult{stream: StreamRepin, ids: s.runRepins(ctx)}
	})
	p.Go(func() streamResult {
		s := a.newStream(StreamNew, log)
		return streamResult{stream: StreamNew, ids: s.runNewPins(ctx)}
	})

	var res Result
	for _, r := range p.Wait() {
		switch r.stream {
		case StreamRepin:
			res.RepinnedIDs = r.ids
		case StreamNew:
			res.CreatedIDs = r.ids
		}
	}

	elapsed := time.Since(start)
	a.deps.Metrics.ObserveRun(elapsed)
	log.Info("run finished",
		logger.Int("repinned", res.Repinned()),
		logger.Int("created", res.Created()),
		logger.Duration("elapsed", elapsed),
	)
	return res, nil
}

// stream holds the per-stream state. Streams never share a stream value.
type stream struct {
	*Agent
	name   string
	log    logger.Logger
	rng    *rand.Rand
	filter *filter.Filter
}

func (a *Agent) newStream(name string, log logger.Logger) *stream {
	rng := a.deps.Rand()
	log = log.With(logger.String("stream", name))
	return &stream{
		Agent:  a,
		name:   name,
		log:    log,
		rng:    rng,
		filter: filter.New(a.deps.Ledger, log, rng),
	}
}

// policy binds a retry budget to the stream's logger and sleep.
func (s *stream) policy(p retry.Policy) retry.Policy {
	p.Sleep = s.deps.Sleep
	p.Logger = s.log
	return p
}

func (s *stream) skip(reason string, fields ...logger.Field) {
	s.deps.Metrics.Skipped(s.name, reason)
	fields = append(fields, logger.String("reason", reason))
	if reason == SkipDuplicate {
		s.log.Debug("skipping candidate", fields...)
		return
	}
	s.log.Info("skipping candidate", fields...)
}

// pace waits after the publish at position. Cancellation is logged and
// otherwise ignored; the next blocking call observes it.
func (s *stream) pace(ctx context.Context, position int) {
	if s.deps.Pacer == nil {
		return
	}
	total := s.cfg.RepinQuota + s.cfg.NewPinQuota
	if _, err := s.deps.Pacer.Wait(ctx, position, total); err != nil {
		s.log.Warn("pacing interrupted", logger.Error(err))
	}
}

// token fetches a valid token for one outbound call.
func (s *stream) token(ctx context.Context) (string, error) {
	return s.deps.Tokens.EnsureValid(ctx)
}

type nopMetrics struct{}

func (nopMetrics) Published(string)         {}
func (nopMetrics) Skipped(string, string)   {}
func (nopMetrics) ObserveRun(time.Duration) {}
