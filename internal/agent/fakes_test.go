package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pinagent/internal/sqlite"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

var errUnavailable = errors.New("service unavailable")

func setupLedger(t *testing.T) *sqlite.Backend {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	return b
}

type fakePosts struct {
	mu        sync.Mutex
	posts     []types.BlogPost
	meta      map[string]types.PostMeta
	extracted []string
}

func (f *fakePosts) DiscoverPosts(_ context.Context, _ string, limit int) []types.BlogPost {
	if limit < len(f.posts) {
		return f.posts[:limit]
	}
	return f.posts
}

func (f *fakePosts) ExtractMeta(_ context.Context, u string) (types.PostMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extracted = append(f.extracted, u)
	m, ok := f.meta[u]
	if !ok {
		return types.PostMeta{}, errUnavailable
	}
	return m, nil
}

type fakePins struct {
	mu          sync.Mutex
	boards      map[string][]types.SourceBoard
	boardPins   map[string][]types.RemotePin
	search      map[string][]types.RemotePin
	searchCalls int
	searchesBy  map[string]int
	// emptyFirst makes the first n pin searches return nothing.
	emptyFirst int
	tokens     []string
}

func (f *fakePins) SearchBoards(_ context.Context, token, q string) []types.SourceBoard {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	return f.boards[q]
}

func (f *fakePins) BoardPins(_ context.Context, _, id string) []types.RemotePin {
	return f.boardPins[id]
}

func (f *fakePins) SearchPins(_ context.Context, _, q string) []types.RemotePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchesBy == nil {
		f.searchesBy = map[string]int{}
	}
	f.searchesBy[q]++
	if f.searchCalls <= f.emptyFirst {
		return nil
	}
	return f.search[q]
}

type fakePublisher struct {
	mu        sync.Mutex
	created   []types.NewPin
	repins    []string
	createErr error
	repinErr  error
	calls     int
}

func (f *fakePublisher) CreatePin(_ context.Context, token string, pin types.NewPin) (types.PublishedPin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.createErr != nil {
		return types.PublishedPin{}, f.createErr
	}
	f.created = append(f.created, pin)
	return types.PublishedPin{ID: fmt.Sprintf("new-%d", len(f.created)), BoardID: pin.BoardID}, nil
}

func (f *fakePublisher) Repin(_ context.Context, token, boardID, pinID string) (types.PublishedPin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.repinErr != nil {
		return types.PublishedPin{}, f.repinErr
	}
	f.repins = append(f.repins, pinID)
	return types.PublishedPin{ID: "r-" + pinID, BoardID: boardID}, nil
}

type fakeTokens struct {
	token string
	err   error
}

func (f fakeTokens) EnsureValid(context.Context) (string, error) { return f.token, f.err }

type fakeMedia struct {
	mu       sync.Mutex
	name     string
	err      error
	refs     []string
	captions []string
}

func (f *fakeMedia) Generate(_ context.Context, ref, caption string) (types.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs = append(f.refs, ref)
	f.captions = append(f.captions, caption)
	if f.err != nil {
		return types.Media{}, f.err
	}
	return types.Media{Name: f.name, ContentType: "image/jpeg", Data: []byte(caption)}, nil
}

type fakeHost struct {
	err error
}

func (f fakeHost) Upload(_ context.Context, m types.Media) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.test/" + m.Name, nil
}

type fakePacer struct {
	mu        sync.Mutex
	positions []int
}

func (f *fakePacer) Wait(_ context.Context, position, _ int) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = append(f.positions, position)
	return 0, nil
}

func (f *fakePacer) sorted() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]int(nil), f.positions...)
	sort.Ints(out)
	return out
}

type fakeMetrics struct {
	mu        sync.Mutex
	published map[string]int
	skipped   map[string]int
	runs      int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{published: map[string]int{}, skipped: map[string]int{}}
}

func (f *fakeMetrics) Published(stream string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[stream]++
}

func (f *fakeMetrics) Skipped(stream, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skipped[stream+"/"+reason]++
}

func (f *fakeMetrics) ObserveRun(time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
}

// sleepRecorder captures retry waits without sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

// harness wires an Agent to fakes and a real SQLite ledger.
type harness struct {
	ledger    *sqlite.Backend
	posts     *fakePosts
	pins      *fakePins
	publisher *fakePublisher
	ai        *fakeMedia
	local     *fakeMedia
	pacer     *fakePacer
	metrics   *fakeMetrics
	sleeps    *sleepRecorder
	tokens    TokenProvider
	host      MediaHost
}

func newHarness(t *testing.T) *harness {
	return &harness{
		ledger:    setupLedger(t),
		posts:     &fakePosts{meta: map[string]types.PostMeta{}},
		pins:      &fakePins{},
		publisher: &fakePublisher{},
		ai:        &fakeMedia{name: "ai.jpg"},
		local:     &fakeMedia{name: "local.jpg"},
		pacer:     &fakePacer{},
		metrics:   newFakeMetrics(),
		sleeps:    &sleepRecorder{},
		tokens:    fakeTokens{token: "tok"},
		host:      fakeHost{},
	}
}

func (h *harness) agent(cfg Config) *Agent {
	var seed uint64
	var mu sync.Mutex
	return New(cfg, Deps{
		Ledger:     h.ledger,
		Posts:      h.posts,
		Pins:       h.pins,
		Publisher:  h.publisher,
		Tokens:     h.tokens,
		AIMedia:    h.ai,
		LocalMedia: h.local,
		Host:       h.host,
		Pacer:      h.pacer,
		Metrics:    h.metrics,
		Rand: func() *rand.Rand {
			mu.Lock()
			defer mu.Unlock()
			seed++
			return rand.New(rand.NewPCG(seed, seed))
		},
		Sleep: h.sleeps.sleep,
	})
}

// remotePin builds a publishable candidate linking to http://src/<id>.
func remotePin(id string, saves int) types.RemotePin {
	return types.RemotePin{ID: id, Saves: saves, Link: "http://src/" + id, ImageURL: "http://img/" + id + ".jpg"}
}
