// Package filter drops low-quality, already-published and duplicate
// candidates and returns the survivors in random order.
package filter

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/mesh-intelligence/pinagent/internal/logger"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// Filter checks candidates against the ledger. It is safe for concurrent use.
type Filter struct {
	ledger types.Ledger
	log    logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Filter. A nil rng is seeded randomly.
func New(ledger types.Ledger, log logger.Logger, rng *rand.Rand) *Filter {
	if log == nil {
		log = logger.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Filter{ledger: ledger, log: log, rng: rng}
}

// Pins keeps pins that have an ID, a link and an image, at least minQuality
// saves and no entry in the pins ledger, dropping later duplicates of the
// same ID. A ledger error drops the candidate. The result is shuffled and never nil.
func (f *Filter) Pins(ctx context.Context, pins []types.RemotePin, minQuality int) []types.RemotePin {
	out := make([]types.RemotePin, 0, len(pins))
	seen := make(map[string]struct{}, len(pins))

	for _, p := range pins {
		if p.ID == "" || p.Link == "" || p.ImageURL == "" {
			continue
		}
		if p.Saves < minQuality {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		exists, err := f.ledger.Exists(ctx, types.KindPin, p.ID)
		if err != nil {
			f.log.Warn("ledger lookup failed, dropping pin",
				logger.String("pin_id", p.ID),
				logger.Error(err),
			)
			continue
		}
		if exists {
			f.log.Debug("pin already saved", logger.String("pin_id", p.ID))
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}

	f.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	f.log.Debug("filtered pins",
		logger.Int("candidates", len(pins)),
		logger.Int("kept", len(out)),
		logger.Int("min_quality", minQuality),
	)
	return out
}

// Posts drops posts with an empty URL and later duplicates of the same URL,
// then shuffles. Whether a post was already published is checked by the
// caller at iteration time.
func (f *Filter) Posts(_ context.Context, posts []types.BlogPost) []types.BlogPost {
	out := make([]types.BlogPost, 0, len(posts))
	seen := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		if p.URL == "" {
			continue
		}
		if _, dup := seen[p.URL]; dup {
			continue
		}
		seen[p.URL] = struct{}{}
		out = append(out, p)
	}
	f.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (f *Filter) shuffle(n int, swap func(i, j int)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rng.Shuffle(n, swap)
}
