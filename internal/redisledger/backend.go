// Package redisledger implements the ledger on Redis. Each record is a JSON
// value under its own key; SETNX makes inserts idempotent.
package redisledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// KeyPrefix namespaces every ledger key.
const KeyPrefix = "pinagent"

const scanBatchSize = 100

var _ types.Ledger = (*Backend)(nil)

// Backend implements types.Ledger on a Redis database.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	client   *redis.Client
	owned    bool

	now func() time.Time
}

// NewBackend creates a detached backend. Call Attach or Use before use.
func NewBackend() *Backend {
	return &Backend{now: time.Now}
}

// Attach connects to config.RedisURL and pings the server.
func (b *Backend) Attach(config types.Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendRedis {
		return fmt.Errorf("%w: %s", types.ErrBackendUnknown, config.Backend)
	}
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("ping redis: %w", err)
	}

	if err := b.attach(client, true); err != nil {
		client.Close()
		return err
	}
	return nil
}

// Use attaches an existing client. The caller keeps ownership: Detach will
// not close it.
func (b *Backend) Use(client *redis.Client) error {
	return b.attach(client, false)
}

func (b *Backend) attach(client *redis.Client, owned bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attached {
		return types.ErrAlreadyAttached
	}
	b.client = client
	b.owned = owned
	b.attached = true
	return nil
}

// Detach releases the client. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return nil
	}
	b.attached = false
	client := b.client
	b.client = nil
	if b.owned {
		return client.Close()
	}
	return nil
}

// Close implements types.Ledger.
func (b *Backend) Close() error {
	return b.Detach()
}

func (b *Backend) handle() (*redis.Client, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrLedgerClosed
	}
	return b.client, nil
}

func recordKey(kind types.Kind, key string) string {
	return fmt.Sprintf("%s:%s:%s", KeyPrefix, kind, key)
}

func kindPattern(kind types.Kind) string {
	return fmt.Sprintf("%s:%s:*", KeyPrefix, kind)
}

// Exists reports whether the record key is present.
func (b *Backend) Exists(ctx context.Context, kind types.Kind, key string) (bool, error) {
	if !kind.Valid() {
		return false, types.ErrUnknownKind
	}
	if key == "" {
		return false, types.ErrInvalidKey
	}
	client, err := b.handle()
	if err != nil {
		return false, err
	}
	n, err := client.Exists(ctx, recordKey(kind, key)).Result()
	if err != nil {
		return false, fmt.Errorf("checking %s %q: %w", kind, key, err)
	}
	return n == 1, nil
}

// Record stores rec with SETNX. It returns false when the key already exists.
func (b *Backend) Record(ctx context.Context, rec types.Record) (bool, error) {
	rec, ok := types.Deref(rec)
	if !ok {
		return false, types.ErrInvalidRecord
	}
	if !rec.Kind().Valid() {
		return false, fmt.Errorf("%w: %T", types.ErrInvalidRecord, rec)
	}
	if rec.Key() == "" {
		return false, types.ErrInvalidKey
	}
	client, err := b.handle()
	if err != nil {
		return false, err
	}

	payload, err := json.Marshal(types.Stamp(rec, b.now()))
	if err != nil {
		return false, fmt.Errorf("encoding %s %q: %w", rec.Kind(), rec.Key(), err)
	}
	stored, err := client.SetNX(ctx, recordKey(rec.Kind(), rec.Key()), payload, 0).Result()
	if err != nil {
		return false, fmt.Errorf("inserting %s %q: %w", rec.Kind(), rec.Key(), err)
	}
	return stored, nil
}

// Clear deletes every key of the scoped kinds with SCAN and DEL. Unlike the
// SQLite backend this is not atomic across kinds.
func (b *Backend) Clear(ctx context.Context, scope types.ClearScope) (types.Counts, error) {
	var counts types.Counts
	kinds := scope.Kinds()
	if len(kinds) == 0 {
		return counts, types.ErrUnknownScope
	}
	client, err := b.handle()
	if err != nil {
		return counts, err
	}

	for _, kind := range kinds {
		err := scanKeys(ctx, client, kind, func(keys []string) error {
			deleted, err := client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("delete keys: %w", err)
			}
			counts.Add(kind, deleted)
			return nil
		})
		if err != nil {
			return counts, fmt.Errorf("clearing %s: %w", kind, err)
		}
	}
	return counts, nil
}

// Counts returns the number of keys per kind.
func (b *Backend) Counts(ctx context.Context) (types.Counts, error) {
	var counts types.Counts
	client, err := b.handle()
	if err != nil {
		return counts, err
	}
	for _, kind := range types.Kinds {
		err := scanKeys(ctx, client, kind, func(keys []string) error {
			counts.Add(kind, int64(len(keys)))
			return nil
		})
		if err != nil {
			return types.Counts{}, fmt.Errorf("counting %s: %w", kind, err)
		}
	}
	return counts, nil
}

// List returns up to limit records of kind, newest first.
func (b *Backend) List(ctx context.Context, kind types.Kind, limit int) ([]types.Record, error) {
	if !kind.Valid() {
		return nil, types.ErrUnknownKind
	}
	client, err := b.handle()
	if err != nil {
		return nil, err
	}

	type stamped struct {
		rec types.Record
		at  time.Time
	}
	var all []stamped
	err = scanKeys(ctx, client, kind, func(keys []string) error {
		vals, err := client.MGet(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("read keys: %w", err)
		}
		for _, v := range vals {
			s, ok := v.(string)
			if !ok {
				continue
			}
			rec, at, err := decode(kind, s)
			if err != nil {
				return err
			}
			all = append(all, stamped{rec: rec, at: at})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].at.After(all[j].at) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]types.Record, 0, len(all))
	for _, s := range all {
		out = append(out, s.rec)
	}
	return out, nil
}

// scanKeys walks every key of kind in batches.
func scanKeys(ctx context.Context, client *redis.Client, kind types.Kind, fn func(keys []string) error) error {
	pattern := kindPattern(kind)
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("scan keys: %w", err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func decode(kind types.Kind, payload string) (types.Record, time.Time, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	switch kind {
	case types.KindPin:
		var r types.PinRecord
		if err := dec.Decode(&r); err != nil {
			return nil, time.Time{}, fmt.Errorf("decode %s: %w", kind, err)
		}
		return r, r.CreatedAt, nil
	case types.KindBlogPin:
		var r types.BlogPinRecord
		if err := dec.Decode(&r); err != nil {
			return nil, time.Time{}, fmt.Errorf("decode %s: %w", kind, err)
		}
		return r, r.CreatedAt, nil
	case types.KindSearchedBoard:
		var r types.SearchedBoardRecord
		if err := dec.Decode(&r); err != nil {
			return nil, time.Time{}, fmt.Errorf("decode %s: %w", kind, err)
		}
		return r, r.LastSearchedAt, nil
	}
	return nil, time.Time{}, types.ErrUnknownKind
}
