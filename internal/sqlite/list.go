package sqlite

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// Row shapes for sqlx scans. Timestamps are stored as RFC 3339 text.
type pinRow struct {
	PinID     string `db:"pin_id"`
	BoardKey  string `db:"board_key"`
	SourceURL string `db:"source_url"`
	CreatedAt string `db:"created_at"`
}

type blogPinRow struct {
	PostURL   string `db:"post_url"`
	PinID     string `db:"pin_id"`
	CreatedAt string `db:"created_at"`
}

type searchedBoardRow struct {
	SourceBoardID  string `db:"source_board_id"`
	LastSearchedAt string `db:"last_searched_at"`
}

// List returns up to limit records of the given kind, newest first. A
// non-positive limit returns every record.
func (b *Backend) List(ctx context.Context, kind types.Kind, limit int) ([]types.Record, error) {
	tbl, ok := tables[kind]
	if !ok {
		return nil, types.ErrUnknownKind
	}
	db, err := b.handle()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	query := func(cols string) string {
		return fmt.Sprintf("SELECT %s FROM %s ORDER BY id DESC LIMIT ?", cols, tbl.table)
	}

	var out []types.Record
	switch kind {
	case types.KindPin:
		var rows []pinRow
		if err := db.SelectContext(ctx, &rows, query("pin_id, board_key, source_url, created_at"), limit); err != nil {
			return nil, fmt.Errorf("listing %s: %w", kind, err)
		}
		for _, r := range rows {
			out = append(out, types.PinRecord{
				PinID: r.PinID, BoardKey: r.BoardKey, SourceURL: r.SourceURL, CreatedAt: parseTime(r.CreatedAt),
			})
		}
	case types.KindBlogPin:
		var rows []blogPinRow
		if err := db.SelectContext(ctx, &rows, query("post_url, pin_id, created_at"), limit); err != nil {
			return nil, fmt.Errorf("listing %s: %w", kind, err)
		}
		for _, r := range rows {
			out = append(out, types.BlogPinRecord{
				PostURL: r.PostURL, PinID: r.PinID, CreatedAt: parseTime(r.CreatedAt),
			})
		}
	case types.KindSearchedBoard:
		var rows []searchedBoardRow
		if err := db.SelectContext(ctx, &rows, query("source_board_id, last_searched_at"), limit); err != nil {
			return nil, fmt.Errorf("listing %s: %w", kind, err)
		}
		for _, r := range rows {
			out = append(out, types.SearchedBoardRecord{
				SourceBoardID: r.SourceBoardID, LastSearchedAt: parseTime(r.LastSearchedAt),
			})
		}
	}
	return out, nil
}
