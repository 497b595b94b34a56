package types

import "time"

// Record is a ledger entry. Each concrete record type belongs to exactly one
// Kind and is keyed by a single unique string.
type Record interface {
	Kind() Kind
	Key() string
}

// PinRecord marks a remote pin as saved to one of our boards. Created once,
// when the repin succeeds.
type PinRecord struct {
	PinID     string    `json:"pin_id" db:"pin_id"`
	BoardKey  string    `json:"board_key" db:"board_key"`
	SourceURL string    `json:"source_url" db:"source_url"`
	CreatedAt time.Time `json:"created_at" db:"-"`
}

// Kind implements Record.
func (PinRecord) Kind() Kind { return KindPin }

// Key implements Record.
func (r PinRecord) Key() string { return r.PinID }

// BlogPinRecord marks a blog post as already turned into a pin.
type BlogPinRecord struct {
	PostURL   string    `json:"post_url" db:"post_url"`
	PinID     string    `json:"pin_id" db:"pin_id"`
	CreatedAt time.Time `json:"created_at" db:"-"`
}

// Kind implements Record.
func (BlogPinRecord) Kind() Kind { return KindBlogPin }

// Key implements Record.
func (r BlogPinRecord) Key() string { return r.PostURL }

// SearchedBoardRecord marks a discovery-source board as already mined. There
// is no expiry: a board stays searched until the ledger is cleared.
type SearchedBoardRecord struct {
	SourceBoardID  string    `json:"source_board_id" db:"source_board_id"`
	LastSearchedAt time.Time `json:"last_searched_at" db:"-"`
}

// Kind implements Record.
func (SearchedBoardRecord) Kind() Kind { return KindSearchedBoard }

// Key implements Record.
func (r SearchedBoardRecord) Key() string { return r.SourceBoardID }

// Deref returns rec as a value record. It reports false for a nil record or
// a nil record pointer.
func Deref(rec Record) (Record, bool) {
	switch r := rec.(type) {
	case nil:
		return nil, false
	case *PinRecord:
		if r == nil {
			return nil, false
		}
		return *r, true
	case *BlogPinRecord:
		if r == nil {
			return nil, false
		}
		return *r, true
	case *SearchedBoardRecord:
		if r == nil {
			return nil, false
		}
		return *r, true
	}
	return rec, true
}

// Stamp returns a copy of rec with a zero timestamp replaced by now (UTC).
// Unknown record types are returned unchanged.
func Stamp(rec Record, now time.Time) Record {
	now = now.UTC()
	switch r := rec.(type) {
	case PinRecord:
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		return r
	case *PinRecord:
		return Stamp(*r, now)
	case BlogPinRecord:
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		return r
	case *BlogPinRecord:
		return Stamp(*r, now)
	case SearchedBoardRecord:
		if r.LastSearchedAt.IsZero() {
			r.LastSearchedAt = now
		}
		return r
	case *SearchedBoardRecord:
		return Stamp(*r, now)
	}
	return rec
}
