package types

import (
	"context"
	"errors"
)

// Kind names one of the three record sets held by a Ledger.
type Kind string

// Ledger record kinds. The values double as SQLite table names.
const (
	KindPin           Kind = "pins"
	KindBlogPin       Kind = "blog_pins"
	KindSearchedBoard Kind = "searched_boards"
)

// Kinds lists all record kinds for enumeration.
var Kinds = []Kind{KindPin, KindBlogPin, KindSearchedBoard}

// Valid reports whether k is one of the known record kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPin, KindBlogPin, KindSearchedBoard:
		return true
	}
	return false
}

// ClearScope selects which record sets Ledger.Clear removes.
type ClearScope string

// Clear scopes. ScopeAll empties every record set.
const (
	ScopeAll            ClearScope = "all"
	ScopePins           ClearScope = ClearScope(KindPin)
	ScopeBlogPins       ClearScope = ClearScope(KindBlogPin)
	ScopeSearchedBoards ClearScope = ClearScope(KindSearchedBoard)
)

// ParseClearScope converts a user-supplied scope name to a ClearScope.
// Returns ErrUnknownScope for anything else.
func ParseClearScope(s string) (ClearScope, error) {
	switch ClearScope(s) {
	case ScopeAll, ScopePins, ScopeBlogPins, ScopeSearchedBoards:
		return ClearScope(s), nil
	}
	return "", ErrUnknownScope
}

// Kinds returns the record kinds covered by the scope.
func (s ClearScope) Kinds() []Kind {
	if s == ScopeAll {
		return Kinds
	}
	k := Kind(s)
	if !k.Valid() {
		return nil
	}
	return []Kind{k}
}

// Counts reports a number per record set, either rows present or rows removed.
type Counts struct {
	Pins           int64 `json:"pins"`
	BlogPins       int64 `json:"blog_pins"`
	SearchedBoards int64 `json:"searched_boards"`
}

// Add adds n to the counter for kind k.
func (c *Counts) Add(k Kind, n int64) {
	switch k {
	case KindPin:
		c.Pins += n
	case KindBlogPin:
		c.BlogPins += n
	case KindSearchedBoard:
		c.SearchedBoards += n
	}
}

// Total returns the sum over all record sets.
func (c Counts) Total() int64 {
	return c.Pins + c.BlogPins + c.SearchedBoards
}

// Ledger is the persistent dedup store: the single source of truth for
// "has this been done". Every operation is individually atomic; there is no
// transaction spanning more than one record.
type Ledger interface {
	// Exists reports whether a record with the given key is present.
	Exists(ctx context.Context, kind Kind, key string) (bool, error)

	// Record inserts rec. A duplicate key is not an error: Record returns
	// false and leaves the existing record untouched.
	Record(ctx context.Context, rec Record) (bool, error)

	// Clear removes every record in scope and returns how many were removed
	// per record set.
	Clear(ctx context.Context, scope ClearScope) (Counts, error)

	// Counts returns the number of records held per record set.
	Counts(ctx context.Context) (Counts, error)

	// Close releases backend resources. Idempotent.
	Close() error
}

// Ledger errors.
var (
	ErrUnknownKind     = errors.New("unknown record kind")
	ErrUnknownScope    = errors.New("unknown clear scope")
	ErrInvalidKey      = errors.New("record key must not be empty")
	ErrInvalidRecord   = errors.New("invalid record")
	ErrLedgerClosed    = errors.New("ledger is closed")
	ErrAlreadyAttached = errors.New("ledger is already attached")
)
