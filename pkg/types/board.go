package types

import "strings"

// Board is a destination board on the publishing platform with the topical
// keywords used to route content to it.
type Board struct {
	Key      string   `json:"key" yaml:"-" validate:"required"`
	ID       string   `json:"id" yaml:"id" validate:"required"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// HasKeyword reports whether any of the board keywords equals kw, ignoring case.
func (b Board) HasKeyword(kw string) bool {
	for _, k := range b.Keywords {
		if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(kw)) {
			return true
		}
	}
	return false
}

// BoardSet is the ordered board configuration. Order matters: when several
// boards match a post, the first one wins.
type BoardSet []Board

// Keys returns the board keys in configuration order.
func (s BoardSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for _, b := range s {
		keys = append(keys, b.Key)
	}
	return keys
}

// Get returns the board with the given key.
func (s BoardSet) Get(key string) (Board, bool) {
	for _, b := range s {
		if b.Key == key {
			return b, true
		}
	}
	return Board{}, false
}

// Match returns the first board, in configuration order, with at least one
// keyword that equals one of keywords (case-insensitive).
func (s BoardSet) Match(keywords []string) (Board, bool) {
	for _, b := range s {
		for _, kw := range keywords {
			if b.HasKeyword(kw) {
				return b, true
			}
		}
	}
	return Board{}, false
}
