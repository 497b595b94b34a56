package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoardSetMatch(t *testing.T) {
	boards := BoardSet{
		{Key: "travel", ID: "b1", Keywords: []string{"Beach", "hiking"}},
		{Key: "food", ID: "b2", Keywords: []string{"recipe", "beach"}},
		{Key: "empty", ID: "b3"},
	}

	tests := []struct {
		name     string
		keywords []string
		wantKey  string
		wantOK   bool
	}{
		{name: "exact match", keywords: []string{"recipe"}, wantKey: "food", wantOK: true},
		{name: "case-insensitive", keywords: []string{"HIKING"}, wantKey: "travel", wantOK: true},
		{name: "tie broken by config order", keywords: []string{"beach"}, wantKey: "travel", wantOK: true},
		{name: "substring does not match", keywords: []string{"beaches"}, wantOK: false},
		{name: "no keywords", keywords: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := boards.Match(tt.keywords)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKey, got.Key)
			}
		})
	}
}

func TestBoardSetKeysAndGet(t *testing.T) {
	boards := BoardSet{{Key: "a", ID: "1"}, {Key: "b", ID: "2"}}

	assert.Equal(t, []string{"a", "b"}, boards.Keys())

	b, ok := boards.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "2", b.ID)

	_, ok = boards.Get("missing")
	assert.False(t, ok)
}
