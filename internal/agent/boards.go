package agent

import (
	"math/rand/v2"
	"net/url"
	"strings"

	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// selectBoard returns the first configured board sharing a keyword with
// keywords, or a uniformly random board when none does. matched reports
// which case applied. ok is false only when there are no boards.
func selectBoard(boards types.BoardSet, keywords []string, rng *rand.Rand) (b types.Board, matched, ok bool) {
	if len(boards) == 0 {
		return types.Board{}, false, false
	}
	if b, found := boards.Match(keywords); found {
		return b, true, true
	}
	return boards[rng.IntN(len(boards))], false, true
}

// randomBoard picks a board uniformly.
func randomBoard(boards types.BoardSet, rng *rand.Rand) (types.Board, bool) {
	if len(boards) == 0 {
		return types.Board{}, false
	}
	return boards[rng.IntN(len(boards))], true
}

// displaySite turns a site URL into a short display name:
// "https://www.example.com/" becomes "Example.com".
func displaySite(site string) string {
	s := site
	if u, err := url.Parse(site); err == nil && u.Host != "" {
		s = u.Host + strings.TrimRight(u.Path, "/")
	}
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimSuffix(s, "/")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
