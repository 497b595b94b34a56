package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// ErrBoardsFormat is returned when boards.yml is not a mapping of board keys.
var ErrBoardsFormat = errors.New("boards.yml: expected a 'boards' mapping")

// LoadBoards reads an ordered board list from path:
//
//	boards:
//	  travel:
//	    id: ${BOARD_TRAVEL_ID}
//	    keywords: [paris, rome]
//
// Order follows the file, since the first matching board wins. A missing
// file yields an empty set.
func LoadBoards(path string) (types.BoardSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.BoardSet{}, nil
		}
		return nil, fmt.Errorf("read boards: %w", err)
	}
	return ParseBoards(data)
}

// ParseBoards decodes boards.yml content, keeping key order.
func ParseBoards(data []byte) (types.BoardSet, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse boards: %w", err)
	}
	boards := types.BoardSet{}
	if len(doc.Content) == 0 {
		return boards, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, ErrBoardsFormat
	}
	var list *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "boards" {
			list = root.Content[i+1]
		}
	}
	if list == nil || (list.Kind == yaml.ScalarNode && list.Tag == "!!null") {
		return boards, nil
	}
	if list.Kind != yaml.MappingNode {
		return nil, ErrBoardsFormat
	}

	seen := map[string]bool{}
	for i := 0; i+1 < len(list.Content); i += 2 {
		key := list.Content[i].Value
		if seen[key] {
			return nil, fmt.Errorf("boards.yml: duplicate board %q", key)
		}
		seen[key] = true

		var b types.Board
		if err := list.Content[i+1].Decode(&b); err != nil {
			return nil, fmt.Errorf("boards.yml: board %q: %w", key, err)
		}
		b.Key = key
		b.ID = expand(b.ID)
		for j, kw := range b.Keywords {
			b.Keywords[j] = expand(kw)
		}
		boards = append(boards, b)
	}
	return boards, nil
}
