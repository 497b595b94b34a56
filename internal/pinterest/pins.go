package pinterest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// pinPage is a page of pin items from a lookup endpoint.
type pinPage struct {
	Items []pinItem `json:"items"`
}

type pinItem struct {
	ID                string   `json:"id"`
	Link              string   `json:"link"`
	BoardID           string   `json:"board_id"`
	SaveCount         countVal `json:"save_count"`
	AggregatedPinData struct {
		Saves countVal `json:"saves"`
	} `json:"aggregated_pin_data"`
	Media struct {
		Images map[string]struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"media"`
}

func (p pinPage) pins() []types.RemotePin {
	out := make([]types.RemotePin, 0, len(p.Items))
	for _, it := range p.Items {
		saves := int(it.SaveCount)
		if saves == 0 {
			saves = int(it.AggregatedPinData.Saves)
		}
		out = append(out, types.RemotePin{
			ID:       it.ID,
			Link:     it.Link,
			BoardID:  it.BoardID,
			Saves:    saves,
			ImageURL: it.imageURL(),
		})
	}
	return out
}

// imageURL prefers the original rendition, then any other.
func (it pinItem) imageURL() string {
	if img, ok := it.Media.Images["originals"]; ok && img.URL != "" {
		return img.URL
	}
	for _, img := range it.Media.Images {
		if img.URL != "" {
			return img.URL
		}
	}
	return ""
}

// countVal decodes a count sent as a number or a numeric string. Anything
// else decodes as zero.
type countVal int

func (c *countVal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		b = []byte(strings.TrimSpace(s))
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*c = 0
		return nil
	}
	*c = countVal(f)
	return nil
}
