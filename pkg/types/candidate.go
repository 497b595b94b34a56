package types

import "time"

// BlogPost is a discovered post on the configured site. Its URL is its
// identity in the ledger.
type BlogPost struct {
	URL string `json:"url"`
}

// PostMeta is the metadata extracted from a blog post page.
type PostMeta struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	ImageURL    string    `json:"image_url,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// RemotePin is a pin found on another board. Saves is the engagement score
// used by the quality filter.
type RemotePin struct {
	ID       string `json:"id"`
	Link     string `json:"link"`
	BoardID  string `json:"board_id"`
	Saves    int    `json:"saves"`
	ImageURL string `json:"image_url,omitempty"`
}

// SourceBoard is a board mined for repin candidates.
type SourceBoard struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewPin describes a pin to create from hosted media.
type NewPin struct {
	BoardID     string `json:"board_id"`
	ImageURL    string `json:"image_url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// PublishedPin is the part of a publish response the agent inspects.
type PublishedPin struct {
	ID      string `json:"id"`
	BoardID string `json:"board_id"`
	Link    string `json:"link"`
}

// Media is an acquired image held in memory until it is hosted.
type Media struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}
