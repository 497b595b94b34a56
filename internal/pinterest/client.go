// Package pinterest talks to the Pinterest v5 REST API: candidate lookups,
// pin creation, repins and OAuth token refresh.
package pinterest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mesh-intelligence/pinagent/internal/logger"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// DefaultBaseURL is the v5 API root.
const DefaultBaseURL = "https://api.pinterest.com/v5"

// Page sizes for lookups.
const (
	searchPageSize    = 30
	boardPinsPageSize = 50
	maxErrorBody      = 2048
)

// APIError is returned for non-2xx responses.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pinterest api: status %d: %s", e.Status, e.Body)
}

// Client is a Pinterest API client. Tokens are passed per call.
type Client struct {
	http    *http.Client
	baseURL string
	log     logger.Logger
}

// New creates a Client. An empty baseURL uses DefaultBaseURL.
func New(httpClient *http.Client, baseURL string, log logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), log: log}
}

// SearchBoards returns boards matching query. Failures are logged and yield
// an empty slice.
func (c *Client) SearchBoards(ctx context.Context, token, query string) []types.SourceBoard {
	var page struct {
		Items []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
	}
	q := url.Values{"query": {query}, "page_size": {fmt.Sprint(searchPageSize)}}
	if err := c.do(ctx, token, http.MethodGet, "/search/boards?"+q.Encode(), nil, &page); err != nil {
		c.log.Warn("board search failed", logger.String("query", query), logger.Error(err))
		return []types.SourceBoard{}
	}
	out := make([]types.SourceBoard, 0, len(page.Items))
	for _, it := range page.Items {
		out = append(out, types.SourceBoard{ID: it.ID, Name: it.Name})
	}
	return out
}

// BoardPins lists the pins of a board. Failures yield an empty slice.
func (c *Client) BoardPins(ctx context.Context, token, boardID string) []types.RemotePin {
	var page pinPage
	q := url.Values{"page_size": {fmt.Sprint(boardPinsPageSize)}}
	path := "/boards/" + url.PathEscape(boardID) + "/pins?" + q.Encode()
	if err := c.do(ctx, token, http.MethodGet, path, nil, &page); err != nil {
		c.log.Warn("board pins lookup failed", logger.String("board_id", boardID), logger.Error(err))
		return []types.RemotePin{}
	}
	return page.pins()
}

// SearchPins returns pins matching query. Failures yield an empty slice.
func (c *Client) SearchPins(ctx context.Context, token, query string) []types.RemotePin {
	var page pinPage
	q := url.Values{"query": {query}, "page_size": {fmt.Sprint(searchPageSize)}}
	if err := c.do(ctx, token, http.MethodGet, "/search/pins?"+q.Encode(), nil, &page); err != nil {
		c.log.Warn("pin search failed", logger.String("query", query), logger.Error(err))
		return []types.RemotePin{}
	}
	return page.pins()
}

type mediaSource struct {
	SourceType string `json:"source_type"`
	URL        string `json:"url"`
}

type createPinRequest struct {
	BoardID       string       `json:"board_id"`
	ExistingPinID string       `json:"existing_pin_id,omitempty"`
	Title         string       `json:"title,omitempty"`
	AltText       string       `json:"alt_text,omitempty"`
	Description   string       `json:"description,omitempty"`
	Link          string       `json:"link,omitempty"`
	MediaSource   *mediaSource `json:"media_source,omitempty"`
}

// CreatePin publishes a new pin from an image URL.
func (c *Client) CreatePin(ctx context.Context, token string, pin types.NewPin) (types.PublishedPin, error) {
	req := createPinRequest{
		BoardID:     pin.BoardID,
		Title:       pin.Title,
		AltText:     pin.Title,
		Description: pin.Description,
		Link:        pin.Link,
		MediaSource: &mediaSource{SourceType: "image_url", URL: pin.ImageURL},
	}
	var out types.PublishedPin
	if err := c.do(ctx, token, http.MethodPost, "/pins", req, &out); err != nil {
		return types.PublishedPin{}, fmt.Errorf("create pin: %w", err)
	}
	return out, nil
}

// Repin saves an existing pin to boardID.
func (c *Client) Repin(ctx context.Context, token, boardID, pinID string) (types.PublishedPin, error) {
	req := createPinRequest{BoardID: boardID, ExistingPinID: pinID}
	var out types.PublishedPin
	if err := c.do(ctx, token, http.MethodPost, "/pins", req, &out); err != nil {
		return types.PublishedPin{}, fmt.Errorf("repin %s: %w", pinID, err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, token, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
