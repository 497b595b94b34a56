package pinterest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pinagent/internal/httpclient"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

func setupServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(httpclient.New(httpclient.Config{}), srv.URL, nil)
}

func TestSearchPins(t *testing.T) {
	c := setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/pins", r.URL.Path)
		assert.Equal(t, "paris", r.URL.Query().Get("query"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		io.WriteString(w, `{"items":[
			{"id":"1","link":"http://a","board_id":"b","save_count":12,
			 "media":{"images":{"originals":{"url":"http://img/1.jpg"}}}},
			{"id":"2","aggregated_pin_data":{"saves":"7"}},
			{"id":"3","save_count":"n/a"},
			{"id":"4","save_count":null,"aggregated_pin_data":{"saves":3}}
		]}`)
	})

	got := c.SearchPins(context.Background(), "tok", "paris")
	assert.Equal(t, []types.RemotePin{
		{ID: "1", Link: "http://a", BoardID: "b", Saves: 12, ImageURL: "http://img/1.jpg"},
		{ID: "2", Saves: 7},
		{ID: "3", Saves: 0},
		{ID: "4", Saves: 3},
	}, got)
}

func TestLookupsNeverFail(t *testing.T) {
	c := setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"rate limited"}`, http.StatusTooManyRequests)
	})
	ctx := context.Background()

	boards := c.SearchBoards(ctx, "tok", "x")
	require.NotNil(t, boards)
	assert.Empty(t, boards)

	pins := c.BoardPins(ctx, "tok", "b1")
	require.NotNil(t, pins)
	assert.Empty(t, pins)

	assert.Empty(t, c.SearchPins(ctx, "tok", "x"))
}

func TestSearchBoardsAndBoardPins(t *testing.T) {
	c := setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/boards":
			io.WriteString(w, `{"items":[{"id":"s1","name":"Rome trips"}]}`)
		case "/boards/s1/pins":
			io.WriteString(w, `{"items":[{"id":"p9","save_count":40}]}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	assert.Equal(t, []types.SourceBoard{{ID: "s1", Name: "Rome trips"}}, c.SearchBoards(ctx, "tok", "rome"))
	assert.Equal(t, []types.RemotePin{{ID: "p9", Saves: 40}}, c.BoardPins(ctx, "tok", "s1"))
}

func TestCreatePinAndRepin(t *testing.T) {
	var bodies []map[string]any
	c := setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/pins", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		io.WriteString(w, `{"id":"new1","board_id":"B","link":"https://site"}`)
	})
	ctx := context.Background()

	got, err := c.CreatePin(ctx, "tok", types.NewPin{
		BoardID: "B", ImageURL: "https://img/x.jpg", Title: "T", Description: "D", Link: "https://site",
	})
	require.NoError(t, err)
	assert.Equal(t, types.PublishedPin{ID: "new1", BoardID: "B", Link: "https://site"}, got)

	_, err = c.Repin(ctx, "tok", "B", "p1")
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.Equal(t, "T", bodies[0]["alt_text"])
	assert.Equal(t, map[string]any{"source_type": "image_url", "url": "https://img/x.jpg"}, bodies[0]["media_source"])
	assert.NotContains(t, bodies[0], "existing_pin_id")
	assert.Equal(t, map[string]any{"board_id": "B", "existing_pin_id": "p1"}, bodies[1])
}

func TestAPIError(t *testing.T) {
	c := setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.Repin(context.Background(), "tok", "B", "p1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Body)
}
