package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pinagent/internal/httpclient"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

func newTestClient() *Client {
	return New(httpclient.New(httpclient.Config{}), nil)
}

func TestDiscoverPosts(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%[1]s/post-sitemap.xml</loc></sitemap>
  <sitemap><loc>%[1]s/missing.xml</loc></sitemap>
</sitemapindex>`, srv.URL)
	})
	mux.HandleFunc("/post-sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%[1]s/about</loc></url>
  <url><loc>%[1]s/2024/05/trip</loc></url>
  <url><loc> %[1]s/blog/pasta </loc></url>
  <url><loc>%[1]s/posts/rome</loc></url>
  <url><loc>%[1]s/contact</loc></url>
</urlset>`, srv.URL)
	})

	c := newTestClient()

	got := c.DiscoverPosts(context.Background(), srv.URL, 0)
	assert.Equal(t, []types.BlogPost{
		{URL: srv.URL + "/2024/05/trip"},
		{URL: srv.URL + "/blog/pasta"},
		{URL: srv.URL + "/posts/rome"},
	}, got)

	limited := c.DiscoverPosts(context.Background(), srv.URL+"/", 2)
	assert.Len(t, limited, 2)
}

func TestDiscoverPostsNeverFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient()
	for _, site := range []string{srv.URL, "not a url", "http://127.0.0.1:1"} {
		got := c.DiscoverPosts(context.Background(), site, 10)
		require.NotNil(t, got, site)
		assert.Empty(t, got, site)
	}
}

func TestExtractMeta(t *testing.T) {
	pages := map[string]string{
		"/og": `<html><head>
<title>Fallback title</title>
<meta property="og:title" content="  Ten Days in Rome: a Pasta Guide! ">
<meta property="og:description" content="og description">
<meta name="description" content="plain description">
<meta property="og:image" content="/img/rome.jpg">
</head><body></body></html>`,
		"/plain": `<html><head><title> Plain Title Here </title>
<meta property="og:description" content="only og">
<meta property="og:image" content="">
</head></html>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	c := newTestClient()
	ctx := context.Background()

	meta, err := c.ExtractMeta(ctx, srv.URL+"/og")
	require.NoError(t, err)
	assert.Equal(t, "Ten Days in Rome: a Pasta Guide!", meta.Title)
	assert.Equal(t, "plain description", meta.Description)
	assert.Equal(t, srv.URL+"/img/rome.jpg", meta.ImageURL)
	assert.Equal(t, []string{"ten", "days", "rome", "pasta", "guide"}, meta.Keywords)
	assert.Equal(t, srv.URL+"/og", meta.URL)
	assert.False(t, meta.FetchedAt.IsZero())

	meta, err = c.ExtractMeta(ctx, srv.URL+"/plain")
	require.NoError(t, err)
	assert.Equal(t, "Plain Title Here", meta.Title)
	assert.Equal(t, "only og", meta.Description)
	assert.Empty(t, meta.ImageURL)

	_, err = c.ExtractMeta(ctx, srv.URL+"/missing")
	assert.Error(t, err)
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{}, Keywords(""))
	assert.Equal(t, []string{"how", "cook", "risotto"}, Keywords("How to cook (risotto)"))

	long := ""
	for i := 0; i < 20; i++ {
		long += fmt.Sprintf("word%d ", i)
	}
	assert.Len(t, Keywords(long), maxKeywords)
}
