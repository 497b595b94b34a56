// Package scraper discovers blog posts through the site's sitemap and
// extracts the metadata used to build pins.
package scraper

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mesh-intelligence/pinagent/internal/logger"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// maxBodyBytes caps sitemap and page downloads.
const maxBodyBytes = 10 << 20

// postMarkers are URL fragments that identify a post rather than a page.
var postMarkers = []string{"/20", "/post", "/posts", "/blog"}

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type xmlSitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// Client fetches sitemaps and post pages.
type Client struct {
	http *http.Client
	log  logger.Logger
	now  func() time.Time
}

// New creates a Client.
func New(httpClient *http.Client, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{http: httpClient, log: log, now: time.Now}
}

// DiscoverPosts reads <site>/sitemap.xml, following a sitemap index one
// level deep, and returns up to limit post URLs in sitemap order. Any
// failure yields an empty slice.
func (c *Client) DiscoverPosts(ctx context.Context, site string, limit int) []types.BlogPost {
	posts := []types.BlogPost{}
	sitemapURL, err := resolve(site, "/sitemap.xml")
	if err != nil {
		c.log.Warn("invalid site url", logger.String("site", site), logger.Error(err))
		return posts
	}

	locs, children, err := c.readSitemap(ctx, sitemapURL)
	if err != nil {
		c.log.Warn("sitemap unavailable", logger.String("url", sitemapURL), logger.Error(err))
		return posts
	}
	for _, child := range children {
		more, _, err := c.readSitemap(ctx, child)
		if err != nil {
			c.log.Warn("child sitemap unavailable", logger.String("url", child), logger.Error(err))
			continue
		}
		locs = append(locs, more...)
	}

	for _, loc := range locs {
		if limit > 0 && len(posts) >= limit {
			break
		}
		if isPostURL(loc) {
			posts = append(posts, types.BlogPost{URL: loc})
		}
	}
	c.log.Debug("sitemap read",
		logger.String("url", sitemapURL),
		logger.Int("urls", len(locs)),
		logger.Int("posts", len(posts)),
	)
	return posts
}

// readSitemap returns the page locations of a urlset, or the child sitemap
// locations of a sitemap index.
func (c *Client) readSitemap(ctx context.Context, u string) (locs, children []string, err error) {
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, nil, err
	}

	var index xmlSitemapIndex
	if xml.Unmarshal(body, &index) == nil {
		for _, s := range index.Sitemaps {
			if loc := strings.TrimSpace(s.Loc); loc != "" {
				children = append(children, loc)
			}
		}
		return nil, children, nil
	}

	var set xmlURLSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, nil, fmt.Errorf("parse sitemap: %w", err)
	}
	for _, e := range set.URLs {
		if loc := strings.TrimSpace(e.Loc); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, nil, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status code: %d", u, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	return body, nil
}

func isPostURL(u string) bool {
	for _, m := range postMarkers {
		if strings.Contains(u, m) {
			return true
		}
	}
	return false
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if b.Scheme == "" || b.Host == "" {
		return "", fmt.Errorf("not an absolute url: %q", base)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
