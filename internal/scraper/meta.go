package scraper

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// maxKeywords bounds the keywords derived from a title.
const maxKeywords = 15

// ExtractMeta fetches a post page and reads its title, description, image
// and title keywords. It fails when the page cannot be fetched or parsed.
func (c *Client) ExtractMeta(ctx context.Context, postURL string) (types.PostMeta, error) {
	body, err := c.get(ctx, postURL)
	if err != nil {
		return types.PostMeta{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return types.PostMeta{}, fmt.Errorf("parse html: %w", err)
	}

	meta := types.PostMeta{
		URL:       postURL,
		FetchedAt: c.now().UTC(),
	}
	if v, ok := metaContent(doc, "meta[property='og:title']"); ok {
		meta.Title = v
	} else if v, ok := text(doc.Find("title")); ok {
		meta.Title = v
	}
	if v, ok := metaContent(doc, "meta[name='description']"); ok {
		meta.Description = v
	} else if v, ok := metaContent(doc, "meta[property='og:description']"); ok {
		meta.Description = v
	}
	if img, ok := metaContent(doc, "meta[property='og:image']"); ok {
		if abs, err := resolve(postURL, img); err == nil {
			img = abs
		}
		meta.ImageURL = img
	}
	meta.Keywords = Keywords(meta.Title)
	return meta, nil
}

// Keywords lowercases the words of title, trims surrounding punctuation and
// keeps those longer than two characters, up to 15.
func Keywords(title string) []string {
	out := []string{}
	for _, w := range strings.Fields(title) {
		w = strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		}))
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// attrValue returns the trimmed attribute of the first node in sel, and
// whether it is present and non-empty.
func attrValue(sel *goquery.Selection, attr string) (string, bool) {
	v, ok := sel.First().Attr(attr)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func metaContent(doc *goquery.Document, selector string) (string, bool) {
	return attrValue(doc.Find(selector), "content")
}

func text(sel *goquery.Selection) (string, bool) {
	if sel.Length() == 0 {
		return "", false
	}
	v := strings.TrimSpace(sel.First().Text())
	return v, v != ""
}
