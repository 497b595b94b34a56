package agent

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/pinagent/internal/logger"
	"github.com/mesh-intelligence/pinagent/internal/retry"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

var errNoPinID = errors.New("publish response has no pin id")

// runNewPins turns unpublished blog posts into pins until the quota is met
// or the batch runs out.
func (s *stream) runNewPins(ctx context.Context) []string {
	created := []string{}
	if s.cfg.NewPinQuota <= 0 || s.deps.Posts == nil {
		return created
	}

	posts := s.deps.Posts.DiscoverPosts(ctx, s.cfg.SiteURL, s.cfg.PostBatch)
	posts = s.filter.Posts(ctx, posts)
	s.log.Info("discovered posts", logger.Int("posts", len(posts)))

	for _, post := range posts {
		if len(created) >= s.cfg.NewPinQuota || ctx.Err() != nil {
			break
		}
		id, ok := s.publishPost(ctx, post)
		if !ok {
			continue
		}
		created = append(created, id)
		s.pace(ctx, s.cfg.RepinQuota+len(created)-1)
	}

	s.log.Info("new pin stream finished",
		logger.Int("created", len(created)),
		logger.Int("quota", s.cfg.NewPinQuota),
	)
	return created
}

// publishPost takes one post from novelty check to ledger write.
func (s *stream) publishPost(ctx context.Context, post types.BlogPost) (string, bool) {
	postField := logger.String("post_url", post.URL)

	exists, err := s.deps.Ledger.Exists(ctx, types.KindBlogPin, post.URL)
	if err != nil {
		s.log.Warn("ledger lookup failed", postField, logger.Error(err))
		s.skip(SkipLedgerError, postField)
		return "", false
	}
	if exists {
		s.skip(SkipDuplicate, postField)
		return "", false
	}

	meta, ok := retry.Do(ctx, s.policy(metaPolicy), "extract_meta",
		func(ctx context.Context) (types.PostMeta, error) {
			return s.deps.Posts.ExtractMeta(ctx, post.URL)
		})
	if !ok {
		s.skip(SkipNoMetadata, postField)
		return "", false
	}

	board, matched, ok := selectBoard(s.cfg.Boards, meta.Keywords, s.rng)
	if !ok {
		s.skip(SkipNoDestination, postField)
		return "", false
	}
	s.log.Debug("selected board",
		postField,
		logger.String("board", board.Key),
		logger.Bool("keyword_match", matched),
	)

	caption := meta.Title
	if caption == "" {
		caption = "More on " + displaySite(s.cfg.SiteURL)
	}

	m, ok := s.acquireMedia(ctx, meta, caption)
	if !ok {
		s.skip(SkipNoMedia, postField)
		return "", false
	}

	imageURL := s.host(ctx, m, meta)
	if imageURL == "" {
		s.skip(SkipNoImageURL, postField)
		return "", false
	}

	pin := types.NewPin{
		BoardID:     board.ID,
		ImageURL:    imageURL,
		Title:       meta.Title,
		Description: meta.Description,
		Link:        s.cfg.SiteURL,
	}
	published, ok := retry.Do(ctx, s.policy(publishPolicy), "create_pin",
		func(ctx context.Context) (types.PublishedPin, error) {
			token, err := s.token(ctx)
			if err != nil {
				return types.PublishedPin{}, err
			}
			p, err := s.deps.Publisher.CreatePin(ctx, token, pin)
			if err != nil {
				return types.PublishedPin{}, err
			}
			if p.ID == "" {
				return types.PublishedPin{}, errNoPinID
			}
			return p, nil
		})
	if !ok {
		s.skip(SkipPublishFailed, postField)
		return "", false
	}

	s.deps.Metrics.Published(s.name)
	s.log.Info("created pin",
		postField,
		logger.String("pin_id", published.ID),
		logger.String("board", board.Key),
	)

	if _, err := s.deps.Ledger.Record(ctx, types.BlogPinRecord{PostURL: post.URL, PinID: published.ID}); err != nil {
		s.deps.Metrics.Skipped(s.name, SkipLedgerError)
		s.log.Error("failed to record published post",
			postField,
			logger.String("pin_id", published.ID),
			logger.Error(err),
		)
	}
	return published.ID, true
}

// acquireMedia tries the AI generator first when enabled, then the local
// compositor with the post's own image as background.
func (s *stream) acquireMedia(ctx context.Context, meta types.PostMeta, caption string) (types.Media, bool) {
	if s.cfg.UseAI && s.deps.AIMedia != nil {
		m, ok := retry.Do(ctx, s.policy(aiMediaPolicy), "ai_media",
			func(ctx context.Context) (types.Media, error) {
				return s.deps.AIMedia.Generate(ctx, meta.URL, caption)
			})
		if ok {
			return m, true
		}
		s.log.Info("AI media failed, using local compositor", logger.String("post_url", meta.URL))
	}
	if s.deps.LocalMedia == nil {
		return types.Media{}, false
	}
	return retry.Do(ctx, s.policy(localMediaPolicy), "local_media",
		func(ctx context.Context) (types.Media, error) {
			return s.deps.LocalMedia.Generate(ctx, meta.ImageURL, caption)
		})
}

// host uploads m and falls back to the post's own image URL on failure.
func (s *stream) host(ctx context.Context, m types.Media, meta types.PostMeta) string {
	if s.deps.Host == nil {
		return meta.ImageURL
	}
	u, err := s.deps.Host.Upload(ctx, m)
	if err != nil || u == "" {
		s.log.Warn("media upload failed, falling back to post image",
			logger.String("post_url", meta.URL),
			logger.Error(err),
		)
		return meta.ImageURL
	}
	return u
}
