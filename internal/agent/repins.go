package agent

import (
	"context"

	"github.com/mesh-intelligence/pinagent/internal/logger"
	"github.com/mesh-intelligence/pinagent/internal/retry"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// runRepins fills RepinQuota slots, each on a randomly chosen board. A slot
// that cannot be filled within AttemptsPerSlot searches is given up and the
// stream moves on to the next slot.
func (s *stream) runRepins(ctx context.Context) []string {
	repinned := []string{}
	if s.cfg.RepinQuota <= 0 || s.deps.Pins == nil {
		return repinned
	}

	for slot := 0; slot < s.cfg.RepinQuota; slot++ {
		if ctx.Err() != nil {
			break
		}
		board, ok := randomBoard(s.cfg.Boards, s.rng)
		if !ok {
			s.skip(SkipNoDestination)
			break
		}
		id, ok := s.fillSlot(ctx, board)
		if !ok {
			s.log.Info("repin slot exhausted, moving to next slot",
				logger.Int("slot", slot+1),
				logger.String("board", board.Key),
			)
			continue
		}
		repinned = append(repinned, id)
		s.pace(ctx, len(repinned)-1)
	}

	s.log.Info("repin stream finished",
		logger.Int("repinned", len(repinned)),
		logger.Int("quota", s.cfg.RepinQuota),
	)
	return repinned
}

// fillSlot searches for one novel, quality pin and repins it onto board.
func (s *stream) fillSlot(ctx context.Context, board types.Board) (string, bool) {
	if len(board.Keywords) == 0 {
		s.log.Warn("board has no keywords", logger.String("board", board.Key))
		return "", false
	}
	for attempt := 0; attempt < s.cfg.AttemptsPerSlot; attempt++ {
		if ctx.Err() != nil {
			return "", false
		}
		keyword := board.Keywords[s.rng.IntN(len(board.Keywords))]
		candidates := s.filter.Pins(ctx, s.discoverPins(ctx, keyword), s.cfg.MinSaves)

		for _, c := range candidates {
			if id, ok := s.repin(ctx, board, c); ok {
				return id, true
			}
		}
	}
	return "", false
}

// discoverPins lists the pins of the first source board for keyword that
// has not been mined yet, marking it as searched. When every source board
// was already searched it falls back to a plain pin search.
func (s *stream) discoverPins(ctx context.Context, keyword string) []types.RemotePin {
	token, err := s.token(ctx)
	if err != nil {
		s.log.Warn("token refresh failed", logger.Error(err))
		return nil
	}

	for _, sb := range s.deps.Pins.SearchBoards(ctx, token, keyword) {
		if sb.ID == "" {
			continue
		}
		searched, err := s.deps.Ledger.Exists(ctx, types.KindSearchedBoard, sb.ID)
		if err != nil {
			s.log.Warn("ledger lookup failed", logger.String("source_board_id", sb.ID), logger.Error(err))
			continue
		}
		if searched {
			continue
		}
		if _, err := s.deps.Ledger.Record(ctx, types.SearchedBoardRecord{SourceBoardID: sb.ID}); err != nil {
			s.log.Warn("failed to mark board searched", logger.String("source_board_id", sb.ID), logger.Error(err))
		}
		s.log.Debug("mining source board",
			logger.String("keyword", keyword),
			logger.String("source_board_id", sb.ID),
			logger.String("source_board", sb.Name),
		)
		return s.deps.Pins.BoardPins(ctx, token, sb.ID)
	}

	return s.deps.Pins.SearchPins(ctx, token, keyword)
}

// repin re-checks the ledger, repins c and records it.
func (s *stream) repin(ctx context.Context, board types.Board, c types.RemotePin) (string, bool) {
	pinField := logger.String("pin_id", c.ID)

	exists, err := s.deps.Ledger.Exists(ctx, types.KindPin, c.ID)
	if err != nil {
		s.skip(SkipLedgerError, pinField, logger.Error(err))
		return "", false
	}
	if exists {
		s.skip(SkipDuplicate, pinField)
		return "", false
	}

	_, ok := retry.Do(ctx, s.policy(repinPolicy), "repin",
		func(ctx context.Context) (types.PublishedPin, error) {
			token, err := s.token(ctx)
			if err != nil {
				return types.PublishedPin{}, err
			}
			return s.deps.Publisher.Repin(ctx, token, board.ID, c.ID)
		})
	if !ok {
		s.skip(SkipPublishFailed, pinField)
		return "", false
	}

	s.deps.Metrics.Published(s.name)
	s.log.Info("repinned",
		pinField,
		logger.String("board", board.Key),
		logger.Int("saves", c.Saves),
	)

	rec := types.PinRecord{PinID: c.ID, BoardKey: board.Key, SourceURL: c.Link}
	if _, err := s.deps.Ledger.Record(ctx, rec); err != nil {
		s.deps.Metrics.Skipped(s.name, SkipLedgerError)
		s.log.Error("failed to record repin", pinField, logger.Error(err))
	}
	return c.ID, true
}
