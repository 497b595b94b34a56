package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pinagent/pkg/ledger"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

type statsOutput struct {
	Backend string                        `json:"backend"`
	Counts  types.Counts                  `json:"counts"`
	Recent  map[types.Kind][]types.Record `json:"recent,omitempty"`
}

func newStatsCmd(f *rootFlags) *cobra.Command {
	var recent int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show ledger record counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if recent < 0 {
				return userError("--recent must not be negative")
			}
			e, err := loadEnv(f)
			if err != nil {
				return err
			}
			defer e.log.Sync() //nolint:errcheck

			l, err := e.openLedger()
			if err != nil {
				return err
			}
			defer l.Close()

			counts, err := l.Counts(cmd.Context())
			if err != nil {
				return sysError("read ledger: %w", err)
			}
			out := statsOutput{Backend: e.cfg.Ledger.Backend, Counts: counts}

			if lister, ok := l.(ledger.Lister); ok && recent > 0 {
				out.Recent = map[types.Kind][]types.Record{}
				for _, kind := range types.Kinds {
					recs, err := lister.List(cmd.Context(), kind, recent)
					if err != nil {
						return sysError("list %s: %w", kind, err)
					}
					out.Recent[kind] = recs
				}
			}

			if f.jsonMode {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			if err := printCounts(cmd, false, "Ledger ("+out.Backend+")", counts); err != nil {
				return err
			}
			for _, kind := range types.Kinds {
				for _, rec := range out.Recent[kind] {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-16s %s  %s\n", kind, recordTime(rec).Format(time.RFC3339), rec.Key())
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&recent, "recent", 0, "also list the newest N records of each kind")
	return cmd
}

func printCounts(cmd *cobra.Command, jsonMode bool, title string, c types.Counts) error {
	out := cmd.OutOrStdout()
	if jsonMode {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}
	fmt.Fprintf(out, "%s:\n", title)
	fmt.Fprintf(out, "  %-16s %d\n", types.KindPin, c.Pins)
	fmt.Fprintf(out, "  %-16s %d\n", types.KindBlogPin, c.BlogPins)
	fmt.Fprintf(out, "  %-16s %d\n", types.KindSearchedBoard, c.SearchedBoards)
	return nil
}

func recordTime(rec types.Record) time.Time {
	switch r := rec.(type) {
	case types.PinRecord:
		return r.CreatedAt
	case types.BlogPinRecord:
		return r.CreatedAt
	case types.SearchedBoardRecord:
		return r.LastSearchedAt
	}
	return time.Time{}
}
