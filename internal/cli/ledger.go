package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/xpnc/internal/badge"
	"github.com/ppiankov/xpnc/internal/model"
	"github.com/ppiankov/xpnc/internal/store"
)

var (
	ledgerStatus string
	ledgerUser   string
	rejectReason string
)

// ledgerCmd represents the ledger command
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Review scored submissions, badges and levels",
	Long: `Ledger works on the local SQLite record of scored submissions.

Scores are advisory: a submission stays pending until it is approved or
rejected here. Approval credits the submission's final score as XP and its
token award, and awards any badges the user's history now qualifies for.

Example:
  xpnc ledger list --status pending
  xpnc ledger approve 3f1c...
  xpnc ledger reject 3f1c... --reason "duplicate submission"
  xpnc ledger flag 3f1c...
  xpnc ledger stats
  xpnc ledger badges alice
  xpnc ledger level alice`,
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scored submissions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status := model.ReviewStatus(strings.ToLower(ledgerStatus))
		if status != "" && !status.Valid() {
			return fmt.Errorf("unknown status %q (pending, approved, rejected)", ledgerStatus)
		}

		return withLedger(func(ctx context.Context, l *store.Store) error {
			var (
				recs []model.ScoredSubmission
				err  error
			)
			if ledgerUser != "" {
				recs, err = l.ListByUser(ctx, ledgerUser)
			} else {
				recs, err = l.List(ctx, status)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range recs {
				if status != "" && r.Status != status {
					continue
				}
				mark := " "
				if r.Flagged {
					mark = "⚑"
				}
				fmt.Fprintf(out, "%s %-36s  %-8s  %3d  %3d tokens  %-12s  %s\n",
					mark, r.Submission.ID, r.Status, r.Score.FinalScore, r.Score.TokenAirdropAmount,
					r.Submission.ActivityType, r.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

var ledgerApproveCmd = &cobra.Command{
	Use:   "approve <submission-id>",
	Short: "Approve a submission and award earned badges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(ctx context.Context, l *store.Store) error {
			awarded, err := l.Approve(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Approved %s\n", args[0])
			for _, b := range awarded {
				fmt.Fprintf(out, "  %s New badge: %s\n", b.Icon, b.Name)
			}
			return nil
		})
	},
}

var ledgerRejectCmd = &cobra.Command{
	Use:   "reject <submission-id>",
	Short: "Reject a submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(ctx context.Context, l *store.Store) error {
			if err := l.SetStatus(ctx, args[0], model.StatusRejected, rejectReason); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Rejected %s\n", args[0])
			return nil
		})
	},
}

var ledgerFlagCmd = &cobra.Command{
	Use:   "flag <submission-id>",
	Short: "Flag a submission for a closer look (approval clears it)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(ctx context.Context, l *store.Store) error {
			if err := l.Flag(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "⚑ Flagged %s\n", args[0])
			return nil
		})
	},
}

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show totals across the whole ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(ctx context.Context, l *store.Store) error {
			st, err := l.Stats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submissions:        %d (%d approved, %d flagged)\n", st.TotalSubmissions, st.TotalApproved, st.TotalFlagged)
			fmt.Fprintf(out, "Volunteers:         %d\n", st.Volunteers)
			fmt.Fprintf(out, "Countries:          %d\n", st.Countries)
			fmt.Fprintf(out, "Tokens distributed: %d\n", st.TokensDistributed)
			fmt.Fprintf(out, "Approved hours:     %g\n", st.ApprovedHours)
			if st.MostActiveCountry != "" {
				fmt.Fprintf(out, "Most active:        %s\n", st.MostActiveCountry)
			}
			return nil
		})
	},
}

var ledgerBadgesCmd = &cobra.Command{
	Use:   "badges <user-id>",
	Short: "Show a user's badges and what is left to earn",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := args[0]
		return withLedger(func(ctx context.Context, l *store.Store) error {
			earned, err := l.BadgesByUser(ctx, userID)
			if err != nil {
				return err
			}
			history, err := l.ListByUser(ctx, userID)
			if err != nil {
				return err
			}

			have := make(map[string]bool, len(earned))
			for _, e := range earned {
				have[e.BadgeID] = true
			}

			out := cmd.OutOrStdout()
			for _, b := range badge.All {
				if have[b.ID] {
					fmt.Fprintf(out, "%s %-18s earned\n", b.Icon, b.Name)
					continue
				}
				fmt.Fprintf(out, "   %-18s %s\n", b.Name, b.Hint(history))
			}
			return nil
		})
	},
}

var ledgerLevelCmd = &cobra.Command{
	Use:   "level <user-id>",
	Short: "Show a user's level, XP and tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(ctx context.Context, l *store.Store) error {
			totals, err := l.TotalsByUser(ctx, args[0])
			if err != nil {
				return err
			}
			p := badge.Progress(totals.XP)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Level %d · %s\n", p.Level, p.Title)
			if p.IsMax {
				fmt.Fprintf(out, "XP:     %d (max level)\n", p.XP)
			} else {
				fmt.Fprintf(out, "XP:     %d (%d/%d to level %d)\n", p.XP, p.Progress, p.Needed, p.Level+1)
			}
			fmt.Fprintf(out, "Tokens: %d\n", totals.Tokens)
			return nil
		})
	},
}

func withLedger(fn func(ctx context.Context, l *store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
		return fmt.Errorf("no ledger at %s (score with --save first, or pass --db)", cfg.Store.Path)
	}

	l, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	return fn(context.Background(), l)
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd, ledgerApproveCmd, ledgerRejectCmd, ledgerFlagCmd,
		ledgerStatsCmd, ledgerBadgesCmd, ledgerLevelCmd)

	ledgerListCmd.Flags().StringVar(&ledgerStatus, "status", "", "only show this status (pending, approved, rejected)")
	ledgerListCmd.Flags().StringVar(&ledgerUser, "user", "", "only show this user's submissions")
	ledgerRejectCmd.Flags().StringVar(&rejectReason, "reason", "", "rejection reason")
}
