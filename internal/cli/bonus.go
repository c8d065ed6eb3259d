package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/xpnc/internal/bonus"
	"github.com/ppiankov/xpnc/internal/model"
	"github.com/ppiankov/xpnc/internal/score"
)

var (
	bonusMonth int
	bonusDate  string
)

// bonusCmd represents the bonus command
var bonusCmd = &cobra.Command{
	Use:   "bonus",
	Short: "Show the monthly awareness bonus table",
	Long: `Bonus prints the awareness bonus rules. With --month or --date it prints
only the rule active in that month.

Example:
  xpnc bonus
  xpnc bonus --month 9
  xpnc bonus --date 2025-11-02
  xpnc bonus match food --date 2025-09-15`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if bonusMonth == 0 && bonusDate == "" {
			for _, r := range bonus.Default.Rules() {
				fmt.Fprintln(out, r.Describe())
			}
			return nil
		}

		month := bonusMonth
		if bonusDate != "" {
			t, err := parseDateFlag(bonusDate)
			if err != nil {
				return err
			}
			month = int(t.Month())
		}

		rule, ok := bonus.Default.Lookup(month)
		if !ok {
			fmt.Fprintln(out, score.NoActiveBonus)
			return nil
		}
		fmt.Fprintln(out, rule.Describe())
		return nil
	},
}

var bonusMatchCmd = &cobra.Command{
	Use:   "match <category>",
	Short: "Check whether a category qualifies for the month's bonus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date := time.Now()
		if bonusDate != "" {
			t, err := parseDateFlag(bonusDate)
			if err != nil {
				return err
			}
			date = t
		}

		if bonus.CategoryMatches(args[0], date) {
			rule, _ := bonus.ActiveForDate(date)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s qualifies: %s\n", args[0], rule.Note)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✗ %s does not qualify in %s\n", args[0], date.Format("January"))
		return nil
	},
}

func parseDateFlag(s string) (time.Time, error) {
	t, ok := model.ParseActivityDate(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

func init() {
	rootCmd.AddCommand(bonusCmd)
	bonusCmd.AddCommand(bonusMatchCmd)

	bonusCmd.Flags().IntVar(&bonusMonth, "month", 0, "calendar month (1-12)")
	bonusCmd.PersistentFlags().StringVar(&bonusDate, "date", "", "date (YYYY-MM-DD) whose month to use")
}
