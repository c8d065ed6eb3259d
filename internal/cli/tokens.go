package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ppiankov/xpnc/internal/score"
)

// tokensCmd represents the tokens command
var tokensCmd = &cobra.Command{
	Use:   "tokens [score]",
	Short: "Show the token award for a final score",
	Long: `Tokens prints the token award for a final impact score, or the full
award table when no score is given.

Example:
  xpnc tokens 320
  xpnc tokens`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			for _, b := range score.TokenBands {
				fmt.Fprintf(out, "%3d-%-3d  %3d tokens\n", b.Min, b.Max, b.Tokens)
			}
			return nil
		}

		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("score must be an integer: %w", err)
		}
		fmt.Fprintln(out, score.TokensForScore(v))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokensCmd)
}
