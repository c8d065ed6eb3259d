package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/xpnc/internal/metrics"
	"github.com/ppiankov/xpnc/internal/model"
)

var (
	scoreSave       bool
	scorePrompt     bool
	scoreUser       string
	scoreActivity   string
	scoreHours      float64
	scoreReflection string
	scoreLocation   string
	scoreCountry    string
	scoreContinent  string
	scoreDate       string
	scorePhoto      bool
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score [submission.json|submission.yaml|-]",
	Short: "Score a single volunteer submission",
	Long: `Score sends one submission to the configured scoring provider and prints
the normalized result as JSON.

The submission comes from a JSON or YAML file, from stdin ("-"), or from
flags when no file is given. The result is always well-formed: without an
API key, on timeout or on an unreadable reply the score is derived from the
hours logged and failure_kind says why.

Example:
  xpnc score submission.json
  xpnc score --activity food --hours 3 --reflection "Sorted donations for 40 families"
  cat submission.json | xpnc score - --save --user alice
  xpnc score submission.yaml --prompt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().BoolVar(&scoreSave, "save", false, "record the scored submission in the ledger")
	scoreCmd.Flags().BoolVar(&scorePrompt, "prompt", false, "print the scoring request instead of sending it")
	scoreCmd.Flags().StringVar(&scoreUser, "user", "", "user ID to record the submission under")

	// Inline submission flags
	scoreCmd.Flags().StringVar(&scoreActivity, "activity", "", "activity category (education, food, ...)")
	scoreCmd.Flags().Float64Var(&scoreHours, "hours", 0, "hours volunteered")
	scoreCmd.Flags().StringVar(&scoreReflection, "reflection", "", "the volunteer's reflection")
	scoreCmd.Flags().StringVar(&scoreLocation, "location", "", "location name")
	scoreCmd.Flags().StringVar(&scoreCountry, "country", "", "location country")
	scoreCmd.Flags().StringVar(&scoreContinent, "continent", "", "location continent")
	scoreCmd.Flags().StringVar(&scoreDate, "date", "", "activity date (YYYY-MM-DD, default today)")
	scoreCmd.Flags().BoolVar(&scorePhoto, "photo", false, "a photo was submitted")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var sub model.Submission
	if len(args) == 1 {
		sub, err = readSubmission(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
	} else {
		sub = model.Submission{
			ActivityType:      scoreActivity,
			HoursLogged:       scoreHours,
			Reflection:        scoreReflection,
			LocationName:      scoreLocation,
			LocationCountry:   scoreCountry,
			LocationContinent: scoreContinent,
			ActivityDate:      scoreDate,
			PhotoSubmitted:    scorePhoto,
		}
	}
	if scoreUser != "" {
		sub.UserID = scoreUser
	}

	if err := sub.Validate(); err != nil {
		return err
	}
	if !model.IsKnownCategory(sub.ActivityType) {
		fmt.Fprintf(os.Stderr, "warning: %q is not a known activity category (%s)\n",
			sub.ActivityType, strings.Join(model.ActivityCategories, ", "))
	}

	m := metrics.NewManager()
	scorer, err := newScorer(cfg, m)
	if err != nil {
		return err
	}

	if scorePrompt {
		return printJSON(cmd.OutOrStdout(), scorer.BuildRequest(sub), cfg.Output.Pretty)
	}

	// the scorer bounds the provider call itself; this only guards the ledger write
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.LLM.Timeout+30)*time.Second)
	defer cancel()

	result := scorer.ScoreImpact(ctx, sub)

	if scoreSave {
		ledger, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer ledger.Close()

		rec, err := ledger.SaveScored(ctx, sub, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Saved %s (%s)\n", rec.Submission.ID, rec.Status)
	}

	writeMetrics(m, cfg.Metrics.Textfile)
	return printJSON(cmd.OutOrStdout(), result, cfg.Output.Pretty)
}
