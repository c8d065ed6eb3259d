package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/xpnc/internal/model"
)

// Fallback base is min(50 + 20*hours, 200)
const (
	fallbackBase    = 50
	fallbackPerHour = 20
	fallbackCeiling = 200
)

type fallbackText struct {
	reasoning     string
	publicSummary string
}

// Fallback scores a submission from hours alone. Zero or NaN hours count as
// one hour; negative hours follow the formula down to a floor of 0.
// kind only changes the explanatory text; cause is quoted for request failures.
func Fallback(hours float64, kind model.FailureKind, cause error) model.ScoreResult {
	if hours == 0 || math.IsNaN(hours) {
		hours = 1
	}
	base := int(math.Round(math.Max(0, math.Min(fallbackBase+hours*fallbackPerHour, fallbackCeiling))))

	text := fallbackMessage(kind, cause)
	if kind == "" {
		kind = model.FailureMissingCredentials
	}

	return model.ScoreResult{
		ImpactScore:         base,
		AuthenticityScore:   weighted(base, 0.4, model.MaxAuthenticity),
		DepthScore:          weighted(base, 0.3, model.MaxDepth),
		LearningScore:       weighted(base, 0.2, model.MaxLearning),
		EffortScore:         weighted(base, 0.1, model.MaxEffort),
		FinalScore:          base,
		TotalBonusPercent:   0,
		TokenAirdropAmount:  TokensForScore(base),
		BonusesApplied:      []model.BonusApplied{},
		Verdict:             model.VerdictGenuine,
		AdminRecommendation: model.RecommendApprove,
		Reasoning:           text.reasoning,
		StandoutDetail:      "Not assessed: scored from hours logged.",
		PublicSummary:       text.publicSummary,
		RedFlags:            []string{},
		FailureKind:         kind,
	}
}

func weighted(base int, weight float64, ceiling int) int {
	return min(int(math.Round(float64(base)*weight)), ceiling)
}

func fallbackMessage(kind model.FailureKind, cause error) fallbackText {
	switch kind {
	case model.FailureTimeout:
		return fallbackText{
			reasoning:     "AI scoring timed out: the scoring service did not respond in time. Your submission was scored from hours logged.",
			publicSummary: "Your impact has been recorded. AI scoring was unavailable (timeout).",
		}
	case model.FailureRequestFailed:
		detail := "No further detail was returned."
		if cause != nil {
			detail = cause.Error() + "."
		}
		return fallbackText{
			reasoning:     fmt.Sprintf("AI scoring unavailable: the scoring request failed. %s Scored from hours logged instead.", detail),
			publicSummary: "Your impact has been recorded. AI scoring was temporarily unavailable.",
		}
	default:
		return fallbackText{
			reasoning:     "AI scoring skipped: no API key is configured for the scoring provider. Set XAI_API_KEY (or the configured provider's key) for full impact analysis.",
			publicSummary: "Your volunteer impact has been recorded. Configure an API key for AI-powered scoring.",
		}
	}
}
