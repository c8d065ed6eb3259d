package score

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/xpnc/internal/model"
)

// ErrMalformedReply is returned when a reply is not a JSON object
var ErrMalformedReply = errors.New("malformed scoring reply")

// Defaults substituted for absent or unusable reply fields
const (
	DefaultImpactScore       = 100
	DefaultAuthenticityScore = 80
	DefaultDepthScore        = 60
	DefaultLearningScore     = 40
	DefaultEffortScore       = 20

	DefaultReasoning      = "Impact recognized."
	DefaultStandoutDetail = "No single detail was highlighted."
	DefaultPublicSummary  = "Your volunteer impact has been scored."
)

var fencePattern = regexp.MustCompile("```json\\n?|\\n?```")

func stripFences(s string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(strings.TrimSpace(s), ""))
}

// ParseReply strips code fences from raw and normalizes the JSON object inside.
// Only an unparseable body is an error; every field is clamped or defaulted.
func ParseReply(raw string) (model.ScoreResult, error) {
	body := stripFences(raw)
	if body == "" {
		return model.ScoreResult{}, fmt.Errorf("%w: empty body", ErrMalformedReply)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return model.ScoreResult{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if fields == nil {
		return model.ScoreResult{}, fmt.Errorf("%w: reply is null", ErrMalformedReply)
	}

	return Normalize(fields), nil
}

// Normalize maps untrusted reply fields onto a well-formed ScoreResult
func Normalize(fields map[string]json.RawMessage) model.ScoreResult {
	final, ok := number(fields["final_score"])
	if !ok {
		final, ok = number(fields["impact_score"])
	}
	if !ok {
		final = DefaultImpactScore
	}
	finalScore := clamp(final, 0, model.MaxScore)

	tokens := TokensForScore(finalScore)
	if v, ok := number(fields["token_airdrop_amount"]); ok {
		tokens = clamp(v, 0, math.MaxInt32)
	}

	verdict := model.Verdict(enum(fields["authenticity_verdict"]))
	if !verdict.Valid() {
		verdict = model.VerdictGenuine
	}
	rec := model.Recommendation(enum(fields["admin_recommendation"]))
	if !rec.Valid() {
		rec = model.RecommendApprove
	}

	return model.ScoreResult{
		ImpactScore:         clampOr(fields["impact_score"], DefaultImpactScore, model.MaxScore),
		AuthenticityScore:   clampOr(fields["authenticity_score"], DefaultAuthenticityScore, model.MaxAuthenticity),
		DepthScore:          clampOr(fields["depth_score"], DefaultDepthScore, model.MaxDepth),
		LearningScore:       clampOr(fields["learning_score"], DefaultLearningScore, model.MaxLearning),
		EffortScore:         clampOr(fields["effort_score"], DefaultEffortScore, model.MaxEffort),
		FinalScore:          finalScore,
		TotalBonusPercent:   clampOr(fields["total_bonuses_percent"], 0, model.MaxBonusPercent),
		TokenAirdropAmount:  tokens,
		BonusesApplied:      bonuses(fields["bonuses_applied"]),
		Verdict:             verdict,
		AdminRecommendation: rec,
		Reasoning:           text(fields["reasoning"], DefaultReasoning),
		StandoutDetail:      text(fields["standout_detail"], DefaultStandoutDetail),
		PublicSummary:       text(fields["public_summary"], DefaultPublicSummary),
		RedFlags:            strs(fields["red_flags"]),
	}
}

// number accepts a JSON number or a numeric string. null counts as absent.
func number(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}

func clamp(v float64, lo, hi int) int {
	return int(math.Round(math.Max(float64(lo), math.Min(float64(hi), v))))
}

func clampOr(raw json.RawMessage, def, hi int) int {
	v, ok := number(raw)
	if !ok {
		return def
	}
	return clamp(v, 0, hi)
}

// enum returns a string field verbatim; only exact enumerated values are valid
func enum(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func text(raw json.RawMessage, def string) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// bonuses keeps well-formed entries of a JSON array; any other shape yields []
func bonuses(raw json.RawMessage) []model.BonusApplied {
	out := []model.BonusApplied{}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}

	for _, item := range items {
		var entry map[string]json.RawMessage
		if err := json.Unmarshal(item, &entry); err != nil || entry == nil {
			continue
		}
		points, _ := number(entry["points_added"])
		out = append(out, model.BonusApplied{
			Name:        text(entry["bonus_name"], ""),
			Reason:      text(entry["reason"], ""),
			PointsAdded: int(math.Round(points)),
		})
	}
	return out
}

func strs(raw json.RawMessage) []string {
	out := []string{}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}

	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
