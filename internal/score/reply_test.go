package score

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/xpnc/internal/model"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fence without newline", "```json{\"a\":1}```", `{"a":1}`},
		{"surrounding space", "  \n```json\n{\"a\":1}\n```\n ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseReply_Clamping(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantFinal int
	}{
		{"above ceiling", `{"final_score": 9999}`, 500},
		{"negative", `{"final_score": -5}`, 0},
		{"falls back to impact", `{"impact_score": 240}`, 240},
		{"null final uses impact", `{"final_score": null, "impact_score": 180}`, 180},
		{"numeric string", `{"final_score": "310"}`, 310},
		{"fractional rounds", `{"final_score": 299.6}`, 300},
		{"absent", `{}`, 100},
		{"garbage string", `{"final_score": "lots"}`, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseReply(tt.reply)
			if err != nil {
				t.Fatalf("ParseReply: %v", err)
			}
			if r.FinalScore != tt.wantFinal {
				t.Errorf("FinalScore = %d, want %d", r.FinalScore, tt.wantFinal)
			}
			if r.TokenAirdropAmount != TokensForScore(r.FinalScore) {
				t.Errorf("tokens = %d, want derived %d", r.TokenAirdropAmount, TokensForScore(r.FinalScore))
			}
		})
	}
}

func TestParseReply_SubScores(t *testing.T) {
	r, err := ParseReply(`{
		"impact_score": 800,
		"authenticity_score": 250,
		"depth_score": -10,
		"learning_score": 100,
		"total_bonuses_percent": 120
	}`)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}

	if r.ImpactScore != 500 || r.AuthenticityScore != 200 || r.DepthScore != 0 || r.LearningScore != 100 {
		t.Errorf("clamped scores = %d/%d/%d/%d", r.ImpactScore, r.AuthenticityScore, r.DepthScore, r.LearningScore)
	}
	if r.EffortScore != DefaultEffortScore {
		t.Errorf("EffortScore = %d, want default %d", r.EffortScore, DefaultEffortScore)
	}
	if r.TotalBonusPercent != model.MaxBonusPercent {
		t.Errorf("TotalBonusPercent = %d, want 75", r.TotalBonusPercent)
	}
}

func TestParseReply_Defaults(t *testing.T) {
	r, err := ParseReply(`{"authenticity_verdict": "probably fine", "admin_recommendation": 7, "reasoning": "  "}`)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}

	want := model.ScoreResult{
		ImpactScore:         DefaultImpactScore,
		AuthenticityScore:   DefaultAuthenticityScore,
		DepthScore:          DefaultDepthScore,
		LearningScore:       DefaultLearningScore,
		EffortScore:         DefaultEffortScore,
		FinalScore:          100,
		TokenAirdropAmount:  25,
		BonusesApplied:      []model.BonusApplied{},
		Verdict:             model.VerdictGenuine,
		AdminRecommendation: model.RecommendApprove,
		Reasoning:           DefaultReasoning,
		StandoutDetail:      DefaultStandoutDetail,
		PublicSummary:       DefaultPublicSummary,
		RedFlags:            []string{},
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestParseReply_EnumsMatchExactly(t *testing.T) {
	tests := []struct {
		name    string
		verdict string
		rec     string
	}{
		{"capitalized", "Suspicious", "Reject"},
		{"upper case", "QUESTIONABLE", "REVIEW"},
		{"padded", " suspicious ", "reject "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := fmt.Sprintf(`{"final_score": 100, "authenticity_verdict": %q, "admin_recommendation": %q}`, tt.verdict, tt.rec)
			r, err := ParseReply(raw)
			if err != nil {
				t.Fatalf("ParseReply: %v", err)
			}
			if r.Verdict != model.VerdictGenuine || r.AdminRecommendation != model.RecommendApprove {
				t.Errorf("verdict/rec = %s/%s, want genuine/approve", r.Verdict, r.AdminRecommendation)
			}
		})
	}
}

func TestParseReply_EnumsAndTokens(t *testing.T) {
	r, err := ParseReply(`{"final_score": 420, "authenticity_verdict": "suspicious", "admin_recommendation": "reject", "token_airdrop_amount": 5}`)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	if r.Verdict != model.VerdictSuspicious || r.AdminRecommendation != model.RecommendReject {
		t.Errorf("verdict/rec = %s/%s", r.Verdict, r.AdminRecommendation)
	}
	if r.TokenAirdropAmount != 5 {
		t.Errorf("reply's own token amount should win, got %d", r.TokenAirdropAmount)
	}

	r, err = ParseReply(`{"final_score": 420, "token_airdrop_amount": -40}`)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	if r.TokenAirdropAmount != 0 {
		t.Errorf("negative token amount should clamp to 0, got %d", r.TokenAirdropAmount)
	}
}

func TestParseReply_ListShapes(t *testing.T) {
	r, err := ParseReply(`{
		"final_score": 250,
		"bonuses_applied": "Underserved Region",
		"red_flags": {"flag": "generic"}
	}`)
	if err != nil {
		t.Fatalf("wrong list shapes must not fail: %v", err)
	}
	if len(r.BonusesApplied) != 0 || r.BonusesApplied == nil {
		t.Errorf("BonusesApplied = %#v, want []", r.BonusesApplied)
	}
	if len(r.RedFlags) != 0 || r.RedFlags == nil {
		t.Errorf("RedFlags = %#v, want []", r.RedFlags)
	}
	if r.FinalScore != 250 || r.AuthenticityScore != DefaultAuthenticityScore {
		t.Errorf("other fields should still apply: %+v", r)
	}

	r, err = ParseReply(`{
		"bonuses_applied": [{"bonus_name": "Relationship Depth", "reason": "weekly visits", "points_added": "30"}, "junk", null],
		"red_flags": ["vague outcome", 3, ""]
	}`)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	wantBonuses := []model.BonusApplied{{Name: "Relationship Depth", Reason: "weekly visits", PointsAdded: 30}}
	if diff := cmp.Diff(wantBonuses, r.BonusesApplied); diff != "" {
		t.Errorf("bonuses (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"vague outcome"}, r.RedFlags); diff != "" {
		t.Errorf("red flags (-want +got):\n%s", diff)
	}
}

func TestParseReply_Malformed(t *testing.T) {
	for _, raw := range []string{"", "```json\n```", `{"final_score": 3`, `[1, 2]`, `null`, "I cannot score this."} {
		if _, err := ParseReply(raw); !errors.Is(err, ErrMalformedReply) {
			t.Errorf("ParseReply(%q) err = %v, want ErrMalformedReply", raw, err)
		}
	}
}

func TestParseReply_Idempotent(t *testing.T) {
	raw := "```json\n" + `{"impact_score": 210, "final_score": 260, "bonuses_applied": [{"bonus_name": "Structural Impact", "reason": "trained two volunteers", "points_added": 50}], "red_flags": ["short reflection"], "authenticity_verdict": "questionable", "admin_recommendation": "review", "reasoning": "Some detail.", "public_summary": "Thanks!"}` + "\n```"

	first, err := ParseReply(raw)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	second, err := ParseReply(raw)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("normalization is not pure (-first +second):\n%s", diff)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Error("encoded results differ")
	}
}
