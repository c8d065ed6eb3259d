package badge

import (
	"testing"
	"time"

	"github.com/ppiankov/xpnc/internal/model"
)

func approved(activity, country, continent, date string, hours float64) model.ScoredSubmission {
	return model.ScoredSubmission{
		Submission: model.Submission{
			ActivityType:      activity,
			LocationCountry:   country,
			LocationContinent: continent,
			ActivityDate:      date,
			HoursLogged:       hours,
		},
		Status: model.StatusApproved,
	}
}

func ids(badges []Badge) map[string]bool {
	out := make(map[string]bool, len(badges))
	for _, b := range badges {
		out[b.ID] = true
	}
	return out
}

func TestLevelFromXP(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{-5, 1},
		{0, 1},
		{99, 1},
		{100, 1},
		{299, 1},
		{300, 2},
		{600, 3},
		{899, 3},
		{900, 4},
		{1500, 5},
		{10000, 9},
		{14999, 9},
		{15000, 10},
		{1_000_000, 10},
	}
	for _, tt := range tests {
		if got := LevelFromXP(tt.xp); got != tt.want {
			t.Errorf("LevelFromXP(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestProgress(t *testing.T) {
	p := Progress(450)
	if p.Level != 2 || p.Title != "Seeker" {
		t.Fatalf("unexpected level: %+v", p)
	}
	if p.Current != 300 || p.Next != 600 || p.Needed != 300 || p.Progress != 150 {
		t.Errorf("unexpected progress: %+v", p)
	}

	top := Progress(20000)
	if !top.IsMax || top.Level != 10 || top.Title != "Eternal" {
		t.Fatalf("unexpected max level: %+v", top)
	}
	if top.Next != 0 || top.Needed != 1 || top.Progress != 1 {
		t.Errorf("max level progress: %+v", top)
	}
}

func TestEvaluate_FirstStep(t *testing.T) {
	pending := model.ScoredSubmission{Status: model.StatusPending, Submission: model.Submission{HoursLogged: 1}}
	if got := Evaluate([]model.ScoredSubmission{pending}, nil); len(got) != 0 {
		t.Errorf("pending work should earn nothing, got %v", ids(got))
	}

	got := Evaluate([]model.ScoredSubmission{approved("food", "", "", "", 1)}, nil)
	if !ids(got)["first_step"] {
		t.Errorf("expected first_step, got %v", ids(got))
	}
}

func TestEvaluate_SkipsEarned(t *testing.T) {
	subs := []model.ScoredSubmission{approved("food", "", "", "", 1)}
	got := Evaluate(subs, map[string]bool{"first_step": true})
	if ids(got)["first_step"] {
		t.Error("already earned badge awarded again")
	}
}

func TestEvaluate_Milestones(t *testing.T) {
	tests := []struct {
		name  string
		badge string
		subs  []model.ScoredSubmission
		want  bool
	}{
		{
			name:  "three countries",
			badge: "global_citizen",
			subs: []model.ScoredSubmission{
				approved("food", "Kenya", "", "", 1),
				approved("food", "Peru", "", "", 1),
				approved("food", "Japan", "", "", 1),
			},
			want: true,
		},
		{
			name:  "repeated country",
			badge: "global_citizen",
			subs: []model.ScoredSubmission{
				approved("food", "Kenya", "", "", 1),
				approved("food", "Kenya", "", "", 1),
				approved("food", "Peru", "", "", 1),
			},
		},
		{
			name:  "fifty hours",
			badge: "marathon_heart",
			subs:  []model.ScoredSubmission{approved("food", "", "", "", 30), approved("youth", "", "", "", 20)},
			want:  true,
		},
		{
			name:  "three continents",
			badge: "continent_hopper",
			subs: []model.ScoredSubmission{
				approved("food", "", "Africa", "", 1),
				approved("food", "", "Asia", "", 1),
				approved("food", "", "Europe", "", 1),
			},
			want: true,
		},
		{
			name:  "five education",
			badge: "mentor",
			subs: []model.ScoredSubmission{
				approved("education", "", "", "", 1),
				approved("Education", "", "", "", 1),
				approved("education", "", "", "", 1),
				approved("education", "", "", "", 1),
				approved("education", "", "", "", 1),
			},
			want: true,
		},
		{
			name:  "two food",
			badge: "hunger_fighter",
			subs:  []model.ScoredSubmission{approved("food", "", "", "", 1), approved("food", "", "", "", 1)},
		},
		{
			name:  "three consecutive months across a year end",
			badge: "consistent",
			subs: []model.ScoredSubmission{
				approved("food", "", "", "2024-11-03", 1),
				approved("food", "", "", "2024-12-20", 1),
				approved("food", "", "", "2025-01-02", 1),
			},
			want: true,
		},
		{
			name:  "gap between months",
			badge: "consistent",
			subs: []model.ScoredSubmission{
				approved("food", "", "", "2025-01-03", 1),
				approved("food", "", "", "2025-02-20", 1),
				approved("food", "", "", "2025-04-02", 1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Evaluate(tt.subs, nil))[tt.badge]
			if got != tt.want {
				t.Errorf("%s awarded = %v, want %v", tt.badge, got, tt.want)
			}
		})
	}
}

func TestEvaluate_ConsistentFallsBackToCreatedAt(t *testing.T) {
	var subs []model.ScoredSubmission
	for m := time.March; m <= time.May; m++ {
		s := approved("food", "", "", "", 1)
		s.CreatedAt = time.Date(2025, m, 10, 0, 0, 0, 0, time.UTC)
		subs = append(subs, s)
	}
	if !ids(Evaluate(subs, nil))["consistent"] {
		t.Error("expected consistent from creation times")
	}
}

func TestEvaluate_ScoreBasedBadgesIgnoreStatus(t *testing.T) {
	sub := model.ScoredSubmission{
		Status: model.StatusPending,
		Score: model.ScoreResult{
			FinalScore:     420,
			BonusesApplied: []model.BonusApplied{{Name: "Rare Critical Need", PointsAdded: 50}},
		},
	}
	got := ids(Evaluate([]model.ScoredSubmission{sub}, nil))
	if !got["deep_impact"] || !got["rare_soul"] {
		t.Errorf("expected deep_impact and rare_soul, got %v", got)
	}
}

func TestHint(t *testing.T) {
	subs := []model.ScoredSubmission{
		approved("food", "Kenya", "", "", 12.5),
	}
	subs[0].Score.FinalScore = 150

	tests := map[string]string{
		"first_step":     "",
		"global_citizen": "Volunteer in 2 more countries",
		"marathon_heart": "37.5 more hours to go",
		"hunger_fighter": "2 more food distribution submissions",
		"deep_impact":    "Score 250 more points on a submission",
	}
	for id, want := range tests {
		b, ok := Lookup(id)
		if !ok {
			t.Fatalf("badge %s missing", id)
		}
		if got := b.Hint(subs); got != want {
			t.Errorf("%s hint = %q, want %q", id, got, want)
		}
	}

	subs = append(subs, approved("food", "Peru", "", "", 1))
	b, _ := Lookup("global_citizen")
	if got := b.Hint(subs); got != "Volunteer in 1 more country" {
		t.Errorf("singular hint = %q", got)
	}
}

func TestLookup_Unknown(t *testing.T) {
	if _, ok := Lookup("nope"); ok {
		t.Error("unknown badge found")
	}
}
