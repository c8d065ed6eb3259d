package score

import (
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/xpnc/internal/bonus"
	"github.com/ppiankov/xpnc/internal/model"
)

func TestBuildRequest_FullSubmission(t *testing.T) {
	sub := model.Submission{
		ActivityType:      "food",
		HoursLogged:       2.5,
		LocationName:      "Riverside Pantry",
		LocationCountry:   "Kenya",
		LocationContinent: "Africa",
		ActivityDate:      "2025-09-03",
		Reflection:        "Sorted rice with Wanjiru.\nShe laughed at my knots.",
		PhotoSubmitted:    true,
	}

	req := BuildRequest(sub, time.Now())

	if req.System != SystemPrompt {
		t.Error("system prompt should be the fixed policy")
	}

	want := `Volunteer Submission:
- Activity Type: food
- Hours: 2.5
- Location: Riverside Pantry, Kenya
- Date: 2025-09-03
- Photo submitted: yes
- Written Reflection: "Sorted rice with Wanjiru.
She laughed at my knots."
- Active Bonus Months This Month: 9: Hunger Action Month — Food security (categories: food, hunger, community)
- Region/Continent: Africa

Score this submission. Return only valid JSON.`
	if req.User != want {
		t.Errorf("user message mismatch:\n got: %s\nwant: %s", req.User, want)
	}
}

func TestBuildRequest_Defaults(t *testing.T) {
	now := time.Date(2025, 2, 11, 9, 0, 0, 0, time.UTC)

	req := BuildRequest(model.Submission{HoursLogged: 1}, now)

	for _, line := range []string{
		"- Activity Type: volunteering",
		"- Hours: 1\n",
		"- Location: Community location\n",
		"- Date: 2025-02-11",
		"- Photo submitted: no",
		`- Written Reflection: ""`,
		"- Active Bonus Months This Month: 2: Black History Month",
		"- Region/Continent: Unknown",
	} {
		if !strings.Contains(req.User, line) {
			t.Errorf("missing %q in:\n%s", line, req.User)
		}
	}
}

func TestBuildRequest_NoActiveBonus(t *testing.T) {
	sub := model.Submission{HoursLogged: 1, ActivityDate: "last tuesday"}
	if req := BuildRequest(sub, time.Now()); !strings.Contains(req.User, "This Month: "+NoActiveBonus) {
		t.Errorf("unparseable date should have no bonus:\n%s", req.User)
	}

	empty := NewScorer(nil, WithTable(bonus.NewTable(nil)))
	sub.ActivityDate = "2025-06-01"
	if req := empty.BuildRequest(sub); !strings.Contains(req.User, NoActiveBonus) {
		t.Errorf("missing rule should read %q:\n%s", NoActiveBonus, req.User)
	}
}

func TestSystemPrompt_Shape(t *testing.T) {
	for _, want := range []string{
		"0-200 pts", "0-150 pts", "0-100 pts", "0-50 pts",
		"max +75%", "Rare Critical Need +25%",
		`"token_airdrop_amount"`, `"public_summary"`,
	} {
		if !strings.Contains(SystemPrompt, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}
